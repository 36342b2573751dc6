// Package terminal implements the interactive command-line front end.
//
// It is a thin consumer of the event protocol: user input is submitted
// through a conversation session, and the resulting event stream is rendered
// line by line until the run reaches a terminal state. The terminal never
// talks to a provider directly; everything flows through the runtime
// service.
//
// # Commands
//
//   - /quit, /exit: end the session
//   - /new: discard the transcript and start a fresh conversation
//   - /retry: resubmit the last prompt after a failed run
//   - /cancel: available at a confirmation prompt, aborts the active run
//
// # Verbosity Levels
//
// Tool execution output follows the configured verbosity:
//
//   - none: no tool execution information is displayed
//   - info: tool names are displayed when called
//   - all: tool names, arguments, and results are displayed
package terminal
