package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SuperCmdLabs/SuperCmd-sub001/conversation"
	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"github.com/SuperCmdLabs/SuperCmd-sub001/runtime"
)

// Terminal handles the terminal/CLI interaction mode.
type Terminal struct {
	sess      *conversation.Session
	svc       *runtime.Service
	verbosity string // none, info, all

	in  *bufio.Scanner
	out io.Writer
}

// New creates a new Terminal instance reading from stdin and writing to
// stdout.
func New(sess *conversation.Session, svc *runtime.Service, verbosity string) *Terminal {
	return &Terminal{
		sess:      sess,
		svc:       svc,
		verbosity: verbosity,
		in:        bufio.NewScanner(os.Stdin),
		out:       os.Stdout,
	}
}

// Run starts the interactive terminal session.
func (t *Terminal) Run(initialPrompt string) error {
	if initialPrompt != "" {
		t.processTurn(initialPrompt)
	}

	for {
		fmt.Fprint(t.out, "You: ")
		if !t.in.Scan() {
			// EOF or read error ends the session
			break
		}

		userInput := strings.TrimSpace(t.in.Text())
		if userInput == "" {
			continue
		}

		switch userInput {
		case "/quit", "/exit":
			return t.in.Err()
		case "/new":
			t.sess.Reset()
			fmt.Fprintln(t.out, "Started a new conversation.")
			continue
		case "/retry":
			if !t.sess.Retry() {
				fmt.Fprintln(t.out, "Nothing to retry.")
				continue
			}
			t.followRun()
			continue
		}

		t.processTurn(userInput)
	}

	return t.in.Err()
}

// processTurn submits one user prompt and follows the run to completion.
func (t *Terminal) processTurn(userInput string) {
	if !t.sess.Submit(userInput) {
		return
	}
	t.followRun()
}

// followRun consumes the event stream until the active run reaches a
// terminal state or the user cancels it from a confirmation prompt.
func (t *Terminal) followRun() {
	requestID := t.sess.RequestID()

	for ev := range t.svc.Events() {
		t.sess.HandleEvent(ev)
		// Events from cancelled or superseded runs are dropped unrendered.
		if ev.RequestID != requestID {
			continue
		}
		t.render(ev)

		if ev.Kind == protocol.EventConfirmNeeded && ev.Confirmation != nil {
			if !t.promptConfirmation(*ev.Confirmation) {
				// User chose to cancel the whole run.
				return
			}
		}
		if ev.Terminal() {
			break
		}
	}

	if t.sess.CanRetry() {
		fmt.Fprintln(t.out, "Type /retry to run the last prompt again.")
	}
}

// promptConfirmation asks for the approve/deny decision. Typing /cancel
// aborts the whole run instead; the return value reports whether the run is
// still active.
func (t *Terminal) promptConfirmation(c protocol.Confirmation) bool {
	for {
		fmt.Fprintf(t.out, "%s (y/n, or /cancel): ", c.Message)
		if !t.in.Scan() {
			t.sess.Cancel()
			return false
		}
		switch strings.TrimSpace(strings.ToLower(t.in.Text())) {
		case "y", "yes":
			t.sess.ConfirmTool(c.ToolCallID, true)
			return true
		case "n", "no":
			t.sess.ConfirmTool(c.ToolCallID, false)
			return true
		case "/cancel":
			t.sess.Cancel()
			return false
		}
	}
}

func (t *Terminal) render(ev protocol.Event) {
	switch ev.Kind {
	case protocol.EventThinking:
		fmt.Fprintf(t.out, "supercmd: %s\n", ev.Text)
	case protocol.EventStatus:
		fmt.Fprintf(t.out, "[%s]\n", ev.Text)
	case protocol.EventToolCall:
		if ev.ToolCall == nil {
			return
		}
		if t.verbosity == "all" {
			fmt.Fprintf(t.out, "supercmd wants to call tool `%s` with args: %v\n", ev.ToolCall.Name, ev.ToolCall.Args)
		} else if t.verbosity == "info" {
			fmt.Fprintf(t.out, "supercmd wants to call tool `%s`\n", ev.ToolCall.Name)
		}
	case protocol.EventToolResult:
		if ev.ToolResult == nil {
			return
		}
		if t.verbosity == "all" {
			fmt.Fprintf(t.out, "Tool `%s` output: %s\n", ev.ToolResult.Name, ev.ToolResult.Output)
		}
	case protocol.EventTextChunk:
		fmt.Fprint(t.out, ev.Text)
	case protocol.EventDone:
		fmt.Fprintln(t.out)
	case protocol.EventError:
		fmt.Fprintf(t.out, "Error: %s\n", ev.Error)
	}
}
