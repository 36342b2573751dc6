// Package protocol defines the event stream exchanged between the agent
// runtime and its consumers. Every message carries the originating request id
// so a consumer tracking a single run can discard events from cancelled or
// superseded runs.
package protocol

import "time"

// EventKind discriminates the tagged union of stream messages.
type EventKind string

const (
	EventThinking      EventKind = "thinking"
	EventStatus        EventKind = "status"
	EventToolCall      EventKind = "tool_call"
	EventToolResult    EventKind = "tool_result"
	EventConfirmNeeded EventKind = "confirm_needed"
	EventTextChunk     EventKind = "text_chunk"
	EventDone          EventKind = "done"
	EventError         EventKind = "error"
)

// ToolCall announces that the loop is about to invoke a tool. Dangerous tool
// calls are suspended until a human approves them via the confirmation gate.
type ToolCall struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Args                map[string]any `json:"args,omitempty"`
	Dangerous           bool           `json:"dangerous"`
	ConfirmationMessage string         `json:"confirmationMessage,omitempty"`
}

// ToolResult reports completion of a previously announced tool call. A failed
// tool execution is reported here, not on the task-level error channel.
type ToolResult struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	DurationMS int64  `json:"durationMs"`
}

// Confirmation describes the single pending approve/deny decision.
type Confirmation struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Message    string         `json:"message"`
	Args       map[string]any `json:"args,omitempty"`
}

// Event is one message on the stream. Exactly one payload field is populated
// according to Kind.
type Event struct {
	RequestID    string        `json:"requestId"`
	Kind         EventKind     `json:"kind"`
	Time         time.Time     `json:"time"`
	Text         string        `json:"text,omitempty"`
	ToolCall     *ToolCall     `json:"toolCall,omitempty"`
	ToolResult   *ToolResult   `json:"toolResult,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Terminal reports whether no further events are valid for this request id.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}

func newEvent(requestID string, kind EventKind) Event {
	return Event{RequestID: requestID, Kind: kind, Time: time.Now().UTC()}
}

// Thinking is commentary from the loop, not part of the final answer.
func Thinking(requestID, text string) Event {
	ev := newEvent(requestID, EventThinking)
	ev.Text = text
	return ev
}

// Status is progress narration, e.g. a provider failover announcement.
func Status(requestID, text string) Event {
	ev := newEvent(requestID, EventStatus)
	ev.Text = text
	return ev
}

func NewToolCall(requestID string, tc ToolCall) Event {
	ev := newEvent(requestID, EventToolCall)
	ev.ToolCall = &tc
	return ev
}

func NewToolResult(requestID string, tr ToolResult) Event {
	ev := newEvent(requestID, EventToolResult)
	ev.ToolResult = &tr
	return ev
}

func ConfirmNeeded(requestID string, c Confirmation) Event {
	ev := newEvent(requestID, EventConfirmNeeded)
	ev.Confirmation = &c
	return ev
}

// TextChunk is an incremental fragment of the final answer. Consumers must
// concatenate chunks in arrival order with no separators.
func TextChunk(requestID, text string) Event {
	ev := newEvent(requestID, EventTextChunk)
	ev.Text = text
	return ev
}

func Done(requestID string) Event {
	return newEvent(requestID, EventDone)
}

func Error(requestID, message string) Event {
	ev := newEvent(requestID, EventError)
	ev.Error = message
	return ev
}

// EmitFunc delivers one event to the consumer stream. Events for a given
// request id are emitted in real-time order on a single logical stream.
type EmitFunc func(Event)

// ConfirmFunc suspends the caller until the human decision for the given
// tool-call id arrives, or the context is cancelled (treated as a denial).
type ConfirmFunc func(toolCallID string) bool
