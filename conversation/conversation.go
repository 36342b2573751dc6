// Package conversation folds the event stream into a renderable transcript
// and drives the two-state session machine consumers interact through.
package conversation

import (
	"time"

	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
)

// StepKind classifies one intermediate step inside an assistant turn.
type StepKind string

const (
	StepThinking   StepKind = "thinking"
	StepStatus     StepKind = "status"
	StepToolCall   StepKind = "tool_call"
	StepToolResult StepKind = "tool_result"
	StepError      StepKind = "error"
)

// Step is one intermediate event folded into an assistant turn. Exactly one
// payload field is populated according to Kind.
type Step struct {
	Kind       StepKind
	Time       time.Time
	Text       string
	ToolCall   *protocol.ToolCall
	ToolResult *protocol.ToolResult
}

// Turn is one entry of the transcript: either a user query or an assistant
// response under construction.
type Turn struct {
	Role  protocol.Role
	Query string // user turns

	// Assistant turns accumulate steps while running; FinalAnswer is the
	// concatenation of text chunks in arrival order.
	Steps       []Step
	FinalAnswer string
	Failed      bool
}

// Conversation is the ordered transcript of turns.
type Conversation struct {
	Turns []Turn
}

// History projects the transcript into the message list replayed on the next
// run request: user queries and non-empty assistant final answers only.
func (c *Conversation) History() []protocol.Message {
	var history []protocol.Message
	for _, t := range c.Turns {
		switch t.Role {
		case protocol.RoleUser:
			history = append(history, protocol.Message{Role: protocol.RoleUser, Content: t.Query})
		case protocol.RoleAssistant:
			if t.FinalAnswer != "" {
				history = append(history, protocol.Message{Role: protocol.RoleAssistant, Content: t.FinalAnswer})
			}
		}
	}
	return history
}

// last returns the assistant turn under construction, or nil.
func (c *Conversation) last() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	t := &c.Turns[len(c.Turns)-1]
	if t.Role != protocol.RoleAssistant {
		return nil
	}
	return t
}

// fold applies one event to the transcript. Terminal handling (state
// transitions, pending confirmation) lives in Session; fold only records.
func (c *Conversation) fold(ev protocol.Event) {
	t := c.last()
	if t == nil {
		return
	}
	switch ev.Kind {
	case protocol.EventThinking:
		t.Steps = append(t.Steps, Step{Kind: StepThinking, Time: ev.Time, Text: ev.Text})
	case protocol.EventStatus:
		t.Steps = append(t.Steps, Step{Kind: StepStatus, Time: ev.Time, Text: ev.Text})
	case protocol.EventToolCall:
		t.Steps = append(t.Steps, Step{Kind: StepToolCall, Time: ev.Time, ToolCall: ev.ToolCall})
	case protocol.EventToolResult:
		t.Steps = append(t.Steps, Step{Kind: StepToolResult, Time: ev.Time, ToolResult: ev.ToolResult})
	case protocol.EventTextChunk:
		t.FinalAnswer += ev.Text
	case protocol.EventError:
		t.Steps = append(t.Steps, Step{Kind: StepError, Time: ev.Time, Text: ev.Error})
		t.Failed = true
	}
}
