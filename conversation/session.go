package conversation

import (
	"strings"
	"sync"

	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"github.com/google/uuid"
)

// State is the session's lifecycle position. The machine has exactly two
// states; the active request id is data attached to StateRunning.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Runtime is the back-end surface the session drives. Run starts a task
// asynchronously; events come back through HandleEvent.
type Runtime interface {
	Run(requestID, prompt string, history []protocol.Message)
	Confirm(toolCallID string, approved bool)
	Cancel(requestID string)
	Available() bool
}

// Session owns one conversation and serializes all access to it. Events and
// user actions may arrive from different goroutines.
type Session struct {
	mu sync.Mutex

	rt        Runtime
	state     State
	requestID string
	conv      Conversation
	pending   *protocol.Confirmation
	draft     string

	// newRequestID is swapped in tests for deterministic ids.
	newRequestID func() string
}

func NewSession(rt Runtime) *Session {
	return &Session{
		rt:           rt,
		state:        StateIdle,
		newRequestID: uuid.NewString,
	}
}

// Submit starts a run for the query. It is a no-op while a run is active or
// when the query is empty; it reports whether a run was started.
func (s *Session) Submit(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle || strings.TrimSpace(query) == "" {
		return false
	}

	// History is projected before the new turns are appended.
	history := s.conv.History()

	s.conv.Turns = append(s.conv.Turns,
		Turn{Role: protocol.RoleUser, Query: query},
		Turn{Role: protocol.RoleAssistant},
	)
	s.state = StateRunning
	s.requestID = s.newRequestID()
	s.pending = nil

	s.rt.Run(s.requestID, query, history)
	return true
}

// HandleEvent folds one stream event into the session. Events that do not
// carry the active request id are dropped, which makes terminal events
// idempotent and silences cancelled or superseded runs.
func (s *Session) HandleEvent(ev protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning || ev.RequestID != s.requestID {
		return
	}

	s.conv.fold(ev)

	switch ev.Kind {
	case protocol.EventConfirmNeeded:
		s.pending = ev.Confirmation
	case protocol.EventToolResult:
		// A result for the pending call means the decision was resolved
		// elsewhere (or denied); the prompt is stale either way.
		if s.pending != nil && ev.ToolResult != nil && s.pending.ToolCallID == ev.ToolResult.ID {
			s.pending = nil
		}
	}

	if ev.Terminal() {
		s.state = StateIdle
		s.requestID = ""
		s.pending = nil
	}
}

// ConfirmTool resolves the pending confirmation. Unknown or repeated ids are
// ignored.
func (s *Session) ConfirmTool(toolCallID string, approved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.ToolCallID != toolCallID {
		return
	}
	s.pending = nil
	s.rt.Confirm(toolCallID, approved)
}

// Cancel requests cancellation of the active run and optimistically returns
// the session to idle without waiting for the back-end to acknowledge.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		s.rt.Cancel(s.requestID)
		if t := s.conv.last(); t != nil {
			t.Steps = append(t.Steps, Step{Kind: StepStatus, Text: "cancelled"})
		}
	}
	s.state = StateIdle
	s.requestID = ""
	s.pending = nil
}

// Reset cancels any active run and clears the transcript.
func (s *Session) Reset() {
	s.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv = Conversation{}
	s.draft = ""
}

// CanRetry reports whether the last exchange failed in a retryable way: the
// final assistant turn produced no answer and recorded an error.
func (s *Session) CanRetry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateIdle && s.retryQuery() != ""
}

// Retry resubmits the query of the last failed exchange. It reports whether
// a run was started.
func (s *Session) Retry() bool {
	s.mu.Lock()
	query := ""
	if s.state == StateIdle {
		query = s.retryQuery()
	}
	s.mu.Unlock()
	if query == "" {
		return false
	}
	return s.Submit(query)
}

// retryQuery returns the user query of the last exchange iff its assistant
// turn failed without an answer. Caller holds the lock.
func (s *Session) retryQuery() string {
	n := len(s.conv.Turns)
	if n < 2 {
		return ""
	}
	last, prev := s.conv.Turns[n-1], s.conv.Turns[n-2]
	if last.Role != protocol.RoleAssistant || !last.Failed || last.FinalAnswer != "" {
		return ""
	}
	if prev.Role != protocol.RoleUser {
		return ""
	}
	return prev.Query
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) RequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestID
}

// Pending returns the confirmation awaiting a decision, or nil.
func (s *Session) Pending() *protocol.Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Turns returns a snapshot copy of the transcript.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.conv.Turns))
	copy(out, s.conv.Turns)
	return out
}

// History returns the replayable message projection of the transcript.
func (s *Session) History() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.History()
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}
