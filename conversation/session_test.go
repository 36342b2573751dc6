package conversation

import (
	"fmt"
	"testing"

	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
)

// fakeRuntime records calls without running anything.
type fakeRuntime struct {
	runs     []runCall
	confirms []confirmCall
	cancels  []string
}

type runCall struct {
	requestID string
	prompt    string
	history   []protocol.Message
}

type confirmCall struct {
	toolCallID string
	approved   bool
}

func (f *fakeRuntime) Run(requestID, prompt string, history []protocol.Message) {
	f.runs = append(f.runs, runCall{requestID, prompt, history})
}
func (f *fakeRuntime) Confirm(toolCallID string, approved bool) {
	f.confirms = append(f.confirms, confirmCall{toolCallID, approved})
}
func (f *fakeRuntime) Cancel(requestID string) { f.cancels = append(f.cancels, requestID) }
func (f *fakeRuntime) Available() bool         { return true }

func newTestSession(rt *fakeRuntime) *Session {
	s := NewSession(rt)
	n := 0
	s.newRequestID = func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
	return s
}

func TestSubmitStartsRun(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)

	if !s.Submit("hello") {
		t.Fatal("Submit should start a run")
	}
	if s.State() != StateRunning || s.RequestID() != "req-1" {
		t.Errorf("state = %s/%s, want running/req-1", s.State(), s.RequestID())
	}
	if len(rt.runs) != 1 || rt.runs[0].prompt != "hello" || len(rt.runs[0].history) != 0 {
		t.Errorf("runs = %+v", rt.runs)
	}

	turns := s.Turns()
	if len(turns) != 2 || turns[0].Role != protocol.RoleUser || turns[1].Role != protocol.RoleAssistant {
		t.Errorf("turns = %+v, want user turn plus empty assistant turn", turns)
	}
}

func TestSubmitNoopWhileRunningOrEmpty(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)

	if s.Submit("   ") {
		t.Error("empty query should not start a run")
	}
	s.Submit("hello")
	if s.Submit("again") {
		t.Error("Submit while running should be a no-op")
	}
	if len(rt.runs) != 1 {
		t.Errorf("runs = %+v, want 1", rt.runs)
	}
}

func TestEventsForOtherRequestsAreDropped(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)
	s.Submit("hello")

	s.HandleEvent(protocol.TextChunk("stale-req", "ignored"))
	s.HandleEvent(protocol.Done("stale-req"))

	if s.State() != StateRunning {
		t.Error("stale terminal event must not complete the active run")
	}
	if turns := s.Turns(); turns[1].FinalAnswer != "" {
		t.Errorf("final answer = %q, want empty", turns[1].FinalAnswer)
	}
}

func TestTextChunksConcatenateInOrder(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)
	s.Submit("hello")

	s.HandleEvent(protocol.TextChunk("req-1", "Hel"))
	s.HandleEvent(protocol.TextChunk("req-1", "lo "))
	s.HandleEvent(protocol.TextChunk("req-1", "world"))
	s.HandleEvent(protocol.Done("req-1"))

	if s.State() != StateIdle {
		t.Error("done should return the session to idle")
	}
	turns := s.Turns()
	if turns[1].FinalAnswer != "Hello world" {
		t.Errorf("final answer = %q", turns[1].FinalAnswer)
	}
}

func TestTerminalEventIsIdempotent(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)
	s.Submit("hello")

	s.HandleEvent(protocol.TextChunk("req-1", "answer"))
	s.HandleEvent(protocol.Done("req-1"))
	before := s.Turns()

	// Replaying the terminal event against the now-idle session changes
	// nothing.
	s.HandleEvent(protocol.Done("req-1"))
	after := s.Turns()

	if s.State() != StateIdle {
		t.Error("state should remain idle")
	}
	if len(before) != len(after) || before[1].FinalAnswer != after[1].FinalAnswer {
		t.Errorf("replay changed the transcript: %+v vs %+v", before, after)
	}
}

func TestHistoryProjection(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)

	// First exchange succeeds.
	s.Submit("question one")
	s.HandleEvent(protocol.TextChunk("req-1", "answer one"))
	s.HandleEvent(protocol.Done("req-1"))

	// Second exchange fails with no answer.
	s.Submit("question two")
	s.HandleEvent(protocol.Error("req-2", "all providers failed"))

	// Third submit sees only completed pairs plus bare user queries.
	s.Submit("question three")
	history := rt.runs[2].history
	want := []protocol.Message{
		{Role: protocol.RoleUser, Content: "question one"},
		{Role: protocol.RoleAssistant, Content: "answer one"},
		{Role: protocol.RoleUser, Content: "question two"},
	}
	if len(history) != len(want) {
		t.Fatalf("history = %+v, want %+v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, history[i], want[i])
		}
	}
}

func TestIntermediateStepsFoldIntoAssistantTurn(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)
	s.Submit("hello")

	s.HandleEvent(protocol.Status("req-1", "attempt 1/2 with anthropic"))
	s.HandleEvent(protocol.Thinking("req-1", "checking"))
	s.HandleEvent(protocol.NewToolCall("req-1", protocol.ToolCall{ID: "tc-1", Name: "read_file"}))
	s.HandleEvent(protocol.NewToolResult("req-1", protocol.ToolResult{ID: "tc-1", Name: "read_file", Success: true, Output: "x"}))
	s.HandleEvent(protocol.TextChunk("req-1", "done"))
	s.HandleEvent(protocol.Done("req-1"))

	turns := s.Turns()
	steps := turns[1].Steps
	wantKinds := []StepKind{StepStatus, StepThinking, StepToolCall, StepToolResult}
	if len(steps) != len(wantKinds) {
		t.Fatalf("steps = %+v, want %v", steps, wantKinds)
	}
	for i, k := range wantKinds {
		if steps[i].Kind != k {
			t.Errorf("steps[%d].Kind = %s, want %s", i, steps[i].Kind, k)
		}
	}
}

func TestConfirmationLifecycle(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)
	s.Submit("hello")

	s.HandleEvent(protocol.ConfirmNeeded("req-1", protocol.Confirmation{
		ToolCallID: "tc-1", ToolName: "write_file", Message: "Write file \"x\"?",
	}))
	if p := s.Pending(); p == nil || p.ToolCallID != "tc-1" {
		t.Fatalf("pending = %+v", p)
	}

	// Unknown ids are ignored.
	s.ConfirmTool("other", true)
	if len(rt.confirms) != 0 {
		t.Error("unknown id must not be forwarded")
	}

	s.ConfirmTool("tc-1", true)
	if len(rt.confirms) != 1 || rt.confirms[0] != (confirmCall{"tc-1", true}) {
		t.Errorf("confirms = %+v", rt.confirms)
	}
	if s.Pending() != nil {
		t.Error("pending should clear after a decision")
	}

	// Repeated decisions are dropped.
	s.ConfirmTool("tc-1", false)
	if len(rt.confirms) != 1 {
		t.Error("repeated decision must not be forwarded")
	}
}

func TestPendingClearedByToolResult(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)
	s.Submit("hello")

	s.HandleEvent(protocol.ConfirmNeeded("req-1", protocol.Confirmation{ToolCallID: "tc-1", ToolName: "write_file"}))
	s.HandleEvent(protocol.NewToolResult("req-1", protocol.ToolResult{ID: "tc-1", Name: "write_file", Success: false, Output: "denied by user"}))

	if s.Pending() != nil {
		t.Error("a result for the pending call should clear the prompt")
	}
}

func TestCancelIsOptimisticallyLocal(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)
	s.Submit("hello")

	s.Cancel()

	if s.State() != StateIdle {
		t.Error("cancel should return to idle without waiting for the back-end")
	}
	if len(rt.cancels) != 1 || rt.cancels[0] != "req-1" {
		t.Errorf("cancels = %+v", rt.cancels)
	}

	// Straggler events from the cancelled run are dropped.
	s.HandleEvent(protocol.TextChunk("req-1", "late"))
	if turns := s.Turns(); turns[1].FinalAnswer != "" {
		t.Errorf("final answer = %q, want empty", turns[1].FinalAnswer)
	}

	// Cancel while idle only clears local state.
	s.Cancel()
	if len(rt.cancels) != 1 {
		t.Error("idle cancel must not reach the back-end")
	}
}

func TestRetryAfterFailedRun(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)

	s.Submit("broken question")
	s.HandleEvent(protocol.Error("req-1", "all providers failed"))

	if !s.CanRetry() {
		t.Fatal("failed run with no answer should be retryable")
	}
	if !s.Retry() {
		t.Fatal("Retry should start a run")
	}
	if len(rt.runs) != 2 || rt.runs[1].prompt != "broken question" {
		t.Errorf("runs = %+v", rt.runs)
	}
	// The failed exchange stays in the transcript but not in history.
	if len(rt.runs[1].history) != 0 {
		t.Errorf("history = %+v, want empty", rt.runs[1].history)
	}
}

func TestNoRetryAfterSuccess(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)

	s.Submit("question")
	s.HandleEvent(protocol.TextChunk("req-1", "answer"))
	s.HandleEvent(protocol.Done("req-1"))

	if s.CanRetry() {
		t.Error("successful run should not be retryable")
	}
	if s.Retry() {
		t.Error("Retry should refuse when there is nothing to retry")
	}
}

func TestResetClearsTranscript(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestSession(rt)

	s.Submit("question")
	s.HandleEvent(protocol.Done("req-1"))
	s.SetDraft("half-typed")
	s.Reset()

	if len(s.Turns()) != 0 || s.Draft() != "" {
		t.Error("reset should clear turns and draft")
	}
	if s.State() != StateIdle {
		t.Error("reset should leave the session idle")
	}
}
