package runtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/SuperCmdLabs/SuperCmd-sub001/config"
	"github.com/SuperCmdLabs/SuperCmd-sub001/orchestrator"
	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"github.com/SuperCmdLabs/SuperCmd-sub001/taskstore"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_PROFILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Preferred: config.ProviderAnthropic,
		Providers: map[config.ProviderID]config.Provider{
			config.ProviderAnthropic: {APIKey: "test"},
		},
	}
}

// echoRunner emits a fixed answer, optionally gated behind a confirmation.
type echoRunner struct {
	confirmID string // when set, ask for confirmation first
	block     bool   // when set, wait for ctx cancellation instead
}

func (r *echoRunner) RunAttempt(ctx context.Context, req orchestrator.AttemptRequest, emit protocol.EmitFunc, waitConfirm protocol.ConfirmFunc) protocol.Outcome {
	if r.block {
		<-ctx.Done()
		return protocol.OutcomeCancelled()
	}
	if r.confirmID != "" {
		emit(protocol.ConfirmNeeded(req.RequestID, protocol.Confirmation{ToolCallID: r.confirmID}))
		if !waitConfirm(r.confirmID) {
			if ctx.Err() != nil {
				return protocol.OutcomeCancelled()
			}
			emit(protocol.Done(req.RequestID))
			return protocol.OutcomeDone()
		}
	}
	emit(protocol.TextChunk(req.RequestID, "echo: "+req.Prompt))
	emit(protocol.Done(req.RequestID))
	return protocol.OutcomeDone()
}

func collectUntilTerminal(t *testing.T, svc *Service, requestID string) []protocol.Event {
	t.Helper()
	var events []protocol.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-svc.Events():
			if ev.RequestID != requestID {
				continue
			}
			events = append(events, ev)
			if ev.Terminal() {
				return events
			}
		case <-timeout:
			t.Fatalf("no terminal event for %s; got %+v", requestID, events)
		}
	}
}

func TestRunDeliversEventStream(t *testing.T) {
	clearProviderEnv(t)
	svc := NewService(testConfig(), taskstore.NewStore(), &echoRunner{}, nil)
	defer svc.Close()

	svc.Run("req-1", "hello", nil)
	events := collectUntilTerminal(t, svc, "req-1")

	// attempt status, text chunk, done
	if len(events) != 3 {
		t.Fatalf("events = %+v, want 3", events)
	}
	if events[0].Kind != protocol.EventStatus {
		t.Errorf("first event = %s, want status", events[0].Kind)
	}
	if events[1].Kind != protocol.EventTextChunk || events[1].Text != "echo: hello" {
		t.Errorf("second event = %+v", events[1])
	}
	if events[2].Kind != protocol.EventDone {
		t.Errorf("terminal = %s, want done", events[2].Kind)
	}
}

func TestConfirmUnblocksRun(t *testing.T) {
	clearProviderEnv(t)
	svc := NewService(testConfig(), taskstore.NewStore(), &echoRunner{confirmID: "tc-1"}, nil)
	defer svc.Close()

	svc.Run("req-1", "hello", nil)

	var events []protocol.Event
	timeout := time.After(5 * time.Second)
	for {
		var ev protocol.Event
		select {
		case ev = <-svc.Events():
		case <-timeout:
			t.Fatalf("stream stalled; got %+v", events)
		}
		events = append(events, ev)
		if ev.Kind == protocol.EventConfirmNeeded {
			svc.Confirm(ev.Confirmation.ToolCallID, true)
		}
		if ev.Terminal() {
			break
		}
	}

	last := events[len(events)-1]
	if last.Kind != protocol.EventDone {
		t.Errorf("terminal = %s, want done after approval", last.Kind)
	}
}

func TestConfirmUnknownIDIsNoop(t *testing.T) {
	clearProviderEnv(t)
	svc := NewService(testConfig(), taskstore.NewStore(), &echoRunner{}, nil)
	defer svc.Close()

	// Nothing is waiting; must not panic or block.
	svc.Confirm("ghost", true)
}

func TestCancelStopsRunningTask(t *testing.T) {
	clearProviderEnv(t)
	store := taskstore.NewStore()
	svc := NewService(testConfig(), store, &echoRunner{block: true}, nil)

	svc.Run("req-1", "hello", nil)

	// Wait for the attempt to start, then cancel it.
	select {
	case <-svc.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("attempt never started")
	}
	svc.Cancel("req-1")

	svc.Close()

	task, ok := store.Get("req-1")
	if !ok || task.Outcome != protocol.StatusCancelled {
		t.Errorf("task = %+v, want cancelled", task)
	}
}

func TestCancelUnknownRequestIsNoop(t *testing.T) {
	clearProviderEnv(t)
	svc := NewService(testConfig(), taskstore.NewStore(), &echoRunner{}, nil)
	defer svc.Close()

	svc.Cancel("never-started")
}

func TestAvailable(t *testing.T) {
	clearProviderEnv(t)

	svc := NewService(testConfig(), taskstore.NewStore(), &echoRunner{}, nil)
	if !svc.Available() {
		t.Error("Available should be true with anthropic credentials")
	}
	svc.Close()

	empty := &config.Config{Preferred: config.ProviderAnthropic}
	svc = NewService(empty, taskstore.NewStore(), &echoRunner{}, nil)
	if svc.Available() {
		t.Error("Available should be false without any credentials")
	}
	svc.Close()
}
