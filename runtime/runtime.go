// Package runtime assembles the back-end: it accepts run requests, executes
// them through the orchestrator on their own goroutines, and publishes the
// resulting event stream on a single channel.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SuperCmdLabs/SuperCmd-sub001/confirm"
	"github.com/SuperCmdLabs/SuperCmd-sub001/config"
	"github.com/SuperCmdLabs/SuperCmd-sub001/orchestrator"
	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"github.com/SuperCmdLabs/SuperCmd-sub001/taskstore"
)

const eventBuffer = 256

// Service is the process-local back-end. It satisfies conversation.Runtime.
type Service struct {
	cfg   *config.Config
	store *taskstore.Store
	orch  *orchestrator.Orchestrator
	gate  *confirm.Gate
	log   *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	events chan protocol.Event
	wg     sync.WaitGroup
}

func NewService(cfg *config.Config, store *taskstore.Store, runner orchestrator.Runner, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		orch:    orchestrator.New(cfg, store, runner, log),
		gate:    confirm.NewGate(),
		log:     log,
		cancels: make(map[string]context.CancelFunc),
		events:  make(chan protocol.Event, eventBuffer),
	}
}

// Events is the stream of all task events. The consumer must drain it for
// the lifetime of the service.
func (s *Service) Events() <-chan protocol.Event {
	return s.events
}

// Run starts a task on its own goroutine. Events for the request id appear
// on the stream until a terminal done or error event.
func (s *Service) Run(requestID, prompt string, history []protocol.Message) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancels[requestID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, requestID)
			s.mu.Unlock()
			cancel()
		}()

		status := s.orch.Run(ctx, requestID, prompt, history, s.emit, func(toolCallID string) bool {
			return s.gate.Wait(ctx, toolCallID)
		})

		// Cancelled tasks end silently; the consumer already moved on.
		if status == protocol.StatusCancelled {
			s.log.Info("task cancelled", "requestId", requestID)
		}
	}()
}

// Confirm resolves a pending tool confirmation. Unknown ids are a no-op.
func (s *Service) Confirm(toolCallID string, approved bool) {
	s.gate.Resolve(toolCallID, approved)
}

// Cancel signals cancellation of a running task. Finished or unknown request
// ids are a no-op.
func (s *Service) Cancel(requestID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[requestID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Available reports whether at least one provider is usable.
func (s *Service) Available() bool {
	return len(orchestrator.ProviderPlan(s.cfg)) > 0
}

// Close cancels all running tasks, waits for them to finish, and closes the
// event stream.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	close(s.events)
}

func (s *Service) emit(ev protocol.Event) {
	s.events <- ev
}
