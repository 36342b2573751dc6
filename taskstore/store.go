// Package taskstore is the process-wide ledger of in-flight and completed
// agent tasks and their per-provider attempts. It exists for diagnostics and
// to guarantee no task is left running once the orchestrator returns.
package taskstore

import (
	"sync"
	"time"

	"github.com/SuperCmdLabs/SuperCmd-sub001/errors"
	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"gorm.io/gorm"
)

// Attempt is one provider-bound execution of the agent loop within a task.
type Attempt struct {
	Number     int
	Provider   string
	Outcome    protocol.OutcomeStatus
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Task is one user-initiated agent run, keyed by request id.
type Task struct {
	RequestID  string
	Prompt     string
	Outcome    protocol.OutcomeStatus
	Attempts   []Attempt
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Store owns Task and Attempt records for the lifetime of the process. Each
// task's record is only written by the goroutine handling that request id, so
// a single mutex around the map suffices.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*Task
	db    *gorm.DB // nil when the ledger is memory-only
}

// NewStore creates a memory-only ledger.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*Task)}
}

// NewPersistentStore creates a ledger that mirrors terminal records into a
// sqlite database at path.
func NewPersistentStore(path string) (*Store, error) {
	db, err := openLedgerDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{tasks: make(map[string]*Task), db: db}, nil
}

// StartTask records a new running task. A duplicate request id is a logic
// fault.
func (s *Store) StartTask(requestID, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[requestID]; ok {
		return errors.New("task '%s' already started", requestID)
	}
	s.tasks[requestID] = &Task{
		RequestID: requestID,
		Prompt:    prompt,
		Outcome:   protocol.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// StartAttempt records a new running attempt. Attempt numbers are 1-based and
// must be monotonic; exactly one attempt is active at a time per task.
func (s *Store) StartAttempt(requestID string, number int, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[requestID]
	if !ok {
		return errors.New("attempt %d for unknown task '%s'", number, requestID)
	}
	if number != len(task.Attempts)+1 {
		return errors.New("task '%s': attempt number %d out of sequence (have %d)", requestID, number, len(task.Attempts))
	}
	if n := len(task.Attempts); n > 0 && task.Attempts[n-1].Outcome == protocol.StatusRunning {
		return errors.New("task '%s': attempt %d still running", requestID, n)
	}
	task.Attempts = append(task.Attempts, Attempt{
		Number:    number,
		Provider:  provider,
		Outcome:   protocol.StatusRunning,
		StartedAt: time.Now().UTC(),
	})
	return nil
}

// FinishAttempt closes the attempt with its terminal outcome. Finishing an
// attempt twice is a logic fault.
func (s *Store) FinishAttempt(requestID string, number int, outcome protocol.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[requestID]
	if !ok {
		return errors.New("finish attempt for unknown task '%s'", requestID)
	}
	if number < 1 || number > len(task.Attempts) {
		return errors.New("task '%s': no attempt %d", requestID, number)
	}
	att := &task.Attempts[number-1]
	if att.Outcome != protocol.StatusRunning {
		return errors.New("task '%s': attempt %d already finished", requestID, number)
	}
	att.Outcome = outcome.Status
	att.Err = outcome.Err
	att.FinishedAt = time.Now().UTC()

	if s.db != nil {
		return s.persistAttempt(requestID, *att)
	}
	return nil
}

// FinishTask sets the task's terminal outcome. The terminal state is
// immutable once set and must be set exactly once per task.
func (s *Store) FinishTask(requestID string, outcome protocol.OutcomeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[requestID]
	if !ok {
		return errors.New("finish for unknown task '%s'", requestID)
	}
	if task.Outcome != protocol.StatusRunning {
		return errors.New("task '%s' already finished as %s", requestID, task.Outcome)
	}
	task.Outcome = outcome
	task.FinishedAt = time.Now().UTC()

	if s.db != nil {
		return s.persistTask(*task)
	}
	return nil
}

// Get returns a copy of the task record, if present.
func (s *Store) Get(requestID string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[requestID]
	if !ok {
		return Task{}, false
	}
	cp := *task
	cp.Attempts = append([]Attempt(nil), task.Attempts...)
	return cp, true
}

// Running lists the request ids of tasks that have not reached a terminal
// state yet.
func (s *Store) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, task := range s.tasks {
		if task.Outcome == protocol.StatusRunning {
			ids = append(ids, id)
		}
	}
	return ids
}
