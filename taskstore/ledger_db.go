package taskstore

import (
	"github.com/SuperCmdLabs/SuperCmd-sub001/errors"
	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type taskRow struct {
	RequestID  string `gorm:"primaryKey;column:request_id"`
	Prompt     string `gorm:"column:prompt"`
	Outcome    string `gorm:"column:outcome"`
	CreatedAt  int64  `gorm:"column:created_at"`
	FinishedAt int64  `gorm:"column:finished_at"`
}

func (taskRow) TableName() string { return "tasks" }

type attemptRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RequestID  string `gorm:"column:request_id;index"`
	Number     int    `gorm:"column:number"`
	Provider   string `gorm:"column:provider"`
	Outcome    string `gorm:"column:outcome"`
	Error      string `gorm:"column:error"`
	StartedAt  int64  `gorm:"column:started_at"`
	FinishedAt int64  `gorm:"column:finished_at"`
}

func (attemptRow) TableName() string { return "attempts" }

func openLedgerDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open ledger database '%s'", path)
	}
	if err := db.AutoMigrate(&taskRow{}, &attemptRow{}); err != nil {
		return nil, errors.Wrapf(err, "could not migrate ledger schema")
	}
	return db, nil
}

// persistTask mirrors a terminal task record; caller holds the store lock.
func (s *Store) persistTask(task Task) error {
	row := taskRow{
		RequestID:  task.RequestID,
		Prompt:     task.Prompt,
		Outcome:    string(task.Outcome),
		CreatedAt:  task.CreatedAt.Unix(),
		FinishedAt: task.FinishedAt.Unix(),
	}
	if err := s.db.Save(&row).Error; err != nil {
		return errors.Wrapf(err, "could not persist task '%s'", task.RequestID)
	}
	return nil
}

// persistAttempt mirrors a finished attempt; caller holds the store lock.
func (s *Store) persistAttempt(requestID string, att Attempt) error {
	row := attemptRow{
		RequestID:  requestID,
		Number:     att.Number,
		Provider:   att.Provider,
		Outcome:    string(att.Outcome),
		Error:      att.Err,
		StartedAt:  att.StartedAt.Unix(),
		FinishedAt: att.FinishedAt.Unix(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return errors.Wrapf(err, "could not persist attempt %d of task '%s'", att.Number, requestID)
	}
	return nil
}

// Tasks reads back the persisted terminal tasks, newest first. Memory-only
// stores return nil.
func (s *Store) Tasks(limit int) ([]Task, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []taskRow
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "could not list persisted tasks")
	}
	tasks := make([]Task, 0, len(rows))
	for _, row := range rows {
		var attRows []attemptRow
		if err := s.db.Where("request_id = ?", row.RequestID).Order("number ASC").Find(&attRows).Error; err != nil {
			return nil, errors.Wrapf(err, "could not list attempts of task '%s'", row.RequestID)
		}
		attempts := make([]Attempt, 0, len(attRows))
		for _, a := range attRows {
			attempts = append(attempts, Attempt{
				Number:   a.Number,
				Provider: a.Provider,
				Outcome:  protocolStatus(a.Outcome),
				Err:      a.Error,
			})
		}
		tasks = append(tasks, Task{
			RequestID: row.RequestID,
			Prompt:    row.Prompt,
			Outcome:   protocolStatus(row.Outcome),
			Attempts:  attempts,
		})
	}
	return tasks, nil
}

func protocolStatus(s string) protocol.OutcomeStatus {
	switch protocol.OutcomeStatus(s) {
	case protocol.StatusDone, protocol.StatusCancelled, protocol.StatusError:
		return protocol.OutcomeStatus(s)
	default:
		return protocol.StatusRunning
	}
}
