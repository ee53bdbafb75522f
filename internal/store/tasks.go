// File path: internal/store/tasks.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateTask queues a build or refresh task for a ticket.
func (s *Store) CreateTask(ctx context.Context, ticketID, taskType string) (int64, error) {
	if err := s.ensureReady(); err != nil {
		return 0, err
	}
	if taskType != TaskBuild && taskType != TaskRefresh {
		return 0, fmt.Errorf("unknown task type %q", taskType)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (ticket_id, task_type, status, created_at) VALUES (?, ?, ?, ?)`,
		normalizeTicketID(ticketID), taskType, StatusPending, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task id: %w", err)
	}
	return id, nil
}

// Task returns one task by id, or nil when absent.
func (s *Store) Task(ctx context.Context, id int64) (*TaskRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var row taskRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}
	record := row.toRecord()
	return &record, nil
}

// UpdateTaskStatus transitions a task, recording started/completed
// timestamps and any failure message.
func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, status, errorMessage string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	now := time.Now().UTC()
	var err error
	switch status {
	case StatusInProgress:
		_, err = s.db.ExecContext(ctx,
			`UPDATE tasks SET status = ?, started_at = ? WHERE id = ?`, status, now, id)
	case StatusCompleted, StatusFailed:
		var msg interface{}
		if errorMessage != "" {
			msg = errorMessage
		}
		_, err = s.db.ExecContext(ctx,
			`UPDATE tasks SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`, status, now, msg, id)
	case StatusPending:
		_, err = s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, status, id)
	default:
		return fmt.Errorf("unknown task status %q", status)
	}
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// PendingTasks returns queued tasks oldest first.
func (s *Store) PendingTasks(ctx context.Context) ([]TaskRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows := []taskRow{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM tasks WHERE status = ? ORDER BY created_at, id`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("select pending tasks: %w", err)
	}
	return taskRowsToRecords(rows), nil
}

// RecentTasks returns the latest tasks of any status.
func (s *Store) RecentTasks(ctx context.Context, limit int) ([]TaskRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows := []taskRow{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM tasks ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent tasks: %w", err)
	}
	return taskRowsToRecords(rows), nil
}

func taskRowsToRecords(rows []taskRow) []TaskRecord {
	records := make([]TaskRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records
}
