// File path: internal/store/types.go
package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Task lifecycle values.
const (
	TaskBuild   = "build"
	TaskRefresh = "refresh"

	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DocumentRecord is the persisted metadata for one context document.
type DocumentRecord struct {
	ID          int64
	TicketID    string
	Filename    string
	Keywords    []string
	LastUpdated time.Time
	CreatedAt   time.Time
}

// FetchHistoryRecord tracks when a source was last fetched for a document.
type FetchHistoryRecord struct {
	ContextFileID int64     `db:"context_file_id"`
	Source        string    `db:"source"`
	LastFetched   time.Time `db:"last_fetched"`
}

// TaskRecord is one queued build or refresh unit of work.
type TaskRecord struct {
	ID           int64
	TicketID     string
	TaskType     string
	Status       string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

type documentRow struct {
	ID          int64     `db:"id"`
	TicketID    string    `db:"ticket_id"`
	Filename    string    `db:"filename"`
	Keywords    string    `db:"keywords"`
	LastUpdated time.Time `db:"last_updated"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r documentRow) toRecord() DocumentRecord {
	record := DocumentRecord{
		ID:          r.ID,
		TicketID:    r.TicketID,
		Filename:    r.Filename,
		LastUpdated: r.LastUpdated.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
	// Keywords are stored JSON-encoded; a malformed value degrades to an
	// empty list rather than failing the read.
	_ = json.Unmarshal([]byte(r.Keywords), &record.Keywords)
	return record
}

func encodeKeywords(keywords []string) string {
	if keywords == nil {
		keywords = []string{}
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "[]"
	}
	return string(data)
}

type taskRow struct {
	ID           int64          `db:"id"`
	TicketID     string         `db:"ticket_id"`
	TaskType     string         `db:"task_type"`
	Status       string         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
	StartedAt    sql.NullTime   `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
	ErrorMessage sql.NullString `db:"error_message"`
}

func (r taskRow) toRecord() TaskRecord {
	record := TaskRecord{
		ID:        r.ID,
		TicketID:  r.TicketID,
		TaskType:  r.TaskType,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.StartedAt.Valid {
		started := r.StartedAt.Time.UTC()
		record.StartedAt = &started
	}
	if r.CompletedAt.Valid {
		completed := r.CompletedAt.Time.UTC()
		record.CompletedAt = &completed
	}
	if r.ErrorMessage.Valid {
		record.ErrorMessage = r.ErrorMessage.String
	}
	return record
}
