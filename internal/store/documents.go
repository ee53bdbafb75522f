// File path: internal/store/documents.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateDocument inserts a new context-file record and returns its id.
// Ticket identifiers are case-normalised to upper.
func (s *Store) CreateDocument(ctx context.Context, ticketID, filename string, keywords []string) (int64, error) {
	if err := s.ensureReady(); err != nil {
		return 0, err
	}
	ticketID = normalizeTicketID(ticketID)
	if ticketID == "" {
		return 0, fmt.Errorf("ticket id required")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO context_files (ticket_id, filename, keywords, last_updated, created_at) VALUES (?, ?, ?, ?, ?)`,
		ticketID, filename, encodeKeywords(keywords), now, now)
	if err != nil {
		return 0, fmt.Errorf("insert context file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("context file id: %w", err)
	}
	return id, nil
}

// Document returns the record for a ticket, or nil when none exists.
func (s *Store) Document(ctx context.Context, ticketID string) (*DocumentRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var row documentRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM context_files WHERE ticket_id = ?`, normalizeTicketID(ticketID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select context file: %w", err)
	}
	record := row.toRecord()
	return &record, nil
}

// DocumentByFilename returns the record owning a filename, or nil.
func (s *Store) DocumentByFilename(ctx context.Context, filename string) (*DocumentRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var row documentRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM context_files WHERE filename = ?`, filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select context file by filename: %w", err)
	}
	record := row.toRecord()
	return &record, nil
}

// UpdateDocument overwrites filename and/or keywords for a ticket's record.
// An empty filename or nil keywords keep the stored value.
func (s *Store) UpdateDocument(ctx context.Context, ticketID, filename string, keywords []string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	record, err := s.Document(ctx, ticketID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("no context file for ticket %s", normalizeTicketID(ticketID))
	}
	if strings.TrimSpace(filename) == "" {
		filename = record.Filename
	}
	if keywords == nil {
		keywords = record.Keywords
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE context_files SET filename = ?, keywords = ?, last_updated = ? WHERE ticket_id = ?`,
		filename, encodeKeywords(keywords), time.Now().UTC(), record.TicketID)
	if err != nil {
		return fmt.Errorf("update context file: %w", err)
	}
	return nil
}

// DeleteDocument removes a record, returning whether a row was deleted.
// Fetch history rows cascade.
func (s *Store) DeleteDocument(ctx context.Context, ticketID string) (bool, error) {
	if err := s.ensureReady(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM context_files WHERE ticket_id = ?`, normalizeTicketID(ticketID))
	if err != nil {
		return false, fmt.Errorf("delete context file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete context file rows: %w", err)
	}
	return affected > 0, nil
}

// SearchDocuments matches query against ticket ids, filenames and keyword
// lists, newest first.
func (s *Store) SearchDocuments(ctx context.Context, query string) ([]DocumentRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows := []documentRow{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM context_files
                 WHERE keywords LIKE ? OR filename LIKE ? OR ticket_id LIKE ?
                 ORDER BY last_updated DESC`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search context files: %w", err)
	}
	return rowsToRecords(rows), nil
}

// ListDocuments returns every record ordered by last update, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows := []documentRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM context_files ORDER BY last_updated DESC`); err != nil {
		return nil, fmt.Errorf("list context files: %w", err)
	}
	return rowsToRecords(rows), nil
}

// UpdateFetchHistory upserts the last-fetched timestamp for a source on a
// document. A zero timestamp means now.
func (s *Store) UpdateFetchHistory(ctx context.Context, contextFileID int64, sourceName string, fetchedAt time.Time) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	fetchedAt = fetchedAt.UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_history (context_file_id, source, last_fetched) VALUES (?, ?, ?)
                 ON CONFLICT (context_file_id, source) DO UPDATE SET last_fetched = excluded.last_fetched`,
		contextFileID, sourceName, fetchedAt)
	if err != nil {
		return fmt.Errorf("upsert fetch history: %w", err)
	}
	return nil
}

// FetchHistory returns every fetch-history row for a document.
func (s *Store) FetchHistory(ctx context.Context, contextFileID int64) ([]FetchHistoryRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	records := []FetchHistoryRecord{}
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM fetch_history WHERE context_file_id = ? ORDER BY source`, contextFileID)
	if err != nil {
		return nil, fmt.Errorf("select fetch history: %w", err)
	}
	for i := range records {
		records[i].LastFetched = records[i].LastFetched.UTC()
	}
	return records, nil
}

func rowsToRecords(rows []documentRow) []DocumentRecord {
	records := make([]DocumentRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records
}

func normalizeTicketID(ticketID string) string {
	return strings.ToUpper(strings.TrimSpace(ticketID))
}
