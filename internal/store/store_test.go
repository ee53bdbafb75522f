// File path: internal/store/store_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "trawl.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenMigratesAndEnablesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trawl.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	var mode string
	if err := st.db.Get(&mode, `PRAGMA journal_mode`); err != nil {
		t.Fatalf("query journal mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal mode = %q, want wal", mode)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening migrates again; the schema statements must be idempotent.
	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	st.Close()
}

func TestDocumentLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.CreateDocument(ctx, "abc-123", "ABC-123_tokens.md", []string{"tokens", "refresh"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	record, err := st.Document(ctx, "ABC-123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record == nil {
		t.Fatal("record not found")
	}
	if record.TicketID != "ABC-123" {
		t.Fatalf("ticket id not normalized: %q", record.TicketID)
	}
	if len(record.Keywords) != 2 || record.Keywords[0] != "tokens" {
		t.Fatalf("keywords not round-tripped: %v", record.Keywords)
	}

	byName, err := st.DocumentByFilename(ctx, "ABC-123_tokens.md")
	if err != nil || byName == nil || byName.ID != id {
		t.Fatalf("filename lookup failed: %v %+v", err, byName)
	}

	if err := st.UpdateDocument(ctx, "ABC-123", "", []string{"rotation"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	record, _ = st.Document(ctx, "ABC-123")
	if record.Filename != "ABC-123_tokens.md" {
		t.Fatalf("empty filename must keep stored value, got %q", record.Filename)
	}
	if len(record.Keywords) != 1 || record.Keywords[0] != "rotation" {
		t.Fatalf("keywords not updated: %v", record.Keywords)
	}

	deleted, err := st.DeleteDocument(ctx, "abc-123")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	record, err = st.Document(ctx, "ABC-123")
	if err != nil || record != nil {
		t.Fatalf("expected nil record after delete, got %+v (%v)", record, err)
	}
}

func TestCreateDocumentRejectsDuplicateTicket(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if _, err := st.CreateDocument(ctx, "ABC-123", "a.md", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreateDocument(ctx, "abc-123", "b.md", nil); err == nil {
		t.Fatal("expected unique constraint error for duplicate ticket")
	}
}

func TestSearchDocuments(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if _, err := st.CreateDocument(ctx, "ABC-123", "ABC-123_tokens.md", []string{"tokens"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreateDocument(ctx, "XYZ-9", "XYZ-9_billing.md", []string{"billing", "invoices"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	matches, err := st.SearchDocuments(ctx, "invoice")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].TicketID != "XYZ-9" {
		t.Fatalf("unexpected keyword match %+v", matches)
	}

	matches, err = st.SearchDocuments(ctx, "abc-123")
	if err != nil {
		t.Fatalf("search by ticket: %v", err)
	}
	if len(matches) != 1 || matches[0].TicketID != "ABC-123" {
		t.Fatalf("unexpected ticket match %+v", matches)
	}
}

func TestFetchHistoryUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	id, err := st.CreateDocument(ctx, "ABC-123", "ABC-123_tokens.md", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	second := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	if err := st.UpdateFetchHistory(ctx, id, "jira", first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := st.UpdateFetchHistory(ctx, id, "jira", second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := st.UpdateFetchHistory(ctx, id, "github", first); err != nil {
		t.Fatalf("github upsert: %v", err)
	}

	history, err := st.FetchHistory(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(history))
	}
	for _, entry := range history {
		if entry.Source == "jira" && !entry.LastFetched.Equal(second) {
			t.Fatalf("jira row not updated in place: %v", entry.LastFetched)
		}
	}
}

func TestTaskLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "ABC-123", "bogus"); err == nil {
		t.Fatal("expected error for unknown task type")
	}

	id, err := st.CreateTask(ctx, "abc-123", TaskBuild)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	task, err := st.Task(ctx, id)
	if err != nil || task == nil {
		t.Fatalf("load: %v %+v", err, task)
	}
	if task.TicketID != "ABC-123" || task.Status != StatusPending {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.StartedAt != nil || task.CompletedAt != nil {
		t.Fatalf("timestamps set prematurely %+v", task)
	}

	if err := st.UpdateTaskStatus(ctx, id, StatusInProgress, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	task, _ = st.Task(ctx, id)
	if task.Status != StatusInProgress || task.StartedAt == nil {
		t.Fatalf("start not recorded %+v", task)
	}

	if err := st.UpdateTaskStatus(ctx, id, StatusFailed, "model offline"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	task, _ = st.Task(ctx, id)
	if task.Status != StatusFailed || task.CompletedAt == nil || task.ErrorMessage != "model offline" {
		t.Fatalf("failure not recorded %+v", task)
	}
}

func TestPendingTasksOldestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	first, err := st.CreateTask(ctx, "ABC-1", TaskBuild)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := st.CreateTask(ctx, "ABC-2", TaskRefresh)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.UpdateTaskStatus(ctx, second, StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	third, err := st.CreateTask(ctx, "ABC-3", TaskBuild)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := st.PendingTasks(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].ID != first || pending[1].ID != third {
		t.Fatalf("unexpected order %+v", pending)
	}
}

func TestTaskMissingReturnsNil(t *testing.T) {
	st := newTestStore(t)
	task, err := st.Task(context.Background(), 999)
	if err != nil || task != nil {
		t.Fatalf("expected nil, nil for missing task, got %+v (%v)", task, err)
	}
}
