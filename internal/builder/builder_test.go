// File path: internal/builder/builder_test.go
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
	"github.com/nicodishanthj/Trawl_phase1/internal/source"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

type fakeCompleter struct {
	keywords string
	dedup    string
	groups   string
	fail     bool
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	if f.fail {
		return "", errors.New("model offline")
	}
	if len(req.Messages) == 0 {
		return "", errors.New("no messages")
	}
	prompt := req.Messages[0].Content
	switch {
	case strings.Contains(prompt, "comma-separated list of single words"):
		return f.keywords, nil
	case strings.Contains(prompt, "numbers of items to keep"):
		return f.dedup, nil
	case strings.Contains(prompt, "JSON object mapping"):
		return f.groups, nil
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

func newTestBuilder(t *testing.T, ai llm.Completer) (*Builder, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "trawl.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	outputDir := filepath.Join(dir, "context")
	return New(st, ai, Config{OutputDir: outputDir}), st, outputDir
}

func primaryTicket(id string) source.ContextItem {
	return source.ContextItem{
		Source:    "jira",
		Type:      source.TypeTicket,
		Title:     id + ": Token refresh fails",
		Content:   "Refresh tokens expire before the configured lifetime.",
		URL:       "https://tracker.example.com/browse/" + id,
		Timestamp: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Author:    "dana",
		Metadata:  map[string]interface{}{source.MetaTicketID: id},
	}
}

func ticketComment(id string, n int) source.ContextItem {
	return source.ContextItem{
		Source:    "jira",
		Type:      source.TypeComment,
		Title:     fmt.Sprintf("Comment %d on %s", n, id),
		Content:   fmt.Sprintf("Observation number %d.", n),
		URL:       fmt.Sprintf("https://tracker.example.com/browse/%s?focusedCommentId=%d", id, n),
		Timestamp: time.Date(2026, 3, 10, 10+n, 0, 0, 0, time.UTC),
		Author:    "sam",
	}
}

func wikiNote(n int) source.ContextItem {
	return source.ContextItem{
		Source:    "wiki",
		Type:      source.TypeMessage,
		Title:     fmt.Sprintf("Design note %d", n),
		Content:   fmt.Sprintf("Background discussion %d.", n),
		URL:       fmt.Sprintf("https://wiki.example.com/notes/%d", n),
		Timestamp: time.Date(2026, 3, 11, n, 0, 0, 0, time.UTC),
		Author:    "lee",
	}
}

func TestBuildCreatesDocumentAndRecord(t *testing.T) {
	ai := &fakeCompleter{keywords: "tokens, refresh, expiry"}
	b, st, outputDir := newTestBuilder(t, ai)
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("ABC-123"), ticketComment("ABC-123", 1)}
	filename, err := b.Build(ctx, "abc-123", items, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if filename != "ABC-123_tokens_refresh_expiry.md" {
		t.Fatalf("unexpected filename %q", filename)
	}

	raw, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	content := string(raw)
	for _, want := range []string{
		"# Context: ABC-123: Token refresh fails",
		"## Primary Ticket",
		"### ABC-123: Token refresh fails",
		"## Discussion",
		"[1]: https://tracker.example.com/browse/ABC-123?focusedCommentId=1",
		"## Sources Consulted",
		"| JIRA | 2 |",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("document missing %q:\n%s", want, content)
		}
	}

	record, err := st.Document(ctx, "ABC-123")
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record == nil || record.Filename != filename {
		t.Fatalf("record not stored: %+v", record)
	}
	if len(record.Keywords) != 3 || record.Keywords[0] != "tokens" {
		t.Fatalf("unexpected keywords %v", record.Keywords)
	}

	history, err := st.FetchHistory(ctx, record.ID)
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if len(history) != 1 || history[0].Source != "jira" {
		t.Fatalf("unexpected fetch history %+v", history)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	ai := &fakeCompleter{keywords: "tokens, refresh"}
	b, _, outputDir := newTestBuilder(t, ai)
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("ABC-123"), ticketComment("ABC-123", 1)}
	filename, err := b.Build(ctx, "ABC-123", items, "")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}

	again, err := b.Build(ctx, "ABC-123", items, "")
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if again != filename {
		t.Fatalf("filename changed on rebuild: %q != %q", again, filename)
	}
	after, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("re-read document: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("document changed on identical rebuild:\n%s\n---\n%s", before, after)
	}
}

func TestBuildAppendsNewItemsWithContinuedNumbering(t *testing.T) {
	ai := &fakeCompleter{keywords: "tokens, refresh"}
	b, _, outputDir := newTestBuilder(t, ai)
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("ABC-123"), ticketComment("ABC-123", 1)}
	filename, err := b.Build(ctx, "ABC-123", items, "")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}

	items = append(items, wikiNote(1))
	if _, err := b.Build(ctx, "ABC-123", items, ""); err != nil {
		t.Fatalf("second build: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	content := string(raw)
	for _, want := range []string{
		"### ABC-123: Token refresh fails",
		"## Related Discussions",
		"[1]: https://tracker.example.com/browse/ABC-123?focusedCommentId=1",
		"[2]: https://wiki.example.com/notes/1",
		"| WIKI | 1 |",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("document missing %q:\n%s", want, content)
		}
	}
	if strings.Count(content, "### ABC-123: Token refresh fails") != 1 {
		t.Fatalf("primary ticket section duplicated:\n%s", content)
	}
}

func TestBuildAppendUnderExistingTopic(t *testing.T) {
	ai := &fakeCompleter{keywords: "tokens"}
	b, _, outputDir := newTestBuilder(t, ai)
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("ABC-123"), ticketComment("ABC-123", 1)}
	filename, err := b.Build(ctx, "ABC-123", items, "")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}

	items = append(items, ticketComment("ABC-123", 2))
	if _, err := b.Build(ctx, "ABC-123", items, ""); err != nil {
		t.Fatalf("second build: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if !strings.Contains(string(raw), "### New additions to Discussion") {
		t.Fatalf("expected merge heading for existing topic:\n%s", raw)
	}
}

func TestBuildFailClosedLeavesExistingDocumentUntouched(t *testing.T) {
	ai := &fakeCompleter{keywords: "tokens"}
	b, st, outputDir := newTestBuilder(t, ai)
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("ABC-123"), ticketComment("ABC-123", 1)}
	filename, err := b.Build(ctx, "ABC-123", items, "")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}

	// Enough new items to trigger the semantic pass, with the model down.
	broken := New(st, &fakeCompleter{fail: true}, Config{OutputDir: outputDir})
	many := items
	for i := 1; i <= 5; i++ {
		many = append(many, wikiNote(i))
	}
	got, err := broken.Build(ctx, "ABC-123", many, "")
	if err != nil {
		t.Fatalf("fail-closed build returned error: %v", err)
	}
	if got != filename {
		t.Fatalf("filename changed: %q != %q", got, filename)
	}
	after, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("re-read document: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("document modified on failed semantic pass:\n%s\n---\n%s", before, after)
	}
}

func TestBuildAppendKeepsFirstCandidateWhenModelExcludesAll(t *testing.T) {
	ai := &fakeCompleter{keywords: "tokens", dedup: "none"}
	b, _, outputDir := newTestBuilder(t, ai)
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("ABC-123"), ticketComment("ABC-123", 1)}
	filename, err := b.Build(ctx, "ABC-123", items, "")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}

	many := items
	for i := 1; i <= 5; i++ {
		many = append(many, wikiNote(i))
	}
	if _, err := b.Build(ctx, "ABC-123", many, ""); err != nil {
		t.Fatalf("append build: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "https://wiki.example.com/notes/1") {
		t.Fatalf("first new candidate not persisted:\n%s", content)
	}
	if strings.Contains(content, "https://wiki.example.com/notes/2") {
		t.Fatalf("excluded candidate persisted:\n%s", content)
	}
}

func TestBuildFreshFailClosedReturnsError(t *testing.T) {
	b, _, _ := newTestBuilder(t, &fakeCompleter{fail: true})
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("XYZ-9")}
	for i := 1; i <= 5; i++ {
		items = append(items, wikiNote(i))
	}
	if _, err := b.Build(ctx, "XYZ-9", items, ""); err == nil {
		t.Fatal("expected error when semantic pass fails on a fresh build")
	}
}

func TestBuildEmptyItemsWithoutRecord(t *testing.T) {
	b, _, _ := newTestBuilder(t, &fakeCompleter{})
	if _, err := b.Build(context.Background(), "ABC-123", nil, ""); err == nil {
		t.Fatal("expected error for empty items with no existing document")
	}
}

func TestBuildTopicalGrouping(t *testing.T) {
	ai := &fakeCompleter{
		keywords: "tokens, refresh",
		dedup:    "0, 1, 2, 3",
		groups:   `{"Primary Ticket": [0], "Auth Design": [1, 2], "Chatter": [3]}`,
	}
	b, _, outputDir := newTestBuilder(t, ai)
	ctx := context.Background()

	items := []source.ContextItem{primaryTicket("ABC-123"), wikiNote(1), wikiNote(2), wikiNote(3)}
	filename, err := b.Build(ctx, "ABC-123", items, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(outputDir, filename))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	content := string(raw)
	primaryPos := strings.Index(content, "## Primary Ticket")
	designPos := strings.Index(content, "## Auth Design")
	chatterPos := strings.Index(content, "## Chatter")
	if primaryPos < 0 || designPos < 0 || chatterPos < 0 {
		t.Fatalf("missing topical sections:\n%s", content)
	}
	if !(primaryPos < designPos && designPos < chatterPos) {
		t.Fatalf("topics out of order: %d %d %d", primaryPos, designPos, chatterPos)
	}
}

func TestBuildFilenameFallbackFromTitle(t *testing.T) {
	// Keyword extraction fails but only 2 items are involved, so the
	// semantic pass never runs and the build succeeds with a title-derived
	// filename.
	b, _, _ := newTestBuilder(t, &fakeCompleter{fail: true})
	items := []source.ContextItem{primaryTicket("ABC-123"), ticketComment("ABC-123", 1)}
	filename, err := b.Build(context.Background(), "ABC-123", items, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(filename, "ABC-123_") || !strings.HasSuffix(filename, ".md") {
		t.Fatalf("unexpected fallback filename %q", filename)
	}
	if !strings.Contains(filename, "token") {
		t.Fatalf("expected title word in filename, got %q", filename)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	got := truncate("résumé attaché", 6)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if got != "résum" {
		t.Fatalf("unexpected cut point: %q", got)
	}
}
