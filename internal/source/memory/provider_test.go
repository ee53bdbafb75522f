// File path: internal/source/memory/provider_test.go
package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/source"
)

func seededProvider() *Provider {
	p := NewProvider("jira")
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	p.Add("ABC-123", source.ContextItem{
		Source:    "jira",
		Type:      source.TypeTicket,
		Title:     "ABC-123: Token refresh fails",
		Content:   "Refresh tokens expire early.",
		URL:       "https://tracker.example.com/browse/ABC-123",
		Timestamp: base,
		Metadata: map[string]interface{}{
			source.MetaTicketID: "ABC-123",
			source.MetaComments: []source.ContextItem{
				{Source: "jira", Type: source.TypeComment, Content: "Repro confirmed."},
			},
		},
	})
	p.Add("DEF-456", source.ContextItem{
		Source:    "jira",
		Type:      source.TypeTicket,
		Title:     "DEF-456: Session store rework",
		Content:   "Move sessions to redis.",
		Timestamp: base.Add(48 * time.Hour),
	})
	return p
}

func TestSearchHonoursTimeWindow(t *testing.T) {
	p := seededProvider()
	ctx := context.Background()

	items, err := p.Search(ctx, "token", source.SearchOptions{})
	if err != nil || len(items) != 1 || items[0].Title != "ABC-123: Token refresh fails" {
		t.Fatalf("unexpected match: %v %v", items, err)
	}

	since := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	items, err = p.Search(ctx, "session", source.SearchOptions{Since: &since})
	if err != nil || len(items) != 1 {
		t.Fatalf("since window should keep DEF-456: %v %v", items, err)
	}
	items, err = p.Search(ctx, "token", source.SearchOptions{Since: &since})
	if err != nil || len(items) != 0 {
		t.Fatalf("since window should drop ABC-123: %v %v", items, err)
	}
	until := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	items, err = p.Search(ctx, "session", source.SearchOptions{Until: &until})
	if err != nil || len(items) != 0 {
		t.Fatalf("until window should drop DEF-456: %v %v", items, err)
	}

	if items, _ := p.Search(ctx, "  ", source.SearchOptions{}); items != nil {
		t.Fatalf("blank query should match nothing, got %v", items)
	}
}

func TestItemDetailsReturnsIsolatedClone(t *testing.T) {
	p := seededProvider()
	ctx := context.Background()

	first, err := p.ItemDetails(ctx, "abc-123")
	if err != nil || first == nil {
		t.Fatalf("details: %v %v", first, err)
	}
	if got := first.TakeComments(); len(got) != 1 {
		t.Fatalf("expected one attached comment, got %v", got)
	}

	// Detaching comments from one fetch must not strip the seeded copy.
	second, err := p.ItemDetails(ctx, "ABC-123")
	if err != nil || second == nil {
		t.Fatalf("refetch: %v %v", second, err)
	}
	if got := second.TakeComments(); len(got) != 1 {
		t.Fatalf("seeded comments were mutated, got %v", got)
	}

	missing, err := p.ItemDetails(ctx, "ZZZ-1")
	if err != nil || missing != nil {
		t.Fatalf("missing item should be nil, nil: %v %v", missing, err)
	}
}

func TestAuthenticationLifecycle(t *testing.T) {
	p := NewProvider("slack", WithoutAuthentication())
	if p.IsAuthenticated() {
		t.Fatal("expected unauthenticated start")
	}
	ok, err := p.Authenticate(context.Background(), nil)
	if err != nil || !ok || !p.IsAuthenticated() {
		t.Fatalf("authenticate: %v %v", ok, err)
	}
	if err := p.Disconnect(context.Background()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if p.IsAuthenticated() {
		t.Fatal("expected unauthenticated after disconnect")
	}

	failing := NewProvider("jira", WithFailingAuthentication())
	ok, err = failing.Authenticate(context.Background(), nil)
	if err != nil || ok {
		t.Fatalf("failing provider must report ok=false: %v %v", ok, err)
	}
}

func TestLoadSeedBuildsProviders(t *testing.T) {
	seed := `{
  "sources": [
    {
      "name": "jira",
      "items": [
        {
          "id": "ABC-123",
          "item_type": "ticket",
          "title": "ABC-123: Token refresh fails",
          "content": "Refresh tokens expire early.",
          "url": "https://tracker.example.com/browse/ABC-123",
          "timestamp": "2026-02-01T09:00:00Z",
          "comments": [
            {"item_type": "comment", "content": "Repro confirmed.", "timestamp": "2026-02-01T10:00:00Z"}
          ]
        }
      ]
    },
    {
      "name": "github",
      "reference_types": ["pr", "issue"],
      "items": []
    }
  ]
}`
	path := filepath.Join(t.TempDir(), "sources.json")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	providers, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}

	jira := providers[0]
	if jira.Name() != "jira" || !jira.IsAuthenticated() {
		t.Fatalf("unexpected jira provider state")
	}
	item, err := jira.ItemDetails(context.Background(), "ABC-123")
	if err != nil || item == nil {
		t.Fatalf("seeded item missing: %v %v", item, err)
	}
	if item.TicketID() != "ABC-123" {
		t.Fatalf("ticket id metadata not set: %q", item.TicketID())
	}
	if comments := item.TakeComments(); len(comments) != 1 || comments[0].Type != source.TypeComment {
		t.Fatalf("comments not attached: %v", comments)
	}

	github := providers[1]
	types := github.SupportedReferenceTypes()
	if len(types) != 2 || types[0] != "pr" || types[1] != "issue" {
		t.Fatalf("reference types not honoured: %v", types)
	}
}

func TestLoadSeedRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadSeed(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSeed(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}

	path = filepath.Join(dir, "unnamed.json")
	if err := os.WriteFile(path, []byte(`{"sources":[{"items":[]}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSeed(path); err == nil {
		t.Fatal("expected error for unnamed source")
	}
}
