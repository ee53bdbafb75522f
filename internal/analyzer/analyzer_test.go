// File path: internal/analyzer/analyzer_test.go
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
)

type fakeCompleter struct {
	review     string
	suggestion string
	fail       bool
	deepDives  []string
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
	if strings.Contains(prompt, "was flagged as needing work") {
		f.deepDives = append(f.deepDives, prompt)
		return f.suggestion, nil
	}
	if strings.Contains(prompt, "Review the tickets under epic") {
		return f.review, nil
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

func epicTickets() []TicketSummary {
	return []TicketSummary{
		{ID: "ABC-1", Title: "Token storage", Status: "done", Description: "Store refresh tokens encrypted at rest."},
		{ID: "ABC-2", Title: "Token rotation", Status: "open", Description: "Rotate."},
		{ID: "ABC-3", Title: "Audit logging", Status: "open", Description: "Log all token operations with actor and reason."},
	}
}

func TestAnalyzeParsesReviewAndCollectsSuggestions(t *testing.T) {
	ai := &fakeCompleter{
		review: `## Summary
The epic covers the token lifecycle end to end.

## Epic-Level Gaps
- No ticket covers revocation on compromise
- none

## Tickets Needing Work
- ABC-2: description is a single word
- DEF-9: not part of this epic`,
		suggestion: "- Add acceptance criteria for rotation frequency",
	}
	analyzer := New(ai, Config{})

	report, err := analyzer.Analyze(context.Background(), "abc-100", epicTickets())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.EpicID != "ABC-100" {
		t.Fatalf("unexpected epic id %q", report.EpicID)
	}
	if !strings.Contains(report.Summary, "token lifecycle") {
		t.Fatalf("summary not captured: %q", report.Summary)
	}
	if len(report.Gaps) != 1 || !strings.Contains(report.Gaps[0], "revocation") {
		t.Fatalf("unexpected gaps %v", report.Gaps)
	}
	// DEF-9 is not under the epic and must be dropped.
	if len(report.Flagged) != 1 || report.Flagged[0] != "ABC-2" {
		t.Fatalf("unexpected flagged tickets %v", report.Flagged)
	}
	if report.Suggestions["ABC-2"] != "- Add acceptance criteria for rotation frequency" {
		t.Fatalf("unexpected suggestions %v", report.Suggestions)
	}
	if len(ai.deepDives) != 1 || !strings.Contains(ai.deepDives[0], "ABC-2") {
		t.Fatalf("expected one deep dive for ABC-2, got %d", len(ai.deepDives))
	}
}

func TestAnalyzeFailsWithoutBackend(t *testing.T) {
	analyzer := New(&fakeCompleter{fail: true}, Config{})
	if _, err := analyzer.Analyze(context.Background(), "ABC-100", epicTickets()); err == nil {
		t.Fatal("expected error when the completion backend is down")
	}
}

func TestAnalyzeRequiresTickets(t *testing.T) {
	analyzer := New(&fakeCompleter{}, Config{})
	if _, err := analyzer.Analyze(context.Background(), "ABC-100", nil); err == nil {
		t.Fatal("expected error for empty ticket list")
	}
}

func TestAnalyzeSuggestionFailureIsNonFatal(t *testing.T) {
	ai := &suggestionFailer{review: `## Summary
Covers rotation.

## Epic-Level Gaps
- none

## Tickets Needing Work
- ABC-2: too thin`}
	analyzer := New(ai, Config{})

	report, err := analyzer.Analyze(context.Background(), "ABC-100", epicTickets())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(report.Flagged) != 1 {
		t.Fatalf("unexpected flagged %v", report.Flagged)
	}
	if len(report.Suggestions) != 0 {
		t.Fatalf("expected no suggestions after deep-dive failure, got %v", report.Suggestions)
	}
}

type suggestionFailer struct {
	review string
}

func (s *suggestionFailer) Name() string { return "fake" }

func (s *suggestionFailer) Complete(ctx context.Context, req llm.Request) (string, error) {
	prompt := req.Messages[0].Content
	if strings.Contains(prompt, "was flagged as needing work") {
		return "", errors.New("model offline")
	}
	return s.review, nil
}

func TestRenderSuggestions(t *testing.T) {
	report := &Report{
		EpicID:      "ABC-100",
		Suggestions: map[string]string{"ABC-2": "- Split rotation and revocation"},
	}
	doc := RenderSuggestions(report, "abc-2")
	if !strings.HasPrefix(doc, "# Suggestions: ABC-2") {
		t.Fatalf("unexpected header:\n%s", doc)
	}
	if !strings.Contains(doc, "Split rotation and revocation") {
		t.Fatalf("suggestion body missing:\n%s", doc)
	}

	empty := RenderSuggestions(report, "ABC-3")
	if !strings.Contains(empty, "No suggestions recorded.") {
		t.Fatalf("expected empty notice:\n%s", empty)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	got := truncate("überschreitung", 2)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if got != "ü" {
		t.Fatalf("unexpected cut point: %q", got)
	}
}
