// File path: internal/analyzer/analyzer.go

// Package analyzer reviews an epic's tickets for completeness, flagging
// gaps at the epic level and producing per-ticket improvement suggestions.
package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langgraphgo/graph"

	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/common/telemetry"
	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
)

// TicketSummary is the analyzer's view of one ticket under an epic.
type TicketSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// Report is the outcome of an epic review.
type Report struct {
	EpicID      string            `json:"epic_id"`
	Summary     string            `json:"summary"`
	Gaps        []string          `json:"gaps,omitempty"`
	Flagged     []string          `json:"flagged,omitempty"`
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

// Analyzer runs the two-phase epic review.
type Analyzer struct {
	ai  llm.Completer
	cfg Config
}

// New constructs an analyzer over the given completion service.
func New(ai llm.Completer, cfg Config) *Analyzer {
	return &Analyzer{ai: ai, cfg: applyDefaults(cfg)}
}

// Analyze reviews the epic's tickets. Phase one runs the review graph to
// summarize the epic, list gaps, and flag tickets that need work; phase
// two asks for concrete suggestions on each flagged ticket. The review
// requires a working completion backend and fails otherwise.
func (a *Analyzer) Analyze(ctx context.Context, epicID string, tickets []TicketSummary) (*Report, error) {
	logger := common.Logger()
	epicID = strings.ToUpper(strings.TrimSpace(epicID))
	if epicID == "" {
		return nil, fmt.Errorf("epic id required")
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("no tickets under epic %s", epicID)
	}

	review, err := a.runReviewGraph(ctx, epicID, tickets)
	if err != nil {
		return nil, fmt.Errorf("epic review for %s: %w", epicID, err)
	}

	sections := parseSections(review)
	report := &Report{
		EpicID:  epicID,
		Summary: sections["summary"],
		Gaps:    parseBullets(sections["epic-level gaps"]),
		Flagged: matchTickets(sections["tickets needing work"], tickets),
	}

	if len(report.Flagged) > 0 {
		report.Suggestions = make(map[string]string, len(report.Flagged))
	}
	for _, id := range report.Flagged {
		suggestion, err := a.deepDive(ctx, epicID, findTicket(id, tickets))
		if err != nil {
			logger.Warn("analyzer: suggestion pass failed", "epic", epicID, "ticket", id, "error", err)
			continue
		}
		report.Suggestions[id] = suggestion
	}

	logger.Info("analyzer: review complete", "epic", epicID,
		"gaps", len(report.Gaps), "flagged", len(report.Flagged))
	return report, nil
}

const reviewNode = "epic-review"

// runReviewGraph executes the single-node review graph and returns the
// model's markdown response.
func (a *Analyzer) runReviewGraph(ctx context.Context, epicID string, tickets []TicketSummary) (string, error) {
	prompt := a.reviewPrompt(epicID, tickets)

	g := graph.NewMessageGraph()
	g.AddNode(reviewNode, func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		response, err := a.complete(ctx, messagesText(state), 800, 0.3)
		if err != nil {
			return nil, err
		}
		return append(state, llms.TextParts(llms.ChatMessageTypeAI, response)), nil
	})
	g.AddEdge(reviewNode, graph.END)
	g.SetEntryPoint(reviewNode)

	runnable, err := g.Compile()
	if err != nil {
		return "", fmt.Errorf("compile review graph: %w", err)
	}
	state, err := runnable.Invoke(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", err
	}
	if len(state) == 0 {
		return "", fmt.Errorf("empty review state")
	}
	return messageText(state[len(state)-1]), nil
}

func (a *Analyzer) reviewPrompt(epicID string, tickets []TicketSummary) string {
	var listing strings.Builder
	for _, ticket := range tickets {
		fmt.Fprintf(&listing, "- %s [%s] %s: %s\n",
			ticket.ID, valueOr(ticket.Status, "unknown"), ticket.Title,
			truncate(ticket.Description, a.cfg.DescriptionLimit))
	}
	return fmt.Sprintf(`Review the tickets under epic %s for completeness.

Tickets:
%s
Respond in markdown with exactly these sections:

## Summary
One paragraph describing what the epic covers.

## Epic-Level Gaps
Bullet list of work the epic needs but no ticket covers. Write "- none" if complete.

## Tickets Needing Work
Bullet list of ticket IDs whose descriptions are too thin to implement, one per line with a short reason. Write "- none" if all are adequate.`,
		epicID, listing.String())
}

// deepDive asks for concrete improvements to one flagged ticket.
func (a *Analyzer) deepDive(ctx context.Context, epicID string, ticket *TicketSummary) (string, error) {
	if ticket == nil {
		return "", fmt.Errorf("ticket not found")
	}
	prompt := fmt.Sprintf(`Ticket %s under epic %s was flagged as needing work.

Title: %s
Status: %s
Description: %s

Suggest concrete improvements: missing acceptance criteria, unstated
dependencies, and scope that should be split out. Respond in markdown
bullet points.`,
		ticket.ID, epicID, ticket.Title, valueOr(ticket.Status, "unknown"),
		truncate(ticket.Description, a.cfg.DescriptionLimit))
	return a.complete(ctx, prompt, 500, 0.4)
}

// RenderSuggestions formats a report's suggestions for one ticket as a
// standalone markdown document.
func RenderSuggestions(report *Report, ticketID string) string {
	ticketID = strings.ToUpper(strings.TrimSpace(ticketID))
	var b strings.Builder
	fmt.Fprintf(&b, "# Suggestions: %s\n\n", ticketID)
	fmt.Fprintf(&b, "Flagged during the review of epic %s.\n\n", report.EpicID)
	if suggestion, ok := report.Suggestions[ticketID]; ok {
		b.WriteString(strings.TrimSpace(suggestion))
		b.WriteString("\n")
	} else {
		b.WriteString("No suggestions recorded.\n")
	}
	return b.String()
}

var sectionRe = regexp.MustCompile(`(?m)^##\s+(.+)$`)

// parseSections splits a markdown response into lowercased heading keys
// and their body text.
func parseSections(text string) map[string]string {
	sections := make(map[string]string)
	matches := sectionRe.FindAllStringSubmatchIndex(text, -1)
	for i, match := range matches {
		name := strings.ToLower(strings.TrimSpace(text[match[2]:match[3]]))
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections[name] = strings.TrimSpace(text[match[1]:end])
	}
	return sections
}

func parseBullets(body string) []string {
	var bullets []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- ") && !strings.HasPrefix(trimmed, "* ") {
			continue
		}
		entry := strings.TrimSpace(trimmed[2:])
		if entry == "" || strings.EqualFold(entry, "none") {
			continue
		}
		bullets = append(bullets, entry)
	}
	return bullets
}

var ticketIDRe = regexp.MustCompile(`\b[A-Z]{2,10}-\d+\b`)

// matchTickets extracts flagged ticket IDs, keeping only IDs that belong
// to the epic and preserving the epic's ticket order.
func matchTickets(body string, tickets []TicketSummary) []string {
	mentioned := make(map[string]struct{})
	for _, id := range ticketIDRe.FindAllString(strings.ToUpper(body), -1) {
		mentioned[id] = struct{}{}
	}
	var flagged []string
	for _, ticket := range tickets {
		id := strings.ToUpper(strings.TrimSpace(ticket.ID))
		if _, ok := mentioned[id]; ok {
			flagged = append(flagged, id)
		}
	}
	return flagged
}

func findTicket(id string, tickets []TicketSummary) *TicketSummary {
	for i := range tickets {
		if strings.EqualFold(strings.TrimSpace(tickets[i].ID), id) {
			return &tickets[i]
		}
	}
	return nil
}

func messagesText(state []llms.MessageContent) string {
	var parts []string
	for _, message := range state {
		if text := messageText(message); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func messageText(message llms.MessageContent) string {
	var b strings.Builder
	for _, part := range message.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

func (a *Analyzer) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.AITimeout)
	defer cancel()
	started := time.Now()
	response, err := a.ai.Complete(ctx, llm.Request{
		Model:       a.cfg.Model,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	telemetry.RecordCompletion(time.Since(started), err)
	return response, err
}

// truncate caps s at limit bytes, backing off so a multi-byte rune is
// never split at the cut point.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
