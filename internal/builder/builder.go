// File path: internal/builder/builder.go

// Package builder turns gathered context items into the per-ticket markdown
// document, merging incrementally into existing documents without
// duplicating content.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicodishanthj/Trawl_phase1/internal/artifact"
	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/common/telemetry"
	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
	"github.com/nicodishanthj/Trawl_phase1/internal/source"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

// Builder writes and updates context documents, tracking them in the
// document store.
type Builder struct {
	store *store.Store
	ai    llm.Completer
	cfg   Config
}

// New constructs a builder over the given store and completion service.
func New(st *store.Store, ai llm.Completer, cfg Config) *Builder {
	return &Builder{store: st, ai: ai, cfg: applyDefaults(cfg)}
}

// Build renders the context document for a ticket and returns its filename.
// Re-running with the same items is a no-op: items already present in the
// document are filtered out, and when nothing new remains the document is
// left untouched.
func (b *Builder) Build(ctx context.Context, ticketID string, items []source.ContextItem, outputDir string) (string, error) {
	logger := common.Logger()
	ticketID = strings.ToUpper(strings.TrimSpace(ticketID))
	if ticketID == "" {
		return "", fmt.Errorf("ticket id required")
	}
	if outputDir == "" {
		outputDir = b.cfg.OutputDir
	}

	record, err := b.store.Document(ctx, ticketID)
	if err != nil {
		return "", fmt.Errorf("load document record: %w", err)
	}

	var filename, existing string
	if record != nil {
		filename = record.Filename
		raw, readErr := os.ReadFile(filepath.Join(outputDir, filename))
		if readErr == nil {
			existing = string(raw)
		} else if !os.IsNotExist(readErr) {
			return "", fmt.Errorf("read existing document: %w", readErr)
		}
	}

	if len(items) == 0 {
		if record != nil {
			logger.Info("builder: no items, document unchanged", "ticket", ticketID, "filename", filename)
			return filename, nil
		}
		return "", fmt.Errorf("no context items for %s", ticketID)
	}

	var keywords []string
	if record != nil {
		keywords = record.Keywords
	} else {
		keywords = b.filenameKeywords(ctx, ticketID, items[0])
		filename = buildFilename(ticketID, keywords)
	}

	idx := artifact.ParseIndex(existing)
	fresh := strings.TrimSpace(existing) == ""

	// Deterministic presence filter: drop items whose URL or ticket
	// section already appears in the document.
	var candidates []source.ContextItem
	seen := make(map[string]struct{})
	for _, item := range items {
		if item.URL != "" {
			if idx.Contains(item.URL) {
				continue
			}
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
		}
		if item.Type == source.TypeTicket && idx.ContainsTicket(item.TicketID()) {
			continue
		}
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		if record != nil {
			logger.Info("builder: nothing new to add", "ticket", ticketID, "filename", filename)
			return filename, nil
		}
		return "", fmt.Errorf("no new context items for %s", ticketID)
	}

	if len(candidates) > b.cfg.DedupThreshold {
		deduped, dedupErr := b.dedupAgainstExisting(ctx, ticketID, candidates, existing)
		if dedupErr != nil {
			// Content is never added on an unverified semantic pass.
			if record != nil {
				logger.Warn("builder: dedup pass failed, document unchanged",
					"ticket", ticketID, "error", dedupErr)
				return filename, nil
			}
			return "", fmt.Errorf("dedup items for %s: %w", ticketID, dedupErr)
		}
		candidates = deduped
	}

	groups := b.groupItems(ctx, ticketID, candidates)

	var content string
	today := time.Now().UTC()
	if fresh {
		content = artifact.RenderDocument(ticketID, groups, today)
	} else {
		content = artifact.AppendDocument(existing, idx, groups, today)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	var recordID int64
	if record == nil {
		recordID, err = b.store.CreateDocument(ctx, ticketID, filename, keywords)
		if err != nil {
			return "", fmt.Errorf("create document record: %w", err)
		}
	} else {
		recordID = record.ID
		if err := b.store.UpdateDocument(ctx, ticketID, filename, keywords); err != nil {
			return "", fmt.Errorf("update document record: %w", err)
		}
	}
	now := time.Now().UTC()
	for _, name := range distinctSources(groups) {
		if err := b.store.UpdateFetchHistory(ctx, recordID, name, now); err != nil {
			return "", fmt.Errorf("record fetch history: %w", err)
		}
	}

	telemetry.RecordDocumentWrite(!fresh, len(candidates))
	logger.Info("builder: document written", "ticket", ticketID, "filename", filename, "items", len(candidates))
	return filename, nil
}

// dedupAgainstExisting asks the completion service which candidates add
// information the document does not already cover. The first candidate is
// always retained regardless of the model's answer.
func (b *Builder) dedupAgainstExisting(ctx context.Context, ticketID string, candidates []source.ContextItem, existing string) ([]source.ContextItem, error) {
	var summaries strings.Builder
	for i, item := range candidates {
		fmt.Fprintf(&summaries, "%d. [%s/%s] %s: %s...\n", i, item.Source, item.Type, item.Title, truncate(item.Content, 150))
	}
	excerpt := truncate(existing, b.cfg.ExistingExcerpt)
	if strings.TrimSpace(excerpt) == "" {
		excerpt = "(empty)"
	}

	prompt := fmt.Sprintf(`A context document for ticket %s begins:
%s

These new items were gathered:
%s
Which items contain information NOT already covered by the document?
Exclude items that restate content the document already has.
Return ONLY the numbers of items to keep, comma-separated. Return "none" if nothing is new.`,
		ticketID, excerpt, summaries.String())

	response, err := b.complete(ctx, prompt, 100, 0.2)
	if err != nil {
		return nil, err
	}
	selected := llm.ParseIndexSet(response, len(candidates))
	selected[0] = struct{}{}
	var kept []source.ContextItem
	for i, item := range candidates {
		if _, ok := selected[i]; ok {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

// groupItems organizes items under topic headings. Small sets use the
// fixed type-based grouping; larger sets ask the completion service for
// topical groups and fall back to types when that fails.
func (b *Builder) groupItems(ctx context.Context, ticketID string, items []source.ContextItem) []artifact.TopicGroup {
	if len(items) <= b.cfg.GroupThreshold {
		return groupByType(items)
	}
	groups, err := b.aiGroups(ctx, ticketID, items)
	if err != nil {
		common.Logger().Warn("builder: topical grouping failed, grouping by type", "ticket", ticketID, "error", err)
		return groupByType(items)
	}
	return groups
}

var jsonObjectRe = regexp.MustCompile(`\{[^{}]+\}`)

func (b *Builder) aiGroups(ctx context.Context, ticketID string, items []source.ContextItem) ([]artifact.TopicGroup, error) {
	var summaries strings.Builder
	for i, item := range items {
		fmt.Fprintf(&summaries, "%d. [%s/%s] %s\n", i, item.Source, item.Type, item.Title)
	}
	prompt := fmt.Sprintf(`Group these context items for ticket %s into 2-4 topical sections.

Items:
%s
Return ONLY a JSON object mapping section names to item number arrays.
Example: {"Primary Ticket": [0], "API Changes": [1, 3], "Discussion": [2]}`,
		ticketID, summaries.String())

	response, err := b.complete(ctx, prompt, 300, 0.2)
	if err != nil {
		return nil, err
	}
	raw := jsonObjectRe.FindString(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in grouping response")
	}
	var mapping map[string][]int
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, fmt.Errorf("parse grouping response: %w", err)
	}

	assigned := make(map[int]struct{})
	type topicOrder struct {
		name  string
		first int
	}
	var order []topicOrder
	groupItems := make(map[string][]source.ContextItem)
	for name, indices := range mapping {
		first := len(items)
		for _, i := range indices {
			if i < 0 || i >= len(items) {
				continue
			}
			if _, dup := assigned[i]; dup {
				continue
			}
			assigned[i] = struct{}{}
			groupItems[name] = append(groupItems[name], items[i])
			if i < first {
				first = i
			}
		}
		if len(groupItems[name]) > 0 {
			order = append(order, topicOrder{name: name, first: first})
		}
	}
	// Topic order follows the earliest item each topic contains, keeping
	// output stable across runs.
	sort.SliceStable(order, func(i, j int) bool { return order[i].first < order[j].first })

	var groups []artifact.TopicGroup
	for _, topic := range order {
		groups = append(groups, artifact.TopicGroup{Name: topic.name, Items: groupItems[topic.name]})
	}
	var leftover []source.ContextItem
	for i, item := range items {
		if _, ok := assigned[i]; !ok {
			leftover = append(leftover, item)
		}
	}
	if len(leftover) > 0 {
		groups = append(groups, artifact.TopicGroup{Name: "Other Context", Items: leftover})
	}
	return groups, nil
}

var typeTopics = []struct {
	itemType string
	topic    string
}{
	{source.TypeTicket, "Primary Ticket"},
	{source.TypeComment, "Discussion"},
	{source.TypePR, "Related Code"},
	{source.TypeCommit, "Related Code"},
	{source.TypeIssue, "Related Issues"},
	{source.TypeMessage, "Related Discussions"},
}

func groupByType(items []source.ContextItem) []artifact.TopicGroup {
	topicOf := func(itemType string) string {
		for _, entry := range typeTopics {
			if entry.itemType == itemType {
				return entry.topic
			}
		}
		return "Other Context"
	}
	grouped := make(map[string][]source.ContextItem)
	var order []string
	for _, item := range items {
		topic := topicOf(item.Type)
		if _, ok := grouped[topic]; !ok {
			order = append(order, topic)
		}
		grouped[topic] = append(grouped[topic], item)
	}
	groups := make([]artifact.TopicGroup, 0, len(order))
	for _, topic := range order {
		groups = append(groups, artifact.TopicGroup{Name: topic, Items: grouped[topic]})
	}
	return groups
}

var filenameWordRe = regexp.MustCompile(`[^a-z0-9]+`)

var filenameStopwords = map[string]struct{}{
	"about": {}, "after": {}, "before": {}, "could": {}, "should": {},
	"their": {}, "there": {}, "these": {}, "those": {}, "which": {},
	"while": {}, "would": {},
}

// filenameKeywords derives short descriptive terms for the document
// filename, falling back to title words when the completion service is
// unavailable.
func (b *Builder) filenameKeywords(ctx context.Context, ticketID string, primary source.ContextItem) []string {
	prompt := fmt.Sprintf(`Suggest 3-5 short lowercase keywords describing this ticket, suitable for a filename.

Title: %s
Content: %s

Return ONLY a comma-separated list of single words, nothing else.
Example: auth, tokens, refresh, expiry`, primary.Title, truncate(primary.Content, 1000))

	response, err := b.complete(ctx, prompt, 100, 0.3)
	if err == nil {
		var keywords []string
		for _, word := range llm.SplitList(response) {
			word = filenameWordRe.ReplaceAllString(strings.ToLower(word), "")
			if len(word) > 2 {
				keywords = append(keywords, word)
			}
			if len(keywords) == 5 {
				break
			}
		}
		if len(keywords) > 0 {
			return keywords
		}
	}
	common.Logger().Warn("builder: filename keywords failed, using title fallback", "ticket", ticketID, "error", err)

	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(primary.Title)) {
		word = filenameWordRe.ReplaceAllString(word, "")
		if len(word) <= 4 {
			continue
		}
		if _, stop := filenameStopwords[word]; stop {
			continue
		}
		if strings.EqualFold(word, strings.ReplaceAll(strings.ToLower(ticketID), "-", "")) {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

func buildFilename(ticketID string, keywords []string) string {
	slugWords := keywords
	if len(slugWords) > 4 {
		slugWords = slugWords[:4]
	}
	if len(slugWords) == 0 {
		return ticketID + ".md"
	}
	return ticketID + "_" + strings.Join(slugWords, "_") + ".md"
}

func distinctSources(groups []artifact.TopicGroup) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, group := range groups {
		for _, item := range group.Items {
			name := strings.ToLower(strings.TrimSpace(item.Source))
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (b *Builder) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.AITimeout)
	defer cancel()
	started := time.Now()
	response, err := b.ai.Complete(ctx, llm.Request{
		Model:       b.cfg.Model,
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
