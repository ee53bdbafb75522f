// File path: internal/search/search.go

// Package search implements the multi-phase context gathering protocol:
// primary fetch, tier-1 reference expansion, keyword extraction,
// secondary-source search and tiered relevance filtering.
package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/common/telemetry"
	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
	"github.com/nicodishanthj/Trawl_phase1/internal/source"
)

// Orchestrator runs the search protocol for one ticket at a time. All
// external calls are issued strictly sequentially.
type Orchestrator struct {
	registry *source.Registry
	ai       llm.Completer
	cfg      Config
}

// Options narrow a single search invocation.
type Options struct {
	// SourceOverride selects the primary source instead of the configured
	// default.
	SourceOverride string
	Since          *time.Time
	Until          *time.Time
}

// New constructs an orchestrator over the given provider registry and
// completion service.
func New(registry *source.Registry, ai llm.Completer, cfg Config) *Orchestrator {
	cfg = applyDefaults(cfg)
	return &Orchestrator{registry: registry, ai: ai, cfg: cfg}
}

// Search gathers context items for a ticket. It fails with *source.AuthError
// when the primary source cannot be authenticated, and returns an empty
// result when the primary item does not exist.
func (o *Orchestrator) Search(ctx context.Context, ticketID string, opts Options) ([]source.ContextItem, error) {
	logger := common.Logger()
	ticketID = strings.ToUpper(strings.TrimSpace(ticketID))
	if ticketID == "" {
		return nil, fmt.Errorf("ticket id required")
	}

	primarySource := o.cfg.PrimarySource
	if opts.SourceOverride != "" {
		primarySource = opts.SourceOverride
	}
	primary := o.registry.Provider(primarySource)
	if primary == nil {
		return nil, fmt.Errorf("no provider registered for source %q", primarySource)
	}
	ctx, endSpan := telemetry.StartSpan(ctx, "search")
	defer endSpan("ticket", ticketID)
	logger.Info("search: starting", "ticket", ticketID, "primary", primary.Name())

	// Phase 1: primary fetch. Authentication is attempted once; failure
	// is fatal for the whole invocation.
	if !primary.IsAuthenticated() {
		ok, err := primary.Authenticate(ctx, nil)
		if err != nil || !ok {
			return nil, &source.AuthError{Source: primary.Name(), Err: err}
		}
	}
	primaryItem, err := primary.ItemDetails(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("fetch primary item %s: %w", ticketID, err)
	}
	if primaryItem == nil {
		logger.Warn("search: primary item not found", "ticket", ticketID, "source", primary.Name())
		return []source.ContextItem{}, nil
	}

	seen := make(map[string]struct{})
	var items []source.ContextItem
	appendItem := func(item source.ContextItem) bool {
		if item.URL != "" {
			if _, dup := seen[item.URL]; dup {
				return false
			}
			seen[item.URL] = struct{}{}
		}
		items = append(items, item)
		return true
	}

	appendItem(*primaryItem)
	for _, comment := range primaryItem.TakeComments() {
		appendItem(comment)
	}
	tier1 := append([]source.ContextItem(nil), items...)
	logger.Debug("search: tier 1 assembled", "items", len(tier1))

	// Phase 2: expand references found in tier 1 only. Later tiers are
	// never expanded, which bounds the fan-out to one hop.
	for _, ref := range o.tier1References(tier1, ticketID) {
		item := o.resolveReference(ctx, ref)
		if item == nil {
			continue
		}
		if appendItem(*item) {
			for _, comment := range item.TakeComments() {
				appendItem(comment)
			}
		}
	}
	logger.Debug("search: after reference expansion", "items", len(items))

	// Phase 3: keyword extraction.
	keywords := o.extractKeywords(ctx, *primaryItem)
	logger.Debug("search: keywords extracted", "keywords", keywords)

	// Phase 4: search the remaining sources for the ticket id and up to
	// three keywords. Individual query failures are logged and skipped.
	queries := append([]string{ticketID}, limitStrings(keywords, o.cfg.SecondaryKeywords)...)
	for _, provider := range o.registry.Providers() {
		if strings.EqualFold(provider.Name(), primary.Name()) {
			continue
		}
		if !provider.IsAuthenticated() {
			continue
		}
		for _, query := range queries {
			started := time.Now()
			found, err := provider.Search(ctx, query, source.SearchOptions{Since: opts.Since, Until: opts.Until})
			telemetry.RecordSourceSearch(provider.Name(), time.Since(started))
			if err != nil {
				logger.Debug("search: secondary query failed", "source", provider.Name(), "query", query, "error", err)
				continue
			}
			for _, item := range found {
				appendItem(item)
			}
		}
	}
	logger.Debug("search: after secondary sources", "items", len(items))

	// Phase 5: relevance filtering for large result sets.
	if len(items) > o.cfg.RelevanceThreshold {
		items = o.filterRelevant(ctx, items, *primaryItem, ticketID)
	}

	logger.Info("search: complete", "ticket", ticketID, "items", len(items))
	return items, nil
}

// tier1References collects references from every provider's extractor,
// de-duplicated by (type, id) and with the self-reference removed.
func (o *Orchestrator) tier1References(tier1 []source.ContextItem, ticketID string) []source.Reference {
	var refs []source.Reference
	seen := make(map[string]struct{})
	for _, provider := range o.registry.Providers() {
		for _, ref := range provider.ExtractReferences(tier1) {
			if strings.EqualFold(ref.ID, ticketID) {
				continue
			}
			key := ref.Type + ":" + strings.ToUpper(ref.ID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

// resolveReference asks the first authenticated provider declaring support
// for the reference type. Resolution failures fall through to the next
// candidate.
func (o *Orchestrator) resolveReference(ctx context.Context, ref source.Reference) *source.ContextItem {
	logger := common.Logger()
	for _, provider := range o.registry.Resolvers(ref.Type) {
		if !provider.IsAuthenticated() {
			continue
		}
		item, err := provider.ItemDetails(ctx, ref.ID)
		if err != nil {
			logger.Debug("search: reference resolution failed", "source", provider.Name(), "ref", ref.ID, "error", err)
			continue
		}
		if item != nil {
			return item
		}
	}
	return nil
}

var keywordWordRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// extractKeywords asks the completion service for salient terms, falling
// back to alphanumeric title words longer than three characters.
func (o *Orchestrator) extractKeywords(ctx context.Context, primary source.ContextItem) []string {
	prompt := fmt.Sprintf(`Extract 3-5 key technical terms or concepts from this ticket that would help find related discussions.

Title: %s
Content: %s

Return ONLY a comma-separated list of keywords, nothing else.
Example: authentication, OAuth2, API keys, enterprise SSO`, primary.Title, truncate(primary.Content, o.cfg.PromptContentLimit))

	response, err := o.complete(ctx, prompt, 100, 0.3)
	if err == nil {
		if keywords := llm.SplitList(response); len(keywords) > 0 {
			return keywords
		}
	}
	common.Logger().Warn("search: keyword extraction failed, using title fallback", "error", err)
	var fallback []string
	for _, word := range strings.Fields(primary.Title) {
		if len(word) > 3 && keywordWordRe.MatchString(word) {
			fallback = append(fallback, word)
		}
		if len(fallback) == 5 {
			break
		}
	}
	return fallback
}

// filterRelevant partitions items into tiers, asks the completion service
// which are directly relevant, and applies the deterministic safeguards:
// the primary item is always retained, tier-A items are force-included when
// the selection is small, and AI failure degrades to tier A plus tier B.
func (o *Orchestrator) filterRelevant(ctx context.Context, items []source.ContextItem, primary source.ContextItem, ticketID string) []source.ContextItem {
	logger := common.Logger()

	tierOf := make([]int, len(items))
	for i, item := range items {
		tierOf[i] = classifyTier(item, ticketID)
	}

	// Prompt order is tier A, then B, then C, capped at MaxPromptItems.
	var promptOrder []int
	for tier := tierA; tier <= tierC; tier++ {
		for i := range items {
			if tierOf[i] == tier && len(promptOrder) < o.cfg.MaxPromptItems {
				promptOrder = append(promptOrder, i)
			}
		}
	}

	var summaries strings.Builder
	for pos, idx := range promptOrder {
		item := items[idx]
		fmt.Fprintf(&summaries, "%d. [%s] %s: %s...\n", pos, item.Source, item.Title, truncate(item.Content, 150))
	}

	prompt := fmt.Sprintf(`Given this primary ticket:
Ticket ID: %s
Title: %s
Description: %s

Which items are DIRECTLY relevant to implementing THIS SPECIFIC ticket (%s)?

Include items that:
- Explicitly reference %s in the title or content
- Are PRs, commits, or comments that implement %s
- Are comments or discussions specifically about %s

EXCLUDE items that:
- Reference DIFFERENT ticket IDs
- Are only tangentially related or share some keywords
- Discuss separate features even if they touch similar code areas

Return ONLY the numbers of directly relevant items, comma-separated.
If unsure, err on the side of EXCLUDING the item.

Items:
%s
Relevant item numbers:`, ticketID, primary.Title, truncate(primary.Content, 500), ticketID, ticketID, ticketID, ticketID, summaries.String())

	response, err := o.complete(ctx, prompt, 500, 0.3)
	if err != nil {
		logger.Warn("search: relevance filter failed, using tier fallback", "error", err)
		fallback := selectByTier(items, tierOf, o.cfg.MaxPromptItems, tierA, tierB)
		if len(fallback) == 0 {
			if len(items) > 20 {
				return items[:20]
			}
			return items
		}
		return fallback
	}

	selectedPos := llm.ParseIndexSet(response, len(promptOrder))
	keep := make(map[int]struct{}, len(selectedPos)+1)
	for pos := range selectedPos {
		keep[promptOrder[pos]] = struct{}{}
	}
	keep[0] = struct{}{} // the primary item is never filtered out

	// Small selections force tier-A items back in. Items are kept in
	// discovery order; filtering only removes, never reorders.
	forceTierA := len(keep) < o.cfg.MinSelected
	var filtered []source.ContextItem
	for i, item := range items {
		if _, ok := keep[i]; ok {
			filtered = append(filtered, item)
			continue
		}
		if forceTierA && tierOf[i] == tierA {
			filtered = append(filtered, item)
		}
	}
	logger.Debug("search: relevance filter applied", "before", len(items), "after", len(filtered))
	return filtered
}

const (
	tierA = iota
	tierB
	tierC
)

// classifyTier implements the auditable relevance tiers: tier A items name
// the ticket id in the title or leading content, tier B are structured
// item types, tier C is everything else.
func classifyTier(item source.ContextItem, ticketID string) int {
	upperID := strings.ToUpper(ticketID)
	head := strings.ToUpper(truncate(item.Content, 500))
	if strings.Contains(strings.ToUpper(item.Title), upperID) || strings.Contains(head, upperID) {
		return tierA
	}
	switch item.Type {
	case source.TypePR, source.TypeIssue, source.TypeTicket, source.TypeComment:
		return tierB
	}
	return tierC
}

func selectByTier(items []source.ContextItem, tierOf []int, limit int, tiers ...int) []source.ContextItem {
	wanted := make(map[int]struct{}, len(tiers))
	for _, tier := range tiers {
		wanted[tier] = struct{}{}
	}
	var out []source.ContextItem
	for i, item := range items {
		if _, ok := wanted[tierOf[i]]; !ok {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (o *Orchestrator) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.AITimeout)
	defer cancel()
	started := time.Now()
	response, err := o.ai.Complete(ctx, llm.Request{
		Model:       o.cfg.Model,
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

func limitStrings(values []string, limit int) []string {
	if limit >= 0 && len(values) > limit {
		return values[:limit]
	}
	return values
}
