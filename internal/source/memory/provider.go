// File path: internal/source/memory/provider.go

// Package memory provides an in-memory source.Provider backed by seeded
// items. It is used in tests and in local wiring when no real backing
// system is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nicodishanthj/Trawl_phase1/internal/source"
)

// Provider is a seeded, registry-compatible capability provider.
type Provider struct {
	mu            sync.RWMutex
	name          string
	authenticated bool
	failAuth      bool
	refTypes      []string
	patterns      []source.ReferencePattern
	items         map[string]source.ContextItem
	ids           []string
}

// Option configures a Provider.
type Option func(*Provider)

// WithReferenceTypes overrides the reference types the provider declares.
func WithReferenceTypes(types ...string) Option {
	return func(p *Provider) { p.refTypes = append([]string(nil), types...) }
}

// WithPatterns overrides the reference patterns used by ExtractReferences.
func WithPatterns(patterns ...source.ReferencePattern) Option {
	return func(p *Provider) { p.patterns = append([]source.ReferencePattern(nil), patterns...) }
}

// WithoutAuthentication starts the provider unauthenticated.
func WithoutAuthentication() Option {
	return func(p *Provider) { p.authenticated = false }
}

// WithFailingAuthentication makes Authenticate always report failure.
func WithFailingAuthentication() Option {
	return func(p *Provider) {
		p.authenticated = false
		p.failAuth = true
	}
}

// NewProvider constructs a provider that, by default, is authenticated,
// declares ticket references, and scans with the common patterns.
func NewProvider(name string, opts ...Option) *Provider {
	p := &Provider{
		name:          name,
		authenticated: true,
		refTypes:      []string{source.TypeTicket},
		patterns:      []source.ReferencePattern{source.TicketPattern, source.PRPattern, source.IssuePattern},
		items:         make(map[string]source.ContextItem),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Add seeds an item under the given identifier.
func (p *Provider) Add(id string, item source.ContextItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToUpper(strings.TrimSpace(id))
	if _, exists := p.items[key]; !exists {
		p.ids = append(p.ids, key)
	}
	p.items[key] = item
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Authenticate(ctx context.Context, credentials map[string]string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAuth {
		return false, nil
	}
	p.authenticated = true
	return true, nil
}

func (p *Provider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authenticated
}

// Search matches the query case-insensitively against item titles and
// content, honouring the since/until window on item timestamps.
func (p *Provider) Search(ctx context.Context, query string, opts source.SearchOptions) ([]source.ContextItem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}
	var out []source.ContextItem
	for _, id := range p.ids {
		item := p.items[id]
		if opts.Since != nil && item.Timestamp.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && item.Timestamp.After(*opts.Until) {
			continue
		}
		haystack := strings.ToLower(item.Title + " " + item.Content)
		if strings.Contains(haystack, needle) {
			out = append(out, cloneItem(item))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (p *Provider) ItemDetails(ctx context.Context, id string) (*source.ContextItem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	item, ok := p.items[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return nil, nil
	}
	clone := cloneItem(item)
	return &clone, nil
}

func (p *Provider) SupportedReferenceTypes() []string {
	return append([]string(nil), p.refTypes...)
}

func (p *Provider) ExtractReferences(items []source.ContextItem) []source.Reference {
	return source.ScanReferences(items, p.patterns)
}

func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authenticated = false
	return nil
}

// cloneItem copies the item and its metadata map so callers mutating the
// returned item (the orchestrator detaches comment batches) do not corrupt
// the seeded state.
func cloneItem(item source.ContextItem) source.ContextItem {
	if item.Metadata == nil {
		return item
	}
	meta := make(map[string]interface{}, len(item.Metadata))
	for k, v := range item.Metadata {
		if comments, ok := v.([]source.ContextItem); ok {
			v = append([]source.ContextItem(nil), comments...)
		}
		meta[k] = v
	}
	item.Metadata = meta
	return item
}
