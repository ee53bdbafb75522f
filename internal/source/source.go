// File path: internal/source/source.go

// Package source defines the capability-provider contract shared by every
// backing system (issue tracker, chat, code host) together with the
// ContextItem exchange format the rest of the pipeline consumes.
package source

import (
	"context"
	"fmt"
	"time"
)

// Standard item types. The set is open: providers may emit additional types
// and the pipeline treats unknown types as unstructured context.
const (
	TypeTicket  = "ticket"
	TypeComment = "comment"
	TypeMessage = "message"
	TypePR      = "pr"
	TypeIssue   = "issue"
	TypeCommit  = "commit"
)

// Metadata keys with pipeline-level meaning.
const (
	// MetaComments carries sub-items attached to a fetched item (for example
	// ticket comments). The orchestrator detaches and consumes the batch.
	MetaComments = "_comments"
	// MetaTicketID carries the provider-native ticket identifier for
	// ticket-type items, used for already-present checks on rebuilds.
	MetaTicketID = "ticket_id"
)

// ContextItem is one retrieved unit of context. Two items with an equal
// non-empty URL represent the same real-world artifact and are never
// persisted twice into one document.
type ContextItem struct {
	Source    string                 `json:"source"`
	Type      string                 `json:"item_type"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	URL       string                 `json:"url"`
	Timestamp time.Time              `json:"timestamp"`
	Author    string                 `json:"author"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TakeComments detaches the attached sub-item batch from the item metadata
// and returns it. The batch is removed so it is never double counted.
func (c *ContextItem) TakeComments() []ContextItem {
	if c == nil || c.Metadata == nil {
		return nil
	}
	raw, ok := c.Metadata[MetaComments]
	if !ok {
		return nil
	}
	delete(c.Metadata, MetaComments)
	comments, ok := raw.([]ContextItem)
	if !ok {
		return nil
	}
	return comments
}

// TicketID returns the provider-native ticket identifier carried in the item
// metadata, or an empty string when none is present.
func (c ContextItem) TicketID() string {
	if c.Metadata == nil {
		return ""
	}
	if id, ok := c.Metadata[MetaTicketID].(string); ok {
		return id
	}
	return ""
}

// Reference is a textual mention discovered inside item content that may
// resolve to another ContextItem via some provider.
type Reference struct {
	Type string
	ID   string
}

// SearchOptions narrow a provider search.
type SearchOptions struct {
	Since  *time.Time
	Until  *time.Time
	Fields []string
}

// Provider is implemented once per backing system and consumed
// polymorphically through the Registry.
type Provider interface {
	// Name returns the stable source identifier (e.g. "jira").
	Name() string

	// Authenticate establishes or refreshes credentials. A nil credential
	// map means: use whatever the provider has stored.
	Authenticate(ctx context.Context, credentials map[string]string) (bool, error)

	// IsAuthenticated is a non-blocking credential check.
	IsAuthenticated() bool

	// Search returns items matching the query. Failures are reported as an
	// error and treated as recoverable by callers.
	Search(ctx context.Context, query string, opts SearchOptions) ([]ContextItem, error)

	// ItemDetails fetches one item by identifier, returning (nil, nil) when
	// the item does not exist.
	ItemDetails(ctx context.Context, id string) (*ContextItem, error)

	// SupportedReferenceTypes declares which reference-type strings this
	// provider can resolve through ItemDetails.
	SupportedReferenceTypes() []string

	// ExtractReferences scans item text for this provider's reference
	// patterns.
	ExtractReferences(items []ContextItem) []Reference

	// Disconnect clears stored credentials.
	Disconnect(ctx context.Context) error
}

// AuthError reports a fatal authentication failure against a source. It
// names the source and the remediation action so callers can surface a
// useful message.
type AuthError struct {
	Source string
	Err    error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("authentication failed for source %q; re-run source setup for %s to refresh credentials", e.Source, e.Source)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }
