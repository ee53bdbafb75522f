// File path: internal/source/refs.go
package source

import (
	"regexp"
	"strings"
)

// ReferencePattern pairs a compiled pattern with the reference type its
// first capture group resolves to.
type ReferencePattern struct {
	Type    string
	Pattern *regexp.Regexp
}

// Common reference shapes shared by provider implementations. Tracker keys
// like TB-123, pull requests like "PR #42" and issues like "issue #7".
var (
	TicketPattern = ReferencePattern{Type: TypeTicket, Pattern: regexp.MustCompile(`\b([A-Z]{2,10}-\d+)\b`)}
	PRPattern     = ReferencePattern{Type: TypePR, Pattern: regexp.MustCompile(`(?i)\b(?:PR|pull)\s*#?(\d+)\b`)}
	IssuePattern  = ReferencePattern{Type: TypeIssue, Pattern: regexp.MustCompile(`(?i)\bissue\s*#?(\d+)\b`)}
)

// ScanReferences applies the given patterns to the title and content of each
// item, returning references de-duplicated by (type, id) in discovery order.
func ScanReferences(items []ContextItem, patterns []ReferencePattern) []Reference {
	var refs []Reference
	seen := make(map[string]struct{})
	for _, item := range items {
		text := item.Title + " " + item.Content
		for _, rp := range patterns {
			for _, match := range rp.Pattern.FindAllStringSubmatch(text, -1) {
				if len(match) < 2 {
					continue
				}
				id := strings.TrimSpace(match[1])
				if id == "" {
					continue
				}
				key := rp.Type + ":" + strings.ToUpper(id)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				refs = append(refs, Reference{Type: rp.Type, ID: id})
			}
		}
	}
	return refs
}
