// File path: internal/llm/parse.go
package llm

import (
	"strconv"
	"strings"
)

// ParseIndexSet extracts zero-based item indices from a model response such
// as "0, 2, 5.", tolerant of stray punctuation and prose around the
// numbers. Indices outside [0, limit) are discarded.
func ParseIndexSet(response string, limit int) map[int]struct{} {
	indices := make(map[int]struct{})
	cleaned := strings.NewReplacer(",", " ", "\n", " ").Replace(response)
	for _, part := range strings.Fields(cleaned) {
		token := strings.Trim(part, ".:;[]()")
		idx, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		if idx >= 0 && idx < limit {
			indices[idx] = struct{}{}
		}
	}
	return indices
}

// SplitList parses a comma-separated model response into trimmed, non-empty
// entries.
func SplitList(response string) []string {
	var out []string
	for _, part := range strings.Split(response, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
