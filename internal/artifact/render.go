// File path: internal/artifact/render.go
package artifact

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/source"
)

// TopicGroup is an ordered set of items rendered under one topic heading.
type TopicGroup struct {
	Name  string
	Items []source.ContextItem
}

const (
	rawContentThreshold = 200
	maxQuotedLines      = 20
)

// RenderDocument produces a complete context document for a fresh build.
// Reference numbers start at 1; ticket-type items are left un-numbered.
func RenderDocument(ticketID string, groups []TopicGroup, today time.Time) string {
	var b strings.Builder
	b.WriteString("# Context: ")
	b.WriteString(primaryTitle(ticketID, groups))
	b.WriteString("\n\n")

	refNum := 1
	var refs []string
	for _, group := range groups {
		if len(group.Items) == 0 {
			continue
		}
		b.WriteString("## ")
		b.WriteString(group.Name)
		b.WriteString("\n\n")
		for _, item := range group.Items {
			refs = writeItemSection(&b, item, &refNum, refs)
		}
	}

	b.WriteString(renderFooter(countSources(groups, nil), today, refs))
	return b.String()
}

// AppendDocument merges new topic groups into an existing document. The
// body before the footer separator is preserved verbatim (right-trimmed),
// new sections are inserted after it, reference numbers continue from one
// past the existing maximum, and the footer is rebuilt with merged source
// counts and today's date.
func AppendDocument(existing string, idx *Index, groups []TopicGroup, today time.Time) string {
	if idx == nil {
		idx = ParseIndex(existing)
	}
	body := existing
	if pos := strings.Index(existing, footerSeparator); pos >= 0 {
		body = existing[:pos]
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(body, " \t\n"))
	b.WriteString("\n\n")

	refNum := idx.MaxRef + 1
	var newRefs []string
	for _, group := range groups {
		if len(group.Items) == 0 {
			continue
		}
		if idx.HasTopic(group.Name) {
			b.WriteString("### New additions to ")
			b.WriteString(group.Name)
			b.WriteString("\n\n")
		} else {
			b.WriteString("## ")
			b.WriteString(group.Name)
			b.WriteString("\n\n")
		}
		for _, item := range group.Items {
			newRefs = writeItemSection(&b, item, &refNum, newRefs)
		}
	}

	refs := append(idx.RefLines(), newRefs...)
	b.WriteString(renderFooter(countSources(groups, idx.SourceCounts), today, refs))
	return b.String()
}

func writeItemSection(b *strings.Builder, item source.ContextItem, refNum *int, refs []string) []string {
	if item.Type == source.TypeTicket {
		fmt.Fprintf(b, "### %s\n\n", item.Title)
	} else {
		fmt.Fprintf(b, "### %s [%d]\n\n", item.Title, *refNum)
		refs = append(refs, fmt.Sprintf("[%d]: %s \"%s: %s\"", *refNum, item.URL, item.Source, item.Title))
		*refNum++
	}

	content := strings.TrimSpace(item.Content)
	structured := item.Type == source.TypeTicket || item.Type == source.TypeComment
	if structured && len(content) > rawContentThreshold {
		b.WriteString(content)
		b.WriteString("\n")
	} else {
		lines := strings.Split(content, "\n")
		if len(lines) > maxQuotedLines {
			lines = lines[:maxQuotedLines]
		}
		for _, line := range lines {
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(b, "\n— *%s via %s, %s*\n\n", item.Author, strings.ToUpper(item.Source), item.Timestamp.Format("Jan 02, 2006"))
	return refs
}

func renderFooter(counts map[string]int, today time.Time, refs []string) string {
	var b strings.Builder
	b.WriteString("---\n\n")
	b.WriteString("## Sources Consulted\n\n")
	b.WriteString("| Source | Items Found | Last Updated |\n")
	b.WriteString("|--------|-------------|--------------|\n")

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	date := today.Format("2006-01-02")
	for _, name := range names {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", name, counts[name], date)
	}
	b.WriteString("\n")

	if len(refs) > 0 {
		b.WriteString("## References\n\n")
		for _, ref := range refs {
			b.WriteString(ref)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// countSources totals items per source across the groups rendered this
// run, merged on top of any counts carried over from an existing footer.
// Only items actually persisted in this build contribute, so repeated
// incremental builds do not double count.
func countSources(groups []TopicGroup, carried map[string]int) map[string]int {
	counts := make(map[string]int, len(carried))
	for name, count := range carried {
		counts[name] = count
	}
	for _, group := range groups {
		for _, item := range group.Items {
			counts[strings.ToUpper(item.Source)]++
		}
	}
	return counts
}

func primaryTitle(ticketID string, groups []TopicGroup) string {
	upper := strings.ToUpper(strings.TrimSpace(ticketID))
	for _, group := range groups {
		for _, item := range group.Items {
			if item.Type == source.TypeTicket && strings.Contains(strings.ToUpper(item.Title), upper) {
				return item.Title
			}
		}
	}
	return upper
}
