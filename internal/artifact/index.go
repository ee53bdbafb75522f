// File path: internal/artifact/index.go

// Package artifact renders context documents and re-parses previously
// rendered (possibly hand-edited) documents so incremental builds can
// append without duplicating items. The Index type isolates the
// re-parsing heuristics from the builder.
package artifact

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	refLineRe      = regexp.MustCompile(`(?m)^\[(\d+)\]:\s+(\S+)(?:\s+"(.*)")?\s*$`)
	ticketURLRe    = regexp.MustCompile(`https?://[^\s)"]+/browse/[A-Z][A-Z0-9]*-\d+`)
	pullURLRe      = regexp.MustCompile(`https?://[^\s)"]+/pull/\d+`)
	ticketHeaderRe = regexp.MustCompile(`^([A-Z][A-Z0-9]*-\d+):`)
	tableRowRe     = regexp.MustCompile(`^\|\s*([^|]+?)\s*\|\s*(\d+)\s*\|\s*([0-9-]+)\s*\|$`)
)

const footerSeparator = "\n---\n"

// TicketMarker is the synthetic presence key recorded for every
// "### <ID>: ..." section found in an existing document.
func TicketMarker(ticketID string) string {
	return "__ticket__" + strings.ToUpper(strings.TrimSpace(ticketID))
}

// Index is the parsed state of an existing context document.
type Index struct {
	present  map[string]struct{}
	topics   map[string]struct{}
	refLines []string

	// MaxRef is the largest reference number found; new references
	// continue from MaxRef+1 and numbers are never reused.
	MaxRef int

	// SourceCounts holds the footer table rows keyed by source name.
	SourceCounts map[string]int
}

// ParseIndex extracts the presence set from a rendered document: reference
// list entries, canonical ticket/pull-request URLs appearing anywhere in
// the text, and a synthetic marker for every ticket section header.
func ParseIndex(content string) *Index {
	idx := &Index{
		present:      make(map[string]struct{}),
		topics:       make(map[string]struct{}),
		SourceCounts: make(map[string]int),
	}
	if strings.TrimSpace(content) == "" {
		return idx
	}

	for _, match := range refLineRe.FindAllStringSubmatch(content, -1) {
		if num, err := strconv.Atoi(match[1]); err == nil && num > idx.MaxRef {
			idx.MaxRef = num
		}
		idx.present[match[2]] = struct{}{}
		idx.refLines = append(idx.refLines, strings.TrimRight(match[0], " \t"))
	}
	for _, url := range ticketURLRe.FindAllString(content, -1) {
		idx.present[url] = struct{}{}
		if key := canonicalPath(url); key != "" {
			idx.present[key] = struct{}{}
		}
	}
	for _, url := range pullURLRe.FindAllString(content, -1) {
		idx.present[url] = struct{}{}
		if key := canonicalPath(url); key != "" {
			idx.present[key] = struct{}{}
		}
	}

	idx.walkHeadings(content)
	idx.parseSourceTable(content)
	return idx
}

// walkHeadings records topic names (level-2 headings) and ticket markers
// (level-3 headings that open with a ticket key) from the document AST.
func (x *Index) walkHeadings(content string) {
	src := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := strings.TrimSpace(string(heading.Text(src)))
		switch heading.Level {
		case 2:
			x.topics[title] = struct{}{}
		case 3:
			if match := ticketHeaderRe.FindStringSubmatch(title); match != nil {
				x.present[TicketMarker(match[1])] = struct{}{}
			}
		}
		return ast.WalkSkipChildren, nil
	})
}

func (x *Index) parseSourceTable(content string) {
	inTable := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			inTable = strings.TrimSpace(strings.TrimPrefix(trimmed, "## ")) == "Sources Consulted"
			continue
		}
		if !inTable {
			continue
		}
		match := tableRowRe.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		name := match[1]
		if strings.EqualFold(name, "Source") {
			continue
		}
		if count, err := strconv.Atoi(match[2]); err == nil {
			x.SourceCounts[name] = count
		}
	}
}

// Contains reports whether a URL (or synthetic marker) is already present.
// Ticket and pull-request URLs also match on their host-independent
// canonical path ("/browse/<KEY>", "/pull/<n>"), so the same item reached
// through a different host or mirror is still caught. The suffix guard
// keeps comment permalinks, which embed the canonical path plus a query
// string, from being swallowed by their parent item.
func (x *Index) Contains(url string) bool {
	if x == nil || url == "" {
		return false
	}
	if _, ok := x.present[url]; ok {
		return true
	}
	for _, re := range []*regexp.Regexp{ticketURLRe, pullURLRe} {
		full := re.FindString(url)
		if full == "" || !strings.HasSuffix(url, full) {
			continue
		}
		if _, ok := x.present[full]; ok {
			return true
		}
		if key := canonicalPath(full); key != "" {
			if _, ok := x.present[key]; ok {
				return true
			}
		}
	}
	return false
}

// canonicalPath strips the scheme and host from a canonical ticket or
// pull-request URL.
func canonicalPath(url string) string {
	i := strings.Index(url, "://")
	if i < 0 {
		return ""
	}
	j := strings.IndexByte(url[i+3:], '/')
	if j < 0 {
		return ""
	}
	return url[i+3+j:]
}

// ContainsTicket reports whether a ticket section for the given id exists.
func (x *Index) ContainsTicket(ticketID string) bool {
	if x == nil || strings.TrimSpace(ticketID) == "" {
		return false
	}
	_, ok := x.present[TicketMarker(ticketID)]
	return ok
}

// HasTopic reports whether a "## <name>" section already exists.
func (x *Index) HasTopic(name string) bool {
	if x == nil {
		return false
	}
	_, ok := x.topics[strings.TrimSpace(name)]
	return ok
}

// RefLines returns the preserved reference-list entries in document order.
func (x *Index) RefLines() []string {
	if x == nil {
		return nil
	}
	return append([]string(nil), x.refLines...)
}
