// File path: internal/source/memory/seed.go
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/source"
)

// SeedFile describes the JSON document accepted by LoadSeed. Each entry in
// Sources becomes one registered provider.
type SeedFile struct {
	Sources []SeedSource `json:"sources"`
}

// SeedSource seeds one provider.
type SeedSource struct {
	Name           string     `json:"name"`
	ReferenceTypes []string   `json:"reference_types,omitempty"`
	Items          []SeedItem `json:"items"`
}

// SeedItem is one seeded item; Comments become the attached sub-item batch.
type SeedItem struct {
	ID        string     `json:"id"`
	Type      string     `json:"item_type"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	URL       string     `json:"url"`
	Timestamp time.Time  `json:"timestamp"`
	Author    string     `json:"author"`
	Comments  []SeedItem `json:"comments,omitempty"`
}

// LoadSeed reads a seed file and returns one provider per seeded source.
func LoadSeed(path string) ([]*Provider, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	providers := make([]*Provider, 0, len(seed.Sources))
	for _, src := range seed.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("seed source missing name")
		}
		var opts []Option
		if len(src.ReferenceTypes) > 0 {
			opts = append(opts, WithReferenceTypes(src.ReferenceTypes...))
		}
		provider := NewProvider(src.Name, opts...)
		for _, entry := range src.Items {
			provider.Add(entry.ID, entry.toItem(src.Name))
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

func (s SeedItem) toItem(sourceName string) source.ContextItem {
	item := source.ContextItem{
		Source:    sourceName,
		Type:      s.Type,
		Title:     s.Title,
		Content:   s.Content,
		URL:       s.URL,
		Timestamp: s.Timestamp,
		Author:    s.Author,
	}
	meta := make(map[string]interface{})
	if s.Type == source.TypeTicket && s.ID != "" {
		meta[source.MetaTicketID] = s.ID
	}
	if len(s.Comments) > 0 {
		comments := make([]source.ContextItem, 0, len(s.Comments))
		for _, c := range s.Comments {
			comments = append(comments, c.toItem(sourceName))
		}
		meta[source.MetaComments] = comments
	}
	if len(meta) > 0 {
		item.Metadata = meta
	}
	return item
}
