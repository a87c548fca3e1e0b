// Package citation defines the core domain types for citation analysis:
// noisy extracted citation records, resolved works, and the merge and
// scoring rules applied across source papers.
package citation

import "strings"

// Citation is one noisy citation record extracted from a source paper.
// Immutable once received by the resolution engine.
type Citation struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    int      `json:"year,omitempty"`
	Context string   `json:"context,omitempty"` // surrounding free-text citation context
	URL     string   `json:"url,omitempty"`
}

// Work is a resolved, deduplicated paper record used to populate prior-work
// and derivative-work lists. The identifier is stable for the lifetime of
// one job's result set; merging fills gaps but never changes identity.
type Work struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Year          int      `json:"year,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	URL           string   `json:"url,omitempty"`
	CitationCount *int     `json:"citation_count,omitempty"`
	Relationship  string   `json:"relationship,omitempty"`
	Context       string   `json:"context,omitempty"`
	Strength      float64  `json:"strength"`
}

// Key returns the deduplication key for a work: its identifier when known,
// otherwise the normalized title.
func (w Work) Key() string {
	if w.ID != "" {
		return w.ID
	}
	return NormalizeTitle(w.Title)
}

// NormalizeTitle lowercases and collapses whitespace for case- and
// whitespace-insensitive title comparison.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
