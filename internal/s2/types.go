// Package s2 provides a rate-limited client for the Semantic Scholar
// Academic Graph API.
package s2

// Paper represents a paper record from the Semantic Scholar API.
type Paper struct {
	PaperID     string      `json:"paperId"`
	ExternalIDs ExternalIDs `json:"externalIds,omitempty"`
	Title       string      `json:"title"`
	Abstract    string      `json:"abstract,omitempty"`
	Authors     []Author    `json:"authors,omitempty"`
	Year        int         `json:"year,omitempty"`
	Venue       string      `json:"venue,omitempty"`
	URL         string      `json:"url,omitempty"`
	Citations   *int        `json:"citationCount,omitempty"`
	References  int         `json:"referenceCount,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	DOI      string `json:"DOI,omitempty"`
	ArXiv    string `json:"ArXiv,omitempty"`
	CorpusID int    `json:"CorpusId,omitempty"`
}

// Author represents an author from the Semantic Scholar API.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// AuthorNames flattens an author list to display names.
func AuthorNames(authors []Author) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// SearchResponse is the response from the paper search endpoint.
type SearchResponse struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Next   int     `json:"next,omitempty"`
	Data   []Paper `json:"data"`
}

// CitationEntry is one entry in the citations listing for a paper.
type CitationEntry struct {
	CitingPaper Paper `json:"citingPaper"`
}

// CitationsResponse is the response from the citations endpoint.
type CitationsResponse struct {
	Offset int             `json:"offset"`
	Next   int             `json:"next,omitempty"`
	Data   []CitationEntry `json:"data"`
}
