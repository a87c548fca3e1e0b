package citation

// Merge combines two partial records for the same logical paper found via
// different source papers. Identity never changes: the receiver's key wins.
// The longer author list wins; the first non-nil citation count wins; empty
// fields are filled from the other record.
func Merge(a, b Work) Work {
	merged := a

	if len(b.Authors) > len(merged.Authors) {
		merged.Authors = b.Authors
	}
	if merged.CitationCount == nil {
		merged.CitationCount = b.CitationCount
	}
	if merged.ID == "" {
		merged.ID = b.ID
	}
	if merged.Title == "" {
		merged.Title = b.Title
	}
	if merged.Year == 0 {
		merged.Year = b.Year
	}
	if merged.Abstract == "" {
		merged.Abstract = b.Abstract
	}
	if merged.URL == "" {
		merged.URL = b.URL
	}
	if merged.Relationship == "" {
		merged.Relationship = b.Relationship
	}
	if merged.Context == "" {
		merged.Context = b.Context
	}

	return merged
}

// MergeAll deduplicates works arriving from multiple source papers, keyed
// by identifier-or-title, preserving first-seen order.
func MergeAll(works []Work) []Work {
	index := make(map[string]int, len(works))
	var out []Work

	for _, w := range works {
		key := w.Key()
		if key == "" {
			continue
		}
		if i, seen := index[key]; seen {
			out[i] = Merge(out[i], w)
			continue
		}
		index[key] = len(out)
		out = append(out, w)
	}

	return out
}
