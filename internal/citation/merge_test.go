package citation

import "testing"

func intPtr(n int) *int { return &n }

func TestMerge_LongerAuthorListWins(t *testing.T) {
	a := Work{
		ID:      "p1",
		Title:   "Attention Is All You Need",
		Authors: []string{"Vaswani", "Shazeer", "Parmar"},
	}
	b := Work{
		Title:         "Attention Is All You Need",
		Authors:       []string{"Vaswani", "Shazeer"},
		CitationCount: intPtr(90000),
	}

	merged := Merge(a, b)
	if len(merged.Authors) != 3 {
		t.Errorf("got %d authors, want 3", len(merged.Authors))
	}
	if merged.CitationCount == nil || *merged.CitationCount != 90000 {
		t.Errorf("CitationCount = %v, want 90000", merged.CitationCount)
	}
	if merged.ID != "p1" {
		t.Errorf("merge changed identity: ID = %q", merged.ID)
	}
}

func TestMerge_FirstCitationCountWins(t *testing.T) {
	a := Work{ID: "p1", Title: "t", CitationCount: intPtr(10)}
	b := Work{ID: "p1", Title: "t", CitationCount: intPtr(999)}

	merged := Merge(a, b)
	if *merged.CitationCount != 10 {
		t.Errorf("CitationCount = %d, want 10 (first non-nil wins)", *merged.CitationCount)
	}
}

func TestMerge_FillsGaps(t *testing.T) {
	a := Work{ID: "p1", Title: "A Paper"}
	b := Work{Title: "A Paper", Year: 2017, Abstract: "abs", URL: "https://arxiv.org/abs/1706.03762"}

	merged := Merge(a, b)
	if merged.Year != 2017 || merged.Abstract != "abs" || merged.URL == "" {
		t.Errorf("gaps not filled: %+v", merged)
	}
}

func TestMergeAll_DeduplicatesByTitle(t *testing.T) {
	// Same paper cited by two different source papers: one brings more
	// authors, the other brings the citation count.
	works := []Work{
		{Title: "Attention Is All You Need", Authors: []string{"A", "B", "C"}},
		{Title: "Some Other Paper", Authors: []string{"X"}},
		{Title: "  attention is all you need ", Authors: []string{"A", "B"}, CitationCount: intPtr(90000)},
	}

	merged := MergeAll(works)
	if len(merged) != 2 {
		t.Fatalf("got %d works, want 2", len(merged))
	}
	got := merged[0]
	if len(got.Authors) != 3 {
		t.Errorf("got %d authors, want 3 (longer list wins)", len(got.Authors))
	}
	if got.CitationCount == nil || *got.CitationCount != 90000 {
		t.Errorf("CitationCount = %v, want 90000", got.CitationCount)
	}
}

func TestMergeAll_IDTakesPrecedenceOverTitle(t *testing.T) {
	works := []Work{
		{ID: "2305.10403", Title: "PaLM 2 Technical Report"},
		{ID: "2305.10403", Title: "PaLM 2 Technical Report", Year: 2023},
	}
	merged := MergeAll(works)
	if len(merged) != 1 {
		t.Fatalf("got %d works, want 1", len(merged))
	}
	if merged[0].Year != 2023 {
		t.Errorf("Year = %d, want 2023", merged[0].Year)
	}
}

func TestMergeAll_SkipsEmptyKeys(t *testing.T) {
	merged := MergeAll([]Work{{}, {Title: "real"}})
	if len(merged) != 1 {
		t.Fatalf("got %d works, want 1", len(merged))
	}
}

func TestStrength(t *testing.T) {
	tests := []struct {
		name     string
		count    *int
		inDegree int
		min, max float64
	}{
		{"no signal gets floor", nil, 0, scoreFloor, scoreFloor},
		{"zero citations gets floor", intPtr(0), 0, scoreFloor, scoreFloor},
		{"modest count lands mid-range", intPtr(100), 0, 0.3, 0.8},
		{"huge count saturates near one", intPtr(1000000), 0, 0.99, 1.0},
		{"graph signal alone clears floor", nil, 2, 0.15, 0.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Strength(tt.count, tt.inDegree)
			if got < tt.min || got > tt.max {
				t.Errorf("Strength = %v, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestStrength_Monotonic(t *testing.T) {
	prev := 0.0
	for _, n := range []int{1, 10, 100, 1000, 10000} {
		s := Strength(&n, 0)
		if s <= prev {
			t.Errorf("Strength(%d) = %v not greater than previous %v", n, s, prev)
		}
		prev = s
	}
}
