package label

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLabelPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/label" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]PaperRef
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req["source"].ID != "2305.10403" || req["target"].ID != "1706.03762" {
			t.Errorf("request pair = %+v", req)
		}

		json.NewEncoder(w).Encode(map[string][]Edge{
			"edges": {
				{SourceID: "2305.10403", TargetID: "1706.03762", RelationshipType: "extends", Summary: "builds on the transformer"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	edges, err := c.LabelPair(context.Background(),
		PaperRef{ID: "2305.10403", Title: "PaLM 2"},
		PaperRef{ID: "1706.03762", Title: "Attention"})
	if err != nil {
		t.Fatalf("LabelPair: %v", err)
	}
	if len(edges) != 1 || edges[0].RelationshipType != "extends" {
		t.Errorf("edges = %+v", edges)
	}
}

func TestLabelPair_FiltersInvalidEdges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]Edge{
			"edges": {
				{SourceID: "a", TargetID: "b", RelationshipType: "extends"},
				{SourceID: "a", TargetID: "", RelationshipType: "extends"},	// missing target
				{SourceID: "a", TargetID: "a", RelationshipType: "extends"},	// self edge
				{SourceID: "a", TargetID: "c", RelationshipType: ""},		// missing type
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	edges, err := c.LabelPair(context.Background(), PaperRef{ID: "a"}, PaperRef{ID: "b"})
	if err != nil {
		t.Fatalf("LabelPair: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("edges = %+v, want the single valid edge", edges)
	}
}

func TestLabelPair_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.LabelPair(context.Background(), PaperRef{ID: "a"}, PaperRef{ID: "b"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestEdgeValidate(t *testing.T) {
	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"valid", Edge{SourceID: "a", TargetID: "b", RelationshipType: "extends"}, nil},
		{"empty source", Edge{TargetID: "b", RelationshipType: "extends"}, ErrEmptySourceID},
		{"empty target", Edge{SourceID: "a", RelationshipType: "extends"}, ErrEmptyTargetID},
		{"empty type", Edge{SourceID: "a", TargetID: "b"}, ErrEmptyRelationshipType},
		{"self edge", Edge{SourceID: "a", TargetID: "a", RelationshipType: "extends"}, ErrSelfEdge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.edge.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInDegree(t *testing.T) {
	edges := []Edge{
		{SourceID: "a", TargetID: "b", RelationshipType: "extends"},
		{SourceID: "c", TargetID: "b", RelationshipType: "compares"},
		{SourceID: "a", TargetID: "c", RelationshipType: "extends"},
	}

	if got := InDegree(edges, map[string]bool{"b": true}); got != 2 {
		t.Errorf("InDegree(b) = %d, want 2", got)
	}
	if got := InDegree(edges, map[string]bool{"b": true, "c": true}); got != 3 {
		t.Errorf("InDegree(b,c) = %d, want 3", got)
	}
	if got := InDegree(edges, map[string]bool{"z": true}); got != 0 {
		t.Errorf("InDegree(z) = %d, want 0", got)
	}
}
