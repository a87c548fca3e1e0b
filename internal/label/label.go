// Package label defines citation-relationship graph edges and a client for
// the external relationship-labeling service that produces them.
package label

import "errors"

// Edge is a directed, labeled relationship between two papers. The labeling
// service returns already-formed edges; this core validates and carries
// them but never derives labels itself.
type Edge struct {
	// Identity: (SourceID, TargetID, RelationshipType) tuple
	SourceID         string `json:"source_id"`
	TargetID         string `json:"target_id"`
	RelationshipType string `json:"relationship_type"`

	// Metadata
	Summary string `json:"summary,omitempty"`
}

// Validation errors.
var (
	ErrEmptySourceID         = errors.New("source_id is required")
	ErrEmptyTargetID         = errors.New("target_id is required")
	ErrEmptyRelationshipType = errors.New("relationship_type is required")
	ErrSelfEdge              = errors.New("source_id and target_id cannot be the same")
)

// Validate checks that an edge carries a complete identity tuple.
func (e *Edge) Validate() error {
	if e.SourceID == "" {
		return ErrEmptySourceID
	}
	if e.TargetID == "" {
		return ErrEmptyTargetID
	}
	if e.RelationshipType == "" {
		return ErrEmptyRelationshipType
	}
	if e.SourceID == e.TargetID {
		return ErrSelfEdge
	}
	return nil
}

// InDegree counts edges pointing at the node matching any of the given
// keys (identifier or normalized title).
func InDegree(edges []Edge, keys map[string]bool) int {
	n := 0
	for _, e := range edges {
		if keys[e.TargetID] {
			n++
		}
	}
	return n
}
