// Package graph holds the in-memory model of the currently visible graph.
//
// The model is deliberately dumb: a set of entities, a set of edges whose
// endpoints are guaranteed to exist, and a handful of caches that give the
// rest of the engine continuity across queries and expansions. All behavior
// beyond merge/lookup lives in the packages that consume it (layout, rank,
// trail, explorer).
//
// Example Usage:
//
//	view := graph.NewView()
//
//	view.Replace([]*graph.Entity{
//		{ID: "BRCA1", DisplayName: "BRCA1", Category: graph.CategoryGene},
//		{ID: "MIM:114480", DisplayName: "Breast cancer", Category: graph.CategoryDisease},
//	}, []*graph.Edge{
//		{ID: "e1", SourceID: "BRCA1", TargetID: "MIM:114480", PredicateLabel: "associated_with"},
//	})
//
//	added := view.Merge(moreEntities, moreEdges) // expansion, union semantics
//	fmt.Printf("revealed %d new ids\n", len(added.EntityIDs)+len(added.EdgeIDs))
//
// Invariants:
//   - Entity IDs are unique within a View.
//   - Edges never dangle: an edge whose endpoint is absent is dropped (and
//     logged) at merge time, never stored.
//   - Replace discards entities/edges wholesale; the position cache survives
//     so reappearing nodes keep their last coordinates.
package graph

import "fmt"

// EntityID is a strongly-typed unique identifier for graph entities.
//
// Using a custom type prevents mixing entity and edge identifiers at API
// boundaries, the same way NodeID/EdgeID are kept apart in a graph store.
type EntityID string

// EdgeID is a strongly-typed unique identifier for graph edges.
type EdgeID string

// Category classifies an entity into one of a small fixed set of biomedical
// kinds. The ranker's diversity pass and the renderer's styling both key off
// it.
type Category string

const (
	CategoryGene    Category = "gene"
	CategoryDisease Category = "disease"
	CategoryDrug    Category = "drug"
	CategoryPathway Category = "pathway"
	CategoryProtein Category = "protein"
	// CategoryUnknown is used for entities whose source carried no category.
	CategoryUnknown Category = "unknown"
)

// Categories lists all known categories in display order.
func Categories() []Category {
	return []Category{
		CategoryGene, CategoryDisease, CategoryDrug,
		CategoryPathway, CategoryProtein,
	}
}

// ParseCategory maps a raw string onto a Category, falling back to
// CategoryUnknown rather than erroring so a sloppy dataset still loads.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryGene, CategoryDisease, CategoryDrug, CategoryPathway, CategoryProtein:
		return Category(s)
	default:
		return CategoryUnknown
	}
}

// Provenance records where an edge's assertion came from. It feeds the
// ranker's provenance signal: curated beats literature beats inferred.
type Provenance string

const (
	ProvenanceCurated    Provenance = "curated"
	ProvenanceLiterature Provenance = "literature"
	ProvenanceInferred   Provenance = "inferred"
)

// Entity is a graph vertex: a gene, disease, drug, pathway or protein.
//
// VisualSize scales the rendered radius (default 1). VisualColor, when set,
// overrides the category palette. Metadata is an open bag of scalar/array
// values carried through from the source; the core never interprets it.
type Entity struct {
	ID          EntityID       `json:"id"`
	DisplayName string         `json:"displayName"`
	Category    Category       `json:"category"`
	VisualSize  float64        `json:"visualSize,omitempty"`
	VisualColor string         `json:"visualColor,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Size returns the effective visual size, substituting the default for
// zero/negative values so arithmetic downstream never divides by zero.
func (e *Entity) Size() float64 {
	if e.VisualSize <= 0 {
		return 1
	}
	return e.VisualSize
}

// EvidenceItem is one piece of supporting evidence attached to an edge,
// typically a publication.
type EvidenceItem struct {
	CitationID string `json:"citationId,omitempty"`
	Title      string `json:"title,omitempty"`
	Year       int    `json:"year,omitempty"`
	Snippet    string `json:"snippet,omitempty"`
}

// Edge is a typed, scored relationship between two entities.
//
// ConfidenceScore is in [0,1] when present; HasConfidence distinguishes a
// genuine 0 from "absent". The aggregate counters (papers, trials, patents,
// co-occurrence) are non-negative and default to zero; together with the
// evidence list they drive the candidate ranker's composite score.
type Edge struct {
	ID             EdgeID   `json:"id"`
	SourceID       EntityID `json:"sourceId"`
	TargetID       EntityID `json:"targetId"`
	PredicateLabel string   `json:"predicateLabel"`

	ConfidenceScore float64    `json:"confidenceScore,omitempty"`
	HasConfidence   bool       `json:"hasConfidence,omitempty"`
	Provenance      Provenance `json:"provenance,omitempty"`

	EvidenceItems     []EvidenceItem `json:"evidenceItems,omitempty"`
	PaperCount        int            `json:"paperCount,omitempty"`
	TrialCount        int            `json:"trialCount,omitempty"`
	PatentCount       int            `json:"patentCount,omitempty"`
	CooccurrenceScore float64        `json:"cooccurrenceScore,omitempty"`
}

// Other returns the endpoint opposite to id, and whether id is an endpoint
// of this edge at all.
func (e *Edge) Other(id EntityID) (EntityID, bool) {
	switch id {
	case e.SourceID:
		return e.TargetID, true
	case e.TargetID:
		return e.SourceID, true
	default:
		return "", false
	}
}

// Point is a 2D position in world (layout) space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// Neighbor pairs an adjacent entity with the edge that reaches it. The trail
// resolver and layout seeding both walk adjacency in this shape.
type Neighbor struct {
	EntityID EntityID
	EdgeID   EdgeID
}
