package graph

import (
	"errors"
	"log"
	"sort"
)

// Common errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid id")
)

// MergeResult reports what a Merge actually introduced, in insertion order.
// Expansion records keep these for trail/undo bookkeeping.
type MergeResult struct {
	EntityIDs []EntityID
	EdgeIDs   []EdgeID
	// DroppedEdges counts edges rejected for referencing absent endpoints.
	DroppedEdges int
}

// View is the current visible graph: entities, endpoint-valid edges, and a
// derived adjacency index kept in lockstep with both.
//
// A View is replaced wholesale on a fresh query and merged (union) on an
// expansion. Replace and Merge each rebuild/extend entities, edges and
// adjacency together under one lock, so a reader never observes edges from
// one generation paired with adjacency from another.
//
// The position cache lives in PositionCache, not here: positions survive a
// Replace, the model does not.
type View struct {
	entities map[EntityID]*Entity
	edges    map[EdgeID]*Edge

	// adjacency: entity id -> neighbors via each incident edge (undirected).
	adjacency map[EntityID][]Neighbor

	// insertion order, for deterministic iteration in snapshots and tests
	entityOrder []EntityID
	edgeOrder   []EdgeID
}

// NewView returns an empty View.
func NewView() *View {
	return &View{
		entities:  make(map[EntityID]*Entity),
		edges:     make(map[EdgeID]*Edge),
		adjacency: make(map[EntityID][]Neighbor),
	}
}

// Replace discards the current model and installs nodes+edges as the new one.
// Edges referencing absent endpoints are dropped, not stored.
func (v *View) Replace(entities []*Entity, edges []*Edge) MergeResult {
	v.entities = make(map[EntityID]*Entity, len(entities))
	v.edges = make(map[EdgeID]*Edge, len(edges))
	v.adjacency = make(map[EntityID][]Neighbor, len(entities))
	v.entityOrder = v.entityOrder[:0]
	v.edgeOrder = v.edgeOrder[:0]
	return v.Merge(entities, edges)
}

// Merge unions entities and edges into the view. Already-present ids are
// left untouched (expansion never mutates what the user already sees).
// Returns the ids actually introduced.
func (v *View) Merge(entities []*Entity, edges []*Edge) MergeResult {
	var res MergeResult

	for _, ent := range entities {
		if ent == nil || ent.ID == "" {
			continue
		}
		if _, exists := v.entities[ent.ID]; exists {
			continue
		}
		v.entities[ent.ID] = ent
		v.entityOrder = append(v.entityOrder, ent.ID)
		res.EntityIDs = append(res.EntityIDs, ent.ID)
	}

	for _, edge := range edges {
		if edge == nil || edge.ID == "" {
			continue
		}
		if _, exists := v.edges[edge.ID]; exists {
			continue
		}
		// Endpoint invariant: never store a dangling edge.
		if _, ok := v.entities[edge.SourceID]; !ok {
			log.Printf("graph: dropping edge %s: source %s not in view", edge.ID, edge.SourceID)
			res.DroppedEdges++
			continue
		}
		if _, ok := v.entities[edge.TargetID]; !ok {
			log.Printf("graph: dropping edge %s: target %s not in view", edge.ID, edge.TargetID)
			res.DroppedEdges++
			continue
		}
		v.edges[edge.ID] = edge
		v.edgeOrder = append(v.edgeOrder, edge.ID)
		res.EdgeIDs = append(res.EdgeIDs, edge.ID)

		v.adjacency[edge.SourceID] = append(v.adjacency[edge.SourceID], Neighbor{EntityID: edge.TargetID, EdgeID: edge.ID})
		if edge.SourceID != edge.TargetID {
			v.adjacency[edge.TargetID] = append(v.adjacency[edge.TargetID], Neighbor{EntityID: edge.SourceID, EdgeID: edge.ID})
		}
	}

	return res
}

// Entity returns the entity with the given id, or ErrNotFound.
func (v *View) Entity(id EntityID) (*Entity, error) {
	ent, ok := v.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ent, nil
}

// Edge returns the edge with the given id, or ErrNotFound.
func (v *View) Edge(id EdgeID) (*Edge, error) {
	e, ok := v.edges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Has reports whether an entity id is currently visible.
func (v *View) Has(id EntityID) bool {
	_, ok := v.entities[id]
	return ok
}

// Neighbors returns the adjacency list for id (undirected). The returned
// slice is owned by the View; callers must not mutate it.
func (v *View) Neighbors(id EntityID) []Neighbor {
	return v.adjacency[id]
}

// Degree returns the number of incident edges for id.
func (v *View) Degree(id EntityID) int {
	return len(v.adjacency[id])
}

// Entities returns all visible entities in insertion order.
func (v *View) Entities() []*Entity {
	out := make([]*Entity, 0, len(v.entityOrder))
	for _, id := range v.entityOrder {
		out = append(out, v.entities[id])
	}
	return out
}

// Edges returns all visible edges in insertion order.
func (v *View) Edges() []*Edge {
	out := make([]*Edge, 0, len(v.edgeOrder))
	for _, id := range v.edgeOrder {
		out = append(out, v.edges[id])
	}
	return out
}

// EntityCount returns the number of visible entities.
func (v *View) EntityCount() int { return len(v.entities) }

// EdgeCount returns the number of visible edges.
func (v *View) EdgeCount() int { return len(v.edges) }

// VisibleIDs returns the set of visible entity ids. The ranker uses this to
// exclude already-revealed candidates.
func (v *View) VisibleIDs() map[EntityID]struct{} {
	ids := make(map[EntityID]struct{}, len(v.entities))
	for id := range v.entities {
		ids[id] = struct{}{}
	}
	return ids
}

// CategoriesPresent returns the distinct categories currently visible,
// sorted for determinism.
func (v *View) CategoriesPresent() []Category {
	seen := make(map[Category]struct{})
	for _, ent := range v.entities {
		seen[ent.Category] = struct{}{}
	}
	out := make([]Category, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
