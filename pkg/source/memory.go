package source

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/orneryd/bifrost/pkg/graph"
)

// MemorySource is a thread-safe in-memory Graph Query Service.
//
// Use Cases:
//   - Unit tests (no disk I/O, fast cleanup)
//   - The bundled demo dataset
//   - Small datasets that fit entirely in RAM
//
// All public methods are safe for concurrent use; lookups hold the read
// lock, Add* the write lock. Returned entities/edges are the stored
// pointers — the exploration core treats them as immutable.
type MemorySource struct {
	mu       sync.RWMutex
	entities map[graph.EntityID]*graph.Entity
	edges    map[graph.EdgeID]*graph.Edge

	// adjacency: entity id -> incident edge ids, in insertion order
	adjacency map[graph.EntityID][]graph.EdgeID

	closed bool
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		entities:  make(map[graph.EntityID]*graph.Entity),
		edges:     make(map[graph.EdgeID]*graph.Edge),
		adjacency: make(map[graph.EntityID][]graph.EdgeID),
	}
}

// AddEntity stores an entity, overwriting any previous one with the same id.
func (s *MemorySource) AddEntity(ent *graph.Entity) {
	if ent == nil || ent.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[ent.ID] = ent
}

// AddEdge stores an edge and indexes it on both endpoints. Edges whose
// endpoints are unknown are stored anyway — the dataset may be loaded in
// any order — but Query/Expand only ever return edges with both endpoints
// present.
func (s *MemorySource) AddEdge(e *graph.Edge) {
	if e == nil || e.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edges[e.ID]; exists {
		return
	}
	s.edges[e.ID] = e
	s.adjacency[e.SourceID] = append(s.adjacency[e.SourceID], e.ID)
	if e.SourceID != e.TargetID {
		s.adjacency[e.TargetID] = append(s.adjacency[e.TargetID], e.ID)
	}
}

// EntityCount returns the number of stored entities.
func (s *MemorySource) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// EdgeCount returns the number of stored edges.
func (s *MemorySource) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Query finds the best name match for text and returns it with its 1-hop
// neighborhood. Matching is case-insensitive: exact display-name or id
// match wins, then prefix, then substring; ties break on shorter name then
// id so results are deterministic.
func (s *MemorySource) Query(ctx context.Context, text string) (*QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSourceClosed
	}

	center := s.bestMatch(strings.TrimSpace(text))
	if center == nil {
		return nil, ErrNoMatch
	}

	entities, edges := s.neighborhood(center.ID)
	return &QueryResult{CenterID: center.ID, Entities: entities, Edges: edges}, nil
}

// Expand returns the 1-hop neighborhood of id.
func (s *MemorySource) Expand(ctx context.Context, id graph.EntityID) (*ExpandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	if _, ok := s.entities[id]; !ok {
		return nil, ErrNotFound
	}

	entities, edges := s.neighborhood(id)
	return &ExpandResult{Entities: entities, Edges: edges}, nil
}

// Close marks the source closed; subsequent calls fail.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// neighborhood collects id, its neighbors, and the edges between them whose
// endpoints both exist. Caller holds at least the read lock.
func (s *MemorySource) neighborhood(id graph.EntityID) ([]*graph.Entity, []*graph.Edge) {
	entities := []*graph.Entity{s.entities[id]}
	seen := map[graph.EntityID]struct{}{id: {}}
	var edges []*graph.Edge

	for _, edgeID := range s.adjacency[id] {
		e := s.edges[edgeID]
		other, _ := e.Other(id)
		ent, ok := s.entities[other]
		if !ok {
			continue // skip edges with a missing endpoint
		}
		edges = append(edges, e)
		if _, dup := seen[other]; !dup {
			seen[other] = struct{}{}
			entities = append(entities, ent)
		}
	}
	return entities, edges
}

// bestMatch resolves text against ids and display names. Caller holds at
// least the read lock.
func (s *MemorySource) bestMatch(text string) *graph.Entity {
	if text == "" {
		return nil
	}
	needle := strings.ToLower(text)

	type match struct {
		ent  *graph.Entity
		rank int // 0 exact, 1 prefix, 2 substring
	}
	var matches []match
	for _, ent := range s.entities {
		name := strings.ToLower(ent.DisplayName)
		id := strings.ToLower(string(ent.ID))
		switch {
		case name == needle || id == needle:
			matches = append(matches, match{ent, 0})
		case strings.HasPrefix(name, needle):
			matches = append(matches, match{ent, 1})
		case strings.Contains(name, needle):
			matches = append(matches, match{ent, 2})
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		if li, lj := len(matches[i].ent.DisplayName), len(matches[j].ent.DisplayName); li != lj {
			return li < lj
		}
		return matches[i].ent.ID < matches[j].ent.ID
	})
	return matches[0].ent
}
