// Package trail reconstructs the edge sequence connecting the hops of a
// user's path, for highlighting.
//
// The resolver runs breadth-first search over the edges currently
// materialized in the view — it makes no claim about shortest paths in the
// full backing dataset. For every consecutive pair in the path list it finds
// the minimal-hop edge walk between them; a disconnected pair contributes an
// empty segment, never an error. The union of all segment edge ids is the
// highlighted trail. Resolution is a pure rendering hint: it never mutates
// the view or the path list.
package trail

import "github.com/orneryd/bifrost/pkg/graph"

// Segment is the resolved edge walk between one consecutive pair of hops.
type Segment struct {
	From graph.EntityID
	To   graph.EntityID
	// EdgeIDs is the BFS-minimal walk from From to To over visible edges,
	// empty when the pair is disconnected in the current view.
	EdgeIDs []graph.EdgeID
}

// Trail is the resolved highlight set for a whole path list.
type Trail struct {
	Segments []Segment
	// EdgeSet is the union of all segment edge ids, for O(1) membership
	// checks while rendering.
	EdgeSet map[graph.EdgeID]struct{}
}

// Highlighted reports whether an edge belongs to the trail.
func (t *Trail) Highlighted(id graph.EdgeID) bool {
	if t == nil {
		return false
	}
	_, ok := t.EdgeSet[id]
	return ok
}

// Resolve computes the trail for the given hops over the view's current
// edges. The adjacency index is the view's own (built in lockstep with its
// edges), so a resolution never mixes generations.
func Resolve(view *graph.View, hops []graph.EntityID) *Trail {
	t := &Trail{EdgeSet: make(map[graph.EdgeID]struct{})}
	if view == nil || len(hops) < 2 {
		return t
	}

	for i := 0; i+1 < len(hops); i++ {
		seg := Segment{From: hops[i], To: hops[i+1]}
		seg.EdgeIDs = bfs(view, hops[i], hops[i+1])
		for _, id := range seg.EdgeIDs {
			t.EdgeSet[id] = struct{}{}
		}
		t.Segments = append(t.Segments, seg)
	}
	return t
}

// hop records how BFS first reached an entity: from which predecessor and
// over which edge.
type hop struct {
	prev graph.EntityID
	via  graph.EdgeID
}

// bfs returns the minimal edge walk from src to dst, or nil when dst is
// unreachable (or either endpoint is absent from the view).
func bfs(view *graph.View, src, dst graph.EntityID) []graph.EdgeID {
	if !view.Has(src) || !view.Has(dst) {
		return nil
	}
	if src == dst {
		return []graph.EdgeID{}
	}

	came := map[graph.EntityID]hop{src: {}}
	queue := []graph.EntityID{src}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, nb := range view.Neighbors(current) {
			if _, seen := came[nb.EntityID]; seen {
				continue
			}
			came[nb.EntityID] = hop{prev: current, via: nb.EdgeID}
			if nb.EntityID == dst {
				return reconstruct(came, src, dst)
			}
			queue = append(queue, nb.EntityID)
		}
	}
	return nil
}

// reconstruct walks the predecessor map back from dst to src and reverses
// the collected edge ids.
func reconstruct(came map[graph.EntityID]hop, src, dst graph.EntityID) []graph.EdgeID {
	var rev []graph.EdgeID
	for at := dst; at != src; {
		h := came[at]
		rev = append(rev, h.via)
		at = h.prev
	}
	out := make([]graph.EdgeID, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}
