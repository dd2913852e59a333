package explorer

import (
	"github.com/orneryd/bifrost/pkg/graph"
	"github.com/orneryd/bifrost/pkg/interact"
)

// NodeView is everything a renderer needs to paint one node this frame.
// Positions are world-space; the renderer projects through the camera.
type NodeView struct {
	ID          graph.EntityID
	DisplayName string
	Category    graph.Category
	Pos         graph.Point
	Radius      float64
	VisualColor string
	// Progress is the eased fade-in progress in [0,1], scaling the node's
	// visual size/opacity.
	Progress float64

	Selected bool
	Hovered  bool
	// OnTrail marks hops of the user's traced path.
	OnTrail bool
	// OverflowRemaining is how many buffered "load more" candidates this
	// node still holds (0 for most nodes).
	OverflowRemaining int
}

// EdgeView is everything a renderer needs to paint one edge this frame.
type EdgeView struct {
	ID             graph.EdgeID
	PredicateLabel string
	From           graph.Point
	To             graph.Point
	// Progress is the min of the endpoints' fade-in progress, so an edge
	// never outruns the node it attaches to.
	Progress float64

	Selected    bool
	Hovered     bool
	Highlighted bool // part of the resolved path trail
}

// Snapshot is the per-frame render state: positions, animation progress and
// visual flags for every visible node and edge. It is a value copy — the
// renderer can hold it across frames without observing later mutation.
type Snapshot struct {
	Nodes []NodeView
	Edges []EdgeView

	Camera   interact.Camera
	CenterID graph.EntityID
	Settled  bool
}

// snapshot assembles the frame snapshot from the view, the layout engine
// and the interaction state.
func (s *Session) snapshot() *Snapshot {
	hover := s.ctrl.Hover()

	snap := &Snapshot{
		Camera:   *s.camera,
		CenterID: s.centerID,
		Settled:  s.engine.Settled(),
	}

	snap.Nodes = make([]NodeView, 0, s.view.EntityCount())
	for _, state := range s.engine.Snapshot() {
		ent, err := s.view.Entity(state.ID)
		if err != nil {
			continue // engine lagging a merge by a tick; skip, don't fail the frame
		}
		snap.Nodes = append(snap.Nodes, NodeView{
			ID:                ent.ID,
			DisplayName:       ent.DisplayName,
			Category:          ent.Category,
			Pos:               state.Pos,
			Radius:            state.Radius,
			VisualColor:       ent.VisualColor,
			Progress:          state.Progress,
			Selected:          ent.ID == s.selectedNode,
			Hovered:           ent.ID == hover.NodeID,
			OnTrail:           s.path.Contains(ent.ID),
			OverflowRemaining: s.log.OverflowCount(ent.ID),
		})
	}

	snap.Edges = make([]EdgeView, 0, s.view.EdgeCount())
	for _, e := range s.view.Edges() {
		from, okF := s.engine.Position(e.SourceID)
		to, okT := s.engine.Position(e.TargetID)
		if !okF || !okT {
			continue
		}
		pf := s.engine.Progress(e.SourceID)
		if pt := s.engine.Progress(e.TargetID); pt < pf {
			pf = pt
		}
		snap.Edges = append(snap.Edges, EdgeView{
			ID:             e.ID,
			PredicateLabel: e.PredicateLabel,
			From:           from,
			To:             to,
			Progress:       pf,
			Selected:       e.ID == s.selectedEdge,
			Hovered:        e.ID == hover.EdgeID,
			Highlighted:    s.current.Highlighted(e.ID),
		})
	}

	return snap
}

// NodeGeometry implements interact.Scene over the live layout state.
func (s *Session) NodeGeometry() []interact.NodeGeom {
	states := s.engine.Snapshot()
	out := make([]interact.NodeGeom, 0, len(states))
	for _, st := range states {
		out = append(out, interact.NodeGeom{ID: st.ID, Pos: st.Pos, Radius: st.Radius})
	}
	return out
}

// EdgeGeometry implements interact.Scene over the live layout state.
func (s *Session) EdgeGeometry() []interact.EdgeGeom {
	edges := s.view.Edges()
	out := make([]interact.EdgeGeom, 0, len(edges))
	for _, e := range edges {
		from, okF := s.engine.Position(e.SourceID)
		to, okT := s.engine.Position(e.TargetID)
		if !okF || !okT {
			continue
		}
		out = append(out, interact.EdgeGeom{ID: e.ID, From: from, To: to})
	}
	return out
}
