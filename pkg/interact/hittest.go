package interact

import (
	"math"

	"github.com/orneryd/bifrost/pkg/graph"
)

// NodeGeom is the hit-testable geometry of one node, in world space.
type NodeGeom struct {
	ID     graph.EntityID
	Pos    graph.Point
	Radius float64
}

// EdgeGeom is the hit-testable geometry of one edge, in world space.
type EdgeGeom struct {
	ID   graph.EdgeID
	From graph.Point
	To   graph.Point
}

// Scene exposes the current frame's geometry to the hit tester. The session
// adapts the layout snapshot into this shape each frame; the controller
// never reaches into the layout engine directly.
type Scene interface {
	NodeGeometry() []NodeGeom
	EdgeGeometry() []EdgeGeom
}

// Hit identifies what a pointer position landed on. At most one of NodeID /
// EdgeID is set; neither set means empty canvas.
type Hit struct {
	NodeID graph.EntityID
	EdgeID graph.EdgeID
}

// IsNode reports whether the hit landed on a node.
func (h Hit) IsNode() bool { return h.NodeID != "" }

// IsEdge reports whether the hit landed on an edge.
func (h Hit) IsEdge() bool { return h.EdgeID != "" }

// IsEmpty reports whether the hit landed on empty canvas.
func (h Hit) IsEmpty() bool { return h.NodeID == "" && h.EdgeID == "" }

// hitTest resolves a screen position against the scene. Nodes win over
// edges; among overlapping nodes the nearest center wins. Edge hits use a
// screen-space tolerance band around the segment, since a line has zero
// width.
func hitTest(scene Scene, cam *Camera, screen graph.Point, edgeTolerancePx float64) Hit {
	world := cam.ScreenToWorld(screen)

	bestDist := math.MaxFloat64
	var bestNode graph.EntityID
	for _, n := range scene.NodeGeometry() {
		d := math.Hypot(world.X-n.Pos.X, world.Y-n.Pos.Y)
		if d <= n.Radius && d < bestDist {
			bestDist = d
			bestNode = n.ID
		}
	}
	if bestNode != "" {
		return Hit{NodeID: bestNode}
	}

	// Tolerance is specified in screen pixels; convert to world units.
	tol := edgeTolerancePx / cam.Zoom
	bestDist = math.MaxFloat64
	var bestEdge graph.EdgeID
	for _, e := range scene.EdgeGeometry() {
		d := pointToSegment(world, e.From, e.To)
		if d <= tol && d < bestDist {
			bestDist = d
			bestEdge = e.ID
		}
	}
	if bestEdge != "" {
		return Hit{EdgeID: bestEdge}
	}
	return Hit{}
}

// pointToSegment returns the distance from p to segment ab.
func pointToSegment(p, a, b graph.Point) float64 {
	abx := b.X - a.X
	aby := b.Y - a.Y
	apx := p.X - a.X
	apy := p.Y - a.Y

	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return math.Hypot(apx, apy)
	}
	t := (apx*abx + apy*aby) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx := a.X + t*abx
	cy := a.Y + t*aby
	return math.Hypot(p.X-cx, p.Y-cy)
}
