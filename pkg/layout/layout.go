// Package layout runs the incremental force-directed simulation that assigns
// 2D positions to every visible entity.
//
// The simulation is the classic n-body/spring kind: four forces (link spring,
// pairwise charge repulsion, centering, collision) are evaluated once per
// tick, each scaled by a single decaying temperature ("alpha"). As alpha
// decays geometrically toward zero the layout quiesces on its own; ticking
// past that point is cheap and harmless.
//
// The engine is incremental by contract. Merging new nodes does not restart
// the layout: nodes with a cached position keep it, brand-new nodes are
// seeded near the mean of their already-positioned neighbors (plus a little
// jitter so coincident spawns cannot collapse onto one point), and alpha is
// reheated only to a low value so the settled portion of the picture barely
// moves.
//
// Example Usage:
//
//	eng := layout.New(layout.DefaultConfig(), cache, nil)
//	eng.SetGraph(view, layout.ReheatFull)
//
//	for range frames {
//		eng.Tick()
//		eng.AdvanceAnimations()
//		for _, n := range eng.Snapshot() {
//			draw(n.ID, n.Pos, n.Progress)
//		}
//	}
//
// Positions are owned by the engine alone. Renderers and controllers read
// them through Snapshot/Position copies, never through shared references.
package layout

import (
	"math"
	"math/rand"

	"github.com/orneryd/bifrost/pkg/graph"
)

// Reheat selects how much temperature a SetGraph call restores.
type Reheat int

const (
	// ReheatNone leaves alpha untouched (pure re-sync, no new motion).
	ReheatNone Reheat = iota
	// ReheatLow restores the configured incremental alpha. Used on
	// expansion merges so settled nodes barely move.
	ReheatLow
	// ReheatFull restores alpha to 1.0. Used on a fresh query.
	ReheatFull
)

// Config holds the simulation tuning constants. These are product-tuning
// values, not structural invariants; override freely.
type Config struct {
	// LinkDistance is the spring rest length between connected nodes.
	LinkDistance float64 `yaml:"link_distance"`
	// LinkStrength scales the spring force.
	LinkStrength float64 `yaml:"link_strength"`
	// ChargeStrength scales pairwise repulsion; negative repels.
	ChargeStrength float64 `yaml:"charge_strength"`
	// CenterStrength pulls the centroid toward the origin per tick.
	CenterStrength float64 `yaml:"center_strength"`
	// CollideStrength scales the overlap-resolution push.
	CollideStrength float64 `yaml:"collide_strength"`
	// CollidePadding is extra clearance added to each node's radius.
	CollidePadding float64 `yaml:"collide_padding"`
	// NodeRadius is the base visual radius multiplied by Entity.Size.
	NodeRadius float64 `yaml:"node_radius"`

	// AlphaDecay is the per-tick geometric decay factor (alpha *= AlphaDecay).
	AlphaDecay float64 `yaml:"alpha_decay"`
	// AlphaMin is the temperature below which a tick moves nothing.
	AlphaMin float64 `yaml:"alpha_min"`
	// ReheatAlpha is the low temperature restored on incremental merges.
	ReheatAlpha float64 `yaml:"reheat_alpha"`
	// VelocityDecay is per-tick velocity damping in (0,1].
	VelocityDecay float64 `yaml:"velocity_decay"`

	// SeedJitter is the max random offset applied to seeded positions.
	SeedJitter float64 `yaml:"seed_jitter"`
	// SeedRadius is the spawn ring radius for nodes with no placed neighbor.
	SeedRadius float64 `yaml:"seed_radius"`

	// FadeStep is the per-frame increment of a new node's fade-in progress.
	// 1/FadeStep frames take a node from invisible to fully shown.
	FadeStep float64 `yaml:"fade_step"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		LinkDistance:    120,
		LinkStrength:    0.08,
		ChargeStrength:  -360,
		CenterStrength:  0.04,
		CollideStrength: 0.7,
		CollidePadding:  4,
		NodeRadius:      14,
		AlphaDecay:      0.98,
		AlphaMin:        0.001,
		ReheatAlpha:     0.3,
		VelocityDecay:   0.6,
		SeedJitter:      18,
		SeedRadius:      160,
		FadeStep:        1.0 / 24.0,
	}
}

// epsilon substitutes for a zero separation so coincident nodes repel
// instead of producing NaN.
const epsilon = 1e-6

type simNode struct {
	id     graph.EntityID
	pos    graph.Point
	vel    graph.Point
	radius float64
	// progress is the raw (un-eased) fade-in progress in [0,1].
	progress float64
}

// NodeState is a read-only copy of one node's layout state.
type NodeState struct {
	ID  graph.EntityID
	Pos graph.Point
	// Radius is the node's collision/hit radius in world units.
	Radius float64
	// Progress is the eased fade-in progress in [0,1], driving visual
	// scale/opacity only — never the simulated position.
	Progress float64
}

// Engine owns the positions of all visible nodes and refines them tick by
// tick. Not safe for concurrent use; the session drives it from one
// goroutine (spec'd single logical thread of control).
type Engine struct {
	cfg   Config
	cache *graph.PositionCache
	rng   *rand.Rand

	view  *graph.View
	nodes map[graph.EntityID]*simNode
	order []graph.EntityID

	alpha float64
}

// New creates an Engine writing through to cache. rng may be nil, in which
// case a time-seeded source is used; tests inject a fixed seed.
func New(cfg Config, cache *graph.PositionCache, rng *rand.Rand) *Engine {
	if cache == nil {
		cache = graph.NewPositionCache()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Engine{
		cfg:   cfg,
		cache: cache,
		rng:   rng,
		nodes: make(map[graph.EntityID]*simNode),
	}
}

// Alpha returns the current temperature.
func (e *Engine) Alpha() float64 { return e.alpha }

// Settled reports whether the simulation has cooled below AlphaMin.
func (e *Engine) Settled() bool { return e.alpha < e.cfg.AlphaMin }

// SetGraph synchronizes the engine with the view after a replace or merge.
//
// Nodes present before keep their positions and progress. Nodes new to the
// engine are seeded from the position cache if it knows them (continuity),
// otherwise near the mean of their already-placed neighbors, otherwise on a
// ring around the current centroid. Nodes no longer in the view are dropped
// from the simulation (their cached positions survive).
func (e *Engine) SetGraph(view *graph.View, reheat Reheat) {
	e.view = view

	fresh := make(map[graph.EntityID]*simNode, view.EntityCount())
	freshOrder := make([]graph.EntityID, 0, view.EntityCount())
	var newcomers []*simNode

	for _, ent := range view.Entities() {
		if n, ok := e.nodes[ent.ID]; ok {
			n.radius = e.cfg.NodeRadius * ent.Size()
			fresh[ent.ID] = n
			freshOrder = append(freshOrder, ent.ID)
			continue
		}
		n := &simNode{id: ent.ID, radius: e.cfg.NodeRadius * ent.Size()}
		if p, ok := e.cache.Get(ent.ID); ok {
			// Reappearing node: keep its last coordinates, no fade-in replay
			// unless it was never fully shown.
			n.pos = p
			n.progress = 1
		} else {
			newcomers = append(newcomers, n)
		}
		fresh[ent.ID] = n
		freshOrder = append(freshOrder, ent.ID)
	}
	e.nodes = fresh
	e.order = freshOrder

	// Seed genuinely new nodes after survivors are in place, so neighbor
	// averaging can see them.
	for _, n := range newcomers {
		n.pos = e.seedPosition(n.id)
		e.cache.Put(n.id, n.pos)
	}

	switch reheat {
	case ReheatFull:
		e.alpha = 1.0
	case ReheatLow:
		if e.alpha < e.cfg.ReheatAlpha {
			e.alpha = e.cfg.ReheatAlpha
		}
	}
}

// seedPosition picks a starting point for a node with no cached position:
// the mean of its already-positioned neighbors plus jitter, or a jittered
// ring position around the centroid when no neighbor is placed yet.
func (e *Engine) seedPosition(id graph.EntityID) graph.Point {
	var sum graph.Point
	placed := 0
	for _, nb := range e.view.Neighbors(id) {
		if other, ok := e.nodes[nb.EntityID]; ok && other.progress > 0 {
			sum.X += other.pos.X
			sum.Y += other.pos.Y
			placed++
		}
	}
	jx := (e.rng.Float64()*2 - 1) * e.cfg.SeedJitter
	jy := (e.rng.Float64()*2 - 1) * e.cfg.SeedJitter
	if placed > 0 {
		return graph.Point{X: sum.X/float64(placed) + jx, Y: sum.Y/float64(placed) + jy}
	}
	// No placed neighbor (first query, or isolated node): spawn on a ring
	// around the current centroid rather than stacking at the origin.
	cx, cy := e.centroid()
	angle := e.rng.Float64() * 2 * math.Pi
	return graph.Point{
		X: cx + math.Cos(angle)*e.cfg.SeedRadius + jx,
		Y: cy + math.Sin(angle)*e.cfg.SeedRadius + jy,
	}
}

func (e *Engine) centroid() (float64, float64) {
	if len(e.order) == 0 {
		return 0, 0
	}
	var cx, cy float64
	n := 0
	for _, id := range e.order {
		node := e.nodes[id]
		if node.progress == 0 && node.pos.X == 0 && node.pos.Y == 0 {
			continue // unseeded
		}
		cx += node.pos.X
		cy += node.pos.Y
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return cx / float64(n), cy / float64(n)
}

// Tick advances the simulation one step: apply the four forces scaled by
// alpha, integrate velocities, decay alpha geometrically, and write the new
// positions through to the cache. Below AlphaMin a tick is a no-op.
func (e *Engine) Tick() {
	if e.view == nil || e.alpha < e.cfg.AlphaMin || len(e.order) == 0 {
		return
	}

	e.applyLinkForce()
	e.applyChargeForce()
	e.applyCenterForce()
	e.applyCollideForce()

	for _, id := range e.order {
		n := e.nodes[id]
		n.vel.X *= e.cfg.VelocityDecay
		n.vel.Y *= e.cfg.VelocityDecay

		next := graph.Point{X: n.pos.X + n.vel.X, Y: n.pos.Y + n.vel.Y}
		if !finite(next.X) || !finite(next.Y) {
			// Numerical degeneracy: keep the last finite position and kill
			// the velocity rather than rendering NaN.
			n.vel = graph.Point{}
		} else {
			n.pos = next
		}
		e.cache.Put(n.id, n.pos)
	}

	e.alpha *= e.cfg.AlphaDecay
}

// applyLinkForce springs each edge's endpoints toward LinkDistance apart.
func (e *Engine) applyLinkForce() {
	for _, edge := range e.view.Edges() {
		a, okA := e.nodes[edge.SourceID]
		b, okB := e.nodes[edge.TargetID]
		if !okA || !okB || a == b {
			continue
		}
		dx := b.pos.X - a.pos.X
		dy := b.pos.Y - a.pos.Y
		dist := math.Hypot(dx, dy)
		if dist < epsilon {
			dist = epsilon
			dx = epsilon
		}
		delta := (dist - e.cfg.LinkDistance) / dist * e.cfg.LinkStrength * e.alpha
		fx := dx * delta
		fy := dy * delta
		a.vel.X += fx
		a.vel.Y += fy
		b.vel.X -= fx
		b.vel.Y -= fy
	}
}

// applyChargeForce repels every node pair with an inverse-distance force.
// O(n²) over the visible set, which stays small enough (hundreds) that a
// Barnes-Hut approximation isn't worth its bookkeeping here.
func (e *Engine) applyChargeForce() {
	for i := 0; i < len(e.order); i++ {
		a := e.nodes[e.order[i]]
		for j := i + 1; j < len(e.order); j++ {
			b := e.nodes[e.order[j]]
			dx := b.pos.X - a.pos.X
			dy := b.pos.Y - a.pos.Y
			d2 := dx*dx + dy*dy
			if d2 < epsilon {
				// Coincident nodes: nudge apart deterministically instead
				// of dividing by zero.
				dx = epsilon
				d2 = epsilon
			}
			f := e.cfg.ChargeStrength * e.alpha / d2
			fx := dx * f
			fy := dy * f
			a.vel.X += fx
			a.vel.Y += fy
			b.vel.X -= fx
			b.vel.Y -= fy
		}
	}
}

// applyCenterForce pulls the centroid of all nodes toward the origin.
func (e *Engine) applyCenterForce() {
	cx, cy := e.centroid()
	sx := cx * e.cfg.CenterStrength * e.alpha
	sy := cy * e.cfg.CenterStrength * e.alpha
	for _, id := range e.order {
		n := e.nodes[id]
		n.pos.X -= sx
		n.pos.Y -= sy
	}
}

// applyCollideForce separates overlapping nodes by their combined radii.
func (e *Engine) applyCollideForce() {
	for i := 0; i < len(e.order); i++ {
		a := e.nodes[e.order[i]]
		for j := i + 1; j < len(e.order); j++ {
			b := e.nodes[e.order[j]]
			minDist := a.radius + b.radius + e.cfg.CollidePadding
			dx := b.pos.X - a.pos.X
			dy := b.pos.Y - a.pos.Y
			dist := math.Hypot(dx, dy)
			if dist >= minDist {
				continue
			}
			if dist < epsilon {
				dist = epsilon
				dx = epsilon
			}
			push := (minDist - dist) / dist * e.cfg.CollideStrength * e.alpha
			fx := dx * push * 0.5
			fy := dy * push * 0.5
			a.vel.X -= fx
			a.vel.Y -= fy
			b.vel.X += fx
			b.vel.Y += fy
		}
	}
}

// AdvanceAnimations steps every node's fade-in progress by FadeStep. Runs on
// the frame cadence, independent of simulation ticks, and never touches
// simulated positions.
func (e *Engine) AdvanceAnimations() {
	for _, n := range e.nodes {
		if n.progress < 1 {
			n.progress += e.cfg.FadeStep
			if n.progress > 1 {
				n.progress = 1
			}
		}
	}
}

// easeOutQuad maps linear progress to a decelerating curve.
func easeOutQuad(t float64) float64 {
	return t * (2 - t)
}

// Position returns the current position of id and whether it is simulated.
func (e *Engine) Position(id graph.EntityID) (graph.Point, bool) {
	n, ok := e.nodes[id]
	if !ok {
		return graph.Point{}, false
	}
	return n.pos, true
}

// Progress returns the eased fade-in progress for id (1 if unknown, so a
// stale renderer draws at full opacity rather than invisibly).
func (e *Engine) Progress(id graph.EntityID) float64 {
	n, ok := e.nodes[id]
	if !ok {
		return 1
	}
	return easeOutQuad(n.progress)
}

// Snapshot returns a copy of every node's layout state in stable insertion
// order. The copies are the renderer's only view of positions.
func (e *Engine) Snapshot() []NodeState {
	out := make([]NodeState, 0, len(e.order))
	for _, id := range e.order {
		n := e.nodes[id]
		out = append(out, NodeState{
			ID:       n.id,
			Pos:      n.pos,
			Radius:   n.radius,
			Progress: easeOutQuad(n.progress),
		})
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
