// Package explorer ties the exploration core together: one Session owns the
// graph view, the layout engine, the candidate ranker, the trail resolver
// and the gesture controller, and mediates between them and the external
// Graph Query Service.
//
// Threading model: the Session runs on a single logical thread of control —
// the host's render loop calls Frame() once per frame, and every mutation
// of the view, positions, expansion records and path list happens inside
// that call. The only concurrency is the I/O to the query service: fetches
// run in goroutines and deliver their results onto an internal channel that
// Frame() drains, so a slow response can never mutate state mid-tick.
//
// Stale responses are handled with a generation counter: every fresh query
// bumps the generation, every in-flight fetch carries the generation it was
// issued under, and arrivals from an older generation are discarded
// silently. Expands are additionally keyed per node id so a second expand
// of the same node while one is in flight coalesces instead of queuing.
//
// Example Usage:
//
//	session := explorer.New(src, explorer.Options{})
//	session.StartQuery("BRCA1")
//
//	for running {
//		frame := session.Frame()
//		render(frame)
//		// feed pointer events between frames:
//		session.Controller().PointerDown(x, y, interact.ButtonPrimary)
//	}
package explorer

import (
	"context"
	"log"
	"math/rand"

	"github.com/orneryd/bifrost/pkg/graph"
	"github.com/orneryd/bifrost/pkg/interact"
	"github.com/orneryd/bifrost/pkg/layout"
	"github.com/orneryd/bifrost/pkg/rank"
	"github.com/orneryd/bifrost/pkg/source"
	"github.com/orneryd/bifrost/pkg/trail"
)

// Events are the discrete notifications a Session surfaces to the host UI.
// All callbacks fire on the control thread, inside Frame or inside the
// pointer-event call that caused them. Nil callbacks are skipped.
type Events struct {
	OnSelect            func(graph.EntityID)
	OnExpand            func(graph.EntityID)
	OnAddToPath         func(graph.EntityID)
	OnEdgeSelect        func(graph.EdgeID)
	OnPan               func(dx, dy float64)
	OnZoom              func(scale float64)
	OnLoadMoreAvailable func(id graph.EntityID, remaining int)
	OnQueryError        func(err error)
}

// Options configures a Session. Zero values fall back to defaults, so
// explorer.New(src, explorer.Options{}) is a working session.
type Options struct {
	MaxReveal        int
	OverflowPageSize int
	Layout           layout.Config
	RankWeights      rank.Weights
	Gestures         interact.Config
	Events           Events
	// Clock drives the double-click window; nil means wall clock.
	Clock interact.Clock
	// Rand seeds layout jitter; nil means a time-seeded source.
	Rand *rand.Rand
}

// arrivalKind distinguishes fetch results on the internal channel.
type arrivalKind int

const (
	arrivalQuery arrivalKind = iota
	arrivalExpand
)

// arrival is one completed fetch, tagged with the generation it was issued
// under.
type arrival struct {
	kind   arrivalKind
	gen    uint64
	nodeID graph.EntityID
	query  *source.QueryResult
	expand *source.ExpandResult
	err    error
}

// Stats reports session counters, mirroring the engines' Stats accessors.
type Stats struct {
	Entities   int
	Edges      int
	Expansions int
	Generation uint64
	Alpha      float64
}

// Session is the exploration engine's root object. Not safe for concurrent
// use: all methods belong to the host's control thread.
type Session struct {
	src  source.Source
	opts Options

	view    *graph.View
	cache   *graph.PositionCache
	log     *graph.ExpansionLog
	path    *graph.PathList
	engine  *layout.Engine
	ranker  *rank.Ranker
	ctrl    *interact.Controller
	camera  *interact.Camera
	current *trail.Trail

	selectedNode graph.EntityID
	selectedEdge graph.EdgeID
	centerID     graph.EntityID

	// generation guards against stale query responses.
	generation uint64
	// fetchCtx spans one generation; cancel aborts every fetch issued
	// under it.
	fetchCtx context.Context
	cancel   context.CancelFunc
	// inflight coalesces concurrent expands per node.
	inflight map[graph.EntityID]struct{}

	arrivals chan arrival

	expansions int
	trailDirty bool
}

// New creates a Session over a query service.
func New(src source.Source, opts Options) *Session {
	if opts.MaxReveal <= 0 {
		opts.MaxReveal = 5
	}
	if opts.OverflowPageSize <= 0 {
		opts.OverflowPageSize = 20
	}
	if opts.Layout == (layout.Config{}) {
		opts.Layout = layout.DefaultConfig()
	}
	if opts.Gestures == (interact.Config{}) {
		opts.Gestures = interact.DefaultConfig()
	}

	s := &Session{
		src:      src,
		opts:     opts,
		view:     graph.NewView(),
		cache:    graph.NewPositionCache(),
		log:      graph.NewExpansionLog(),
		path:     graph.NewPathList(),
		ranker:   rank.New(opts.RankWeights),
		inflight: make(map[graph.EntityID]struct{}),
		arrivals: make(chan arrival, 16),
	}
	s.fetchCtx, s.cancel = context.WithCancel(context.Background())
	s.engine = layout.New(opts.Layout, s.cache, opts.Rand)
	s.camera = interact.NewCamera(opts.Gestures.MinZoom, opts.Gestures.MaxZoom)
	s.ctrl = interact.New(opts.Gestures, s, s.camera, opts.Clock, interact.Events{
		OnSelect:     s.selectNode,
		OnExpand:     s.expandNode,
		OnAddToPath:  s.addToPath,
		OnEdgeSelect: s.selectEdge,
		OnPan:        opts.Events.OnPan,
		OnZoom:       opts.Events.OnZoom,
	})
	return s
}

// Controller returns the gesture controller; the host feeds raw pointer and
// wheel events into it.
func (s *Session) Controller() *interact.Controller { return s.ctrl }

// Camera returns the session camera (read access for renderers).
func (s *Session) Camera() *interact.Camera { return s.camera }

// View returns the current graph model (read-only by convention).
func (s *Session) View() *graph.View { return s.view }

// Path returns the hops of the user's path, in order.
func (s *Session) Path() []graph.EntityID { return s.path.IDs() }

// CenterID returns the center node of the most recent query.
func (s *Session) CenterID() graph.EntityID { return s.centerID }

// SelectedNode returns the currently selected node id ("" when none).
func (s *Session) SelectedNode() graph.EntityID { return s.selectedNode }

// SelectedEdge returns the currently selected edge id ("" when none).
func (s *Session) SelectedEdge() graph.EdgeID { return s.selectedEdge }

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Entities:   s.view.EntityCount(),
		Edges:      s.view.EdgeCount(),
		Expansions: s.expansions,
		Generation: s.generation,
		Alpha:      s.engine.Alpha(),
	}
}

// StartQuery issues a fresh text query. Any in-flight query is cancelled
// and its eventual response discarded: the new generation is authoritative.
func (s *Session) StartQuery(text string) {
	gen := s.nextGeneration()
	ctx := s.fetchCtx

	go func() {
		res, err := s.src.Query(ctx, text)
		s.arrivals <- arrival{kind: arrivalQuery, gen: gen, query: res, err: err}
	}()
}

// nextGeneration supersedes every in-flight fetch: the counter is bumped so
// late arrivals are discarded, and the fetch context is rotated so cancelled
// work unwinds instead of hanging.
func (s *Session) nextGeneration() uint64 {
	s.generation++
	if s.cancel != nil {
		s.cancel()
	}
	s.fetchCtx, s.cancel = context.WithCancel(context.Background())
	return s.generation
}

// expandNode issues an expand fetch for id. A second expand of the same
// node while one is in flight is coalesced, not queued twice.
func (s *Session) expandNode(id graph.EntityID) {
	if !s.view.Has(id) {
		return
	}
	if _, busy := s.inflight[id]; busy {
		return
	}
	s.inflight[id] = struct{}{}
	gen := s.generation
	ctx := s.fetchCtx

	if s.opts.Events.OnExpand != nil {
		s.opts.Events.OnExpand(id)
	}

	go func() {
		res, err := s.src.Expand(ctx, id)
		s.arrivals <- arrival{kind: arrivalExpand, gen: gen, nodeID: id, expand: res, err: err}
	}()
}

// Frame advances the session one frame: apply completed fetches, tick the
// simulation once, advance fade-ins, expire the click timer, re-resolve the
// trail if needed, and return the render snapshot.
func (s *Session) Frame() *Snapshot {
	s.drainArrivals()
	s.engine.Tick()
	s.engine.AdvanceAnimations()
	s.ctrl.Tick()

	if s.trailDirty {
		s.current = trail.Resolve(s.view, s.path.IDs())
		s.trailDirty = false
	}
	return s.snapshot()
}

// drainArrivals applies every completed fetch whose generation is still
// current. Stale arrivals are discarded silently (cancellation and
// supersession are not user-visible errors).
func (s *Session) drainArrivals() {
	for {
		select {
		case a := <-s.arrivals:
			s.applyArrival(a)
		default:
			return
		}
	}
}

func (s *Session) applyArrival(a arrival) {
	if a.kind == arrivalExpand {
		delete(s.inflight, a.nodeID)
	}
	if a.gen != s.generation {
		return // superseded; never surfaced
	}

	if a.err != nil {
		if a.err == context.Canceled {
			return
		}
		log.Printf("explorer: fetch failed: %v", a.err)
		if s.opts.Events.OnQueryError != nil {
			s.opts.Events.OnQueryError(a.err)
		}
		return
	}

	switch a.kind {
	case arrivalQuery:
		s.applyQuery(a.query)
	case arrivalExpand:
		s.applyExpand(a.nodeID, a.expand)
	}
}

// applyQuery rebuilds the model around the query center. Only the center is
// revealed unconditionally; its neighborhood takes the same rank-then-merge
// path as an expansion, so a large first neighborhood is bounded and diverse
// too, with the ranked remainder buffered on the center for "load more".
// The position cache survives so recurring nodes keep their coordinates;
// expansion records belong to the discarded model and are cleared; the path
// survives (its missing hops simply resolve to empty trail segments).
func (s *Session) applyQuery(res *source.QueryResult) {
	s.log.Reset()
	s.selectedNode = ""
	s.selectedEdge = ""
	s.centerID = res.CenterID

	var center []*graph.Entity
	for _, ent := range res.Entities {
		if ent != nil && ent.ID == res.CenterID {
			center = append(center, ent)
			break
		}
	}
	s.view.Replace(center, nil)
	s.revealRanked(res.CenterID, res.Entities, res.Edges)

	s.engine.SetGraph(s.view, layout.ReheatFull)
	s.trailDirty = true
}

// applyExpand merges the fetched neighborhood under the reveal budget and
// reheats the layout gently.
func (s *Session) applyExpand(focal graph.EntityID, res *source.ExpandResult) {
	s.revealRanked(focal, res.Entities, res.Edges)
	s.expansions++

	s.engine.SetGraph(s.view, layout.ReheatLow)
	s.trailDirty = true
}

// revealRanked ranks the not-yet-visible entities of a fetched neighborhood,
// merges the selected subset, and buffers the ranked remainder on focal.
func (s *Session) revealRanked(focal graph.EntityID, entities []*graph.Entity, edges []*graph.Edge) {
	candidates := s.collectCandidates(entities, edges)
	visible := s.view.VisibleIDs()
	ranked := s.ranker.Rank(candidates, visible, s.opts.MaxReveal)

	var selEnts []*graph.Entity
	var selEdges []*graph.Edge
	for _, sel := range ranked.Selected {
		selEnts = append(selEnts, sel.Entity)
		selEdges = append(selEdges, sel.Edges...)
	}
	merged := s.view.Merge(selEnts, selEdges)

	// Edges whose endpoints are both visible now ride along regardless of
	// ranking: they reveal no new node, only a missing connection. Merge
	// skips ids already present, so anchor edges are not double-counted.
	var extra []*graph.Edge
	for _, e := range edges {
		if e != nil && s.view.Has(e.SourceID) && s.view.Has(e.TargetID) {
			extra = append(extra, e)
		}
	}
	late := s.view.Merge(nil, extra)
	merged.EdgeIDs = append(merged.EdgeIDs, late.EdgeIDs...)

	rec := &graph.ExpansionRecord{
		FocalID:       focal,
		EntityIDs:     merged.EntityIDs,
		EdgeIDs:       merged.EdgeIDs,
		OverflowEdges: make(map[graph.EntityID][]*graph.Edge),
	}
	for _, ov := range ranked.Overflow {
		rec.Overflow = append(rec.Overflow, ov.Entity)
		rec.OverflowEdges[ov.Entity.ID] = ov.Edges
	}
	s.log.Put(rec)

	if remaining := len(rec.Overflow); remaining > 0 && s.opts.Events.OnLoadMoreAvailable != nil {
		s.opts.Events.OnLoadMoreAvailable(focal, remaining)
	}
}

// collectCandidates groups an expand result into ranker candidates: each
// not-yet-visible entity with the edges linking it to an already-visible
// node. Edges between two invisible entities are ignored; they can only be
// revealed by a later expansion that sees both ends.
func (s *Session) collectCandidates(entities []*graph.Entity, edges []*graph.Edge) []rank.Candidate {
	byID := make(map[graph.EntityID]*rank.Candidate)
	var order []graph.EntityID

	for _, ent := range entities {
		if ent == nil || ent.ID == "" || s.view.Has(ent.ID) {
			continue
		}
		if _, dup := byID[ent.ID]; dup {
			continue
		}
		byID[ent.ID] = &rank.Candidate{Entity: ent}
		order = append(order, ent.ID)
	}

	for _, e := range edges {
		if e == nil {
			continue
		}
		srcVisible := s.view.Has(e.SourceID)
		dstVisible := s.view.Has(e.TargetID)
		switch {
		case srcVisible && !dstVisible:
			if c, ok := byID[e.TargetID]; ok {
				c.Edges = append(c.Edges, e)
			}
		case dstVisible && !srcVisible:
			if c, ok := byID[e.SourceID]; ok {
				c.Edges = append(c.Edges, e)
			}
		}
	}

	out := make([]rank.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// OverflowCount returns how many ranked candidates remain buffered for id.
func (s *Session) OverflowCount(id graph.EntityID) int {
	return s.log.OverflowCount(id)
}

// DrainOverflow reveals up to pageSize buffered candidates for id, in rank
// order, with no recomputation and no new fetch. pageSize <= 0 uses the
// configured default. Returns how many entities were revealed.
func (s *Session) DrainOverflow(id graph.EntityID, pageSize int) int {
	if pageSize <= 0 {
		pageSize = s.opts.OverflowPageSize
	}
	ents, edges := s.log.DrainOverflow(id, pageSize)
	if len(ents) == 0 {
		return 0
	}
	merged := s.view.Merge(ents, edges)

	if rec := s.log.Get(id); rec != nil {
		rec.EntityIDs = append(rec.EntityIDs, merged.EntityIDs...)
		rec.EdgeIDs = append(rec.EdgeIDs, merged.EdgeIDs...)
	}

	s.engine.SetGraph(s.view, layout.ReheatLow)
	s.trailDirty = true

	if remaining := s.log.OverflowCount(id); remaining > 0 && s.opts.Events.OnLoadMoreAvailable != nil {
		s.opts.Events.OnLoadMoreAvailable(id, remaining)
	}
	return len(merged.EntityIDs)
}

// Reset discards the whole session state: model, expansion records, path,
// selections and the position cache.
func (s *Session) Reset() {
	s.nextGeneration()
	// Forget in-flight expands too: a fetch that never returns must not
	// block re-expansion of its node after the reset.
	s.inflight = make(map[graph.EntityID]struct{})
	s.view = graph.NewView()
	s.cache.Reset()
	s.log.Reset()
	s.path.Reset()
	s.selectedNode = ""
	s.selectedEdge = ""
	s.centerID = ""
	s.current = nil
	s.trailDirty = false
	s.engine.SetGraph(s.view, layout.ReheatNone)
}

// selectNode commits a node selection (single-click resolved).
func (s *Session) selectNode(id graph.EntityID) {
	s.selectedNode = id
	s.selectedEdge = ""
	if s.opts.Events.OnSelect != nil {
		s.opts.Events.OnSelect(id)
	}
}

// selectEdge commits an edge selection.
func (s *Session) selectEdge(id graph.EdgeID) {
	s.selectedEdge = id
	s.selectedNode = ""
	if s.opts.Events.OnEdgeSelect != nil {
		s.opts.Events.OnEdgeSelect(id)
	}
}

// addToPath appends a hop to the user's path and schedules a trail
// re-resolution.
func (s *Session) addToPath(id graph.EntityID) {
	if !s.path.Append(id) {
		return
	}
	s.trailDirty = true
	if s.opts.Events.OnAddToPath != nil {
		s.opts.Events.OnAddToPath(id)
	}
}
