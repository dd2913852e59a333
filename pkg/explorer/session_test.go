package explorer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/bifrost/pkg/graph"
	"github.com/orneryd/bifrost/pkg/interact"
	"github.com/orneryd/bifrost/pkg/source"
)

// fakeSource is a scriptable Graph Query Service. Queries and expands can be
// gated on a channel to exercise the in-flight bookkeeping.
type fakeSource struct {
	mu          sync.Mutex
	queries     map[string]*source.QueryResult
	expands     map[graph.EntityID]*source.ExpandResult
	gates       map[string]chan struct{}
	queryCalls  int
	expandCalls map[graph.EntityID]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		queries:     make(map[string]*source.QueryResult),
		expands:     make(map[graph.EntityID]*source.ExpandResult),
		gates:       make(map[string]chan struct{}),
		expandCalls: make(map[graph.EntityID]int),
	}
}

// gate makes the named call (query text or entity id) block until Release.
func (f *fakeSource) gate(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[key] = make(chan struct{})
}

func (f *fakeSource) release(key string) {
	f.mu.Lock()
	ch := f.gates[key]
	delete(f.gates, key)
	f.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (f *fakeSource) wait(ctx context.Context, key string) error {
	f.mu.Lock()
	ch := f.gates[key]
	f.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) Query(ctx context.Context, text string) (*source.QueryResult, error) {
	f.mu.Lock()
	f.queryCalls++
	res := f.queries[text]
	f.mu.Unlock()

	if err := f.wait(ctx, text); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, source.ErrNoMatch
	}
	return res, nil
}

func (f *fakeSource) Expand(ctx context.Context, id graph.EntityID) (*source.ExpandResult, error) {
	f.mu.Lock()
	f.expandCalls[id]++
	res := f.expands[id]
	f.mu.Unlock()

	if err := f.wait(ctx, string(id)); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, source.ErrNotFound
	}
	return res, nil
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) expandCount(id graph.EntityID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expandCalls[id]
}

func ent(id graph.EntityID, cat graph.Category) *graph.Entity {
	return &graph.Entity{ID: id, DisplayName: string(id), Category: cat}
}

func rel(id graph.EdgeID, src, dst graph.EntityID, conf float64) *graph.Edge {
	return &graph.Edge{ID: id, SourceID: src, TargetID: dst,
		PredicateLabel: "related_to", ConfidenceScore: conf, HasConfidence: conf > 0}
}

// brca1Source scripts the canonical demo: a center with two neighbors, and
// an expansion of the center yielding 12 candidates across categories.
func brca1Source() *fakeSource {
	f := newFakeSource()
	f.queries["BRCA1"] = &source.QueryResult{
		CenterID: "BRCA1",
		Entities: []*graph.Entity{
			ent("BRCA1", graph.CategoryGene),
			ent("BRCA2", graph.CategoryGene),
			ent("breast-cancer", graph.CategoryDisease),
		},
		Edges: []*graph.Edge{
			rel("q1", "BRCA1", "BRCA2", 0.8),
			rel("q2", "BRCA1", "breast-cancer", 0.9),
		},
	}

	exp := &source.ExpandResult{}
	cats := []graph.Category{
		graph.CategoryDrug, graph.CategoryPathway, graph.CategoryProtein,
		graph.CategoryGene, graph.CategoryGene, graph.CategoryGene,
		graph.CategoryGene, graph.CategoryGene, graph.CategoryGene,
		graph.CategoryGene, graph.CategoryGene, graph.CategoryGene,
	}
	for i, cat := range cats {
		id := graph.EntityID(fmt.Sprintf("cand-%02d", i))
		exp.Entities = append(exp.Entities, ent(id, cat))
		// Descending confidence so rank order matches candidate order.
		exp.Edges = append(exp.Edges, rel(graph.EdgeID(fmt.Sprintf("xe-%02d", i)),
			"BRCA1", id, 0.9-float64(i)*0.05))
	}
	f.expands["BRCA1"] = exp
	return f
}

func newTestSession(src source.Source) (*Session, *interact.FakeClock) {
	clock := &interact.FakeClock{Current: time.Unix(0, 0)}
	s := New(src, Options{Clock: clock})
	return s, clock
}

// pump runs frames until pred holds or the deadline lapses. Fetch goroutines
// are the only asynchrony; everything else happens inside Frame.
func pump(t *testing.T, s *Session, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.Frame()
		if pred() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

// =============================================================================
// Query Tests
// =============================================================================

func TestStartQueryPopulatesView(t *testing.T) {
	s, _ := newTestSession(brca1Source())

	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	assert.Equal(t, 3, s.View().EntityCount())
	assert.Equal(t, 2, s.View().EdgeCount())
	assert.Equal(t, graph.EntityID("BRCA1"), s.CenterID())
	assert.Greater(t, s.Stats().Alpha, 0.3, "fresh query reheats fully")
}

// A first neighborhood larger than the reveal budget goes through the same
// ranked, diverse selection as an expansion, with the remainder buffered on
// the center — no expand gesture needed before "load more".
func TestQueryRevealsBoundedSubsetAndBuffersRest(t *testing.T) {
	f := newFakeSource()
	res := &source.QueryResult{
		CenterID: "BRCA1",
		Entities: []*graph.Entity{ent("BRCA1", graph.CategoryGene)},
	}
	cats := []graph.Category{
		graph.CategoryDrug, graph.CategoryPathway, graph.CategoryProtein,
		graph.CategoryGene, graph.CategoryGene, graph.CategoryGene,
		graph.CategoryGene, graph.CategoryGene, graph.CategoryGene,
		graph.CategoryGene, graph.CategoryGene, graph.CategoryGene,
	}
	for i, cat := range cats {
		id := graph.EntityID(fmt.Sprintf("qn-%02d", i))
		res.Entities = append(res.Entities, ent(id, cat))
		// Descending confidence so rank order matches candidate order.
		res.Edges = append(res.Edges, rel(graph.EdgeID(fmt.Sprintf("qe-%02d", i)),
			"BRCA1", id, 0.9-float64(i)*0.05))
	}
	f.queries["BRCA1"] = res

	clock := &interact.FakeClock{Current: time.Unix(0, 0)}
	s := New(f, Options{Clock: clock, MaxReveal: 5})

	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	require.Equal(t, 6, s.View().EntityCount(), "center plus the reveal budget")
	assert.Equal(t, 5, s.View().EdgeCount())
	assert.True(t, s.View().Has("qn-00"), "drug representative")
	assert.True(t, s.View().Has("qn-01"), "pathway representative")
	assert.True(t, s.View().Has("qn-02"), "protein representative")
	assert.Equal(t, 7, s.OverflowCount("BRCA1"))

	// "Load more" pages straight out of the buffered remainder.
	assert.Equal(t, 5, s.DrainOverflow("BRCA1", 5))
	assert.Equal(t, 11, s.View().EntityCount())
	assert.Equal(t, 2, s.OverflowCount("BRCA1"))
}

func TestStaleQueryDiscarded(t *testing.T) {
	f := brca1Source()
	f.queries["slow"] = &source.QueryResult{
		CenterID: "other",
		Entities: []*graph.Entity{ent("other", graph.CategoryGene)},
	}
	f.gate("slow")
	s, _ := newTestSession(f)

	s.StartQuery("slow")  // generation 1, blocked
	s.StartQuery("BRCA1") // generation 2 supersedes it
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	f.release("slow") // the stale response lands now
	for i := 0; i < 20; i++ {
		s.Frame()
		time.Sleep(time.Millisecond)
	}

	// The superseded result must never replace the current model.
	assert.Equal(t, graph.EntityID("BRCA1"), s.CenterID())
	assert.True(t, s.View().Has("BRCA2"))
	assert.False(t, s.View().Has("other"))
}

func TestQueryErrorSurfaced(t *testing.T) {
	f := newFakeSource()
	var got error
	clock := &interact.FakeClock{Current: time.Unix(0, 0)}
	s := New(f, Options{Clock: clock, Events: Events{
		OnQueryError: func(err error) { got = err },
	}})

	s.StartQuery("nothing matches this")
	pump(t, s, func() bool { return got != nil })
	assert.ErrorIs(t, got, source.ErrNoMatch)
	assert.Equal(t, 0, s.View().EntityCount())
}

// A superseding query's cancellation must not surface as an error.
func TestCancelledQuerySilent(t *testing.T) {
	f := brca1Source()
	f.gates["hang"] = make(chan struct{}) // never released; relies on ctx
	errs := 0
	clock := &interact.FakeClock{Current: time.Unix(0, 0)}
	s := New(f, Options{Clock: clock, Events: Events{
		OnQueryError: func(error) { errs++ },
	}})

	s.StartQuery("hang")
	s.StartQuery("BRCA1") // cancels the hung fetch
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	for i := 0; i < 20; i++ {
		s.Frame()
		time.Sleep(time.Millisecond)
	}
	assert.Zero(t, errs, "context cancellation is not a user-visible error")
}

// =============================================================================
// Expansion Tests
// =============================================================================

func expandedSession(t *testing.T) (*Session, *fakeSource) {
	t.Helper()
	f := brca1Source()
	s, _ := newTestSession(f)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })
	for i := 0; i < 400; i++ { // let the query layout settle fully
		s.Frame()
	}

	s.expandNode("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 3 })
	return s, f
}

func TestExpandRevealsBoundedDiverseSubset(t *testing.T) {
	s, _ := expandedSession(t)

	// 3 from the query + MaxReveal (5) revealed.
	assert.Equal(t, 8, s.View().EntityCount())

	// The diversity pass guarantees the lone drug/pathway/protein candidates
	// made the cut despite mid-pack scores.
	assert.True(t, s.View().Has("cand-00"), "drug representative")
	assert.True(t, s.View().Has("cand-01"), "pathway representative")
	assert.True(t, s.View().Has("cand-02"), "protein representative")

	// 12 candidates - 5 revealed = 7 buffered.
	assert.Equal(t, 7, s.OverflowCount("BRCA1"))

	// Gentle reheat: from settled, alpha comes back to the low value only.
	assert.InDelta(t, 0.3, s.Stats().Alpha, 0.05)
}

func TestDrainOverflow(t *testing.T) {
	s, _ := expandedSession(t)

	revealed := s.DrainOverflow("BRCA1", 5)
	assert.Equal(t, 5, revealed)
	assert.Equal(t, 13, s.View().EntityCount())
	assert.Equal(t, 2, s.OverflowCount("BRCA1"))

	// Drained nodes arrive with their connecting edges.
	assert.True(t, s.View().Has("cand-05"))
	assert.Greater(t, s.View().Degree("cand-05"), 0, "drained node must be connected")

	// Last partial page, then exhaustion.
	assert.Equal(t, 2, s.DrainOverflow("BRCA1", 5))
	assert.Equal(t, 0, s.OverflowCount("BRCA1"))
	assert.Equal(t, 0, s.DrainOverflow("BRCA1", 5))
	assert.Equal(t, 15, s.View().EntityCount(), "3 query + 12 candidates, nothing lost")
}

func TestExpandCoalescesInflight(t *testing.T) {
	f := brca1Source()
	s, _ := newTestSession(f)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	f.gate("BRCA1") // block the expand fetch
	s.expandNode("BRCA1")
	s.expandNode("BRCA1") // coalesced, not queued
	s.expandNode("BRCA1")

	f.release("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 3 })

	assert.Equal(t, 1, f.expandCount("BRCA1"), "in-flight expand must coalesce")

	// After completion a new expand may fetch again.
	s.expandNode("BRCA1")
	pump(t, s, func() bool { return f.expandCount("BRCA1") == 2 })
}

func TestExpandUnknownNodeIgnored(t *testing.T) {
	f := brca1Source()
	s, _ := newTestSession(f)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	s.expandNode("ghost")
	s.Frame()
	assert.Equal(t, 0, f.expandCount("ghost"), "expand of an invisible node must not fetch")
}

func TestLoadMoreAvailableNotification(t *testing.T) {
	f := brca1Source()
	type notice struct {
		id        graph.EntityID
		remaining int
	}
	var notices []notice
	clock := &interact.FakeClock{Current: time.Unix(0, 0)}
	s := New(f, Options{Clock: clock, Events: Events{
		OnLoadMoreAvailable: func(id graph.EntityID, remaining int) {
			notices = append(notices, notice{id, remaining})
		},
	}})
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })
	s.expandNode("BRCA1")
	pump(t, s, func() bool { return len(notices) > 0 })

	require.Len(t, notices, 1)
	assert.Equal(t, notice{"BRCA1", 7}, notices[0])

	s.DrainOverflow("BRCA1", 5)
	require.Len(t, notices, 2)
	assert.Equal(t, notice{"BRCA1", 2}, notices[1])
}

// =============================================================================
// Query-over-Expansion Lifecycle Tests
// =============================================================================

func TestNewQueryClearsExpansionsKeepsPositions(t *testing.T) {
	f := brca1Source()
	f.queries["second"] = &source.QueryResult{
		CenterID: "BRCA2",
		Entities: []*graph.Entity{ent("BRCA2", graph.CategoryGene)},
	}
	s, _ := newTestSession(f)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })
	s.expandNode("BRCA1")
	pump(t, s, func() bool { return s.OverflowCount("BRCA1") > 0 })

	pos, ok := s.engine.Position("BRCA2")
	require.True(t, ok)

	s.StartQuery("second")
	pump(t, s, func() bool { return s.CenterID() == "BRCA2" })

	// Expansion records belong to the discarded model.
	assert.Equal(t, 0, s.OverflowCount("BRCA1"))
	// The recurring node reappears at its cached coordinates (give or take
	// the tick or two the pump ran after applying) with no fade-in replay.
	now, ok := s.engine.Position("BRCA2")
	require.True(t, ok)
	assert.InDelta(t, pos.X, now.X, 50)
	assert.InDelta(t, pos.Y, now.Y, 50)
	assert.Equal(t, 1.0, s.engine.Progress("BRCA2"), "cache-restored node must not replay its fade-in")
}

func TestReset(t *testing.T) {
	s, _ := expandedSession(t)
	s.addToPath("BRCA1")

	s.Reset()
	assert.Equal(t, 0, s.View().EntityCount())
	assert.Empty(t, s.Path())
	assert.Equal(t, 0, s.OverflowCount("BRCA1"))
	assert.Equal(t, graph.EntityID(""), s.CenterID())
	assert.Equal(t, 0, s.cache.Len(), "full reset clears the position cache")
}

// A reset must forget in-flight expands: a fetch that never returned would
// otherwise block re-expansion of its node forever.
func TestResetClearsInflightExpands(t *testing.T) {
	f := brca1Source()
	s, _ := newTestSession(f)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	f.gate("BRCA1") // the expand fetch hangs
	s.expandNode("BRCA1")
	pump(t, s, func() bool { return f.expandCount("BRCA1") == 1 })
	require.Len(t, s.inflight, 1)

	s.Reset()
	assert.Empty(t, s.inflight)

	f.release("BRCA1")
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().Has("BRCA1") && s.CenterID() == "BRCA1" })

	s.expandNode("BRCA1")
	pump(t, s, func() bool { return f.expandCount("BRCA1") == 2 })
}

// =============================================================================
// Path / Trail Tests
// =============================================================================

func TestPathAndTrail(t *testing.T) {
	s, _ := newTestSession(brca1Source())
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	s.addToPath("BRCA2")
	s.addToPath("breast-cancer")
	snap := s.Frame()

	// BRCA2 -> BRCA1 -> breast-cancer: both query edges highlighted.
	highlighted := map[graph.EdgeID]bool{}
	for _, e := range snap.Edges {
		if e.Highlighted {
			highlighted[e.ID] = true
		}
	}
	assert.True(t, highlighted["q1"], "q1 on the trail")
	assert.True(t, highlighted["q2"], "q2 on the trail")

	onTrail := 0
	for _, n := range snap.Nodes {
		if n.OnTrail {
			onTrail++
		}
	}
	assert.Equal(t, 2, onTrail, "both path hops flagged")

	// Consecutive duplicate hops are dropped.
	s.addToPath("breast-cancer")
	assert.Len(t, s.Path(), 2)
}

// The path survives a new query; hops missing from the new model resolve to
// empty segments instead of erroring.
func TestPathSurvivesNewQuery(t *testing.T) {
	f := brca1Source()
	f.queries["second"] = &source.QueryResult{
		CenterID: "lone",
		Entities: []*graph.Entity{ent("lone", graph.CategoryGene)},
	}
	s, _ := newTestSession(f)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })
	s.addToPath("BRCA2")
	s.addToPath("breast-cancer")

	s.StartQuery("second")
	pump(t, s, func() bool { return s.CenterID() == "lone" })
	snap := s.Frame()

	assert.Len(t, s.Path(), 2, "path list survives the query")
	for _, e := range snap.Edges {
		assert.False(t, e.Highlighted, "no visible trail when the hops are gone")
	}
}

// =============================================================================
// Gesture Integration Tests
// =============================================================================

// seedPositions pins the query nodes far apart so pointer tests hit exactly
// the node they aim at, independent of the simulation's random seeding.
func seedPositions(s *Session) {
	s.cache.Put("BRCA1", graph.Point{X: 0, Y: 0})
	s.cache.Put("BRCA2", graph.Point{X: 300, Y: 0})
	s.cache.Put("breast-cancer", graph.Point{X: 0, Y: 300})
}

func TestDoubleClickDrivesExpand(t *testing.T) {
	f := brca1Source()
	s, clock := newTestSession(f)
	seedPositions(s)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	pos, ok := s.engine.Position("BRCA1")
	require.True(t, ok)
	scr := s.Camera().WorldToScreen(pos)

	ctrl := s.Controller()
	ctrl.PointerDown(scr.X, scr.Y, interact.ButtonPrimary)
	ctrl.PointerUp(scr.X, scr.Y)
	clock.Advance(100 * time.Millisecond)
	ctrl.PointerDown(scr.X, scr.Y, interact.ButtonPrimary)
	ctrl.PointerUp(scr.X, scr.Y)

	pump(t, s, func() bool { return s.View().EntityCount() > 3 })
	assert.Equal(t, 1, f.expandCount("BRCA1"))
	assert.Equal(t, graph.EntityID(""), s.SelectedNode(), "double click must not select")
}

func TestSingleClickDrivesSelect(t *testing.T) {
	s, clock := newTestSession(brca1Source())
	seedPositions(s)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	pos, _ := s.engine.Position("BRCA2")
	scr := s.Camera().WorldToScreen(pos)
	ctrl := s.Controller()
	ctrl.PointerDown(scr.X, scr.Y, interact.ButtonPrimary)
	ctrl.PointerUp(scr.X, scr.Y)

	clock.Advance(time.Second)
	s.Frame() // Tick inside Frame expires the window
	assert.Equal(t, graph.EntityID("BRCA2"), s.SelectedNode())

	snap := s.Frame()
	selected := 0
	for _, n := range snap.Nodes {
		if n.Selected {
			selected++
			assert.Equal(t, graph.EntityID("BRCA2"), n.ID)
		}
	}
	assert.Equal(t, 1, selected)
}

func TestSecondaryClickAddsToPath(t *testing.T) {
	s, _ := newTestSession(brca1Source())
	seedPositions(s)
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	pos, _ := s.engine.Position("BRCA2")
	scr := s.Camera().WorldToScreen(pos)
	s.Controller().PointerDown(scr.X, scr.Y, interact.ButtonSecondary)

	require.Len(t, s.Path(), 1)
	assert.Equal(t, graph.EntityID("BRCA2"), s.Path()[0])
}

// =============================================================================
// Snapshot Tests
// =============================================================================

func TestSnapshotOverflowRemaining(t *testing.T) {
	s, _ := expandedSession(t)
	snap := s.Frame()

	var focal *NodeView
	for i := range snap.Nodes {
		if snap.Nodes[i].ID == "BRCA1" {
			focal = &snap.Nodes[i]
		}
	}
	require.NotNil(t, focal)
	assert.Equal(t, 7, focal.OverflowRemaining)
}

func TestSnapshotEdgeProgressFollowsEndpoints(t *testing.T) {
	s, _ := newTestSession(brca1Source())
	s.StartQuery("BRCA1")
	pump(t, s, func() bool { return s.View().EntityCount() > 0 })

	snap := s.Frame()
	prog := map[graph.EntityID]float64{}
	for _, n := range snap.Nodes {
		prog[n.ID] = n.Progress
	}
	for _, e := range snap.Edges {
		ge, err := s.View().Edge(e.ID)
		require.NoError(t, err)
		limit := prog[ge.SourceID]
		if p := prog[ge.TargetID]; p < limit {
			limit = p
		}
		assert.InDelta(t, limit, e.Progress, 1e-9, "edge must not outrun its endpoints")
	}
}
