package graph

import (
	"testing"
)

// =============================================================================
// PositionCache Tests
// =============================================================================

func TestPositionCache(t *testing.T) {
	c := NewPositionCache()

	if _, ok := c.Get("a"); ok {
		t.Error("empty cache should miss")
	}

	c.Put("a", Point{X: 10, Y: -4})
	p, ok := c.Get("a")
	if !ok || p.X != 10 || p.Y != -4 {
		t.Errorf("Get(a) = %v, %v; want (10,-4), true", p, ok)
	}

	c.Put("a", Point{X: 1, Y: 1})
	p, _ = c.Get("a")
	if p.X != 1 {
		t.Error("Put should overwrite")
	}

	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.Reset()
	if c.Len() != 0 {
		t.Error("Reset should clear the cache")
	}
}

// Positions must survive a model Replace: the cache is deliberately not tied
// to View lifetime.
func TestPositionCacheSurvivesReplace(t *testing.T) {
	v := NewView()
	c := NewPositionCache()

	v.Replace(testEntities("a"), nil)
	c.Put("a", Point{X: 42, Y: 7})

	v.Replace(testEntities("b"), nil)
	if p, ok := c.Get("a"); !ok || p.X != 42 {
		t.Error("cached position should survive Replace")
	}
}

// =============================================================================
// ExpansionLog Tests
// =============================================================================

func overflowRecord(focal EntityID, ids ...EntityID) *ExpansionRecord {
	rec := &ExpansionRecord{
		FocalID:       focal,
		OverflowEdges: make(map[EntityID][]*Edge),
	}
	for _, id := range ids {
		rec.Overflow = append(rec.Overflow, &Entity{ID: id})
		rec.OverflowEdges[id] = []*Edge{edge(EdgeID("to-"+id), focal, id)}
	}
	return rec
}

func TestExpansionLogPutGet(t *testing.T) {
	l := NewExpansionLog()

	if l.Get("x") != nil {
		t.Error("empty log should return nil")
	}

	l.Put(overflowRecord("x", "a", "b"))
	if rec := l.Get("x"); rec == nil || len(rec.Overflow) != 2 {
		t.Fatal("record not stored")
	}
	if l.OverflowCount("x") != 2 {
		t.Errorf("OverflowCount = %d, want 2", l.OverflowCount("x"))
	}

	// A second expansion of the same node replaces its record.
	l.Put(overflowRecord("x", "c"))
	if l.OverflowCount("x") != 1 {
		t.Errorf("OverflowCount after replace = %d, want 1", l.OverflowCount("x"))
	}

	l.Put(nil) // must not panic
	l.Put(&ExpansionRecord{})
}

func TestDrainOverflowPaging(t *testing.T) {
	l := NewExpansionLog()
	l.Put(overflowRecord("x", "a", "b", "c", "d", "e"))

	t.Run("pages come off the front in order", func(t *testing.T) {
		page, edges := l.DrainOverflow("x", 2)
		if len(page) != 2 || page[0].ID != "a" || page[1].ID != "b" {
			t.Fatalf("first page = %v", pageIDs(page))
		}
		if len(edges) != 2 {
			t.Errorf("first page edges = %d, want 2", len(edges))
		}
		if l.OverflowCount("x") != 3 {
			t.Errorf("remaining = %d, want 3", l.OverflowCount("x"))
		}
	})

	t.Run("short final page", func(t *testing.T) {
		l.DrainOverflow("x", 2) // c, d
		page, _ := l.DrainOverflow("x", 2)
		if len(page) != 1 || page[0].ID != "e" {
			t.Fatalf("final page = %v, want [e]", pageIDs(page))
		}
	})

	t.Run("empty buffer drains nothing", func(t *testing.T) {
		page, edges := l.DrainOverflow("x", 2)
		if page != nil || edges != nil {
			t.Error("drained from empty buffer")
		}
	})

	t.Run("unknown focal and bad page size", func(t *testing.T) {
		if page, _ := l.DrainOverflow("nope", 5); page != nil {
			t.Error("unknown focal should drain nothing")
		}
		l.Put(overflowRecord("y", "q"))
		if page, _ := l.DrainOverflow("y", 0); page != nil {
			t.Error("pageSize 0 should drain nothing")
		}
	})
}

// Draining in pages must yield the same elements in the same order as one
// full drain would have.
func TestDrainOverflowLossless(t *testing.T) {
	ids := []EntityID{"a", "b", "c", "d", "e", "f", "g"}

	full := NewExpansionLog()
	full.Put(overflowRecord("x", ids...))
	fullPage, _ := full.DrainOverflow("x", len(ids))

	paged := NewExpansionLog()
	paged.Put(overflowRecord("x", ids...))
	var got []*Entity
	for {
		page, _ := paged.DrainOverflow("x", 3)
		if len(page) == 0 {
			break
		}
		got = append(got, page...)
	}

	if len(got) != len(fullPage) {
		t.Fatalf("paged drain yielded %d, full drain %d", len(got), len(fullPage))
	}
	for i := range got {
		if got[i].ID != fullPage[i].ID {
			t.Errorf("position %d: paged %s, full %s", i, got[i].ID, fullPage[i].ID)
		}
	}
}

func pageIDs(page []*Entity) []EntityID {
	out := make([]EntityID, 0, len(page))
	for _, e := range page {
		out = append(out, e.ID)
	}
	return out
}

// =============================================================================
// PathList Tests
// =============================================================================

func TestPathList(t *testing.T) {
	p := NewPathList()

	if !p.Append("a") || !p.Append("b") {
		t.Fatal("appends should succeed")
	}
	if p.Append("b") {
		t.Error("appending the current tail again must be a no-op")
	}
	if !p.Append("a") {
		t.Error("revisiting an earlier hop is allowed")
	}

	want := []EntityID{"a", "b", "a"}
	got := p.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// IDs returns a copy.
	got[0] = "mutated"
	if p.IDs()[0] != "a" {
		t.Error("IDs must return a copy, not the backing slice")
	}

	if !p.Contains("b") || p.Contains("z") {
		t.Error("Contains is wrong")
	}

	p.Reset()
	if p.Len() != 0 {
		t.Error("Reset should clear the path")
	}
}
