package graph

// PositionCache remembers the last known world position of every entity the
// session has ever laid out, keyed by entity id.
//
// It outlives View.Replace on purpose: when a node from an earlier query
// reappears in a later one, seeding it at its remembered coordinates keeps
// the picture stable instead of re-randomizing it. A full session reset is
// the only thing that clears it.
type PositionCache struct {
	positions map[EntityID]Point
}

// NewPositionCache returns an empty cache.
func NewPositionCache() *PositionCache {
	return &PositionCache{positions: make(map[EntityID]Point)}
}

// Get returns the cached position for id and whether one exists.
func (c *PositionCache) Get(id EntityID) (Point, bool) {
	p, ok := c.positions[id]
	return p, ok
}

// Put records the position for id, overwriting any previous value.
func (c *PositionCache) Put(id EntityID, p Point) {
	c.positions[id] = p
}

// Len returns the number of cached positions.
func (c *PositionCache) Len() int { return len(c.positions) }

// Reset discards every cached position. Called on a full session reset only.
func (c *PositionCache) Reset() {
	c.positions = make(map[EntityID]Point)
}

// ExpansionRecord is the per-node bookkeeping left behind by an expansion:
// which ids that expansion introduced, and the ranked remainder that was
// held back for "load more".
type ExpansionRecord struct {
	FocalID EntityID

	// Introduced ids, in the order the merge revealed them.
	EntityIDs []EntityID
	EdgeIDs   []EdgeID

	// Overflow is the ranked, not-yet-shown remainder. Drained from the
	// front in rank order; never recomputed.
	Overflow []*Entity
	// OverflowEdges holds, per overflow entity, the edges that connected it
	// to the view at ranking time, keyed by entity id.
	OverflowEdges map[EntityID][]*Edge
}

// ExpansionLog tracks ExpansionRecords for the session, one per expanded
// node. A second expansion of the same node replaces its record.
type ExpansionLog struct {
	records map[EntityID]*ExpansionRecord
	order   []EntityID
}

// NewExpansionLog returns an empty log.
func NewExpansionLog() *ExpansionLog {
	return &ExpansionLog{records: make(map[EntityID]*ExpansionRecord)}
}

// Put stores the record for its focal node.
func (l *ExpansionLog) Put(rec *ExpansionRecord) {
	if rec == nil || rec.FocalID == "" {
		return
	}
	if _, exists := l.records[rec.FocalID]; !exists {
		l.order = append(l.order, rec.FocalID)
	}
	l.records[rec.FocalID] = rec
}

// Get returns the record for a focal node, or nil.
func (l *ExpansionLog) Get(id EntityID) *ExpansionRecord {
	return l.records[id]
}

// OverflowCount returns how many ranked candidates remain buffered for id.
func (l *ExpansionLog) OverflowCount(id EntityID) int {
	rec := l.records[id]
	if rec == nil {
		return 0
	}
	return len(rec.Overflow)
}

// DrainOverflow removes and returns up to pageSize entities from the front
// of id's overflow buffer, together with their connecting edges. Paging is
// lossless: draining in pages yields the same elements in the same order as
// one full drain.
func (l *ExpansionLog) DrainOverflow(id EntityID, pageSize int) ([]*Entity, []*Edge) {
	rec := l.records[id]
	if rec == nil || pageSize <= 0 || len(rec.Overflow) == 0 {
		return nil, nil
	}
	n := pageSize
	if n > len(rec.Overflow) {
		n = len(rec.Overflow)
	}
	page := rec.Overflow[:n]
	rec.Overflow = rec.Overflow[n:]

	var edges []*Edge
	for _, ent := range page {
		edges = append(edges, rec.OverflowEdges[ent.ID]...)
		delete(rec.OverflowEdges, ent.ID)
	}
	return page, edges
}

// Reset discards all records. Called on a full session reset.
func (l *ExpansionLog) Reset() {
	l.records = make(map[EntityID]*ExpansionRecord)
	l.order = nil
}

// PathList is the ordered sequence of entity ids the user has explicitly
// chosen to trace. It may reference ids that are not adjacent (or even
// present) in the current view; the trail resolver copes.
type PathList struct {
	ids []EntityID
}

// NewPathList returns an empty path list.
func NewPathList() *PathList { return &PathList{} }

// Append adds id as the newest hop. Appending the current tail again is a
// no-op so a double-fired gesture cannot duplicate a hop.
func (p *PathList) Append(id EntityID) bool {
	if n := len(p.ids); n > 0 && p.ids[n-1] == id {
		return false
	}
	p.ids = append(p.ids, id)
	return true
}

// IDs returns a copy of the hops in order.
func (p *PathList) IDs() []EntityID {
	out := make([]EntityID, len(p.ids))
	copy(out, p.ids)
	return out
}

// Len returns the number of hops.
func (p *PathList) Len() int { return len(p.ids) }

// Contains reports whether id is one of the hops.
func (p *PathList) Contains(id EntityID) bool {
	for _, h := range p.ids {
		if h == id {
			return true
		}
	}
	return false
}

// Reset clears the path.
func (p *PathList) Reset() { p.ids = nil }
