// Package source defines the Graph Query Service: the external collaborator
// that turns a text query or an entity id into sets of entities and edges.
//
// The exploration core treats the service as opaque; how results are
// computed (an index, a remote API, a disk store) is irrelevant to it. Two
// reference implementations ship here:
//
//   - MemorySource: thread-safe in-memory dataset. Fast cleanup, no I/O —
//     the workhorse for tests and the bundled demo dataset.
//   - BadgerSource: persistent dataset on dgraph-io/badger, so a real graph
//     can be imported once and explored across runs.
//
// Both back their queries with a 1-hop neighborhood: Query finds the best
// name match and returns it with its immediate neighbors; Expand returns
// the neighbors of one node. The engine — not the source — decides which
// of those candidates are actually revealed.
package source

import (
	"context"
	"errors"

	"github.com/orneryd/bifrost/pkg/graph"
)

// Common errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrNoMatch      = errors.New("no entity matches query")
	ErrSourceClosed = errors.New("source closed")
)

// QueryResult is the payload of a fresh text query: a center node plus its
// initial neighborhood. It replaces the visible graph wholesale.
type QueryResult struct {
	CenterID graph.EntityID
	Entities []*graph.Entity
	Edges    []*graph.Edge
}

// ExpandResult is the payload of a node expansion: candidate neighbors and
// their connecting edges, to be merged (never replacing anything).
type ExpandResult struct {
	Entities []*graph.Entity
	Edges    []*graph.Edge
}

// Source is the Graph Query Service interface consumed by the exploration
// session. Both calls are I/O-bound and must honor ctx cancellation.
type Source interface {
	// Query resolves free text to a center entity and its neighborhood.
	// Returns ErrNoMatch when nothing matches.
	Query(ctx context.Context, text string) (*QueryResult, error)

	// Expand returns the 1-hop neighbors of id, including already-visible
	// ones; the caller filters. Returns ErrNotFound for an unknown id.
	Expand(ctx context.Context, id graph.EntityID) (*ExpandResult, error)

	// Close releases any resources held by the source.
	Close() error
}
