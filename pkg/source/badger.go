package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/bifrost/pkg/graph"
)

// Key prefixes for BadgerDB storage organization.
// Single-byte prefixes keep keys short and prefix scans cheap.
const (
	prefixEntity   = byte(0x01) // entity id -> Entity JSON
	prefixEdge     = byte(0x02) // edge id -> Edge JSON
	prefixIncident = byte(0x03) // entity id + 0x00 + edge id -> nothing
)

// BadgerSource is a persistent Graph Query Service on dgraph-io/badger.
//
// Entities and edges are stored as JSON values under typed key prefixes; an
// incidence index (entity id -> edge ids) makes Expand a prefix scan plus
// point reads instead of a full edge sweep. Name matching for Query scans
// the entity prefix, which is fine at the dataset sizes an interactive
// explorer handles.
//
// Example:
//
//	src, err := source.OpenBadger("./data", false)
//	if err != nil { ... }
//	defer src.Close()
//
//	res, err := src.Query(ctx, "BRCA1")
type BadgerSource struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a badger-backed source at dir.
// inMemory selects badger's in-memory mode, useful for tests.
func OpenBadger(dir string, inMemory bool) (*BadgerSource, error) {
	opts := badger.DefaultOptions(dir)
	if inMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil) // badger's own logger is too chatty for a TUI
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", dir, err)
	}
	return &BadgerSource{db: db}, nil
}

// Import writes a whole dataset in batches.
func (s *BadgerSource) Import(ds *Dataset) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, ent := range ds.Entities {
		data, err := json.Marshal(ent)
		if err != nil {
			return fmt.Errorf("marshaling entity %s: %w", ent.ID, err)
		}
		if err := wb.Set(entityKey(ent.ID), data); err != nil {
			return err
		}
	}
	for _, e := range ds.Edges {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling edge %s: %w", e.ID, err)
		}
		if err := wb.Set(edgeKey(e.ID), data); err != nil {
			return err
		}
		if err := wb.Set(incidentKey(e.SourceID, e.ID), nil); err != nil {
			return err
		}
		if e.SourceID != e.TargetID {
			if err := wb.Set(incidentKey(e.TargetID, e.ID), nil); err != nil {
				return err
			}
		}
	}
	return wb.Flush()
}

// Query scans entities for the best case-insensitive name match and returns
// its 1-hop neighborhood.
func (s *BadgerSource) Query(ctx context.Context, text string) (*QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil, ErrNoMatch
	}

	type match struct {
		ent  *graph.Entity
		rank int
	}
	var matches []match

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixEntity}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ent graph.Entity
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ent)
			}); err != nil {
				return err
			}
			name := strings.ToLower(ent.DisplayName)
			id := strings.ToLower(string(ent.ID))
			e := ent
			switch {
			case name == needle || id == needle:
				matches = append(matches, match{&e, 0})
			case strings.HasPrefix(name, needle):
				matches = append(matches, match{&e, 1})
			case strings.Contains(name, needle):
				matches = append(matches, match{&e, 2})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoMatch
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
	center := matches[0].ent

	entities, edges, err := s.neighborhood(center.ID)
	if err != nil {
		return nil, err
	}
	return &QueryResult{CenterID: center.ID, Entities: entities, Edges: edges}, nil
}

// Expand returns the 1-hop neighborhood of id.
func (s *BadgerSource) Expand(ctx context.Context, id graph.EntityID) (*ExpandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.getEntity(id); err != nil {
		return nil, err
	}
	entities, edges, err := s.neighborhood(id)
	if err != nil {
		return nil, err
	}
	return &ExpandResult{Entities: entities, Edges: edges}, nil
}

// Close closes the underlying badger database.
func (s *BadgerSource) Close() error {
	return s.db.Close()
}

func (s *BadgerSource) getEntity(id graph.EntityID) (*graph.Entity, error) {
	var ent graph.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ent)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

// neighborhood collects id, its neighbors and the connecting edges via the
// incidence index. Edges whose far endpoint is missing are skipped.
func (s *BadgerSource) neighborhood(id graph.EntityID) ([]*graph.Entity, []*graph.Edge, error) {
	var entities []*graph.Entity
	var edges []*graph.Edge

	err := s.db.View(func(txn *badger.Txn) error {
		center, err := readEntity(txn, id)
		if err != nil {
			return err
		}
		entities = append(entities, center)
		seen := map[graph.EntityID]struct{}{id: {}}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := incidentPrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			edgeID := graph.EdgeID(it.Item().Key()[len(prefix):])
			edge, err := readEdge(txn, edgeID)
			if err != nil {
				continue // index pointing at a deleted edge: ignore
			}
			other, _ := edge.Other(id)
			ent, err := readEntity(txn, other)
			if err != nil {
				continue // missing far endpoint: never surface the edge
			}
			edges = append(edges, edge)
			if _, dup := seen[other]; !dup {
				seen[other] = struct{}{}
				entities = append(entities, ent)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return entities, edges, nil
}

func readEntity(txn *badger.Txn, id graph.EntityID) (*graph.Entity, error) {
	item, err := txn.Get(entityKey(id))
	if err != nil {
		return nil, err
	}
	var ent graph.Entity
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &ent)
	}); err != nil {
		return nil, err
	}
	return &ent, nil
}

func readEdge(txn *badger.Txn, id graph.EdgeID) (*graph.Edge, error) {
	item, err := txn.Get(edgeKey(id))
	if err != nil {
		return nil, err
	}
	var edge graph.Edge
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &edge)
	}); err != nil {
		return nil, err
	}
	return &edge, nil
}

// entityKey creates the storage key for an entity.
func entityKey(id graph.EntityID) []byte {
	return append([]byte{prefixEntity}, []byte(id)...)
}

// edgeKey creates the storage key for an edge.
func edgeKey(id graph.EdgeID) []byte {
	return append([]byte{prefixEdge}, []byte(id)...)
}

// incidentKey creates the incidence-index key entity+0x00+edge.
func incidentKey(entity graph.EntityID, edge graph.EdgeID) []byte {
	key := append([]byte{prefixIncident}, []byte(entity)...)
	key = append(key, 0x00)
	return append(key, []byte(edge)...)
}

// incidentPrefix returns the scan prefix for an entity's incident edges.
func incidentPrefix(entity graph.EntityID) []byte {
	key := append([]byte{prefixIncident}, []byte(entity)...)
	return append(key, 0x00)
}
