package source

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/orneryd/bifrost/pkg/graph"
)

// Dataset is the JSON wire shape shared by the importer, the demo data and
// both source backends.
//
// Example file:
//
//	{
//	  "entities": [
//	    {"id": "BRCA1", "displayName": "BRCA1", "category": "gene"},
//	    {"id": "MIM:114480", "displayName": "Breast cancer", "category": "disease"}
//	  ],
//	  "edges": [
//	    {"sourceId": "BRCA1", "targetId": "MIM:114480",
//	     "predicateLabel": "associated_with", "provenance": "curated",
//	     "confidenceScore": 0.97, "hasConfidence": true, "paperCount": 1200}
//	  ]
//	}
//
// Edge ids are optional in the file; missing ones are generated.
type Dataset struct {
	Entities []*graph.Entity `json:"entities"`
	Edges    []*graph.Edge   `json:"edges"`
}

// LoadDataset reads and normalizes a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset parses and normalizes dataset JSON.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	ds.Normalize()
	return &ds, nil
}

// Normalize fills in defaults: unknown categories are coerced, confidence
// presence is inferred for edges that carry a score but no flag, and edges
// without an id get a generated one. Entities without an id are dropped
// (logged, not fatal).
func (ds *Dataset) Normalize() {
	kept := ds.Entities[:0]
	for _, ent := range ds.Entities {
		if ent == nil || ent.ID == "" {
			log.Printf("source: dropping entity with empty id (%q)", displayName(ent))
			continue
		}
		ent.Category = graph.ParseCategory(string(ent.Category))
		kept = append(kept, ent)
	}
	ds.Entities = kept

	for _, e := range ds.Edges {
		if e == nil {
			continue
		}
		if e.ID == "" {
			e.ID = graph.EdgeID(uuid.NewString())
		}
		if e.ConfidenceScore != 0 && !e.HasConfidence {
			e.HasConfidence = true
		}
	}
}

// Populate loads the dataset into a MemorySource.
func (ds *Dataset) Populate(s *MemorySource) {
	for _, ent := range ds.Entities {
		s.AddEntity(ent)
	}
	for _, e := range ds.Edges {
		s.AddEdge(e)
	}
}

func displayName(ent *graph.Entity) string {
	if ent == nil {
		return ""
	}
	return ent.DisplayName
}
