package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/bifrost/pkg/graph"
)

const sampleJSON = `{
  "entities": [
    {"id": "BRCA1", "displayName": "BRCA1", "category": "gene"},
    {"id": "X1", "displayName": "Mystery", "category": "quasar"},
    {"id": "", "displayName": "nameless"}
  ],
  "edges": [
    {"id": "e1", "sourceId": "BRCA1", "targetId": "X1",
     "predicateLabel": "related_to", "confidenceScore": 0.8},
    {"sourceId": "X1", "targetId": "BRCA1", "predicateLabel": "related_to"}
  ]
}`

func TestParseDataset(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleJSON))
	require.NoError(t, err)

	t.Run("entities without an id are dropped", func(t *testing.T) {
		require.Len(t, ds.Entities, 2)
	})

	t.Run("unknown categories coerce to unknown", func(t *testing.T) {
		assert.Equal(t, graph.CategoryGene, ds.Entities[0].Category)
		assert.Equal(t, graph.CategoryUnknown, ds.Entities[1].Category)
	})

	t.Run("confidence presence inferred from a nonzero score", func(t *testing.T) {
		assert.True(t, ds.Edges[0].HasConfidence)
		assert.False(t, ds.Edges[1].HasConfidence)
	})

	t.Run("missing edge ids are generated", func(t *testing.T) {
		assert.Equal(t, graph.EdgeID("e1"), ds.Edges[0].ID)
		assert.NotEmpty(t, ds.Edges[1].ID)
		assert.NotEqual(t, ds.Edges[0].ID, ds.Edges[1].ID)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseDataset([]byte("{nope"))
		assert.Error(t, err)
	})
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ds.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Len(t, ds.Entities, 2)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestDatasetPopulate(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleJSON))
	require.NoError(t, err)

	s := NewMemorySource()
	ds.Populate(s)

	res, err := s.Query(context.Background(), "BRCA1")
	require.NoError(t, err)
	assert.Equal(t, graph.EntityID("BRCA1"), res.CenterID)
	assert.Len(t, res.Edges, 2)
}
