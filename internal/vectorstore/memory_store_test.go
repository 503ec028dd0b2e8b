package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(zap.NewNop())
	require.NoError(t, store.AddBatch([]Snippet{
		{ID: "v/multiples", Category: "valorisation", Title: "Multiples", Content: "4x à 7x l'EBITDA", Vector: []float64{1, 0, 0}},
		{ID: "v/risques", Category: "valorisation", Title: "Risques", Content: "concentration client", Vector: []float64{0.9, 0.1, 0}},
		{ID: "n/objections", Category: "negociation", Title: "Objections", Content: "reformuler avant de répondre", Vector: []float64{0, 1, 0}},
		{ID: "r/parcours", Category: "reprise", Title: "Parcours", Content: "LOI puis due diligence"},
	}))
	return store
}

func TestSearch(t *testing.T) {
	store := seedStore(t)

	t.Run("按相似度降序截取 TopK", func(t *testing.T) {
		results := store.Search([]float64{1, 0, 0}, 2, 0.3)

		require.Len(t, results, 2)
		assert.Equal(t, "v/multiples", results[0].Snippet.ID)
		assert.Equal(t, "v/risques", results[1].Snippet.ID)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("低于阈值的被过滤", func(t *testing.T) {
		results := store.Search([]float64{0, 1, 0}, 10, 0.5)

		require.Len(t, results, 1)
		assert.Equal(t, "n/objections", results[0].Snippet.ID)
	})

	t.Run("无向量片段不参与检索", func(t *testing.T) {
		results := store.Search([]float64{1, 1, 1}, 10, 0)
		for _, r := range results {
			assert.NotEqual(t, "r/parcours", r.Snippet.ID)
		}
	})
}

func TestByCategory(t *testing.T) {
	store := seedStore(t)

	grouped := store.ByCategory()

	require.Len(t, grouped, 3)
	require.Len(t, grouped["valorisation"], 2)
	// 分类内按标题升序
	assert.Equal(t, "Multiples", grouped["valorisation"][0].Title)
	assert.Equal(t, "Risques", grouped["valorisation"][1].Title)
	// 无向量片段也参与分组
	assert.Len(t, grouped["reprise"], 1)
}

func TestAddRejectsEmptyID(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())

	assert.Error(t, store.Add(Snippet{Category: "valorisation"}))
	assert.Zero(t, store.Count())
}

func TestClear(t *testing.T) {
	store := seedStore(t)
	require.Equal(t, 4, store.Count())

	store.Clear()
	assert.Zero(t, store.Count())
}
