package vectorstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"vectorchat/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestRank(t *testing.T) {
	hits := []domain.SearchHit{
		{ID: domain.NumericID(1), Score: 0.2},
		{ID: domain.NumericID(2), Score: 0.9},
		{ID: domain.NumericID(3), Score: 0.5},
		{ID: domain.NumericID(4), Score: 0.5},
		{ID: domain.NumericID(5), Score: 0.3},
	}

	got := Rank(hits, 3, 0.3)
	var ids []string
	for _, h := range got {
		ids = append(ids, h.ID.String())
		assert.GreaterOrEqual(t, h.Score, 0.3)
	}
	assert.Equal(t, []string{"2", "3", "4"}, ids)

	assert.Empty(t, Rank(hits, 3, 0.95))
	assert.NotNil(t, Rank(hits, 3, 0.95))
	assert.Empty(t, Rank(hits, 0, 0))
	assert.Len(t, Rank(hits, 10, 0), 5)
}

func TestCheckUpsertArgs(t *testing.T) {
	ids := []domain.PointID{domain.NumericID(1)}
	vecs := [][]float32{{1}}
	payloads := []domain.Payload{{}}

	assert.NoError(t, CheckUpsertArgs(ids, vecs, payloads))
	assert.NoError(t, CheckUpsertArgs(nil, nil, nil))

	err := CheckUpsertArgs(ids, vecs, nil)
	assert.True(t, errors.Is(err, domain.ErrArgument))
	err = CheckUpsertArgs(ids, [][]float32{{1}, {2}}, payloads)
	assert.True(t, errors.Is(err, domain.ErrArgument))
}
