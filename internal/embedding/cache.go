package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

var errNoVector = errors.New("embedder returned no vector")

// CachedEmbedder memoizes vectors by exact text. Only misses reach the
// wrapped embedder, in a single batch that keeps input order.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, errors.Wrap(err, "create embedding cache")
	}
	return &CachedEmbedder{inner: inner, cache: c}, nil
}

func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *CachedEmbedder) Model() string { return c.inner.Model() }

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, errors.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, i := range missingIdx {
		out[i] = vecs[j]
		c.cache.Add(missing[j], vecs[j])
	}
	return out, nil
}

// Len reports the number of cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }
