package hashing

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"vectorchat/internal/textutil"
)

// DefaultDimension is used when no dimension is configured.
const DefaultDimension = 512

// ModelName is recorded in payloads of points embedded by this embedder.
const ModelName = "hashing-tf"

// Embedder is an offline embedder using signed feature hashing over term
// frequencies. Vectors are L2-normalized so cosine scores match dot products.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder producing vectors of the given size.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Model returns the identifier of this embedder implementation.
func (e *Embedder) Model() string { return ModelName }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedBatch embeds every text independently.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	acc := make([]float64, e.dimension)
	tokens := textutil.ContentTokens(text)
	if len(tokens) == 0 {
		return make([]float32, e.dimension)
	}
	tf := 1.0 / float64(len(tokens))
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := int(h % uint64(e.dimension))
		// top bit picks the sign so collisions tend to cancel
		if h>>63 == 1 {
			acc[idx] -= tf
		} else {
			acc[idx] += tf
		}
	}
	// L2 normalize
	norm := 0.0
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}
