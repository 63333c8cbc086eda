package embedding

import "context"

// Embedder converts texts into fixed-dimension vectors, one per input, in order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the length of every vector produced by the configured model.
	Dimension() int
	// Model names the embedding model; it is recorded in stored payloads.
	Model() string
}

// DefaultDimension is assumed for models missing from ModelDimensions.
const DefaultDimension = 1536

// ModelDimensions lists the vector sizes of known embedding models.
var ModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// DimensionFor returns the vector size of model, falling back to DefaultDimension.
func DimensionFor(model string) int {
	if d, ok := ModelDimensions[model]; ok {
		return d
	}
	return DefaultDimension
}

// Embed embeds a single text.
func Embed(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errNoVector
	}
	return vecs[0], nil
}
