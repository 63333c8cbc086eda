package retrieval

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"vectorchat/internal/domain"
	"vectorchat/internal/embedding"
	"vectorchat/internal/vectorstore"
)

const (
	DefaultTopK           = 3
	DefaultScoreThreshold = 0.3
)

// Retriever turns a query into a formatted context block drawn from one collection.
type Retriever struct {
	embedder   embedding.Embedder
	store      vectorstore.Storage
	collection string
	logger     *log.Logger
}

func New(embedder embedding.Embedder, store vectorstore.Storage, collection string, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		logger:     logger,
	}
}

// RetrieveContext embeds query, searches the collection and formats the hits.
// found is false only when the search returned no hits.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, topK int, scoreThreshold float64) (string, bool, error) {
	r.logger.Info("🔍 Searching for relevant information...")
	vec, err := embedding.Embed(ctx, r.embedder, query)
	if err != nil {
		return "", false, errors.Wrap(err, "embed query")
	}

	hits, err := r.store.Search(ctx, r.collection, vec, topK, scoreThreshold)
	if err != nil {
		return "", false, errors.Wrap(err, "search context")
	}
	if len(hits) == 0 {
		r.logger.Info("🔍 No relevant context found")
		return "", false, nil
	}

	r.logger.Info("📚 Found relevant context chunks", "count", len(hits))
	return FormatHits(hits), true, nil
}

// FormatHits renders hits as numbered context entries separated by blank lines.
// Hits without chunk text are skipped but keep their rank number.
func FormatHits(hits []domain.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		text, ok := hit.Payload.String(domain.PayloadChunkText)
		if !ok {
			continue
		}

		sourceInfo := " (from unknown source)"
		if source, ok := hit.Payload.String(domain.PayloadSource); ok {
			sourceInfo = fmt.Sprintf(" (from %s)", source)
		}

		modelInfo := ""
		if model, ok := hit.Payload.String(domain.PayloadModelName); ok {
			modelInfo = fmt.Sprintf(" [model: %s]", model)
		}

		parts = append(parts, fmt.Sprintf("Context %d (Relevance: %.2f)%s%s: %s",
			i+1, hit.Score, sourceInfo, modelInfo, text))
	}
	return strings.Join(parts, "\n\n")
}
