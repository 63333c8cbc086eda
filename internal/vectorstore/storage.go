package vectorstore

import (
	"context"

	"github.com/pkg/errors"

	"vectorchat/internal/domain"
)

// Storage persists points in named collections and supports similarity search.
type Storage interface {
	// EnsureCollection creates name with cosine distance if it does not exist.
	// The dimension of an existing collection is not checked.
	EnsureCollection(ctx context.Context, name string, dimension int) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	// Upsert writes points, overwriting any point with the same id.
	Upsert(ctx context.Context, name string, ids []domain.PointID, vectors [][]float32, payloads []domain.Payload) error
	// Search returns at most topK hits scoring at least scoreThreshold, best first.
	Search(ctx context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error)
	Close() error
}

// CheckUpsertArgs reports an argument error unless all slices have the same length.
func CheckUpsertArgs(ids []domain.PointID, vectors [][]float32, payloads []domain.Payload) error {
	if len(ids) != len(vectors) || len(ids) != len(payloads) {
		return errors.Wrapf(domain.ErrArgument,
			"ids (%d), vectors (%d) and payloads (%d) must have the same length",
			len(ids), len(vectors), len(payloads))
	}
	return nil
}
