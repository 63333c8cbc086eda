package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"vectorchat/internal/domain"
	"vectorchat/internal/vectorstore"
)

const providerName = "memory"

type collection struct {
	dimension int
	points    map[string]domain.StoredPoint
}

// Storage is an in-process vector store using brute-force cosine similarity.
// Its contents do not outlive the process.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) EnsureCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return domain.NewProviderError(providerName, "create collection", fmt.Errorf("invalid dimension %d", dimension))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &collection{dimension: dimension, points: make(map[string]domain.StoredPoint)}
	}
	return nil
}

// ListCollections returns the collection names in sorted order.
func (s *Storage) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Storage) Upsert(_ context.Context, name string, ids []domain.PointID, vectors [][]float32, payloads []domain.Payload) error {
	if err := vectorstore.CheckUpsertArgs(ids, vectors, payloads); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.NewStatusError(providerName, "upsert", 404, fmt.Sprintf("collection %q not found", name))
	}
	for _, v := range vectors {
		if len(v) != c.dimension {
			return domain.NewStatusError(providerName, "upsert", 400,
				fmt.Sprintf("vector dimension %d does not match collection dimension %d", len(v), c.dimension))
		}
	}
	for i, id := range ids {
		c.points[id.Key()] = domain.StoredPoint{
			ID:      id,
			Vector:  append([]float32(nil), vectors[i]...),
			Payload: maps.Clone(payloads[i]),
		}
	}
	return nil
}

func (s *Storage) Search(_ context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, domain.NewStatusError(providerName, "search", 404, fmt.Sprintf("collection %q not found", name))
	}
	if len(vector) != c.dimension {
		return nil, domain.NewStatusError(providerName, "search", 400,
			fmt.Sprintf("vector dimension %d does not match collection dimension %d", len(vector), c.dimension))
	}
	hits := make([]domain.SearchHit, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, domain.SearchHit{
			ID:      p.ID,
			Score:   vectorstore.CosineSimilarity(vector, p.Vector),
			Payload: maps.Clone(p.Payload),
		})
	}
	return vectorstore.Rank(hits, topK, scoreThreshold), nil
}

// Count returns the number of points in the collection.
func (s *Storage) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

func (s *Storage) Close() error { return nil }
