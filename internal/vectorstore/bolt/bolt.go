package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"vectorchat/internal/domain"
	"vectorchat/internal/vectorstore"
)

const providerName = "bolt"

var (
	bucketCollections = []byte("collections")
	bucketPoints      = []byte("points")
	keyDimension      = []byte("dimension")
)

// Storage keeps collections in a single bbolt file and searches them by
// brute-force cosine similarity.
type Storage struct {
	db     *bbolt.DB
	logger *log.Logger
}

type record struct {
	ID      domain.PointID `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload domain.Payload `json:"payload"`
}

func NewStorage(path string, logger *log.Logger) (*Storage, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, domain.NewProviderError(providerName, "open", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, domain.NewProviderError(providerName, "open", err)
	}

	return &Storage{db: db, logger: logger}, nil
}

// ListCollections returns the stored collection names in key order.
func (s *Storage) ListCollections(_ context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(k, v []byte) error {
			// nested buckets have nil values
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, domain.NewProviderError(providerName, "list collections", err)
	}
	return names, nil
}

func (s *Storage) CollectionExists(_ context.Context, name string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketCollections).Bucket([]byte(name)) != nil
		return nil
	})
	if err != nil {
		return false, domain.NewProviderError(providerName, "list collections", err)
	}
	return ok, nil
}

func (s *Storage) EnsureCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return domain.NewProviderError(providerName, "create collection", fmt.Errorf("invalid dimension %d", dimension))
	}
	created := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		if root.Bucket([]byte(name)) != nil {
			return nil
		}
		b, err := root.CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		if _, err := b.CreateBucket(bucketPoints); err != nil {
			return err
		}
		dim := make([]byte, 8)
		binary.BigEndian.PutUint64(dim, uint64(dimension))
		created = true
		return b.Put(keyDimension, dim)
	})
	if err != nil {
		return domain.NewProviderError(providerName, "create collection", err)
	}
	if created {
		s.logger.Info("created collection", "collection", name, "dimension", dimension)
	} else {
		s.logger.Info("using existing collection", "collection", name)
	}
	return nil
}

func collection(tx *bbolt.Tx, name, op string) (*bbolt.Bucket, int, error) {
	b := tx.Bucket(bucketCollections).Bucket([]byte(name))
	if b == nil {
		return nil, 0, domain.NewStatusError(providerName, op, 404, fmt.Sprintf("collection %q not found", name))
	}
	raw := b.Get(keyDimension)
	if len(raw) != 8 {
		return nil, 0, domain.NewProviderError(providerName, op, errors.Errorf("collection %q has no dimension", name))
	}
	return b, int(binary.BigEndian.Uint64(raw)), nil
}

func (s *Storage) Upsert(_ context.Context, name string, ids []domain.PointID, vectors [][]float32, payloads []domain.Payload) error {
	if err := vectorstore.CheckUpsertArgs(ids, vectors, payloads); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, dimension, err := collection(tx, name, "upsert")
		if err != nil {
			return err
		}
		points := b.Bucket(bucketPoints)
		for i, id := range ids {
			if len(vectors[i]) != dimension {
				return domain.NewStatusError(providerName, "upsert", 400,
					fmt.Sprintf("vector dimension %d does not match collection dimension %d", len(vectors[i]), dimension))
			}
			data, err := json.Marshal(record{ID: id, Vector: vectors[i], Payload: payloads[i]})
			if err != nil {
				return domain.NewProviderError(providerName, "upsert", errors.Wrap(err, "encode point"))
			}
			if err := points.Put([]byte(id.Key()), data); err != nil {
				return domain.NewProviderError(providerName, "upsert", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("upserted vectors", "count", len(ids), "collection", name)
	return nil
}

func (s *Storage) Search(_ context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error) {
	var hits []domain.SearchHit
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, dimension, err := collection(tx, name, "search")
		if err != nil {
			return err
		}
		if len(vector) != dimension {
			return domain.NewStatusError(providerName, "search", 400,
				fmt.Sprintf("vector dimension %d does not match collection dimension %d", len(vector), dimension))
		}
		return b.Bucket(bucketPoints).ForEach(func(_, v []byte) error {
			var r record
			if err := json.Unmarshal(v, &r); err != nil {
				return domain.NewProviderError(providerName, "search", errors.Wrap(err, "decode point"))
			}
			hits = append(hits, domain.SearchHit{
				ID:      r.ID,
				Score:   vectorstore.CosineSimilarity(vector, r.Vector),
				Payload: r.Payload,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	hits = vectorstore.Rank(hits, topK, scoreThreshold)
	s.logger.Debug("search finished", "collection", name, "hits", len(hits))
	return hits, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
