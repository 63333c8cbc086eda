package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"vectorchat/internal/domain"
	"vectorchat/internal/vectorstore"
)

const providerName = "pgvector"

// Storage keeps each collection in its own PostgreSQL table with a pgvector
// column. Point ids are stored in their Key form.
type Storage struct {
	db     *sql.DB
	logger *log.Logger
}

// Open connects to dsn and makes sure the vector extension is installed.
func Open(ctx context.Context, dsn string, logger *log.Logger) (*Storage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.NewProviderError(providerName, "ping", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		db.Close()
		return nil, domain.NewProviderError(providerName, "create extension", err)
	}
	return NewStorage(db, logger), nil
}

// NewStorage wraps an existing connection pool.
func NewStorage(db *sql.DB, logger *log.Logger) *Storage {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Storage{db: db, logger: logger}
}

func table(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *Storage) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, name).Scan(&exists)
	if err != nil {
		return false, domain.NewProviderError(providerName, "list collections", err)
	}
	return exists, nil
}

func (s *Storage) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return domain.NewProviderError(providerName, "create collection", fmt.Errorf("invalid dimension %d", dimension))
	}
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("using existing collection", "collection", name)
		return nil
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}'
	)`, table(name), dimension)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return domain.NewProviderError(providerName, "create collection", err)
	}
	s.logger.Info("created collection", "collection", name, "dimension", dimension)
	return nil
}

func (s *Storage) Upsert(ctx context.Context, name string, ids []domain.PointID, vectors [][]float32, payloads []domain.Payload) error {
	if err := vectorstore.CheckUpsertArgs(ids, vectors, payloads); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewProviderError(providerName, "upsert", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload`, table(name))
	for i, id := range ids {
		payload := payloads[i]
		if payload == nil {
			payload = domain.Payload{}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return domain.NewProviderError(providerName, "upsert", errors.Wrap(err, "encode payload"))
		}
		if _, err := tx.ExecContext(ctx, stmt, id.Key(), formatVector(vectors[i]), data); err != nil {
			return domain.NewProviderError(providerName, "upsert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.NewProviderError(providerName, "upsert", err)
	}
	s.logger.Info("upserted vectors", "count", len(ids), "collection", name)
	return nil
}

func (s *Storage) Search(ctx context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	query := fmt.Sprintf(`
		SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, table(name))
	rows, err := s.db.QueryContext(ctx, query, formatVector(vector), scoreThreshold, topK)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "search", err)
	}
	defer rows.Close()

	hits := []domain.SearchHit{}
	for rows.Next() {
		var (
			key     string
			raw     []byte
			score   float64
			payload domain.Payload
		)
		if err := rows.Scan(&key, &raw, &score); err != nil {
			return nil, domain.NewProviderError(providerName, "search", errors.Wrap(err, "scan row"))
		}
		id, err := domain.ParsePointKey(key)
		if err != nil {
			return nil, domain.NewProviderError(providerName, "search", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, domain.NewProviderError(providerName, "search", errors.Wrap(err, "decode payload"))
			}
		}
		hits = append(hits, domain.SearchHit{ID: id, Score: score, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewProviderError(providerName, "search", err)
	}
	s.logger.Debug("search finished", "collection", name, "hits", len(hits))
	return hits, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// formatVector renders v in pgvector text form: "[0.1,0.2,0.3]".
func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
