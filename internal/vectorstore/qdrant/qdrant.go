package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"vectorchat/internal/domain"
	"vectorchat/internal/vectorstore"
)

const (
	DefaultURL = "http://localhost:6333"

	providerName = "qdrant"
)

// Storage is a minimal REST client to Qdrant.
// Collections are created with cosine distance.
type Storage struct {
	url    string
	apiKey string
	client *http.Client
	logger *log.Logger
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Logger  *log.Logger
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Storage{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type listCollectionsResponse struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}

// ListCollections returns the names of all collections on the server.
func (s *Storage) ListCollections(ctx context.Context) ([]string, error) {
	var resp listCollectionsResponse
	if err := s.do(ctx, http.MethodGet, "/collections", "list collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Storage) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Storage) EnsureCollection(ctx context.Context, name string, dimension int) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("using existing collection", "collection", name)
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(name), "create collection", body, nil); err != nil {
		return err
	}
	s.logger.Info("created collection", "collection", name, "dimension", dimension)
	return nil
}

type point struct {
	ID      domain.PointID `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload domain.Payload `json:"payload"`
}

func (s *Storage) Upsert(ctx context.Context, name string, ids []domain.PointID, vectors [][]float32, payloads []domain.Payload) error {
	if err := vectorstore.CheckUpsertArgs(ids, vectors, payloads); err != nil {
		return err
	}
	points := make([]point, len(ids))
	for i := range ids {
		payload := payloads[i]
		if payload == nil {
			payload = domain.Payload{}
		}
		points[i] = point{ID: ids[i], Vector: vectors[i], Payload: payload}
	}
	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points", url.PathEscape(name))
	if err := s.do(ctx, http.MethodPut, path, "upsert", body, nil); err != nil {
		return err
	}
	s.logger.Info("upserted vectors", "count", len(points), "collection", name)
	return nil
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold float64   `json:"score_threshold"`
}

type searchResponse struct {
	Result []struct {
		ID      domain.PointID `json:"id"`
		Score   float64        `json:"score"`
		Payload domain.Payload `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Search(ctx context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	req := searchRequest{
		Vector:         vector,
		Limit:          topK,
		WithPayload:    true,
		ScoreThreshold: scoreThreshold,
	}
	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(name))
	if err := s.do(ctx, http.MethodPost, path, "search", req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.SearchHit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	s.logger.Debug("search finished", "collection", name, "hits", len(hits))
	// The server already filters and orders; Rank guards against a lax server.
	return vectorstore.Rank(hits, topK, scoreThreshold), nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) do(ctx context.Context, method, path, op string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.NewProviderError(providerName, op, errors.Wrap(err, "encode request"))
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return domain.NewProviderError(providerName, op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.NewProviderError(providerName, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewProviderError(providerName, op, errors.Wrap(err, "read response"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewStatusError(providerName, op, resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return domain.NewProviderError(providerName, op, errors.Wrap(err, "decode response"))
		}
	}
	return nil
}
