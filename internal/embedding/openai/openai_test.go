package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorchat/internal/domain"
)

// newEchoServer answers each input "t-<n>" with the vector [n].
func newEchoServer(t *testing.T, requests *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.LessOrEqual(t, len(req.Input), DefaultBatchSize)

		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			n, err := strconv.Atoi(strings.TrimPrefix(in, "t-"))
			require.NoError(t, err)
			data[i] = map[string]any{"embedding": []float32{float32(n)}, "index": i}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, APIKey: "sk-test"})
	require.NoError(t, err)
	return c
}

func TestEmbedBatchBoundaries(t *testing.T) {
	for _, k := range []int{DefaultBatchSize - 1, DefaultBatchSize, DefaultBatchSize + 1} {
		t.Run(strconv.Itoa(k), func(t *testing.T) {
			var requests int32
			srv := newEchoServer(t, &requests)
			c := newTestClient(t, srv.URL)

			texts := make([]string, k)
			for i := range texts {
				texts[i] = fmt.Sprintf("t-%d", i)
			}

			vecs, err := c.EmbedBatch(context.Background(), texts)
			require.NoError(t, err)
			require.Len(t, vecs, k)
			for i, v := range vecs {
				assert.Equal(t, []float32{float32(i)}, v)
			}

			wantRequests := (k + DefaultBatchSize - 1) / DefaultBatchSize
			assert.Equal(t, int32(wantRequests), atomic.LoadInt32(&requests))
		})
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	var requests int32
	srv := newEchoServer(t, &requests)
	c := newTestClient(t, srv.URL)

	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, atomic.LoadInt32(&requests))
}

func TestEmbedBatchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).EmbedBatch(context.Background(), []string{"t-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))
	assert.Contains(t, err.Error(), "Incorrect API key provided")

	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestEmbedBatchFailureAbortsWholeCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range data {
			data[i] = map[string]any{"embedding": []float32{1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	texts := make([]string, DefaultBatchSize*3)
	vecs, err := newTestClient(t, srv.URL).EmbedBatch(context.Background(), texts)
	assert.Error(t, err)
	assert.Nil(t, vecs)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "no retry and no further batches")
}

func TestEmbedBatchMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": "nope"`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).EmbedBatch(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).EmbedBatch(context.Background(), []string{"a", "b"})
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestNewClientDimension(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, c.Dimension())
	assert.Equal(t, "text-embedding-3-large", c.Model())

	c, err = NewClient(Config{APIKey: "k", Model: "custom-model"})
	require.NoError(t, err)
	assert.Equal(t, 1536, c.Dimension())
}
