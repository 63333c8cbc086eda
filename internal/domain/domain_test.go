package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointIDJSON(t *testing.T) {
	data, err := json.Marshal([]PointID{NumericID(42), TextualID("5c56c793-69f3-4fbf-87e6-c4bf54c28c26")})
	require.NoError(t, err)
	assert.JSONEq(t, `[42, "5c56c793-69f3-4fbf-87e6-c4bf54c28c26"]`, string(data))

	var ids []PointID
	require.NoError(t, json.Unmarshal([]byte(`[18446744073709551615, "abc"]`), &ids))
	require.Len(t, ids, 2)

	n, ok := ids[0].Numeric()
	assert.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), n)

	s, ok := ids[1].Textual()
	assert.True(t, ok)
	assert.Equal(t, "abc", s)
}

func TestPointIDForms(t *testing.T) {
	num, text := NumericID(7), TextualID("7")
	assert.False(t, num.IsTextual())
	assert.True(t, text.IsTextual())
	assert.Equal(t, num.String(), text.String())
	assert.NotEqual(t, num.Key(), text.Key())

	var zero PointID
	assert.False(t, zero.IsTextual())
	assert.Equal(t, NumericID(0), zero)
}

func TestPointIDRejectsGarbage(t *testing.T) {
	var id PointID
	assert.Error(t, json.Unmarshal([]byte(`-3`), &id))
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestPointKeyRoundTrip(t *testing.T) {
	for _, id := range []PointID{NumericID(0), NumericID(7), TextualID("7"), TextualID("")} {
		got, err := ParsePointKey(id.Key())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	_, err := ParsePointKey("x:1")
	assert.Error(t, err)
	_, err = ParsePointKey("n:abc")
	assert.Error(t, err)
}

func TestChunkPayload(t *testing.T) {
	c := Chunk{Text: "A. B.", Source: "doc.txt", Index: 0, Total: 2}

	p := c.Payload("")
	assert.Equal(t, "A. B.", p[PayloadChunkText])
	assert.Equal(t, "doc.txt", p[PayloadSource])
	assert.Equal(t, 0, p[PayloadChunkIndex])
	assert.Equal(t, 2, p[PayloadTotalChunks])
	assert.NotContains(t, p, PayloadModelName)

	p = c.Payload("text-embedding-3-small")
	model, ok := p.String(PayloadModelName)
	assert.True(t, ok)
	assert.Equal(t, "text-embedding-3-small", model)
}

func TestProviderErrorMatching(t *testing.T) {
	err := fmt.Errorf("search: %w", NewStatusError("qdrant", "search", 404, `{"status":"not found"}`))
	assert.True(t, errors.Is(err, ErrProvider))
	assert.False(t, errors.Is(err, ErrArgument))
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), `{"status":"not found"}`)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 404, pe.StatusCode)
}
