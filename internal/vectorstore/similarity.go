package vectorstore

import (
	"math"
	"sort"

	"vectorchat/internal/domain"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank drops hits below scoreThreshold, orders the rest by descending score
// (stable for ties) and keeps at most topK.
func Rank(hits []domain.SearchHit, topK int, scoreThreshold float64) []domain.SearchHit {
	if topK <= 0 {
		return []domain.SearchHit{}
	}
	kept := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= scoreThreshold {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}
