package summarizer

import (
	"math"
	"sort"
	"strings"

	"vectorchat/internal/chunker"
	"vectorchat/internal/textutil"
)

const DefaultMaxSentences = 3

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	maxSentences int
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer(maxSentences int) *FrequencySummarizer {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &FrequencySummarizer{maxSentences: maxSentences}
}

// Summarize returns the highest scoring sentences of text in their original order.
func (s *FrequencySummarizer) Summarize(text string) string {
	sentences := chunker.SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = textutil.ContentTokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, toks := range tokens {
		sscore := 0.0
		for _, tok := range toks {
			sscore += freq[tok] / maxF
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(s.maxSentences, len(scores))
	selected := make([]int, n)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, n)
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}
