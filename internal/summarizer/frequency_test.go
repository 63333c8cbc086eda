package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizePicksFrequentSentences(t *testing.T) {
	text := "Vectors store meaning. Vectors power search over vectors. The weather was mild. Search uses vectors and meaning."
	s := NewFrequencySummarizer(2)

	got := s.Summarize(text)
	assert.Equal(t, "Vectors power search over vectors. Search uses vectors and meaning.", got)
}

func TestSummarizeShortText(t *testing.T) {
	s := NewFrequencySummarizer(5)
	assert.Equal(t, "Only one.", s.Summarize("Only one."))
	assert.Equal(t, "no punctuation here", s.Summarize("  no punctuation here  "))
	assert.Empty(t, s.Summarize("   \n\n "))
}

func TestSummarizeStopwordsOnly(t *testing.T) {
	s := NewFrequencySummarizer(1)
	assert.Equal(t, "It is.", s.Summarize("It is. So it was."))
}

func TestDefaultMaxSentences(t *testing.T) {
	assert.Equal(t, DefaultMaxSentences, NewFrequencySummarizer(0).maxSentences)
}
