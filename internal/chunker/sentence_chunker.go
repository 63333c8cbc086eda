package chunker

import (
	"strings"

	"vectorchat/internal/domain"
)

// DefaultMaxSentences is the chunk size used when none is configured.
const DefaultMaxSentences = 3

// SentenceChunker groups sentences into fixed-size chunks.
type SentenceChunker struct {
	maxSentences int
}

func NewSentenceChunker(maxSentences int) *SentenceChunker {
	if maxSentences <= 0 {
		maxSentences = 1
	}
	return &SentenceChunker{maxSentences: maxSentences}
}

// Chunk splits text into chunks of at most maxSentences sentences and tags each
// one with its position. Empty input yields no chunks.
func (c *SentenceChunker) Chunk(text, source string) []domain.Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	groups := make([]string, 0, (len(sentences)+c.maxSentences-1)/c.maxSentences)
	for i := 0; i < len(sentences); i += c.maxSentences {
		end := i + c.maxSentences
		if end > len(sentences) {
			end = len(sentences)
		}
		groups = append(groups, strings.Join(sentences[i:end], " "))
	}

	chunks := make([]domain.Chunk, len(groups))
	for i, g := range groups {
		chunks[i] = domain.Chunk{
			Text:   g,
			Source: source,
			Index:  i,
			Total:  len(groups),
		}
	}
	return chunks
}

// Chunk is shorthand for NewSentenceChunker(maxSentences).Chunk(text, source).
func Chunk(text string, maxSentences int, source string) []domain.Chunk {
	return NewSentenceChunker(maxSentences).Chunk(text, source)
}

// SplitSentences splits text on '.', '?' and '!'. Text is scanned line by line:
// blank lines are ignored and an unterminated tail of a line becomes its own
// sentence. Sentences are trimmed.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, r := range line {
			current.WriteRune(r)
			if r == '.' || r == '?' || r == '!' {
				flush()
			}
		}
		flush()
	}
	return sentences
}
