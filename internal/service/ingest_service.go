package service

import (
	"context"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"vectorchat/internal/chunker"
	"vectorchat/internal/domain"
	"vectorchat/internal/embedding"
	"vectorchat/internal/summarizer"
	"vectorchat/internal/vectorstore"
)

const previewChunks = 5
const previewChars = 50

// ErrNoChunks is returned when the input text produced no chunks.
var ErrNoChunks = errors.New("no chunks generated from text")

type IngestOptions struct {
	Collection       string
	MaxSentences     int
	SummarySentences int
	Logger           *log.Logger
}

// IngestResult describes one completed ingest.
type IngestResult struct {
	Source     string
	Collection string
	Chunks     []domain.Chunk
	IDs        []domain.PointID
	Summary    string
}

// IngestService chunks text, embeds the chunks and upserts them into a collection.
type IngestService struct {
	chunker    *chunker.SentenceChunker
	embedder   embedding.Embedder
	store      vectorstore.Storage
	summarizer *summarizer.FrequencySummarizer
	collection string
	logger     *log.Logger
}

func NewIngestService(embedder embedding.Embedder, store vectorstore.Storage, opts IngestOptions) *IngestService {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &IngestService{
		chunker:    chunker.NewSentenceChunker(opts.MaxSentences),
		embedder:   embedder,
		store:      store,
		summarizer: summarizer.NewFrequencySummarizer(opts.SummarySentences),
		collection: opts.Collection,
		logger:     logger,
	}
}

// PointIDFor derives a stable id from the source name and chunk index, so
// re-ingesting a source overwrites its earlier points.
func PointIDFor(source string, index int) domain.PointID {
	return domain.NumericID(xxhash.Sum64String(source + "#" + strconv.Itoa(index)))
}

// IngestFile reads path and ingests its content under the file's base name.
func (s *IngestService) IngestFile(ctx context.Context, path string) (IngestResult, error) {
	content, source, err := chunker.ReadFile(path)
	if err != nil {
		return IngestResult{}, err
	}
	return s.Ingest(ctx, content, source)
}

// Ingest embeds text under source. The collection is created with the
// embedder's dimension if it does not exist.
func (s *IngestService) Ingest(ctx context.Context, text, source string) (IngestResult, error) {
	chunks := s.chunker.Chunk(text, source)
	if len(chunks) == 0 {
		return IngestResult{}, ErrNoChunks
	}

	s.logger.Info("text chunked", "segments", len(chunks), "source", source)
	for i, ch := range chunks {
		if i == previewChunks {
			break
		}
		s.logger.Info("chunk preview", "n", i+1, "text", preview(ch.Text))
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	model := s.embedder.Model()
	s.logger.Info("generating embeddings", "model", model)
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return IngestResult{}, errors.Wrap(err, "embed chunks")
	}

	if err := s.store.EnsureCollection(ctx, s.collection, s.embedder.Dimension()); err != nil {
		return IngestResult{}, errors.Wrap(err, "ensure collection")
	}

	ids := make([]domain.PointID, len(chunks))
	payloads := make([]domain.Payload, len(chunks))
	for i, ch := range chunks {
		ids[i] = PointIDFor(ch.Source, ch.Index)
		payloads[i] = ch.Payload(model)
	}
	if err := s.store.Upsert(ctx, s.collection, ids, vectors, payloads); err != nil {
		return IngestResult{}, errors.Wrap(err, "upsert chunks")
	}
	s.logger.Info("embedded chunks", "count", len(chunks), "collection", s.collection)

	return IngestResult{
		Source:     source,
		Collection: s.collection,
		Chunks:     chunks,
		IDs:        ids,
		Summary:    s.summarizer.Summarize(text),
	}, nil
}

// preview cuts text to previewChars runes.
func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewChars {
		return text
	}
	return string(r[:previewChars]) + "..."
}
