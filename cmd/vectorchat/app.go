package main

import (
	"context"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"vectorchat/internal/completion"
	completionopenai "vectorchat/internal/completion/openai"
	"vectorchat/internal/config"
	"vectorchat/internal/domain"
	"vectorchat/internal/embedding"
	"vectorchat/internal/embedding/hashing"
	embeddingopenai "vectorchat/internal/embedding/openai"
	"vectorchat/internal/tui"
	"vectorchat/internal/vectorstore"
	"vectorchat/internal/vectorstore/bolt"
	"vectorchat/internal/vectorstore/memory"
	"vectorchat/internal/vectorstore/pgvector"
	"vectorchat/internal/vectorstore/qdrant"
)

// app carries the loaded configuration and the component builders. Tests
// replace the builders with fakes.
type app struct {
	cfg    *config.AppConfig
	logger *log.Logger
	stdin  io.Reader

	lookupEnv    func(string) (string, bool)
	newEmbedder  func(*config.AppConfig, *log.Logger) (embedding.Embedder, error)
	newStore     func(context.Context, *config.AppConfig, *log.Logger) (vectorstore.Storage, error)
	newCompleter func(*config.AppConfig, *log.Logger) (completion.Completer, error)
	runChat      func(context.Context, tui.ChatPort) error
}

func newApp() *app {
	return &app{
		stdin:        os.Stdin,
		lookupEnv:    os.LookupEnv,
		newEmbedder:  buildEmbedder,
		newStore:     buildStore,
		newCompleter: buildCompleter,
		runChat:      runChatTUI,
	}
}

// load resolves the config, applies the environment and builds the logger.
func (a *app) load(path, level string, stderr io.Writer) error {
	cfg, used, err := config.Resolve(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(a.lookupEnv)
	if level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(domain.ErrConfiguration, "invalid log level %q", cfg.LogLevel)
	}
	logger := log.NewWithOptions(stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           lvl,
	})
	logger.Debug("loaded config", "path", used)
	a.cfg = cfg
	a.logger = logger
	return nil
}

func buildEmbedder(cfg *config.AppConfig, logger *log.Logger) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case config.EmbedderHashing:
		return hashing.NewEmbedder(cfg.Embedder.Dimension), nil
	default:
		key, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		client, err := embeddingopenai.NewClient(embeddingopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKey:    key,
			Model:     cfg.Embedder.Model,
			Dimension: cfg.Embedder.Dimension,
			BatchSize: cfg.Embedder.BatchSize,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func buildStore(ctx context.Context, cfg *config.AppConfig, logger *log.Logger) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case config.StoreMemory:
		return memory.NewStorage(), nil
	case config.StoreBolt:
		s, err := bolt.NewStorage(cfg.VectorStore.Bolt.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorePgvector:
		s, err := pgvector.Open(ctx, cfg.VectorStore.Pgvector.DSN, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		q := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:     q.URL,
			APIKey:  q.APIKey,
			Timeout: time.Duration(q.TimeoutSecs) * time.Second,
			Logger:  logger,
		}), nil
	}
}

func buildCompleter(cfg *config.AppConfig, logger *log.Logger) (completion.Completer, error) {
	key, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}
	client, err := completionopenai.NewClient(completionopenai.Config{
		BaseURL: cfg.OpenAI.BaseURL,
		APIKey:  key,
		Model:   cfg.OpenAI.ChatModel,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func runChatTUI(ctx context.Context, chat tui.ChatPort) error {
	_, err := tea.NewProgram(tui.New(ctx, chat), tea.WithAltScreen()).Run()
	return err
}
