package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"vectorchat/internal/domain"
)

const (
	EmbedderOpenAI  = "openai"
	EmbedderHashing = "hashing"

	StoreQdrant   = "qdrant"
	StoreMemory   = "memory"
	StoreBolt     = "bolt"
	StorePgvector = "pgvector"
)

// Seeded before decoding; an explicit zero in the file is kept.
const (
	DefaultScoreThreshold = 0.3
	DefaultTemperature    = 0.7
)

// OpenAIConfig holds the OpenAI-compatible endpoint shared by embeddings and chat.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	ChatModel   string `yaml:"chat_model"`
	TimeoutSecs int    `yaml:"timeout_secs"`

	// APIKey is resolved from the environment and never written to disk.
	APIKey string `yaml:"-"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension,omitempty"`
	BatchSize int    `yaml:"batch_size"`
	// CacheSize bounds the query embedding cache used by chat; a negative size disables it.
	CacheSize int `yaml:"cache_size"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string          `yaml:"type"`
	Collection string          `yaml:"collection"`
	Qdrant     *QdrantConfig   `yaml:"qdrant,omitempty"`
	Bolt       *BoltConfig     `yaml:"bolt,omitempty"`
	Pgvector   *PgvectorConfig `yaml:"pgvector,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// BoltConfig points at the local bbolt database file.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// PgvectorConfig holds the PostgreSQL connection string.
type PgvectorConfig struct {
	DSN string `yaml:"dsn"`
}

// RetrievalConfig tunes context lookup during chat.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// ChatConfig tunes completion requests.
type ChatConfig struct {
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt,omitempty"`
}

// SummarizerConfig configures the summary printed after embedding.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LogLevel    string            `yaml:"log_level"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Chat        ChatConfig        `yaml:"chat"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := seededConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(domain.ErrConfiguration, "parse config %s: %v", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// Resolve loads the config at path when it is set. Otherwise it tries
// ./config.yaml, then ~/.config/vectorchat/config.yaml. If neither exists,
// it writes defaults to the user path and returns them.
func Resolve(path string) (*AppConfig, string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, "", errors.Wrapf(domain.ErrConfiguration, "config file %s: %v", path, err)
		}
		cfg, err := Load(path)
		return cfg, path, err
	}
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write config")
}

// ApplyEnv overrides settings from environment variables. lookup is usually
// os.LookupEnv. Empty values are ignored.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(c.OpenAI.APIKeyEnv); ok {
		c.OpenAI.APIKey = v
	}
	if v, ok := get("OPENAI_BASE_URL"); ok {
		c.OpenAI.BaseURL = v
	}
	if v, ok := get("DEFAULT_CHAT_MODEL"); ok {
		c.OpenAI.ChatModel = v
	}
	if v, ok := get("DEFAULT_EMBEDDING_MODEL"); ok {
		c.Embedder.Model = v
	}
	if v, ok := get("QDRANT_URL"); ok {
		c.qdrant().URL = v
	}
	if v, ok := get("QDRANT_API_KEY"); ok {
		c.qdrant().APIKey = v
	}
	if v, ok := get("QDRANT_COLLECTION"); ok {
		c.VectorStore.Collection = v
	}
	if v, ok := get("VECTORCHAT_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
}

// APIKey returns the OpenAI key or a configuration error naming the variable to set.
func (c *AppConfig) APIKey() (string, error) {
	if c.OpenAI.APIKey == "" {
		return "", errors.Wrapf(domain.ErrConfiguration, "%s is not set", c.OpenAI.APIKeyEnv)
	}
	return c.OpenAI.APIKey, nil
}

// Validate reports unknown backend types and missing backend settings.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case EmbedderOpenAI, EmbedderHashing:
	default:
		return errors.Wrapf(domain.ErrConfiguration, "unknown embedder type %q", c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case StoreQdrant, StoreMemory:
	case StoreBolt:
		if c.VectorStore.Bolt == nil || c.VectorStore.Bolt.Path == "" {
			return errors.Wrap(domain.ErrConfiguration, "vector_store.bolt.path is required")
		}
	case StorePgvector:
		if c.VectorStore.Pgvector == nil || c.VectorStore.Pgvector.DSN == "" {
			return errors.Wrap(domain.ErrConfiguration, "vector_store.pgvector.dsn is required")
		}
	default:
		return errors.Wrapf(domain.ErrConfiguration, "unknown vector store type %q", c.VectorStore.Type)
	}
	if c.VectorStore.Collection == "" {
		return errors.Wrap(domain.ErrConfiguration, "vector_store.collection is required")
	}
	return nil
}

func (c *AppConfig) qdrant() *QdrantConfig {
	if c.VectorStore.Qdrant == nil {
		c.VectorStore.Qdrant = &QdrantConfig{}
	}
	return c.VectorStore.Qdrant
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locate home directory")
	}
	return filepath.Join(home, ".config", "vectorchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := seededConfig()
	cfg.VectorStore.Qdrant = &QdrantConfig{}
	applyConfigDefaults(&cfg)
	return &cfg
}

func seededConfig() AppConfig {
	return AppConfig{
		Retrieval: RetrievalConfig{ScoreThreshold: DefaultScoreThreshold},
		Chat:      ChatConfig{Temperature: DefaultTemperature},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o"
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 60
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = EmbedderOpenAI
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 64
	}
	if cfg.Embedder.CacheSize == 0 {
		cfg.Embedder.CacheSize = 256
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 3
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = StoreQdrant
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "openai_embeddings"
	}
	if cfg.VectorStore.Type == StoreQdrant || cfg.VectorStore.Qdrant != nil {
		q := cfg.qdrant()
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
}
