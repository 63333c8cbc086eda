package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorchat/internal/completion"
	"vectorchat/internal/config"
	"vectorchat/internal/conversation"
	"vectorchat/internal/domain"
	"vectorchat/internal/tui"
	"vectorchat/internal/vectorstore"
	"vectorchat/internal/vectorstore/memory"
)

const testConfig = `
embedder:
  type: hashing
  dimension: 128
vector_store:
  type: memory
  collection: kb
chunker:
  sentences_per_chunk: 2
`

type recordingCompleter struct {
	seen [][]domain.Message
}

func (r *recordingCompleter) Complete(_ context.Context, messages []domain.Message, _ float64) (string, error) {
	r.seen = append(r.seen, messages)
	return "answer", nil
}

type harness struct {
	app       *app
	store     *memory.Storage
	completer *recordingCompleter
	cfgPath   string
	env       map[string]string
	chats     []tui.ChatPort
	chatTurns []string
	replies   []conversation.Reply
}

func newHarness(t *testing.T, cfgYAML string) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := filepath.Join(dir, "vectorchat.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))

	h := &harness{
		store:     memory.NewStorage(),
		completer: &recordingCompleter{},
		cfgPath:   cfgPath,
		env:       map[string]string{},
	}
	a := newApp()
	a.stdin = strings.NewReader("")
	a.lookupEnv = func(k string) (string, bool) {
		v, ok := h.env[k]
		return v, ok
	}
	a.newStore = func(context.Context, *config.AppConfig, *log.Logger) (vectorstore.Storage, error) {
		return h.store, nil
	}
	a.newCompleter = func(cfg *config.AppConfig, _ *log.Logger) (completion.Completer, error) {
		if _, err := cfg.APIKey(); err != nil {
			return nil, err
		}
		return h.completer, nil
	}
	a.runChat = func(ctx context.Context, chat tui.ChatPort) error {
		h.chats = append(h.chats, chat)
		for _, q := range h.chatTurns {
			reply, err := chat.Turn(ctx, q)
			if err != nil {
				return err
			}
			h.replies = append(h.replies, reply)
		}
		return nil
	}
	h.app = a
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test", h.app)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEmbedText(t *testing.T) {
	h := newHarness(t, testConfig)

	out, err := h.run(t, "embed", "--text", "Alpha one. Beta two. Gamma three.")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully embedded 2 chunks from command_line_input into collection 'kb'")
	assert.Contains(t, out, "Summary:")
	assert.Equal(t, 2, h.store.Count("kb"))
}

func TestEmbedFlagsOverrideConfig(t *testing.T) {
	h := newHarness(t, testConfig)

	_, err := h.run(t, "embed", "--text", "A. B. C.", "--max-sentences", "1", "--collection", "other")
	require.NoError(t, err)
	assert.Equal(t, 3, h.store.Count("other"))
	assert.Equal(t, 0, h.store.Count("kb"))
}

func TestEmbedFileUsesBaseName(t *testing.T) {
	h := newHarness(t, testConfig)
	require.NoError(t, os.WriteFile("notes.txt", []byte("First note. Second note."), 0o644))

	out, err := h.run(t, "embed", "--file", "notes.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "from notes.txt")

	_, err = h.run(t, "embed", "--file", "missing.txt")
	assert.Error(t, err)
}

func TestEmbedListFiles(t *testing.T) {
	h := newHarness(t, testConfig)

	out, err := h.run(t, "embed", "--list-files")
	require.NoError(t, err)
	assert.Contains(t, out, "Available text files:")
	assert.Contains(t, out, "- vectorchat.yaml")

	require.NoError(t, os.Remove(h.cfgPath))
	h.cfgPath = filepath.Join(t.TempDir(), "c.conf")
	require.NoError(t, os.WriteFile(h.cfgPath, []byte(testConfig), 0o644))
	out, err = h.run(t, "embed", "--list-files")
	require.NoError(t, err)
	assert.Contains(t, out, "No text files found in current directory")
}

func TestEmbedInteractiveSelection(t *testing.T) {
	h := newHarness(t, testConfig)
	require.NoError(t, os.WriteFile("a.md", []byte("Picked file. It has text."), 0o644))
	h.app.stdin = strings.NewReader("1\n")

	out, err := h.run(t, "embed")
	require.NoError(t, err)
	assert.Contains(t, out, "1. a.md")
	assert.Contains(t, out, "Select a file number")
	assert.Contains(t, out, "from a.md")
}

func TestEmbedManualInput(t *testing.T) {
	h := newHarness(t, testConfig)
	h.app.stdin = strings.NewReader("\nTyped by hand. Across lines.\nThird line.\n")

	out, err := h.run(t, "embed")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter text to embed")
	assert.Contains(t, out, "from manual_input")
	assert.Equal(t, 2, h.store.Count("kb"))
}

func TestEmbedInvalidSelectionFallsBackToManual(t *testing.T) {
	h := newHarness(t, testConfig)
	h.app.stdin = strings.NewReader("9\n")

	_, err := h.run(t, "embed")
	assert.True(t, errors.Is(err, errNoInput))
}

func TestChatUsesContextWhenCollectionExists(t *testing.T) {
	h := newHarness(t, testConfig)
	h.env["OPENAI_API_KEY"] = "sk-test"

	_, err := h.run(t, "embed", "--text", "The launch window opens at dawn. Fuel is loaded at night.", "--max-sentences", "1")
	require.NoError(t, err)

	h.chatTurns = []string{"The launch window opens at dawn."}
	_, err = h.run(t, "chat", "--threshold", "0.5")
	require.NoError(t, err)

	require.Len(t, h.replies, 1)
	assert.Equal(t, conversation.Reply{Content: "answer", UsedContext: true}, h.replies[0])

	sent := h.completer.seen[0]
	require.Len(t, sent, 3)
	assert.Equal(t, domain.NewSystemMessage(conversation.DefaultSystemPrompt), sent[0])
	assert.Equal(t, domain.RoleUser, sent[1].Role)
	assert.Equal(t, domain.RoleSystem, sent[2].Role)
	assert.True(t, strings.HasPrefix(sent[2].Content, conversation.ContextPreamble+"Context 1 (Relevance: 1.00) (from command_line_input) [model: hashing-tf]"))
}

func TestChatWithoutCollectionOrContext(t *testing.T) {
	h := newHarness(t, testConfig)
	h.env["OPENAI_API_KEY"] = "sk-test"
	h.chatTurns = []string{"hello"}

	_, err := h.run(t, "chat")
	require.NoError(t, err)
	assert.Equal(t, conversation.Reply{Content: "answer"}, h.replies[0])
	assert.Len(t, h.completer.seen[0], 2)

	_, err = h.run(t, "embed", "--text", "Some. Text.")
	require.NoError(t, err)
	_, err = h.run(t, "chat", "--no-context")
	require.NoError(t, err)
	chat := h.chats[len(h.chats)-1]
	assert.False(t, chat.RetrievalEnabled())
}

func TestChatRequiresAPIKey(t *testing.T) {
	h := newHarness(t, testConfig)
	_, err := h.run(t, "chat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Empty(t, h.chats)
}

func TestCollections(t *testing.T) {
	h := newHarness(t, testConfig)

	out, err := h.run(t, "collections")
	require.NoError(t, err)
	assert.Contains(t, out, "Collection 'kb' does not exist")

	_, err = h.run(t, "embed", "--text", "One.")
	require.NoError(t, err)
	out, err = h.run(t, "collections")
	require.NoError(t, err)
	assert.Contains(t, out, "Collection 'kb' exists")
	assert.Contains(t, out, "- kb")
}

func TestInvalidConfig(t *testing.T) {
	h := newHarness(t, "vector_store:\n  type: faiss\n")
	_, err := h.run(t, "collections")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	h = newHarness(t, testConfig)
	_, err = h.run(t, "--log-level", "loud", "collections")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestBuildEmbedderRequiresKeyForOpenAI(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	_, err = buildEmbedder(cfg, log.New(io.Discard))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	cfg.OpenAI.APIKey = "sk-test"
	emb, err := buildEmbedder(cfg, log.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", emb.Model())
	assert.Equal(t, 1536, emb.Dimension())

	cfg.Embedder.Type = config.EmbedderHashing
	emb, err = buildEmbedder(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "hashing-tf", emb.Model())
}

func TestBuildStoreBolt(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	cfg.VectorStore.Type = config.StoreBolt
	cfg.VectorStore.Bolt = &config.BoltConfig{Path: filepath.Join(t.TempDir(), "v.db")}

	store, err := buildStore(context.Background(), cfg, log.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(context.Background(), "kb", 4))
	require.NoError(t, store.Close())

	cfg.VectorStore.Type = config.StoreMemory
	store, err = buildStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, store)
}
