package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vectorchat/internal/conversation"
	"vectorchat/internal/embedding"
	"vectorchat/internal/retrieval"
	"vectorchat/internal/vectorstore"
)

func NewChatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the model, grounded on the embedded collection",
		Args:  cobra.NoArgs,
		RunE:  makeChatRunner(a),
	}

	cmd.Flags().Bool("no-context", false, "Disable context retrieval")
	cmd.Flags().Int("top-k", 0, "Context chunks per question (default from config)")
	cmd.Flags().Float64("threshold", 0, "Minimum relevance score (default from config)")
	cmd.Flags().Float64("temperature", 0, "Sampling temperature (default from config)")
	cmd.Flags().String("log-file", "", "Write session logs to this file while the chat is open")
	return cmd
}

func makeChatRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		opts := conversation.Options{
			TopK:           a.cfg.Retrieval.TopK,
			ScoreThreshold: a.cfg.Retrieval.ScoreThreshold,
			Temperature:    a.cfg.Chat.Temperature,
			SystemPrompt:   a.cfg.Chat.SystemPrompt,
		}
		if opts.SystemPrompt == "" {
			opts.SystemPrompt = conversation.DefaultSystemPrompt
		}
		if cmd.Flags().Changed("top-k") {
			opts.TopK, _ = cmd.Flags().GetInt("top-k")
		}
		if cmd.Flags().Changed("threshold") {
			opts.ScoreThreshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		if cmd.Flags().Changed("temperature") {
			opts.Temperature, _ = cmd.Flags().GetFloat64("temperature")
		}

		completer, err := a.newCompleter(a.cfg, a.logger)
		if err != nil {
			return err
		}

		sessionLogger, closeLog, err := a.sessionLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		opts.Logger = sessionLogger

		var retriever conversation.ContextRetriever
		if noContext, _ := cmd.Flags().GetBool("no-context"); !noContext {
			store, err := a.newStore(ctx, a.cfg, a.logger)
			if err != nil {
				a.logger.Error("error connecting to vector store", "err", err)
				a.logger.Info("continuing without context retrieval")
			} else {
				defer store.Close()
				retriever, err = a.openRetriever(cmd, store, sessionLogger)
				if err != nil {
					return err
				}
			}
		}

		ctrl := conversation.New(completer, retriever, opts)
		a.logger.Debug("chat session started", "session", ctrl.SessionID(), "retrieval", ctrl.RetrievalEnabled())
		return a.runChat(ctx, ctrl)
	}
}

// openRetriever returns nil when the collection does not exist yet.
func (a *app) openRetriever(cmd *cobra.Command, store vectorstore.Storage, sessionLogger *log.Logger) (conversation.ContextRetriever, error) {
	collection := a.cfg.VectorStore.Collection
	exists, err := store.CollectionExists(cmd.Context(), collection)
	if err != nil {
		a.logger.Error("error connecting to vector store", "err", err)
		a.logger.Info("continuing without context retrieval")
		return nil, nil
	}
	if !exists {
		a.logger.Warn("collection does not exist, continuing without context retrieval", "collection", collection)
		return nil, nil
	}
	a.logger.Info("connected to collection", "collection", collection)

	emb, err := a.newEmbedder(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if size := a.cfg.Embedder.CacheSize; size > 0 {
		cached, err := embedding.NewCachedEmbedder(emb, size)
		if err != nil {
			return nil, err
		}
		emb = cached
	}
	return retrieval.New(emb, store, collection, sessionLogger), nil
}

// sessionLogger keeps logs off the terminal while the chat screen is open.
func (a *app) sessionLogger(cmd *cobra.Command) (*log.Logger, func(), error) {
	logger := a.logger.With()
	path, _ := cmd.Flags().GetString("log-file")
	if path == "" {
		logger.SetOutput(io.Discard)
		return logger, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log file")
	}
	logger.SetOutput(f)
	return logger, func() { f.Close() }, nil
}
