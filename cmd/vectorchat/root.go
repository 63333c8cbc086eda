package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vectorchat",
		Short:         "Embed text into a vector store and chat over it",
		Long:          `Chunk and embed documents into a vector collection, then chat with a model that retrieves relevant chunks as context.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			level, _ := cmd.Flags().GetString("log-level")
			return a.load(path, level, cmd.ErrOrStderr())
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewEmbedCmd(a),
		NewChatCmd(a),
		NewCollectionsCmd(a),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to YAML config file (default ./config.yaml or ~/.config/vectorchat/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
}
