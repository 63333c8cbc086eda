package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// collectionLister is implemented by stores that can enumerate their collections.
type collectionLister interface {
	ListCollections(ctx context.Context) ([]string, error)
}

func NewCollectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "Report whether the configured collection exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			store, err := a.newStore(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			name := a.cfg.VectorStore.Collection
			exists, err := store.CollectionExists(cmd.Context(), name)
			if err != nil {
				return err
			}
			if exists {
				fmt.Fprintf(out, "Collection '%s' exists\n", name)
			} else {
				fmt.Fprintf(out, "Collection '%s' does not exist\n", name)
			}

			if lister, ok := store.(collectionLister); ok {
				names, err := lister.ListCollections(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Available collections (%d):\n", len(names))
				for _, n := range names {
					fmt.Fprintf(out, "- %s\n", n)
				}
			}
			return nil
		},
	}
}
