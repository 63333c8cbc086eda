package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vectorchat/internal/chunker"
	"vectorchat/internal/service"
)

const (
	sourceCommandLine = "command_line_input"
	sourceManual      = "manual_input"
)

var errNoInput = errors.New("no input text provided")

func NewEmbedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Chunk text, embed it and store the vectors",
		Long: `Embed text from a file, from --text, from a file picked interactively
in the current directory, or from standard input.`,
		Args: cobra.NoArgs,
		RunE: makeEmbedRunner(a),
	}

	cmd.Flags().StringP("file", "f", "", "Path to a text file to embed")
	cmd.Flags().StringP("text", "t", "", "Text to embed")
	cmd.Flags().BoolP("list-files", "l", false, "List text files in the current directory and exit")
	cmd.Flags().Int("max-sentences", 0, "Sentences per chunk (default from config)")
	cmd.Flags().String("collection", "", "Target collection (default from config)")
	return cmd
}

func makeEmbedRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if listFiles, _ := cmd.Flags().GetBool("list-files"); listFiles {
			return printTextFiles(out)
		}

		file, _ := cmd.Flags().GetString("file")
		text, _ := cmd.Flags().GetString("text")
		content, source, err := readEmbedInput(out, a.stdin, file, text)
		if err != nil {
			return err
		}

		maxSentences, _ := cmd.Flags().GetInt("max-sentences")
		if maxSentences <= 0 {
			maxSentences = a.cfg.Chunker.SentencesPerChunk
		}
		collection, _ := cmd.Flags().GetString("collection")
		if collection == "" {
			collection = a.cfg.VectorStore.Collection
		}

		emb, err := a.newEmbedder(a.cfg, a.logger)
		if err != nil {
			return err
		}
		store, err := a.newStore(cmd.Context(), a.cfg, a.logger)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := service.NewIngestService(emb, store, service.IngestOptions{
			Collection:       collection,
			MaxSentences:     maxSentences,
			SummarySentences: a.cfg.Summarizer.MaxSentences,
			Logger:           a.logger,
		})
		res, err := svc.Ingest(cmd.Context(), content, source)
		if err != nil {
			return errors.Wrap(err, "embed text")
		}

		fmt.Fprintf(out, "Successfully embedded %d chunks from %s into collection '%s'\n",
			len(res.Chunks), res.Source, res.Collection)
		if res.Summary != "" {
			fmt.Fprintf(out, "Summary: %s\n", res.Summary)
		}
		return nil
	}
}

func printTextFiles(out io.Writer) error {
	files, err := chunker.ListTextFiles(".")
	if err != nil {
		return errors.Wrap(err, "list text files")
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No text files found in current directory")
		return nil
	}
	fmt.Fprintln(out, "Available text files:")
	for _, f := range files {
		fmt.Fprintf(out, "- %s\n", f)
	}
	return nil
}

// readEmbedInput picks the text to embed: --file, then --text, then a file
// chosen by number from the current directory, then standard input until EOF.
func readEmbedInput(out io.Writer, stdin io.Reader, file, text string) (string, string, error) {
	if file != "" {
		content, source, err := chunker.ReadFile(file)
		if err != nil {
			return "", "", errors.Wrapf(err, "could not read file %s", file)
		}
		return content, source, nil
	}
	if text != "" {
		return text, sourceCommandLine, nil
	}

	in := bufio.NewReader(stdin)
	files, err := chunker.ListTextFiles(".")
	if err != nil {
		return "", "", errors.Wrap(err, "list text files")
	}
	if len(files) > 0 {
		fmt.Fprintln(out, "Available text files:")
		for i, f := range files {
			fmt.Fprintf(out, "%d. %s\n", i+1, f)
		}
		fmt.Fprint(out, "\nSelect a file number (or press Enter for manual input): ")
		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", "", errors.Wrap(err, "read selection")
		}
		if idx, convErr := strconv.Atoi(strings.TrimSpace(line)); convErr == nil {
			if idx > 0 && idx <= len(files) {
				content, source, err := chunker.ReadFile(files[idx-1])
				if err == nil {
					return content, source, nil
				}
				fmt.Fprintf(out, "Could not read file: %v\n", err)
			} else {
				fmt.Fprintln(out, "Invalid selection")
			}
		}
	}

	fmt.Fprintln(out, "Enter text to embed (press Ctrl+D to finish):")
	data, err := io.ReadAll(in)
	if err != nil {
		return "", "", errors.Wrap(err, "read input")
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", "", errNoInput
	}
	return string(data), sourceManual, nil
}
