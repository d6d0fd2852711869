package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wikivault/process-wiki/internal/embed"
	"github.com/wikivault/process-wiki/internal/query"
	"github.com/wikivault/process-wiki/internal/store"
)

// newQueryCmd exposes C8's persona-filtered retrieval facade over the CLI
// for operator smoke-testing, without adding any network surface (the
// store files it reads are the exact ones process-wiki writes).
func newQueryCmd() *cobra.Command {
	var (
		outputDir   string
		collection  string
		personaPath string
		k           int
		accelerator string
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a persona-filtered similarity search against an ingested collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persona, err := query.LoadPersona(personaPath)
			if err != nil {
				return withExitCode(1, err)
			}

			ctx := cmd.Context()

			embedder, err := embed.NewEmbedder(ctx, embed.ParseAccelerator(accelerator), embed.DefaultAcceleratorConfig(), embed.NativeLibraryConfig{})
			if err != nil {
				return withExitCode(1, fmt.Errorf("build embedder: %w", err))
			}
			defer embedder.Close()

			info := embed.GetInfo(ctx, embedder)

			vectorPath := filepath.Join(outputDir, collection+".hnsw")
			vectors, err := openVectorStore(vectorPath, info.Dimensions)
			if err != nil {
				return withExitCode(1, err)
			}
			defer vectors.Close()

			metadataPath := filepath.Join(outputDir, collection+".db")
			metadata, err := store.NewSQLiteMetadataStore(metadataPath)
			if err != nil {
				return withExitCode(1, fmt.Errorf("open metadata store: %w", err))
			}
			defer metadata.Close()

			facade := query.New(vectors, metadata, embedder)
			results, err := facade.Query(ctx, persona, args[0], k)
			if err != nil {
				return withExitCode(1, err)
			}

			return printResults(cmd, results)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "./vector_store", "Directory holding the vector store and metadata database")
	cmd.Flags().StringVar(&collection, "collection", "fallout_wiki", "Collection name for the vector store")
	cmd.Flags().StringVar(&personaPath, "persona", "", "Path to a persona YAML file (required)")
	cmd.Flags().IntVarP(&k, "k", "k", 5, "Number of results to return")
	cmd.Flags().StringVar(&accelerator, "accelerator", "auto", "Embedding backend: auto, native, cpu")
	_ = cmd.MarkFlagRequired("persona")

	return cmd
}

func printResults(cmd *cobra.Command, results []query.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
