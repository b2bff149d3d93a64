package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/searchindex"
)

func searchCmd() *cobra.Command {
	var indexID string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a grounded query against a search index",
		Long:  "With --index, queries an existing index. Otherwise pass files with --files to build a temporary index that is deleted afterwards.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			files, _ := cmd.Flags().GetStringSlice("files")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := searchindex.NewClient(cfg.Search)
			modelURI := fmt.Sprintf("gpt://%s/%s", cfg.LLM.FolderID, cfg.LLM.Model)
			ctx := cmd.Context()

			printResults := func(results []searchindex.SearchResult) {
				for i, r := range results {
					fmt.Printf("%d. %s\n   (file %s)\n", i+1, r.Text, r.FileID)
				}
			}

			if indexID != "" {
				results, err := client.Search(ctx, indexID, modelURI, query, limit)
				if err != nil {
					return err
				}
				printResults(results)
				return nil
			}

			if len(files) == 0 {
				return fmt.Errorf("either --index or --files is required")
			}

			return client.WithIndex(ctx, "", files, func(ctx context.Context, idx *searchindex.Index) error {
				results, err := client.Search(ctx, idx.ID, modelURI, query, limit)
				if err != nil {
					return err
				}
				printResults(results)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&indexID, "index", "i", "", "existing index ID to search in")
	cmd.Flags().StringSlice("files", nil, "local files to build a temporary index from")
	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "maximum results")
	return cmd
}
