package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/searchindex"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage hosted search indexes",
	}
	cmd.AddCommand(indexCreateCmd(), indexListCmd(), indexDeleteCmd())
	return cmd
}

func indexCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create <file>...",
		Short: "Upload files and build a search index over them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := searchindex.NewClient(cfg.Search)
			ctx := cmd.Context()

			files, err := client.UploadFiles(ctx, args)
			if err != nil {
				return err
			}
			fileIDs := make([]string, len(files))
			for i, f := range files {
				fileIDs[i] = f.ID
			}

			idx, err := client.CreateIndexAndWait(ctx, name, fileIDs)
			if err != nil {
				return err
			}
			fmt.Printf("index %s ready (%d files)\n", idx.ID, len(fileIDs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "index name")
	return cmd
}

func indexListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List hosted search indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := searchindex.NewClient(cfg.Search)

			indexes, err := client.ListIndexes(cmd.Context())
			if err != nil {
				return err
			}
			for _, idx := range indexes {
				fmt.Printf("%s\t%s\t%s\n", idx.ID, idx.Status, idx.Name)
			}
			return nil
		},
	}
}

func indexDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index-id>",
		Short: "Delete a hosted search index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := searchindex.NewClient(cfg.Search)

			if err := client.DeleteIndex(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}
}
