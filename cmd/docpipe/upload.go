package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/storage"
)

func uploadCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file or directory to object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := storage.NewS3Storage(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}

			if info.IsDir() {
				keys, err := store.UploadDirectory(cmd.Context(), args[0], prefix)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Println(k)
				}
				return nil
			}

			key := filepath.Base(args[0])
			if prefix != "" {
				key = prefix + "/" + key
			}
			url, err := store.UploadFile(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix inside the bucket")
	return cmd
}
