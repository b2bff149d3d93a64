package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "docpipe",
		Short: "Extract tables and text from scanned documents, review content and drive hosted search indexes",
	}

	root.AddCommand(
		extractCmd(),
		reviewCmd(),
		verifyCmd(),
		uploadCmd(),
		indexCmd(),
		searchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
