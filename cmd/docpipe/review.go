package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/llm"
	"github.com/paperlane/docpipe/internal/review"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Ask the hosted model whether content passes editorial review",
		Long:  "Reads the content from the given file, or from stdin when no file is named, and prints the model's verdict.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content []byte
			var err error
			if len(args) == 1 {
				content, err = os.ReadFile(args[0])
			} else {
				content, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			gw := llm.NewGateway(cfg.LLM)
			svc := review.NewService(gw, nil, cfg.LLM.Temperature, cfg.LLM.MaxTokens)

			verdict, err := svc.Review(cmd.Context(), string(content))
			if err != nil {
				return err
			}

			if verdict.Approved {
				fmt.Printf("APPROVED: %s\n", verdict.Topic)
			} else {
				fmt.Printf("REJECTED: %s\n", verdict.Reason)
			}
			return nil
		},
	}
	return cmd
}
