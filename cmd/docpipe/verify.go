package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/finance"
	"github.com/paperlane/docpipe/internal/llm"
)

func verifyCmd() *cobra.Command {
	var previousPath string

	cmd := &cobra.Command{
		Use:   "verify <report>",
		Short: "Check a financial report for internal consistency",
		Long:  "Parses a json, csv or xlsx report, cross-checks it locally and with the hosted model, and prints any discrepancies.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := finance.ParseFile(args[0])
			if err != nil {
				return err
			}

			var previous *finance.Report
			if previousPath != "" {
				previous, err = finance.ParseFile(previousPath)
				if err != nil {
					return err
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			verifier := finance.NewVerifier(llm.NewGateway(cfg.LLM))
			result, err := verifier.Check(cmd.Context(), current, previous)
			if err != nil {
				return err
			}

			if result.Passed {
				fmt.Println("report is consistent")
				return nil
			}

			fmt.Println("report has discrepancies:")
			for _, f := range result.LocalFindings {
				fmt.Printf("  - [%s] %s\n", f.Kind, f.Detail)
			}
			if result.ModelVerdict != "" {
				fmt.Printf("model verdict: %s\n", result.ModelVerdict)
			}
			return fmt.Errorf("verification failed")
		},
	}

	cmd.Flags().StringVarP(&previousPath, "previous", "p", "", "previous period report to compare against")
	return cmd
}
