package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/extract"
	"github.com/paperlane/docpipe/internal/ocr"
	"github.com/paperlane/docpipe/internal/pdf"
	"github.com/paperlane/docpipe/internal/table"
)

func extractCmd() *cobra.Command {
	var out string
	var lang string
	var text bool

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Run OCR table (or text) extraction on a PDF or page image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if lang != "" {
				cfg.OCR.Language = lang
			}

			detector := ocr.NewTesseractDetector(
				ocr.WithLanguage(cfg.OCR.Language),
				ocr.WithPageSegMode(cfg.OCR.PageSegMode),
			)
			svc := extract.NewService(detector, pdf.NewRasterizer(cfg.OCR.DPI), cfg.Table)
			ctx := cmd.Context()

			isPDF := strings.EqualFold(filepath.Ext(input), ".pdf")

			if text {
				if !isPDF {
					return fmt.Errorf("text extraction expects a PDF, got %s", input)
				}
				content, err := svc.TextFromPDF(ctx, input)
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Println(content)
					return nil
				}
				return os.WriteFile(out, []byte(content), 0o644)
			}

			if out == "" {
				out = strings.TrimSuffix(input, filepath.Ext(input)) + ".xlsx"
			}

			if !isPDF {
				grid, err := svc.TableFromImageFile(ctx, input)
				if err != nil {
					return err
				}
				if err := table.WriteXLSX(grid, out); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", out)
				return nil
			}

			pages, err := svc.TablesFromPDF(ctx, input)
			if err != nil {
				return err
			}
			base := strings.TrimSuffix(out, filepath.Ext(out))
			for _, p := range pages {
				path := out
				if len(pages) > 1 {
					path = fmt.Sprintf("%s_page_%d.xlsx", base, p.Page)
				}
				if err := table.WriteXLSX(p.Grid, path); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (defaults next to the input)")
	cmd.Flags().StringVar(&lang, "lang", "", "OCR language override, e.g. rus or rus+eng")
	cmd.Flags().BoolVar(&text, "text", false, "extract plain text instead of tables")
	return cmd
}
