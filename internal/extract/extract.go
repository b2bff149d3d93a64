// Package extract runs the page pipeline: rasterize, detect tokens, filter
// by confidence, bin into a grid, assemble a table.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/ocr"
	"github.com/paperlane/docpipe/internal/pdf"
	"github.com/paperlane/docpipe/internal/table"
)

// PageRenderer rasterizes a single PDF page to an image.
type PageRenderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error)
}

// PageTable is the reconstructed table of one PDF page.
type PageTable struct {
	Page int        `json:"page"`
	Grid table.Grid `json:"grid"`
}

type Service struct {
	detector  ocr.Detector
	renderer  PageRenderer
	threshold float64
	rows      int
	cols      int

	pageCount func(string) (int, error)
	textLayer func(string, int) (string, error)
}

func NewService(detector ocr.Detector, renderer PageRenderer, cfg config.TableConfig) *Service {
	return &Service{
		detector:  detector,
		renderer:  renderer,
		threshold: cfg.ConfidenceThreshold,
		rows:      cfg.RowBuckets,
		cols:      cfg.ColBuckets,
		pageCount: pdf.PageCount,
		textLayer: pdf.TextLayer,
	}
}

// TableFromImage reconstructs a table from a single raster image.
func (s *Service) TableFromImage(ctx context.Context, image []byte) (table.Grid, error) {
	tokens, err := s.detector.DetectTokens(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect tokens: %w", err)
	}
	return table.Assemble(table.Filter(tokens, s.threshold), s.rows, s.cols)
}

// TableFromImageFile reads an image file and reconstructs its table.
func (s *Service) TableFromImageFile(ctx context.Context, path string) (table.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return s.TableFromImage(ctx, data)
}

// TablesFromPDF reconstructs one table per page. A failing page is logged
// and skipped; the remaining pages are still processed, and the document as
// a whole only fails when no page could be rendered at all.
func (s *Service) TablesFromPDF(ctx context.Context, pdfPath string) ([]PageTable, error) {
	pages, err := s.pageCount(pdfPath)
	if err != nil {
		return nil, err
	}

	tables := make([]PageTable, 0, pages)
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		image, err := s.renderer.RenderPage(ctx, pdfPath, page)
		if err != nil {
			slog.Warn("skipping page, render failed", "path", pdfPath, "page", page, "error", err)
			continue
		}

		grid, err := s.TableFromImage(ctx, image)
		if err != nil {
			slog.Warn("skipping page, table extraction failed", "path", pdfPath, "page", page, "error", err)
			continue
		}

		tables = append(tables, PageTable{Page: page, Grid: grid})
	}
	return tables, nil
}

// TextFromPDF extracts the plain text of every page, preferring the native
// text layer and falling back to OCR for pages without one (scanned PDFs).
// Pages are separated by "=== Page N ===" markers, as in per-page review
// workflows.
func (s *Service) TextFromPDF(ctx context.Context, pdfPath string) (string, error) {
	pages, err := s.pageCount(pdfPath)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := s.textLayer(pdfPath, page)
		if err != nil || len(text) < minTextLayerChars {
			text, err = s.ocrPage(ctx, pdfPath, page)
			if err != nil {
				slog.Warn("skipping page, text extraction failed", "path", pdfPath, "page", page, "error", err)
				continue
			}
		}

		fmt.Fprintf(&sb, "\n=== Page %d ===\n%s\n", page, text)
	}
	return sb.String(), nil
}

// Pages with fewer native characters than this are treated as scanned.
const minTextLayerChars = 50

func (s *Service) ocrPage(ctx context.Context, pdfPath string, page int) (string, error) {
	image, err := s.renderer.RenderPage(ctx, pdfPath, page)
	if err != nil {
		return "", err
	}
	return s.detector.RecognizeText(ctx, image)
}
