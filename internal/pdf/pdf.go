// Package pdf wraps the external PDF collaborators: page counting and
// validation through pdfcpu, page rasterization through the poppler
// pdftoppm binary, and native text-layer extraction through ledongthuc/pdf.
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Rasterizer renders single PDF pages to PNG bitmaps at a target DPI.
type Rasterizer struct {
	pdftoppmPath string
	dpi          int
}

func NewRasterizer(dpi int) *Rasterizer {
	path, _ := exec.LookPath("pdftoppm")
	if path == "" {
		path = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &Rasterizer{pdftoppmPath: path, dpi: dpi}
}

func (r *Rasterizer) IsAvailable() bool {
	cmd := exec.Command(r.pdftoppmPath, "-v")
	return cmd.Run() == nil
}

// RenderPage rasterizes one page (1-based) to PNG bytes.
func (r *Rasterizer) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("stat %s: %w", pdfPath, err)
	}

	tmpDir, err := os.MkdirTemp("", "docpipe-raster-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, r.pdftoppmPath,
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		pdfPath, prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return data, nil
}

// PageCount returns the number of pages, validating the file on the way.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count %s: %w", path, err)
	}
	return n, nil
}

// TextLayer extracts the native text of one page (1-based). Scanned PDFs
// typically return an empty string here, which callers treat as a signal to
// fall back to OCR.
func TextLayer(path string, page int) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	if page < 1 || page > reader.NumPage() {
		return "", fmt.Errorf("page %d out of range (1-%d)", page, reader.NumPage())
	}

	p := reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract text layer: %w", err)
	}
	return strings.TrimSpace(text), nil
}
