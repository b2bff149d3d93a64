package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/ocr"
)

type fakeDetector struct {
	tokens map[string][]ocr.Token
	text   map[string]string
	err    error
}

func (f *fakeDetector) DetectTokens(_ context.Context, image []byte) ([]ocr.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens[string(image)], nil
}

func (f *fakeDetector) RecognizeText(_ context.Context, image []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text[string(image)], nil
}

type fakeRenderer struct {
	failPages map[int]bool
}

func (f *fakeRenderer) RenderPage(_ context.Context, _ string, page int) ([]byte, error) {
	if f.failPages[page] {
		return nil, errors.New("render failed")
	}
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

func testConfig() config.TableConfig {
	return config.TableConfig{ConfidenceThreshold: 30, RowBuckets: 2, ColBuckets: 2}
}

func TestTableFromImage(t *testing.T) {
	det := &fakeDetector{tokens: map[string][]ocr.Token{
		"img": {
			{Text: "name", Top: 0, Left: 0, Confidence: 95},
			{Text: "amount", Top: 0, Left: 100, Confidence: 95},
			{Text: "rent", Top: 200, Left: 0, Confidence: 95},
			{Text: "5000", Top: 200, Left: 100, Confidence: 95},
			{Text: "noise", Top: 100, Left: 50, Confidence: 12},
		},
	}}

	svc := NewService(det, &fakeRenderer{}, testConfig())
	grid, err := svc.TableFromImage(context.Background(), []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, "name", grid[0][0])
	assert.Equal(t, "amount", grid[0][1])
	assert.Equal(t, "rent", grid[1][0])
	assert.Equal(t, "5000", grid[1][1])
}

func TestTablesFromPDFSkipsFailedPages(t *testing.T) {
	det := &fakeDetector{tokens: map[string][]ocr.Token{
		"page-1": {{Text: "first", Top: 0, Left: 0, Confidence: 90}},
		"page-3": {{Text: "third", Top: 0, Left: 0, Confidence: 90}},
	}}

	svc := NewService(det, &fakeRenderer{failPages: map[int]bool{2: true}}, testConfig())
	svc.pageCount = func(string) (int, error) { return 3, nil }

	tables, err := svc.TablesFromPDF(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, 1, tables[0].Page)
	assert.Equal(t, "first", tables[0].Grid[0][0])
	assert.Equal(t, 3, tables[1].Page)
	assert.Equal(t, "third", tables[1].Grid[0][0])
}

func TestTablesFromPDFMissingFile(t *testing.T) {
	svc := NewService(&fakeDetector{}, &fakeRenderer{}, testConfig())
	svc.pageCount = func(string) (int, error) { return 0, errors.New("no such file") }

	_, err := svc.TablesFromPDF(context.Background(), "missing.pdf")
	assert.Error(t, err)
}

func TestTextFromPDFPrefersTextLayer(t *testing.T) {
	det := &fakeDetector{text: map[string]string{"page-2": "scanned page text"}}

	svc := NewService(det, &fakeRenderer{}, testConfig())
	svc.pageCount = func(string) (int, error) { return 2, nil }
	svc.textLayer = func(_ string, page int) (string, error) {
		if page == 1 {
			return "native text layer of the first page, long enough to trust", nil
		}
		return "", nil // page 2 is scanned
	}

	text, err := svc.TextFromPDF(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "=== Page 1 ===")
	assert.Contains(t, text, "native text layer of the first page")
	assert.Contains(t, text, "=== Page 2 ===")
	assert.Contains(t, text, "scanned page text")
}

func TestTextFromPDFCancelled(t *testing.T) {
	svc := NewService(&fakeDetector{}, &fakeRenderer{}, testConfig())
	svc.pageCount = func(string) (int, error) { return 5, nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.TextFromPDF(ctx, "doc.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
