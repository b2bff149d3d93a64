// Package table reconstructs a coarse row/column grid from positioned OCR
// tokens. Tokens are filtered by confidence, binned by their top/left
// coordinates into a fixed number of equal-width buckets, and concatenated
// per cell in detector order.
package table

import (
	"fmt"
	"strings"

	"github.com/paperlane/docpipe/internal/ocr"
)

// Grid is a dense rows x cols table of cell texts. Empty cells hold "".
type Grid [][]string

// DefaultConfidenceThreshold drops tokens at or below this confidence.
const DefaultConfidenceThreshold = 30

// Filter removes tokens with confidence at or below threshold and tokens
// whose text is empty or whitespace-only. Surviving tokens keep their order
// and get trimmed text. Filtering an already-filtered list is a no-op.
func Filter(tokens []ocr.Token, threshold float64) []ocr.Token {
	out := make([]ocr.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Confidence <= threshold {
			continue
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		t.Text = text
		out = append(out, t)
	}
	return out
}

// Assemble bins tokens into a rows x cols grid over the observed coordinate
// range and joins same-cell texts with a single space, in input order. The
// result always has exactly rows x cols cells; an empty token list yields an
// all-empty grid.
func Assemble(tokens []ocr.Token, rows, cols int) (Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("bucket counts must be positive, got %dx%d", rows, cols)
	}

	grid := make(Grid, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
	}
	if len(tokens) == 0 {
		return grid, nil
	}

	minTop, maxTop := coordRange(tokens, func(t ocr.Token) float64 { return t.Top })
	minLeft, maxLeft := coordRange(tokens, func(t ocr.Token) float64 { return t.Left })

	for _, t := range tokens {
		r := bucket(t.Top, minTop, maxTop, rows)
		c := bucket(t.Left, minLeft, maxLeft, cols)
		if grid[r][c] == "" {
			grid[r][c] = t.Text
		} else {
			grid[r][c] += " " + t.Text
		}
	}
	return grid, nil
}

// bucket maps value into one of n equal-width buckets over [min, max],
// clamped to [0, n-1]. A degenerate range (max == min) collapses everything
// into bucket 0 rather than dividing by zero.
func bucket(value, min, max float64, n int) int {
	if max <= min {
		return 0
	}
	idx := int((value - min) / (max - min) * float64(n))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func coordRange(tokens []ocr.Token, coord func(ocr.Token) float64) (float64, float64) {
	min, max := coord(tokens[0]), coord(tokens[0])
	for _, t := range tokens[1:] {
		v := coord(t)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Headers returns the synthetic column names Column_0 .. Column_{n-1}.
func Headers(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = fmt.Sprintf("Column_%d", i)
	}
	return h
}
