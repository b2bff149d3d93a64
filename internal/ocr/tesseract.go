package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractDetector runs the Tesseract engine through gosseract. A fresh
// client is created per call; gosseract clients are not safe for concurrent
// use and are cheap to construct next to the recognition cost.
type TesseractDetector struct {
	language    string
	pageSegMode gosseract.PageSegMode
	newClient   func() *gosseract.Client
}

type Option func(*TesseractDetector)

// WithLanguage sets the recognition language, e.g. "rus" or "rus+eng".
func WithLanguage(lang string) Option {
	return func(d *TesseractDetector) {
		if lang != "" {
			d.language = lang
		}
	}
}

// WithPageSegMode sets the Tesseract page segmentation mode. Sparse text
// (mode 11) works best for table layouts without ruling lines.
func WithPageSegMode(mode int) Option {
	return func(d *TesseractDetector) {
		if mode >= 0 && mode <= 13 {
			d.pageSegMode = gosseract.PageSegMode(mode)
		}
	}
}

func NewTesseractDetector(opts ...Option) *TesseractDetector {
	d := &TesseractDetector{
		language:    "eng",
		pageSegMode: gosseract.PSM_SPARSE_TEXT,
		newClient:   gosseract.NewClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectTokens returns every recognized word with its box and confidence.
func (d *TesseractDetector) DetectTokens(ctx context.Context, image []byte) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := d.newClient()
	defer c.Close()

	if err := d.configure(c, image); err != nil {
		return nil, err
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("get bounding boxes: %w", err)
	}

	tokens := make([]Token, 0, len(boxes))
	for _, b := range boxes {
		tokens = append(tokens, Token{
			Text:       b.Word,
			Left:       float64(b.Box.Min.X),
			Top:        float64(b.Box.Min.Y),
			Width:      float64(b.Box.Dx()),
			Height:     float64(b.Box.Dy()),
			Confidence: b.Confidence,
		})
	}
	return tokens, nil
}

// RecognizeText returns the plain recognized text of the whole image.
func (d *TesseractDetector) RecognizeText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := d.newClient()
	defer c.Close()

	if err := d.configure(c, image); err != nil {
		return "", err
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (d *TesseractDetector) configure(c *gosseract.Client, image []byte) error {
	if err := c.SetImageFromBytes(image); err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(strings.Split(d.language, "+")...); err != nil {
		return fmt.Errorf("set language %q: %w", d.language, err)
	}
	if err := c.SetPageSegMode(d.pageSegMode); err != nil {
		return fmt.Errorf("set page seg mode: %w", err)
	}
	return nil
}
