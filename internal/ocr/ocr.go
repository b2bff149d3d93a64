package ocr

import "context"

// Token is a single recognized text fragment with its bounding box and the
// engine's confidence score on a 0-100 scale.
type Token struct {
	Text       string  `json:"text"`
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Detector abstracts the OCR engine. Implementations return tokens in the
// engine's native order, which is typically reading order.
type Detector interface {
	DetectTokens(ctx context.Context, image []byte) ([]Token, error)
	RecognizeText(ctx context.Context, image []byte) (string, error)
}
