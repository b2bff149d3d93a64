package handlers

import (
	"io"
	"net/http"

	"github.com/paperlane/docpipe/internal/extract"
	"github.com/paperlane/docpipe/internal/table"
)

// ExtractHandler serves synchronous, in-request table extraction from a
// single page image. Whole-PDF jobs go through the async document route.
type ExtractHandler struct {
	svc *extract.Service
}

func NewExtractHandler(svc *extract.Service) *ExtractHandler {
	return &ExtractHandler{svc: svc}
}

func (h *ExtractHandler) TableFromImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "read upload"})
		return
	}

	grid, err := h.svc.TableFromImage(r.Context(), image)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"headers": table.Headers(len(grid[0])),
		"rows":    grid,
	})
}
