package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/paperlane/docpipe/internal/finance"
)

type FinanceHandler struct {
	verifier *finance.Verifier
}

func NewFinanceHandler(v *finance.Verifier) *FinanceHandler {
	return &FinanceHandler{verifier: v}
}

// Verify compares a current financial report against a previous one. Both
// arrive as multipart files (json, csv or xlsx); the previous report is
// optional.
func (h *FinanceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	current, err := reportFromForm(r, "current")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current report: " + err.Error()})
		return
	}

	previous, err := reportFromForm(r, "previous")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "previous report: " + err.Error()})
		return
	}

	result, err := h.verifier.Check(r.Context(), current, previous)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func reportFromForm(r *http.Request, field string) (*finance.Report, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	path, cleanup, err := spoolUpload(file, header.Filename)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return finance.ParseFile(path)
}

func spoolUpload(file multipart.File, name string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "docpipe-report-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	tmp.Close()
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
