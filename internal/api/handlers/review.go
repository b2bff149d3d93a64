package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paperlane/docpipe/internal/review"
)

type ReviewHandler struct {
	svc *review.Service
}

func NewReviewHandler(svc *review.Service) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

type reviewRequest struct {
	Content string `json:"content"`
}

func (h *ReviewHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content required"})
		return
	}

	verdict, err := h.svc.Review(r.Context(), req.Content)
	if err != nil {
		if errors.Is(err, review.ErrUnparseableVerdict) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, verdict)
}
