package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperlane/docpipe/internal/indexer"
	"github.com/paperlane/docpipe/internal/queue"
)

type IndexHandler struct {
	svc   *indexer.Service
	tasks *queue.Client
}

func NewIndexHandler(svc *indexer.Service, tasks *queue.Client) *IndexHandler {
	return &IndexHandler{svc: svc, tasks: tasks}
}

type createIndexRequest struct {
	Name        string   `json:"name"`
	DocumentIDs []string `json:"document_ids"`
}

// Create queues a background index build over the named documents.
func (h *IndexHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	if len(req.DocumentIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document_ids required"})
		return
	}
	for _, raw := range req.DocumentIDs {
		if _, err := uuid.Parse(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID: " + raw})
			return
		}
	}

	if err := h.tasks.EnqueueIndexBuild(queue.IndexBuildPayload{Name: req.Name, DocumentIDs: req.DocumentIDs}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"name": req.Name, "status": "queued"})
}

func (h *IndexHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListIndexes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"indexes": recs, "count": len(recs)})
}

func (h *IndexHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index ID"})
		return
	}

	rec, err := h.svc.GetIndex(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "index not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *IndexHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index ID"})
		return
	}

	if err := h.svc.DeleteIndex(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *IndexHandler) Search(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index ID"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// GET-style query params are accepted too.
		req.Query = r.URL.Query().Get("query")
		req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query required"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	results, err := h.svc.Search(r.Context(), id, req.Query, req.Limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}
