package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperlane/docpipe/internal/indexer"
	"github.com/paperlane/docpipe/internal/queue"
)

type DocumentHandler struct {
	svc   *indexer.Service
	db    *pgxpool.Pool
	tasks *queue.Client
}

func NewDocumentHandler(svc *indexer.Service, db *pgxpool.Pool, tasks *queue.Client) *DocumentHandler {
	return &DocumentHandler{svc: svc, db: db, tasks: tasks}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil { // 64MB max
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	// Spool to disk; both the object store and the search service take paths.
	tmp, err := os.CreateTemp("", "docpipe-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create temp file"})
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "spool upload"})
		return
	}

	doc, err := h.svc.UploadDocument(r.Context(), indexer.UploadRequest{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
		LocalPath:   tmp.Name(),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	docs, err := h.svc.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Extract queues a table or text extraction job for a stored document.
func (h *DocumentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "table"
	}
	if kind != "table" && kind != "text" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be table or text"})
		return
	}

	if _, err := h.svc.GetDocument(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}

	var extractionID uuid.UUID
	err = h.db.QueryRow(r.Context(),
		"INSERT INTO extractions (document_id, kind) VALUES ($1, $2) RETURNING id",
		id, kind,
	).Scan(&extractionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	payload := queue.ExtractPayload{ExtractionID: extractionID.String(), DocumentID: id.String()}
	if kind == "table" {
		err = h.tasks.EnqueueExtractTable(payload)
	} else {
		err = h.tasks.EnqueueExtractText(payload)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"extraction_id": extractionID.String(), "status": "queued"})
}

// ExtractionStatus reports one extraction job's state and result location.
func (h *DocumentHandler) ExtractionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "extractionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid extraction ID"})
		return
	}

	var status string
	var resultKey, errMsg *string
	err = h.db.QueryRow(r.Context(),
		"SELECT status, result_key, error FROM extractions WHERE id = $1",
		id,
	).Scan(&status, &resultKey, &errMsg)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "extraction not found"})
		return
	}

	resp := map[string]interface{}{"id": id.String(), "status": status}
	if resultKey != nil {
		resp["result_key"] = *resultKey
	}
	if errMsg != nil {
		resp["error"] = *errMsg
	}
	writeJSON(w, http.StatusOK, resp)
}
