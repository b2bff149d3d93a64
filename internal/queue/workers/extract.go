// Package workers holds the asynq task handlers run by the worker binary.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperlane/docpipe/internal/extract"
	"github.com/paperlane/docpipe/internal/indexer"
	"github.com/paperlane/docpipe/internal/models"
	"github.com/paperlane/docpipe/internal/queue"
	"github.com/paperlane/docpipe/internal/storage"
	"github.com/paperlane/docpipe/internal/table"
)

// ExtractWorker runs OCR table and text extraction jobs. Results go back
// into object storage next to the source document; the extractions row
// records where.
type ExtractWorker struct {
	db      *pgxpool.Pool
	docs    *indexer.Service
	storage storage.Storage
	extract *extract.Service
}

func NewExtractWorker(db *pgxpool.Pool, docs *indexer.Service, store storage.Storage, ext *extract.Service) *ExtractWorker {
	return &ExtractWorker{db: db, docs: docs, storage: store, extract: ext}
}

func (w *ExtractWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ExtractPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	extractionID, err := uuid.Parse(payload.ExtractionID)
	if err != nil {
		return fmt.Errorf("parse extraction ID: %w", err)
	}
	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	kind := models.ExtractionKindText
	if t.Type() == queue.TypeExtractTable {
		kind = models.ExtractionKindTable
	}
	slog.Info("running extraction", "extraction_id", extractionID, "document_id", docID, "kind", kind)

	resultKey, err := w.run(ctx, docID, kind)
	if ferr := w.finish(ctx, extractionID, resultKey, err); ferr != nil {
		return ferr
	}
	return err
}

func (w *ExtractWorker) run(ctx context.Context, docID uuid.UUID, kind string) (string, error) {
	doc, err := w.docs.GetDocument(ctx, docID)
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "docpipe-extract-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	local := filepath.Join(tmpDir, filepath.Base(doc.Name))
	if err := w.storage.DownloadFile(ctx, doc.StorageKey, local); err != nil {
		return "", fmt.Errorf("stage document: %w", err)
	}

	switch kind {
	case models.ExtractionKindTable:
		return w.extractTables(ctx, doc, local, tmpDir)
	case models.ExtractionKindText:
		return w.extractText(ctx, doc, local)
	default:
		return "", fmt.Errorf("unknown extraction kind %q", kind)
	}
}

func (w *ExtractWorker) extractTables(ctx context.Context, doc *models.Document, local, tmpDir string) (string, error) {
	var pages []extract.PageTable

	if strings.EqualFold(filepath.Ext(local), ".pdf") {
		var err error
		pages, err = w.extract.TablesFromPDF(ctx, local)
		if err != nil {
			return "", err
		}
	} else {
		grid, err := w.extract.TableFromImageFile(ctx, local)
		if err != nil {
			return "", err
		}
		pages = []extract.PageTable{{Page: 1, Grid: grid}}
	}

	prefix := fmt.Sprintf("extractions/%s/tables", doc.ID)
	var lastKey string
	for _, p := range pages {
		out := filepath.Join(tmpDir, fmt.Sprintf("page_%d.xlsx", p.Page))
		if err := table.WriteXLSX(p.Grid, out); err != nil {
			return "", fmt.Errorf("write xlsx for page %d: %w", p.Page, err)
		}
		key := fmt.Sprintf("%s/page_%d.xlsx", prefix, p.Page)
		if _, err := w.storage.UploadFile(ctx, out, key); err != nil {
			return "", fmt.Errorf("upload table for page %d: %w", p.Page, err)
		}
		lastKey = key
	}
	if lastKey == "" {
		return "", fmt.Errorf("no tables extracted from %s", doc.Name)
	}
	return prefix, nil
}

func (w *ExtractWorker) extractText(ctx context.Context, doc *models.Document, local string) (string, error) {
	text, err := w.extract.TextFromPDF(ctx, local)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("extractions/%s/text.txt", doc.ID)
	if err := w.storage.Upload(ctx, key, strings.NewReader(text), "text/plain; charset=utf-8"); err != nil {
		return "", fmt.Errorf("upload extracted text: %w", err)
	}
	return key, nil
}

func (w *ExtractWorker) finish(ctx context.Context, extractionID uuid.UUID, resultKey string, runErr error) error {
	status := "completed"
	var errMsg *string
	var keyPtr *string
	if runErr != nil {
		status = "failed"
		m := runErr.Error()
		errMsg = &m
	} else if resultKey != "" {
		keyPtr = &resultKey
	}

	_, err := w.db.Exec(ctx,
		"UPDATE extractions SET status = $1, result_key = $2, error = $3, completed_at = $4 WHERE id = $5",
		status, keyPtr, errMsg, time.Now().UTC(), extractionID,
	)
	if err != nil {
		return fmt.Errorf("record extraction result: %w", err)
	}
	return nil
}
