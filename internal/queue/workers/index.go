package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/paperlane/docpipe/internal/indexer"
	"github.com/paperlane/docpipe/internal/queue"
)

// IndexWorker builds hosted search indexes over already-uploaded documents.
type IndexWorker struct {
	indexer *indexer.Service
}

func NewIndexWorker(svc *indexer.Service) *IndexWorker {
	return &IndexWorker{indexer: svc}
}

func (w *IndexWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.IndexBuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docIDs := make([]uuid.UUID, 0, len(payload.DocumentIDs))
	for _, raw := range payload.DocumentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse document ID %q: %w", raw, err)
		}
		docIDs = append(docIDs, id)
	}

	slog.Info("building search index", "name", payload.Name, "documents", len(docIDs))

	rec, err := w.indexer.BuildIndex(ctx, payload.Name, docIDs)
	if err != nil {
		return fmt.Errorf("build index %q: %w", payload.Name, err)
	}

	slog.Info("search index built", "index_id", rec.ID, "remote_id", rec.RemoteID)
	return nil
}
