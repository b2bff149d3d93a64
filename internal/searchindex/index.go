package searchindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Index is a hosted search index built from uploaded files.
type Index struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Operation is a deferred server-side job, polled until Done.
type Operation struct {
	ID         string `json:"id"`
	Done       bool   `json:"done"`
	ResourceID string `json:"resource_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ErrOperationTimeout means the remote operation did not finish within the
// configured poll timeout. The operation may still complete server-side.
var ErrOperationTimeout = errors.New("operation polling timed out")

type createIndexRequest struct {
	FolderID         string           `json:"folder_id"`
	Name             string           `json:"name,omitempty"`
	FileIDs          []string         `json:"file_ids"`
	ChunkingStrategy chunkingStrategy `json:"chunking_strategy"`
}

type chunkingStrategy struct {
	MaxChunkSizeTokens int `json:"max_chunk_size_tokens"`
	ChunkOverlapTokens int `json:"chunk_overlap_tokens"`
}

// CreateIndex starts building an index from the given files and returns the
// deferred operation handle without waiting for it.
func (c *Client) CreateIndex(ctx context.Context, name string, fileIDs []string) (*Operation, error) {
	if len(fileIDs) == 0 {
		return nil, errors.New("no files to index")
	}

	req := createIndexRequest{
		FolderID: c.folderID,
		Name:     name,
		FileIDs:  fileIDs,
		ChunkingStrategy: chunkingStrategy{
			MaxChunkSizeTokens: c.chunkSize,
			ChunkOverlapTokens: c.chunkOverlap,
		},
	}

	var op Operation
	if err := c.doJSON(ctx, http.MethodPost, "/searchIndexes", req, &op); err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &op, nil
}

// WaitOperation polls the operation until it is done, the poll timeout
// elapses, or ctx is cancelled. On success the finished operation carries
// the created resource ID.
func (c *Client) WaitOperation(ctx context.Context, opID string) (*Operation, error) {
	deadline := time.Now().Add(c.pollTimeout)

	for {
		var op Operation
		if err := c.doJSON(ctx, http.MethodGet, "/operations/"+opID, nil, &op); err != nil {
			return nil, err
		}
		if op.Done {
			if op.Error != "" {
				return nil, fmt.Errorf("operation %s failed: %s", opID, op.Error)
			}
			return &op, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: operation %s after %s", ErrOperationTimeout, opID, c.pollTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// CreateIndexAndWait builds an index and blocks until it is ready.
func (c *Client) CreateIndexAndWait(ctx context.Context, name string, fileIDs []string) (*Index, error) {
	op, err := c.CreateIndex(ctx, name, fileIDs)
	if err != nil {
		return nil, err
	}

	done, err := c.WaitOperation(ctx, op.ID)
	if err != nil {
		return nil, err
	}
	return c.GetIndex(ctx, done.ResourceID)
}

func (c *Client) GetIndex(ctx context.Context, indexID string) (*Index, error) {
	var idx Index
	if err := c.doJSON(ctx, http.MethodGet, "/searchIndexes/"+indexID, nil, &idx); err != nil {
		return nil, fmt.Errorf("get index %s: %w", indexID, err)
	}
	return &idx, nil
}

func (c *Client) ListIndexes(ctx context.Context) ([]Index, error) {
	var out struct {
		Indexes []Index `json:"indexes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/searchIndexes?folder_id="+c.folderID, nil, &out); err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return out.Indexes, nil
}

func (c *Client) DeleteIndex(ctx context.Context, indexID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/searchIndexes/"+indexID, nil, nil); err != nil {
		return fmt.Errorf("delete index %s: %w", indexID, err)
	}
	return nil
}

// lookupOperation fetches an operation's current state on a fresh context,
// for cleanup paths where the caller ctx may already be cancelled.
func (c *Client) lookupOperation(opID string) *Operation {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var op Operation
	if err := c.doJSON(ctx, http.MethodGet, "/operations/"+opID, nil, &op); err != nil {
		slog.Warn("operation lookup failed during cleanup", "operation_id", opID, "error", err)
		return nil
	}
	return &op
}

// WithIndex builds a temporary index over the given local files, waits for
// it to become ready, invokes fn, and deletes the index on every exit path.
// Deletion happens even when index creation has succeeded but polling or fn
// failed afterwards.
func (c *Client) WithIndex(ctx context.Context, name string, paths []string, fn func(ctx context.Context, index *Index) error) error {
	files, err := c.UploadFiles(ctx, paths)
	if err != nil {
		return err
	}

	fileIDs := make([]string, len(files))
	for i, f := range files {
		fileIDs[i] = f.ID
	}

	op, err := c.CreateIndex(ctx, name, fileIDs)
	if err != nil {
		return err
	}

	release := func(indexID string) {
		// Release must not depend on the (possibly cancelled) caller ctx.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.DeleteIndex(cleanupCtx, indexID); err != nil {
			slog.Error("failed to release temporary index", "index_id", indexID, "error", err)
		}
	}

	done, err := c.WaitOperation(ctx, op.ID)
	if err != nil {
		// The create response may already name the resource; otherwise ask
		// the operation one last time, since it can finish server-side after
		// our polling gave up.
		resourceID := op.ResourceID
		if resourceID == "" {
			if late := c.lookupOperation(op.ID); late != nil && late.Done {
				resourceID = late.ResourceID
			}
		}
		if resourceID != "" {
			release(resourceID)
		}
		return err
	}
	defer release(done.ResourceID)

	idx, err := c.GetIndex(ctx, done.ResourceID)
	if err != nil {
		return err
	}
	return fn(ctx, idx)
}
