package searchindex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Assistant is a hosted agent bound to one or more search indexes.
type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Thread is a hosted conversation an assistant runs over.
type Thread struct {
	ID string `json:"id"`
}

// Run is one assistant invocation on a thread.
type Run struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// Citation points at the indexed file chunk a run's answer was grounded on.
type Citation struct {
	Text   string `json:"text"`
	FileID string `json:"file_id"`
}

// SearchResult is one grounded fragment returned for a query.
type SearchResult struct {
	Text   string `json:"text"`
	FileID string `json:"file_id"`
}

const searchInstruction = "Используй инструмент поиска по документам для ответа на запрос. Если информация не найдена в документах, сообщи об этом."

type createAssistantRequest struct {
	FolderID       string   `json:"folder_id"`
	Name           string   `json:"name,omitempty"`
	ModelURI       string   `json:"model_uri"`
	Instruction    string   `json:"instruction"`
	SearchIndexIDs []string `json:"search_index_ids"`
}

// CreateAssistant registers an assistant with a search tool over indexID.
func (c *Client) CreateAssistant(ctx context.Context, name, modelURI, indexID string) (*Assistant, error) {
	req := createAssistantRequest{
		FolderID:       c.folderID,
		Name:           name,
		ModelURI:       modelURI,
		Instruction:    searchInstruction,
		SearchIndexIDs: []string{indexID},
	}

	var a Assistant
	if err := c.doJSON(ctx, http.MethodPost, "/assistants", req, &a); err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}
	return &a, nil
}

func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/assistants/"+assistantID, nil, nil); err != nil {
		return fmt.Errorf("delete assistant %s: %w", assistantID, err)
	}
	return nil
}

func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var t Thread
	req := map[string]string{"folder_id": c.folderID}
	if err := c.doJSON(ctx, http.MethodPost, "/threads", req, &t); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return &t, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/threads/"+threadID, nil, nil); err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

// WriteMessage appends a user message to the thread.
func (c *Client) WriteMessage(ctx context.Context, threadID, content string) error {
	req := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/messages", req, nil); err != nil {
		return fmt.Errorf("write message to thread %s: %w", threadID, err)
	}
	return nil
}

// RunAndWait starts the assistant on the thread and polls the run until it
// completes, bounded by the poll timeout.
func (c *Client) RunAndWait(ctx context.Context, assistantID, threadID string) (*Run, error) {
	req := map[string]string{"assistant_id": assistantID, "thread_id": threadID}

	var run Run
	if err := c.doJSON(ctx, http.MethodPost, "/runs", req, &run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	deadline := time.Now().Add(c.pollTimeout)
	for {
		var current Run
		if err := c.doJSON(ctx, http.MethodGet, "/runs/"+run.ID, nil, &current); err != nil {
			return nil, err
		}
		switch current.Status {
		case "completed":
			return &current, nil
		case "failed":
			return nil, fmt.Errorf("run %s failed", run.ID)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: run %s after %s", ErrOperationTimeout, run.ID, c.pollTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Search queries an index through a transient assistant and thread, both
// deleted before returning. limit caps the number of grounded fragments.
func (c *Client) Search(ctx context.Context, indexID, modelURI, query string, limit int) ([]SearchResult, error) {
	assistant, err := c.CreateAssistant(ctx, "", modelURI, indexID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.DeleteAssistant(ctx, assistant.ID); err != nil {
			slog.Warn("failed to delete transient assistant", "assistant_id", assistant.ID, "error", err)
		}
	}()

	thread, err := c.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.DeleteThread(ctx, thread.ID); err != nil {
			slog.Warn("failed to delete transient thread", "thread_id", thread.ID, "error", err)
		}
	}()

	if err := c.WriteMessage(ctx, thread.ID, query); err != nil {
		return nil, err
	}

	run, err := c.RunAndWait(ctx, assistant.ID, thread.ID)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(run.Citations))
	for _, citation := range run.Citations {
		results = append(results, SearchResult{Text: citation.Text, FileID: citation.FileID})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
