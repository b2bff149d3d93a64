// Package searchindex is a typed client for the hosted document-search
// service: file uploads, deferred index creation with operation polling,
// and assistant-backed queries over an index. The service owns all index
// structure; this client only drives its lifecycle.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/paperlane/docpipe/internal/config"
)

type Client struct {
	baseURL      string
	apiKey       string
	folderID     string
	fileTTLDays  int
	chunkSize    int
	chunkOverlap int
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
}

func NewClient(cfg config.SearchConfig) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		folderID:     cfg.FolderID,
		fileTTLDays:  cfg.FileTTLDays,
		chunkSize:    cfg.ChunkSizeTokens,
		chunkOverlap: cfg.ChunkOverlapTokens,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
	}
}

// File is a document uploaded to the service, the unit indexes are built
// from.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadFile uploads one local file with the configured TTL.
func (c *Client) UploadFile(ctx context.Context, localPath string) (*File, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy file data: %w", err)
	}
	if err := mw.WriteField("folder_id", c.folderID); err != nil {
		return nil, fmt.Errorf("write folder field: %w", err)
	}
	if err := mw.WriteField("ttl_days", fmt.Sprint(c.fileTTLDays)); err != nil {
		return nil, fmt.Errorf("write ttl field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var file File
	if err := c.do(req, &file); err != nil {
		return nil, fmt.Errorf("upload %s: %w", localPath, err)
	}
	return &file, nil
}

// UploadFiles uploads each path in order, stopping on the first failure.
func (c *Client) UploadFiles(ctx context.Context, paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := c.UploadFile(ctx, p)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, nil
}

// DeleteFile removes an uploaded file from the service.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/files/"+fileID, nil, nil)
}

// doJSON issues a JSON request against path and decodes the response into
// out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s failed (%d): %s", req.Method, req.URL.Path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
