package searchindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlane/docpipe/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.SearchConfig{
		BaseURL:            baseURL,
		APIKey:             "test-key",
		FolderID:           "folder-1",
		FileTTLDays:        1,
		ChunkSizeTokens:    700,
		ChunkOverlapTokens: 300,
		PollInterval:       5 * time.Millisecond,
		PollTimeout:        200 * time.Millisecond,
	})
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fakeService records calls against an in-memory search service.
type fakeService struct {
	mu sync.Mutex

	pollsUntilDone int
	polls          int

	deletedIndexes    []string
	deletedAssistants []string
	deletedThreads    []string
	uploadedFiles     []string
}

func (s *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "folder-1", r.FormValue("folder_id"))
		assert.Equal(t, "1", r.FormValue("ttl_days"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)

		s.mu.Lock()
		s.uploadedFiles = append(s.uploadedFiles, header.Filename)
		s.mu.Unlock()

		json.NewEncoder(w).Encode(File{ID: header.Filename + "-id", Name: header.Filename, ExpiresAt: time.Now().Add(24 * time.Hour)})
	})

	mux.HandleFunc("POST /searchIndexes", func(w http.ResponseWriter, r *http.Request) {
		var req createIndexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "folder-1", req.FolderID)
		assert.NotEmpty(t, req.FileIDs)
		assert.Equal(t, 700, req.ChunkingStrategy.MaxChunkSizeTokens)
		json.NewEncoder(w).Encode(Operation{ID: "op-1"})
	})

	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.polls++
		done := s.pollsUntilDone >= 0 && s.polls > s.pollsUntilDone
		s.mu.Unlock()

		op := Operation{ID: "op-1", Done: done}
		if done {
			op.ResourceID = "idx-1"
		}
		json.NewEncoder(w).Encode(op)
	})

	mux.HandleFunc("GET /searchIndexes/idx-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Index{ID: "idx-1", Name: "reports", Status: "ready"})
	})

	mux.HandleFunc("DELETE /searchIndexes/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deletedIndexes = append(s.deletedIndexes, r.PathValue("id"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /assistants", func(w http.ResponseWriter, r *http.Request) {
		var req createAssistantRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"idx-1"}, req.SearchIndexIDs)
		json.NewEncoder(w).Encode(Assistant{ID: "asst-1"})
	})
	mux.HandleFunc("DELETE /assistants/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deletedAssistants = append(s.deletedAssistants, r.PathValue("id"))
		s.mu.Unlock()
	})

	mux.HandleFunc("POST /threads", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Thread{ID: "thr-1"})
	})
	mux.HandleFunc("DELETE /threads/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deletedThreads = append(s.deletedThreads, r.PathValue("id"))
		s.mu.Unlock()
	})
	mux.HandleFunc("POST /threads/thr-1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Run{ID: "run-1", Status: "in_progress"})
	})
	mux.HandleFunc("GET /runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Run{
			ID:     "run-1",
			Status: "completed",
			Text:   "итоговая выручка 100 руб.",
			Citations: []Citation{
				{Text: "выручка 100 руб.", FileID: "report.pdf-id"},
				{Text: "расходы 40 руб.", FileID: "report.pdf-id"},
			},
		})
	})

	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Api-Key test-key", r.Header.Get("Authorization"))
			next.ServeHTTP(w, r)
		})
	}
	return auth(mux)
}

func TestCreateIndexAndWait(t *testing.T) {
	svc := &fakeService{pollsUntilDone: 2}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)

	op, err := c.CreateIndex(context.Background(), "reports", []string{"f-1"})
	require.NoError(t, err)
	assert.Equal(t, "op-1", op.ID)

	done, err := c.WaitOperation(context.Background(), op.ID)
	require.NoError(t, err)
	assert.Equal(t, "idx-1", done.ResourceID)
	assert.GreaterOrEqual(t, svc.polls, 3)

	idx, err := c.GetIndex(context.Background(), done.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, "ready", idx.Status)
}

func TestCreateIndexRequiresFiles(t *testing.T) {
	c := newTestClient("http://unused")
	_, err := c.CreateIndex(context.Background(), "reports", nil)
	assert.Error(t, err)
}

func TestWaitOperationTimeout(t *testing.T) {
	svc := &fakeService{pollsUntilDone: -1} // never done
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.pollTimeout = 25 * time.Millisecond

	_, err := c.WaitOperation(context.Background(), "op-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOperationTimeout)
}

func TestWaitOperationContextCancelled(t *testing.T) {
	svc := &fakeService{pollsUntilDone: -1}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.WaitOperation(ctx, "op-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploadFile(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	path := writeTempFile(t, "report.pdf", "pdf bytes")

	f, err := c.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf-id", f.ID)
	assert.Equal(t, []string{"report.pdf"}, svc.uploadedFiles)
}

func TestWithIndexDeletesOnCallbackError(t *testing.T) {
	svc := &fakeService{pollsUntilDone: 1}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	path := writeTempFile(t, "report.pdf", "pdf bytes")

	wantErr := assert.AnError
	var seen *Index
	err := c.WithIndex(context.Background(), "tmp", []string{path}, func(ctx context.Context, idx *Index) error {
		seen = idx
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	require.NotNil(t, seen)
	assert.Equal(t, "idx-1", seen.ID)
	assert.Equal(t, []string{"idx-1"}, svc.deletedIndexes)
}

func TestWithIndexReleasesIndexFinishedAfterTimeout(t *testing.T) {
	// One in-window poll sees the operation unfinished; the cleanup lookup
	// afterwards sees it done and must still release the index.
	svc := &fakeService{pollsUntilDone: 1}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.pollTimeout = 0

	path := writeTempFile(t, "report.pdf", "pdf bytes")

	err := c.WithIndex(context.Background(), "tmp", []string{path}, func(ctx context.Context, idx *Index) error {
		t.Fatal("callback must not run after a poll timeout")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOperationTimeout)
	assert.Equal(t, []string{"idx-1"}, svc.deletedIndexes)
}

func TestWithIndexDeletesOnSuccess(t *testing.T) {
	svc := &fakeService{pollsUntilDone: 0}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	path := writeTempFile(t, "report.pdf", "pdf bytes")

	err := c.WithIndex(context.Background(), "tmp", []string{path}, func(ctx context.Context, idx *Index) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"idx-1"}, svc.deletedIndexes)
}

func TestSearchCleansUpTransientResources(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)

	results, err := c.Search(context.Background(), "idx-1", "gpt://folder-1/yandexgpt/latest", "какая выручка?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "выручка 100 руб.", results[0].Text)
	assert.Equal(t, "report.pdf-id", results[0].FileID)

	assert.Equal(t, []string{"asst-1"}, svc.deletedAssistants)
	assert.Equal(t, []string{"thr-1"}, svc.deletedThreads)
}
