// Package indexer orchestrates the document lifecycle: object-storage
// upload, registration in Postgres, hosted search-index builds, and
// grounded search over a built index.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperlane/docpipe/internal/models"
	"github.com/paperlane/docpipe/internal/searchindex"
	"github.com/paperlane/docpipe/internal/storage"
)

// SearchService is the subset of the hosted search client the indexer
// drives.
type SearchService interface {
	UploadFile(ctx context.Context, localPath string) (*searchindex.File, error)
	CreateIndexAndWait(ctx context.Context, name string, fileIDs []string) (*searchindex.Index, error)
	DeleteIndex(ctx context.Context, indexID string) error
	DeleteFile(ctx context.Context, fileID string) error
	Search(ctx context.Context, indexID, modelURI, query string, limit int) ([]searchindex.SearchResult, error)
}

type Service struct {
	db       *pgxpool.Pool
	storage  storage.Storage
	search   SearchService
	modelURI string
}

func NewService(db *pgxpool.Pool, store storage.Storage, search SearchService, modelURI string) *Service {
	return &Service{
		db:       db,
		storage:  store,
		search:   search,
		modelURI: modelURI,
	}
}

type UploadRequest struct {
	Name        string
	ContentType string
	SizeBytes   int64
	LocalPath   string
}

// UploadDocument pushes a local file into object storage under a fresh key
// and registers it as pending.
func (s *Service) UploadDocument(ctx context.Context, req UploadRequest) (*models.Document, error) {
	docID := uuid.New()
	key := fmt.Sprintf("documents/%s/%s", docID, filepath.Base(req.Name))

	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeFor(req.Name)
	}

	if _, err := s.storage.UploadFile(ctx, req.LocalPath, key); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	var doc models.Document
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, name, content_type, storage_key, size_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, name, content_type, storage_key, size_bytes, status, created_at, updated_at`,
		docID, req.Name, contentType, key, req.SizeBytes, models.DocStatusPending,
	).Scan(&doc.ID, &doc.Name, &doc.ContentType, &doc.StorageKey, &doc.SizeBytes, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	return &doc, nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, name, content_type, storage_key, size_bytes, status, error, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.Name, &doc.ContentType, &doc.StorageKey, &doc.SizeBytes, &doc.Status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, content_type, storage_key, size_bytes, status, error, created_at, updated_at
		 FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.ContentType, &d.StorageKey, &d.SizeBytes, &d.Status, &d.Error, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if doc.StorageKey != "" {
		if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
			slog.Warn("failed to delete stored object", "key", doc.StorageKey, "error", err)
		}
	}

	_, err = s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	return err
}

func (s *Service) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string, docErr error) error {
	var msg *string
	if docErr != nil {
		m := docErr.Error()
		msg = &m
	}
	_, err := s.db.Exec(ctx,
		"UPDATE documents SET status = $1, error = $2, updated_at = now() WHERE id = $3",
		status, msg, id,
	)
	return err
}

// BuildIndex downloads the named documents from object storage, pushes them
// to the hosted search service, builds an index over them, and records the
// result in the local registry. Documents are marked processing for the
// duration of the build and ready (or failed) at the end.
func (s *Service) BuildIndex(ctx context.Context, name string, docIDs []uuid.UUID) (*models.SearchIndexRecord, error) {
	if len(docIDs) == 0 {
		return nil, fmt.Errorf("no documents to index")
	}

	docs := make([]*models.Document, 0, len(docIDs))
	for _, id := range docIDs {
		doc, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	for _, doc := range docs {
		if err := s.UpdateDocumentStatus(ctx, doc.ID, models.DocStatusProcessing, nil); err != nil {
			return nil, err
		}
	}

	rec, err := s.buildIndex(ctx, name, docs)
	status := models.DocStatusReady
	if err != nil {
		status = models.DocStatusFailed
	}
	for _, doc := range docs {
		if uerr := s.UpdateDocumentStatus(ctx, doc.ID, status, err); uerr != nil {
			slog.Error("failed to update document status", "document_id", doc.ID, "error", uerr)
		}
	}
	return rec, err
}

func (s *Service) buildIndex(ctx context.Context, name string, docs []*models.Document) (*models.SearchIndexRecord, error) {
	tmpDir, err := os.MkdirTemp("", "docpipe-index-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	type uploaded struct {
		doc    *models.Document
		fileID string
	}
	files := make([]uploaded, 0, len(docs))
	fileIDs := make([]string, 0, len(docs))

	for _, doc := range docs {
		local := filepath.Join(tmpDir, doc.ID.String()+filepath.Ext(doc.Name))
		if err := s.storage.DownloadFile(ctx, doc.StorageKey, local); err != nil {
			return nil, fmt.Errorf("stage document %s: %w", doc.ID, err)
		}

		f, err := s.search.UploadFile(ctx, local)
		if err != nil {
			return nil, fmt.Errorf("upload document %s to search service: %w", doc.ID, err)
		}
		files = append(files, uploaded{doc: doc, fileID: f.ID})
		fileIDs = append(fileIDs, f.ID)
	}

	idx, err := s.search.CreateIndexAndWait(ctx, name, fileIDs)
	if err != nil {
		return nil, fmt.Errorf("build index %q: %w", name, err)
	}

	var rec models.SearchIndexRecord
	err = s.db.QueryRow(ctx,
		`INSERT INTO search_indexes (name, remote_id, status, file_count)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, remote_id, status, file_count, created_at`,
		name, idx.ID, models.IndexStatusReady, len(fileIDs),
	).Scan(&rec.ID, &rec.Name, &rec.RemoteID, &rec.Status, &rec.FileCount, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("register index: %w", err)
	}

	for _, f := range files {
		if _, err := s.db.Exec(ctx,
			"INSERT INTO index_documents (index_id, document_id, remote_file_id) VALUES ($1, $2, $3)",
			rec.ID, f.doc.ID, f.fileID,
		); err != nil {
			return nil, fmt.Errorf("link document %s to index: %w", f.doc.ID, err)
		}
	}

	slog.Info("search index ready", "index_id", rec.ID, "remote_id", rec.RemoteID, "files", rec.FileCount)
	return &rec, nil
}

func (s *Service) GetIndex(ctx context.Context, id uuid.UUID) (*models.SearchIndexRecord, error) {
	var rec models.SearchIndexRecord
	err := s.db.QueryRow(ctx,
		`SELECT id, name, remote_id, status, file_count, created_at, deleted_at
		 FROM search_indexes WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&rec.ID, &rec.Name, &rec.RemoteID, &rec.Status, &rec.FileCount, &rec.CreatedAt, &rec.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	return &rec, nil
}

func (s *Service) ListIndexes(ctx context.Context) ([]models.SearchIndexRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, remote_id, status, file_count, created_at, deleted_at
		 FROM search_indexes WHERE deleted_at IS NULL ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	defer rows.Close()

	var recs []models.SearchIndexRecord
	for rows.Next() {
		var r models.SearchIndexRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.RemoteID, &r.Status, &r.FileCount, &r.CreatedAt, &r.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// DeleteIndex removes the hosted index and its uploaded files, then
// soft-deletes the registry row. Remote file deletion is best-effort; the
// service expires them by TTL anyway.
func (s *Service) DeleteIndex(ctx context.Context, id uuid.UUID) error {
	rec, err := s.GetIndex(ctx, id)
	if err != nil {
		return err
	}

	if err := s.search.DeleteIndex(ctx, rec.RemoteID); err != nil {
		return err
	}

	rows, err := s.db.Query(ctx, "SELECT remote_file_id FROM index_documents WHERE index_id = $1", rec.ID)
	if err != nil {
		return fmt.Errorf("list index files: %w", err)
	}
	defer rows.Close()

	var fileIDs []string
	for rows.Next() {
		var fid string
		if err := rows.Scan(&fid); err != nil {
			return fmt.Errorf("scan index file: %w", err)
		}
		fileIDs = append(fileIDs, fid)
	}
	for _, fid := range fileIDs {
		if err := s.search.DeleteFile(ctx, fid); err != nil {
			slog.Warn("failed to delete remote file", "file_id", fid, "error", err)
		}
	}

	_, err = s.db.Exec(ctx, "UPDATE search_indexes SET deleted_at = now() WHERE id = $1", rec.ID)
	return err
}

// Search runs a grounded query against a registered index.
func (s *Service) Search(ctx context.Context, id uuid.UUID, query string, limit int) ([]searchindex.SearchResult, error) {
	rec, err := s.GetIndex(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.search.Search(ctx, rec.RemoteID, s.modelURI, query, limit)
}
