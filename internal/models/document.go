package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ContentType string    `json:"content_type" db:"content_type"`
	StorageKey  string    `json:"storage_key" db:"storage_key"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	Status      string    `json:"status" db:"status"`
	Error       *string   `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusReady      = "ready"
	DocStatusFailed     = "failed"
)

// SearchIndexRecord is the local registry row for a hosted search index.
// RemoteID is the service-side identifier; the row survives (soft-deleted)
// after the remote index is removed.
type SearchIndexRecord struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	RemoteID  string     `json:"remote_id" db:"remote_id"`
	Status    string     `json:"status" db:"status"`
	FileCount int        `json:"file_count" db:"file_count"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

const (
	IndexStatusCreating = "creating"
	IndexStatusReady    = "ready"
	IndexStatusFailed   = "failed"
)

// Extraction is one OCR or table-extraction job run against a document.
type Extraction struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	DocumentID  uuid.UUID  `json:"document_id" db:"document_id"`
	Kind        string     `json:"kind" db:"kind"`
	Page        *int       `json:"page,omitempty" db:"page"`
	ResultKey   *string    `json:"result_key,omitempty" db:"result_key"`
	Status      string     `json:"status" db:"status"`
	Error       *string    `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

const (
	ExtractionKindTable = "table"
	ExtractionKindText  = "text"
)
