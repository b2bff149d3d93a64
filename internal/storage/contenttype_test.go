package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"dir/table.XLSX", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"scan.jpeg", "image/jpeg"},
		{"notes.md", "text/markdown"},
		{"archive.bin", "application/octet-stream"},
		{"no-extension", "application/octet-stream"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentTypeFor(tt.path), tt.path)
	}
}
