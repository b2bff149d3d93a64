package queue

const (
	TypeExtractTable = "extract:table"
	TypeExtractText  = "extract:text"
	TypeIndexBuild   = "index:build"
)

type ExtractPayload struct {
	ExtractionID string `json:"extraction_id"`
	DocumentID   string `json:"document_id"`
}

type IndexBuildPayload struct {
	Name        string   `json:"name"`
	DocumentIDs []string `json:"document_ids"`
}
