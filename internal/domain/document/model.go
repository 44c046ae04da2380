package document

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/extraction"
)

// Document lifecycle statuses.
const (
	StatusPending        = "pending"
	StatusUploaded       = "uploaded"
	StatusAwaitingReview = "awaiting_review"
	StatusAccepted       = "accepted"
)

// Document is one uploaded prescription file. StorageKey is the blob store
// key, a uuid prefix joined to the sanitized original filename.
type Document struct {
	ID               uuid.UUID  `json:"id"`
	UserID           string     `json:"user_id"`
	StorageKey       string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	ContentType      string     `json:"file_type"`
	Size             int64      `json:"size"`
	Status           string     `json:"status"`
	Accepted         bool       `json:"accepted"`
	RetryCount       int        `json:"retry_count"`
	LastRetryAt      *time.Time `json:"last_retry_at"`
	UploadDate       time.Time  `json:"upload_date"`
}

// OriginalName recovers the display name from the storage key, everything
// after the uuid prefix. Falls back to the stored original filename.
func (d *Document) OriginalName() string {
	if i := strings.IndexByte(d.StorageKey, '_'); i >= 0 && i+1 < len(d.StorageKey) {
		return d.StorageKey[i+1:]
	}
	return d.OriginalFilename
}

// ExtractionRecord is the persisted fan-out result for a Document, 1:1 and
// cascade-deleted with it. Boxes and Payload are nil when the corresponding
// call failed or has not run.
type ExtractionRecord struct {
	ID             uuid.UUID           `json:"id"`
	DocumentID     uuid.UUID           `json:"document_id"`
	UserID         string              `json:"user_id"`
	Payload        *extraction.Payload `json:"parsed"`
	Boxes          json.RawMessage     `json:"boxes"`
	LLMRaw         *string             `json:"llm_raw"`
	AnnotatedKey   *string             `json:"annotated_key"`
	Accepted       bool                `json:"accepted"`
	AcceptedAt     *time.Time          `json:"accepted_at"`
	ExtractionDate time.Time           `json:"extraction_date"`
}
