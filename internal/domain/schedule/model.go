package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one medication line projected from an accepted prescription
// document. Entries are rebuilt wholesale whenever the document's payload
// changes, so they carry no state of their own beyond identity.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Name       string    `json:"name"`
	Dose       *string   `json:"dose"`
	Frequency  *string   `json:"frequency"`
	CreatedAt  time.Time `json:"created_at"`
}
