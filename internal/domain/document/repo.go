package document

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, int, error)
	Update(ctx context.Context, d *Document) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type RecordRepository interface {
	Insert(ctx context.Context, r *ExtractionRecord) error
	GetByDocument(ctx context.Context, documentID uuid.UUID) (*ExtractionRecord, error)
	Update(ctx context.Context, r *ExtractionRecord) error
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
	// ListAccepted returns a user's accepted records, feeding profile
	// reconciliation.
	ListAccepted(ctx context.Context, userID string) ([]ExtractionRecord, error)
}
