package schedule

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}
