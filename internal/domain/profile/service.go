package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/extraction"
)

var (
	ErrNotFound      = errors.New("medical profile not found")
	ErrAlreadyExists = errors.New("medical profile already exists")
)

// AcceptedExtraction is the view of an accepted extraction the reconciler
// consumes. Timestamps may be nil for legacy rows.
type AcceptedExtraction struct {
	Payload        *extraction.Payload
	AcceptedAt     *time.Time
	ExtractionDate *time.Time
}

// RecordSource lists a user's accepted extractions. The document domain
// provides the implementation.
type RecordSource interface {
	ListAccepted(ctx context.Context, userID string) ([]AcceptedExtraction, error)
}

type Service struct {
	repo    Repository
	records RecordSource
	log     zerolog.Logger
}

func NewService(repo Repository, records RecordSource, log zerolog.Logger) *Service {
	return &Service{repo: repo, records: records, log: log}
}

func (s *Service) Get(ctx context.Context, userID string) (*MedicalProfile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) Create(ctx context.Context, userID string, in *ProfileInput) (*MedicalProfile, error) {
	p := &MedicalProfile{UserID: userID}
	if in != nil {
		in.apply(p)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) Update(ctx context.Context, userID string, in *ProfileInput) (*MedicalProfile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.repo.GetByUserID(ctx, userID)
}
