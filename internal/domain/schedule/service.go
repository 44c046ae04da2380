package schedule

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/extraction"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Project replaces the document's schedule entries with ones derived from the
// payload's structured medication details. Entries without a usable name are
// skipped; a failed insert drops that entry but keeps the rest.
func (s *Service) Project(ctx context.Context, userID string, documentID uuid.UUID, p *extraction.Payload) error {
	if err := s.repo.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	for _, d := range p.MedicationsDetails {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		e := &Entry{
			UserID:     userID,
			DocumentID: documentID,
			Name:       name,
			Dose:       d.Dose,
			Frequency:  d.Frequency,
		}
		if err := s.repo.Insert(ctx, e); err != nil {
			s.log.Warn().Err(err).
				Str("document_id", documentID.String()).
				Str("medication", name).
				Msg("failed to insert schedule entry")
		}
	}
	return nil
}

// Clear removes all schedule entries for a document.
func (s *Service) Clear(ctx context.Context, documentID uuid.UUID) error {
	return s.repo.DeleteByDocument(ctx, documentID)
}
