package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/extraction"
	"github.com/medvault/medvault/internal/platform/blobstore"
	"github.com/medvault/medvault/internal/platform/db"
)

const (
	// MaxUploadBytes caps uploaded documents at 5 MB.
	MaxUploadBytes = 5 << 20
	retryCooldown  = 2 * time.Minute
	presignTTL     = 10 * time.Minute
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// Projector replaces a document's schedule entries from its payload.
type Projector interface {
	Project(ctx context.Context, userID string, documentID uuid.UUID, p *extraction.Payload) error
	Clear(ctx context.Context, documentID uuid.UUID) error
}

// Reconciler recomputes the user's medical profile from accepted records.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string, removed *extraction.Payload) error
}

type Service struct {
	docs      Repository
	records   RecordRepository
	blobs     blobstore.Store
	fanout    *Fanout
	schedules Projector
	profiles  Reconciler
	log       zerolog.Logger
	runTx     func(ctx context.Context, fn func(context.Context) error) error
	now       func() time.Time
}

func NewService(pool *pgxpool.Pool, docs Repository, records RecordRepository,
	blobs blobstore.Store, fanout *Fanout, schedules Projector, profiles Reconciler,
	log zerolog.Logger) *Service {
	return &Service{
		docs:      docs,
		records:   records,
		blobs:     blobs,
		fanout:    fanout,
		schedules: schedules,
		profiles:  profiles,
		log:       log,
		runTx: func(ctx context.Context, fn func(context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
		now: time.Now,
	}
}

// Upload validates and stores the file, runs the prediction fan-out, and
// persists the document with its extraction record. Fan-out failures degrade
// to empty slots; the document still lands in awaiting_review.
func (s *Service) Upload(ctx context.Context, userID, filename, contentType string, data []byte) (*Document, error) {
	if int64(len(data)) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	if !validMagic(data) {
		return nil, ErrUnsupportedType
	}

	safe := sanitizeFilename(filename)
	doc := &Document{
		UserID:           userID,
		StorageKey:       uuid.NewString() + "_" + safe,
		OriginalFilename: safe,
		ContentType:      contentType,
		Size:             int64(len(data)),
		Status:           StatusPending,
	}

	if err := s.blobs.Put(ctx, doc.StorageKey, contentType, data); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.docs.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	res := s.fanout.Run(ctx, doc, data)

	rec := &ExtractionRecord{
		DocumentID:   doc.ID,
		UserID:       userID,
		Payload:      res.Parsed,
		Boxes:        res.Boxes,
		LLMRaw:       res.LLMRaw,
		AnnotatedKey: res.AnnotatedKey,
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert extraction record: %w", err)
	}

	doc.Status = StatusAwaitingReview
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document status: %w", err)
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, int, error) {
	return s.docs.ListByUser(ctx, userID, limit, offset)
}

// Get returns the document and its extraction record. The record is nil when
// none exists.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Document, *ExtractionRecord, error) {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.records.GetByDocument(ctx, doc.ID)
	if errors.Is(err, ErrNotFound) {
		return doc, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, rec, nil
}

// Presign returns a time-limited download URL for the stored object. The
// response disposition is inline for previewable content types unless a
// download is requested.
func (s *Service) Presign(ctx context.Context, userID string, id uuid.UUID, download bool) (string, int, error) {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return "", 0, err
	}
	if !s.blobs.Exists(ctx, doc.StorageKey) {
		return "", 0, ErrObjectMissing
	}

	disposition := "attachment"
	if !download && previewable(doc.ContentType) {
		disposition = "inline"
	}
	if name := doc.OriginalName(); name != "" {
		disposition = fmt.Sprintf("%s; filename=%q", disposition, name)
	}

	url, err := s.blobs.PresignGet(ctx, doc.StorageKey, disposition, presignTTL)
	if err != nil {
		return "", 0, fmt.Errorf("presign object: %w", err)
	}
	return url, int(presignTTL.Seconds()), nil
}

// Accept marks the document accepted, projecting its medication schedule and
// reconciling the profile in the same transaction. A correction payload, when
// supplied, replaces the stored extraction; a malformed correction rejects
// the whole accept without touching state.
func (s *Service) Accept(ctx context.Context, userID string, id uuid.UUID, correction map[string]any) (*Document, error) {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.GetByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	payload := rec.Payload
	if correction != nil {
		payload, err = extraction.Normalize(correction)
		if err != nil {
			return nil, err
		}
		if err := extraction.Validate(payload); err != nil {
			return nil, err
		}
	}

	now := s.now()
	err = s.runTx(ctx, func(ctx context.Context) error {
		rec.Payload = payload
		rec.Accepted = true
		rec.AcceptedAt = &now
		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("update extraction record: %w", err)
		}

		doc.Status = StatusAccepted
		doc.Accepted = true
		if err := s.docs.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		if err := s.schedules.Project(ctx, userID, doc.ID, payload); err != nil {
			return fmt.Errorf("project schedule: %w", err)
		}
		if err := s.profiles.Reconcile(ctx, userID, nil); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("profile reconciliation failed after accept")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Retry re-runs the LLM extraction for a document that is not yet accepted.
// Detection is not re-run; stored boxes are discarded.
func (s *Service) Retry(ctx context.Context, userID string, id uuid.UUID) (*Document, error) {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc.Accepted || doc.Status == StatusAccepted {
		return nil, ErrAlreadyAccepted
	}

	now := s.now()
	if doc.LastRetryAt != nil {
		if elapsed := now.Sub(*doc.LastRetryAt); elapsed < retryCooldown {
			return nil, &TooSoonError{Remaining: int64((retryCooldown - elapsed).Seconds())}
		}
	}

	image, err := s.blobs.Get(ctx, doc.StorageKey)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, ErrObjectMissing
	}
	if err != nil {
		return nil, fmt.Errorf("fetch stored object: %w", err)
	}

	rec, err := s.records.GetByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	raw, parsed := s.fanout.RunLLM(ctx, doc, image)

	err = s.runTx(ctx, func(ctx context.Context) error {
		rec.Payload = parsed
		rec.LLMRaw = raw
		rec.Boxes = nil
		rec.ExtractionDate = now
		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("update extraction record: %w", err)
		}

		doc.Status = StatusAwaitingReview
		doc.RetryCount++
		doc.LastRetryAt = &now
		if err := s.docs.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the document, its extraction record and schedule entries,
// reconciling the profile against the removed payload, all in one
// transaction. Blob cleanup happens after commit; a failed blob delete only
// logs.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	var annotatedKey *string
	err = s.runTx(ctx, func(ctx context.Context) error {
		removed := &extraction.Payload{}
		rec, err := s.records.GetByDocument(ctx, doc.ID)
		if err == nil {
			annotatedKey = rec.AnnotatedKey
			if rec.Payload != nil {
				removed = rec.Payload
			}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := s.schedules.Clear(ctx, doc.ID); err != nil {
			return fmt.Errorf("clear schedule: %w", err)
		}
		if err := s.records.DeleteByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete extraction record: %w", err)
		}
		if err := s.profiles.Reconcile(ctx, userID, removed); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("profile reconciliation failed after delete")
		}
		if err := s.docs.Delete(ctx, userID, doc.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.blobs.DeleteIfExists(ctx, doc.StorageKey); err != nil {
		s.log.Warn().Err(err).Str("key", doc.StorageKey).Msg("failed to delete stored object")
	}
	if annotatedKey != nil {
		if err := s.blobs.DeleteIfExists(ctx, *annotatedKey); err != nil {
			s.log.Warn().Err(err).Str("key", *annotatedKey).Msg("failed to delete annotated image")
		}
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "uploaded_file"
	}
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// validMagic accepts JPEG, PNG and PDF by leading bytes.
func validMagic(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return true
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return true
	case bytes.HasPrefix(data, []byte("%PDF")):
		return true
	}
	return false
}

func previewable(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "image/") || ct == "application/pdf"
}
