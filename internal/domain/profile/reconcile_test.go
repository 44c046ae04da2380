package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/extraction"
)

type mockRepo struct {
	profiles map[string]*MedicalProfile
	getErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{profiles: map[string]*MedicalProfile{}}
}

func newMockRepoWithProfile(userID string) *mockRepo {
	m := newMockRepo()
	m.profiles[userID] = &MedicalProfile{ID: uuid.New(), UserID: userID}
	return m
}

func (m *mockRepo) GetByUserID(_ context.Context, userID string) (*MedicalProfile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Create(_ context.Context, p *MedicalProfile) error {
	if _, ok := m.profiles[p.UserID]; ok {
		return ErrAlreadyExists
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *MedicalProfile) error {
	if _, ok := m.profiles[p.UserID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

type sliceRecords struct {
	records []AcceptedExtraction
	err     error
}

func (s *sliceRecords) ListAccepted(context.Context, string) ([]AcceptedExtraction, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]AcceptedExtraction, len(s.records))
	copy(out, s.records)
	return out, nil
}

func strptr(s string) *string { return &s }

func timeptr(t time.Time) *time.Time { return &t }

func payloadWith(meds []string, fields map[string]string) *extraction.Payload {
	p := &extraction.Payload{Medicines: meds, MedicationsDetails: []extraction.MedicationDetail{}}
	for name, v := range fields {
		switch name {
		case "allergies":
			p.Allergies = strptr(v)
		case "present_conditions":
			p.PresentConditions = strptr(v)
		case "diagnosed_conditions":
			p.DiagnosedConditions = strptr(v)
		case "surgeries":
			p.Surgeries = strptr(v)
		}
	}
	return p
}

func TestReconcileMergesMedicinesMostRecentFirst(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	repo := newMockRepoWithProfile("u1")
	records := &sliceRecords{records: []AcceptedExtraction{
		{Payload: payloadWith([]string{"A", "B"}, nil), AcceptedAt: timeptr(t1)},
		{Payload: payloadWith([]string{"B", "C"}, nil), AcceptedAt: timeptr(t2)},
	}}
	svc := NewService(repo, records, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.profiles["u1"].Field("medications_current"); got != "B, C, A" {
		t.Fatalf("medications_current = %q, want %q", got, "B, C, A")
	}
}

func TestReconcileDedupsCaseInsensitive(t *testing.T) {
	now := time.Now()
	repo := newMockRepoWithProfile("u1")
	records := &sliceRecords{records: []AcceptedExtraction{
		{Payload: payloadWith([]string{"Aspirin", " aspirin ", "Metformin"}, nil), AcceptedAt: timeptr(now)},
	}}
	svc := NewService(repo, records, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.profiles["u1"].Field("medications_current"); got != "Aspirin, Metformin" {
		t.Fatalf("medications_current = %q, want %q", got, "Aspirin, Metformin")
	}
}

func TestReconcileMostRecentFieldWins(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	repo := newMockRepoWithProfile("u1")
	records := &sliceRecords{records: []AcceptedExtraction{
		{Payload: payloadWith(nil, map[string]string{"allergies": "penicillin"}), AcceptedAt: timeptr(t1)},
		{Payload: payloadWith(nil, map[string]string{"allergies": "sulfa drugs"}), AcceptedAt: timeptr(t2)},
	}}
	svc := NewService(repo, records, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.profiles["u1"].Field("allergies"); got != "sulfa drugs" {
		t.Fatalf("allergies = %q, want %q", got, "sulfa drugs")
	}
}

func TestReconcileNilTimestampSortsLast(t *testing.T) {
	now := time.Now()
	repo := newMockRepoWithProfile("u1")
	records := &sliceRecords{records: []AcceptedExtraction{
		{Payload: payloadWith(nil, map[string]string{"surgeries": "appendectomy"})},
		{Payload: payloadWith(nil, map[string]string{"surgeries": "knee replacement"}), AcceptedAt: timeptr(now)},
	}}
	svc := NewService(repo, records, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.profiles["u1"].Field("surgeries"); got != "knee replacement" {
		t.Fatalf("surgeries = %q, want %q", got, "knee replacement")
	}
}

func TestReconcileDeleteClearsMatchingValues(t *testing.T) {
	repo := newMockRepo()
	existing := &MedicalProfile{ID: uuid.New(), UserID: "u1"}
	existing.SetField("medications_current", "Aspirin, Metformin")
	existing.SetField("allergies", "penicillin")
	repo.profiles["u1"] = existing

	removed := payloadWith([]string{"Aspirin", "Metformin"}, map[string]string{"allergies": "penicillin"})
	svc := NewService(repo, &sliceRecords{}, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", removed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := repo.profiles["u1"]
	if got := p.Field("medications_current"); got != "" {
		t.Fatalf("medications_current = %q, want cleared", got)
	}
	if got := p.Field("allergies"); got != "" {
		t.Fatalf("allergies = %q, want cleared", got)
	}
}

func TestReconcileDeleteKeepsUserEditedValues(t *testing.T) {
	repo := newMockRepo()
	existing := &MedicalProfile{ID: uuid.New(), UserID: "u1"}
	existing.SetField("medications_current", "hand-edited list")
	existing.SetField("allergies", "latex")
	repo.profiles["u1"] = existing

	removed := payloadWith([]string{"Aspirin"}, map[string]string{"allergies": "penicillin"})
	svc := NewService(repo, &sliceRecords{}, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", removed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := repo.profiles["u1"]
	if got := p.Field("medications_current"); got != "hand-edited list" {
		t.Fatalf("medications_current = %q, want preserved", got)
	}
	if got := p.Field("allergies"); got != "latex" {
		t.Fatalf("allergies = %q, want preserved", got)
	}
}

func TestReconcileDeleteWithoutProfileIsNoop(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &sliceRecords{}, zerolog.Nop())

	removed := payloadWith([]string{"Aspirin"}, nil)
	if err := svc.Reconcile(context.Background(), "u1", removed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.profiles) != 0 {
		t.Fatalf("expected no profile to be created, got %d", len(repo.profiles))
	}
}

func TestReconcileAcceptWithoutProfileIsNoop(t *testing.T) {
	now := time.Now()
	repo := newMockRepo()
	records := &sliceRecords{records: []AcceptedExtraction{
		{Payload: payloadWith([]string{"Ibuprofen"}, nil), AcceptedAt: timeptr(now)},
	}}
	svc := NewService(repo, records, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.profiles) != 0 {
		t.Fatalf("expected no profile to be created, got %d", len(repo.profiles))
	}
}

func TestReconcileSkipsNilPayloads(t *testing.T) {
	now := time.Now()
	repo := newMockRepoWithProfile("u1")
	records := &sliceRecords{records: []AcceptedExtraction{
		{Payload: nil, AcceptedAt: timeptr(now)},
		{Payload: payloadWith([]string{"Aspirin"}, nil), AcceptedAt: timeptr(now.Add(-time.Hour))},
	}}
	svc := NewService(repo, records, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.profiles["u1"].Field("medications_current"); got != "Aspirin" {
		t.Fatalf("medications_current = %q, want %q", got, "Aspirin")
	}
}

func TestReconcilePropagatesListError(t *testing.T) {
	repo := newMockRepo()
	wantErr := errors.New("db down")
	svc := NewService(repo, &sliceRecords{err: wantErr}, zerolog.Nop())

	if err := svc.Reconcile(context.Background(), "u1", nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}
