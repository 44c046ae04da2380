package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestServiceCreateAndGet(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &sliceRecords{}, zerolog.Nop())

	in := &ProfileInput{Allergies: strptr("penicillin")}
	p, err := svc.Create(context.Background(), "u1", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != "u1" {
		t.Fatalf("user id = %q, want %q", p.UserID, "u1")
	}
	if got := p.Field("allergies"); got != "penicillin" {
		t.Fatalf("allergies = %q, want %q", got, "penicillin")
	}

	got, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("id mismatch: %s vs %s", got.ID, p.ID)
	}
}

func TestServiceCreateDuplicate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &sliceRecords{}, zerolog.Nop())

	if _, err := svc.Create(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Create(context.Background(), "u1", nil); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestServiceGetMissing(t *testing.T) {
	svc := NewService(newMockRepo(), &sliceRecords{}, zerolog.Nop())
	if _, err := svc.Get(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &sliceRecords{}, zerolog.Nop())

	if _, err := svc.Create(context.Background(), "u1", &ProfileInput{Allergies: strptr("penicillin")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := svc.Update(context.Background(), "u1", &ProfileInput{
		Allergies: strptr(""),
		Surgeries: strptr("appendectomy"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Field("allergies"); got != "" {
		t.Fatalf("allergies = %q, want cleared", got)
	}
	if got := p.Field("surgeries"); got != "appendectomy" {
		t.Fatalf("surgeries = %q, want %q", got, "appendectomy")
	}
}

func TestServiceUpdateMissing(t *testing.T) {
	svc := NewService(newMockRepo(), &sliceRecords{}, zerolog.Nop())
	if _, err := svc.Update(context.Background(), "nobody", &ProfileInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
