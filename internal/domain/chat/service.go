package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/profile"
	"github.com/medvault/medvault/internal/platform/llm"
)

const (
	defaultSystemPrompt = "You are a helpful assistant."
	noReplyFallback     = "I didn't get a response from the model."
)

// ProfileSource fetches the caller's medical profile for retrieval context.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*profile.MedicalProfile, error)
}

// Completer is the completion surface the chat service needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Result, error)
}

// Meta describes how much retrieval context went into a reply.
type Meta struct {
	UsedContext  bool `json:"used_context"`
	ContextChars int  `json:"context_chars"`
}

// Reply is one chat answer.
type Reply struct {
	Reply string          `json:"reply"`
	Raw   json.RawMessage `json:"raw,omitempty"`
	Meta  Meta            `json:"meta"`
}

type Service struct {
	profiles     ProfileSource
	llm          Completer
	systemPrompt string
	log          zerolog.Logger
}

func NewService(profiles ProfileSource, completer Completer, systemPrompt string, log zerolog.Logger) *Service {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &Service{profiles: profiles, llm: completer, systemPrompt: systemPrompt, log: log}
}

// Ask answers a user message with the medical profile as context. A missing
// or unreadable profile degrades to a context-free answer; an upstream reply
// carrying no text degrades to a fixed fallback message.
func (s *Service) Ask(ctx context.Context, userID, message string, maxTokens int, temperature *float64) (*Reply, error) {
	profileCtx := ""
	p, err := s.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("profile lookup failed, answering without context")
	}
	if err == nil {
		profileCtx = ProfileContext(p)
	}

	system := s.systemPrompt
	if profileCtx != "" {
		system = system + "\n\n" + profileCtx
	}

	meta := Meta{UsedContext: profileCtx != "", ContextChars: len(profileCtx)}

	res, err := s.llm.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      message,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if errors.Is(err, llm.ErrBadResponse) {
		return &Reply{Reply: noReplyFallback, Meta: meta}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Reply{Reply: res.Reply, Raw: res.Raw, Meta: meta}, nil
}
