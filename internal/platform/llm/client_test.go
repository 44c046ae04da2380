package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(opts Options) *Client {
	return New(opts, nil, zerolog.Nop())
}

func TestCompleteChatCompletions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer header, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": " hello there "}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test",
		URL:      srv.URL + "/v1/chat/completions",
	})
	res, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reply != "hello there" {
		t.Errorf("unexpected reply: %q", res.Reply)
	}
	msgs, ok := got["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %#v", got["messages"])
	}
	if got["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected model: %v", got["model"])
	}
}

func TestCompleteChatCompletionsWithImage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices": [{"message": {"content": "{}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{URL: srv.URL + "/v1/chat/completions"})
	_, err := c.Complete(context.Background(), Request{
		Prompt: "extract",
		Images: []Image{{MIME: "image/png", Data: []byte{1, 2, 3}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs := got["messages"].([]any)
	user := msgs[1].(map[string]any)
	parts, ok := user["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected text+image parts, got %#v", user["content"])
	}
	img := parts[1].(map[string]any)
	if img["type"] != "image_url" {
		t.Errorf("unexpected part type: %v", img["type"])
	}
}

func TestCompleteGemini(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("expected key query param, got %q", r.URL.RawQuery)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "part one "}, {"text": "part two"}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{
		Provider: "gemini",
		Model:    "gemini-2.5-flash",
		APIKey:   "g-key",
		URL:      srv.URL + "/v1beta/models/gemini-2.5-flash:generateContent",
	})
	res, err := c.Complete(context.Background(), Request{
		Prompt: "hi",
		Images: []Image{{MIME: "image/jpeg", Data: []byte{0xff}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reply != "part one part two" {
		t.Errorf("unexpected reply: %q", res.Reply)
	}
	contents := got["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text+image parts, got %d", len(parts))
	}
	if _, ok := parts[1].(map[string]any)["inline_data"]; !ok {
		t.Error("expected inline_data image part")
	}
}

func TestCompleteGeminiRequiresKey(t *testing.T) {
	c := newTestClient(Options{Provider: "gemini"})
	if _, err := c.Complete(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteCompletionsPrompt(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices": [{"text": "done"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{URL: srv.URL + "/v1/completions"})
	res, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reply != "done" {
		t.Errorf("unexpected reply: %q", res.Reply)
	}
	if _, ok := got["prompt"].(string); !ok {
		t.Errorf("expected prompt field, got %#v", got)
	}
	if _, ok := got["messages"]; ok {
		t.Error("completions envelope must not carry messages")
	}
}

func TestCompleteCompletionsDropsImages(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices": [{"text": "{}"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{URL: srv.URL + "/v1/completions"})
	res, err := c.Complete(context.Background(), Request{
		Prompt: "extract",
		Images: []Image{{MIME: "image/jpeg", Data: []byte{0xff, 0xd8}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reply != "{}" {
		t.Errorf("unexpected reply: %q", res.Reply)
	}
	if _, ok := got["prompt"].(string); !ok {
		t.Errorf("expected prompt field, got %#v", got)
	}
	for k := range got {
		if k == "images" || k == "messages" {
			t.Errorf("text-only envelope must not carry %q", k)
		}
	}
}

func TestCompleteInputStyleDropsImages(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"results": [{"output": {"generated_text": "{}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{URL: srv.URL + "/api/generate"})
	if _, err := c.Complete(context.Background(), Request{
		Prompt: "extract",
		Images: []Image{{MIME: "image/png", Data: []byte{1}}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["input"].(string); !ok {
		t.Errorf("expected input field, got %#v", got)
	}
}

func TestCompleteInputStyle(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"results": [{"output": {"generated_text": "local reply"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{URL: srv.URL + "/api/generate"})
	res, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reply != "local reply" {
		t.Errorf("unexpected reply: %q", res.Reply)
	}
	if _, ok := got["input"].(string); !ok {
		t.Errorf("expected input field, got %#v", got)
	}
	if _, ok := got["parameters"].(map[string]any); !ok {
		t.Errorf("expected parameters field, got %#v", got)
	}
}

func TestCompleteMissingURL(t *testing.T) {
	c := newTestClient(Options{Provider: "local"})
	if _, err := c.Complete(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(Options{URL: srv.URL + "/v1/chat/completions"})
	if _, err := c.Complete(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestCompleteEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": true}`))
	}))
	defer srv.Close()

	c := newTestClient(Options{URL: srv.URL + "/v1/chat/completions"})
	if _, err := c.Complete(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrBadResponse) {
		t.Errorf("expected ErrBadResponse, got %v", err)
	}
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := New(Options{URL: srv.URL + "/v1/chat/completions", Timeout: 20 * time.Millisecond}, nil, zerolog.Nop())
	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrUpstream) {
		t.Errorf("expected timeout or upstream error, got %v", err)
	}
}
