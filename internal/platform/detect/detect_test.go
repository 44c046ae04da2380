package detect

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBoxes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/boxes/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.Close()
		if hdr.Filename != "rx.jpg" {
			t.Errorf("unexpected filename: %s", hdr.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"boxes": [[[1,2],[3,2],[3,4],[1,4]]]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	boxes, err := c.Boxes(context.Background(), "rx.jpg", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(boxes) != `[[[1,2],[3,2],[3,4],[1,4]]]` {
		t.Errorf("unexpected boxes: %s", boxes)
	}
}

func TestBoxesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "Could not decode image"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.Boxes(context.Background(), "rx.jpg", []byte("img")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestBoxesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.Boxes(context.Background(), "rx.jpg", []byte("img")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestAnnotatedImage(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/image/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpeg)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	img, err := c.AnnotatedImage(context.Background(), "rx.jpg", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(img) != len(jpeg) {
		t.Errorf("unexpected image length: %d", len(img))
	}
}

func TestAnnotatedImageServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "Invalid mode. Use 'boxes' or 'image'"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.AnnotatedImage(context.Background(), "rx.jpg", []byte("img")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.Boxes(ctx, "rx.jpg", []byte("img")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
