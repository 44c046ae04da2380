// Package detect is the HTTP client for the text-detection microservice.
// The service exposes POST /detect/boxes/ returning polygon coordinates and
// POST /detect/image/ returning a JPEG with the boxes drawn in.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrUnavailable wraps any transport or service failure so callers can treat
// detection as an optional enrichment.
var ErrUnavailable = errors.New("text detection unavailable")

// Client calls the detection service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the given base URL, e.g. "http://detector:8000".
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Boxes returns the detected text polygons as raw JSON, shaped
// {"boxes": [[[x,y],...], ...]}, suitable for storing verbatim.
func (c *Client) Boxes(ctx context.Context, filename string, image []byte) (json.RawMessage, error) {
	body, err := c.post(ctx, "boxes", filename, image)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Boxes json.RawMessage `json:"boxes"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, decoded.Error)
	}
	if decoded.Boxes == nil {
		return nil, fmt.Errorf("%w: response missing boxes", ErrUnavailable)
	}
	return decoded.Boxes, nil
}

// AnnotatedImage returns a JPEG of the document with detected regions drawn.
func (c *Client) AnnotatedImage(ctx context.Context, filename string, image []byte) ([]byte, error) {
	body, err := c.post(ctx, "image", filename, image)
	if err != nil {
		return nil, err
	}
	// the service reports decode problems as a JSON error body
	var decoded struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, decoded.Error)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, mode, filename string, image []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/detect/%s/", c.baseURL, mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return body, nil
}
