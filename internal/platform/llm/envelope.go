package llm

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// envelope builds the endpoint, JSON body and headers for one request. The
// shape follows the target API: Gemini generateContent, OpenAI-compatible
// chat/completions, legacy completions with a prompt, or the "input" style
// used by local model servers.
func (c *Client) envelope(req Request) (string, []byte, map[string]string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	temperature := c.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	system := req.System
	if system == "" {
		system = c.opts.SystemPrompt
	}
	if system == "" {
		system = "You are a helpful assistant."
	}

	if strings.EqualFold(c.opts.Provider, "gemini") {
		return c.geminiEnvelope(req, system, maxTokens, temperature)
	}

	if c.opts.URL == "" {
		return "", nil, nil, fmt.Errorf("%w: missing endpoint URL", ErrNotConfigured)
	}
	lower := strings.ToLower(c.opts.URL)
	headers := map[string]string{}
	if c.opts.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.opts.APIKey
	}

	var payload map[string]any
	switch {
	case strings.Contains(lower, "chat/completions"):
		payload = c.chatEnvelope(req, system, maxTokens, temperature)
	case strings.Contains(lower, "completions"):
		// Text-only envelope; any attached images are dropped. The prompt is
		// expected to carry an image URL for providers without inline support.
		payload = map[string]any{
			"prompt":      system + "\n\n" + req.Prompt,
			"max_tokens":  maxTokens,
			"temperature": temperature,
		}
		if c.opts.Model != "" {
			payload["model"] = c.opts.Model
		}
	default:
		// Text-only envelope, same as completions.
		payload = map[string]any{
			"input": system + "\n\n" + req.Prompt,
			"parameters": map[string]any{
				"max_new_tokens": maxTokens,
				"temperature":    temperature,
			},
		}
		if c.opts.Model != "" {
			payload["model"] = c.opts.Model
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return c.opts.URL, body, headers, nil
}

func (c *Client) chatEnvelope(req Request, system string, maxTokens int, temperature float64) map[string]any {
	var userContent any = req.Prompt
	if len(req.Images) > 0 {
		parts := []any{map[string]any{"type": "text", "text": req.Prompt}}
		for _, img := range req.Images {
			parts = append(parts, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
				},
			})
		}
		userContent = parts
	}
	payload := map[string]any{
		"messages": []any{
			map[string]any{"role": "system", "content": system},
			map[string]any{"role": "user", "content": userContent},
		},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	if c.opts.Model != "" {
		payload["model"] = c.opts.Model
	}
	return payload
}

func (c *Client) geminiEnvelope(req Request, system string, maxTokens int, temperature float64) (string, []byte, map[string]string, error) {
	if c.opts.APIKey == "" {
		return "", nil, nil, fmt.Errorf("%w: missing Gemini API key", ErrNotConfigured)
	}
	model := c.opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	endpoint := c.opts.URL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: bad endpoint URL: %v", ErrNotConfigured, err)
	}
	q := u.Query()
	q.Set("key", c.opts.APIKey)
	u.RawQuery = q.Encode()

	parts := []any{map[string]any{"text": system + "\n\nUser: " + req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, map[string]any{
			"inline_data": map[string]any{
				"mime_type": img.MIME,
				"data":      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	body, err := json.Marshal(map[string]any{
		"contents": []any{map[string]any{"role": "user", "parts": parts}},
		"generationConfig": map[string]any{
			"temperature":     temperature,
			"maxOutputTokens": maxTokens,
		},
	})
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return u.String(), body, nil, nil
}
