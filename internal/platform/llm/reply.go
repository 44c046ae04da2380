package llm

// extractReply walks the known provider response shapes in order and returns
// the first non-empty reply text it finds.
func extractReply(data map[string]any) string {
	if s := geminiReply(data); s != "" {
		return s
	}
	if s := choicesReply(data); s != "" {
		return s
	}
	for _, key := range []string{"output", "generated_text", "text"} {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	if s := resultsReply(data); s != "" {
		return s
	}
	return ""
}

func geminiReply(data map[string]any) string {
	cands, ok := data["candidates"].([]any)
	if !ok || len(cands) == 0 {
		return ""
	}
	first, ok := cands[0].(map[string]any)
	if !ok {
		return ""
	}
	content, ok := first["content"].(map[string]any)
	if !ok {
		return ""
	}
	parts, ok := content["parts"].([]any)
	if !ok {
		return ""
	}
	var out string
	for _, p := range parts {
		if m, ok := p.(map[string]any); ok {
			if t, ok := m["text"].(string); ok {
				out += t
			}
		}
	}
	return out
}

func choicesReply(data map[string]any) string {
	choices, ok := data["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	if msg, ok := first["message"].(map[string]any); ok {
		if s, ok := msg["content"].(string); ok {
			return s
		}
		return ""
	}
	if s, ok := first["text"].(string); ok {
		return s
	}
	return ""
}

func resultsReply(data map[string]any) string {
	results, ok := data["results"].([]any)
	if !ok || len(results) == 0 {
		return ""
	}
	r0, ok := results[0].(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"output_text", "content", "text"} {
		if s, ok := r0[key].(string); ok && s != "" {
			return s
		}
	}
	if out, ok := r0["output"].(map[string]any); ok {
		for _, key := range []string{"generated_text", "text"} {
			if s, ok := out[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
