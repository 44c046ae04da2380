package extraction

import (
	"errors"
	"testing"
)

func TestExtractJSONPlain(t *testing.T) {
	raw, err := ExtractJSON(`{"medicines": ["Metformin"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"medicines": ["Metformin"]}` {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractJSONCodeFence(t *testing.T) {
	reply := "Here you go:\n```json\n{\"medicines\": []}\n```\nAnything else?"
	raw, err := ExtractJSON(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"medicines": []}` {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	reply := `The extracted data is {"medicines": ["A"], "allergies": null} as requested.`
	raw, err := ExtractJSON(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"medicines": ["A"], "allergies": null}` {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	reply := `{"additional_info": "take {with} food"}`
	raw, err := ExtractJSON(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != reply {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := ExtractJSON("sorry, the image is unreadable"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON, got %v", err)
	}
	if _, err := ExtractJSON(`{"never": "closed"`); !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON for unbalanced object, got %v", err)
	}
}

func TestParseReply(t *testing.T) {
	p, err := ParseReply("```json\n{\"medicines\": [\"Metformin\"], \"allergies\": \"none\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Medicines) != 1 || p.Medicines[0] != "Metformin" {
		t.Errorf("unexpected medicines: %#v", p.Medicines)
	}
	if p.Allergies == nil || *p.Allergies != "none" {
		t.Errorf("unexpected allergies: %v", p.Allergies)
	}
}

func TestParseReplyMalformedJSON(t *testing.T) {
	if _, err := ParseReply(`{"medicines": [}`); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("expected ErrInvalidPayload, got %v", err)
	}
}
