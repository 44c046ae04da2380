package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRecordAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	l := New(path, zerolog.Nop())
	l.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	l.Record("llm_call", map[string]any{"status": "ok", "ms": 812})
	l.Record("detect_boxes", map[string]any{"status": "error"})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["event"] != "llm_call" {
		t.Errorf("unexpected event: %v", lines[0]["event"])
	}
	if lines[0]["ts"] != "2025-03-01T12:00:00Z" {
		t.Errorf("unexpected ts: %v", lines[0]["ts"])
	}
	if lines[1]["event"] != "detect_boxes" {
		t.Errorf("unexpected event: %v", lines[1]["event"])
	}
}

func TestRecordSwallowsFailures(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "no", "such", "dir", "events.log"), zerolog.Nop())
	l.Record("llm_call", map[string]any{"status": "ok"})

	l = New("", zerolog.Nop())
	l.Record("llm_call", nil)

	var nilLogger *Logger
	nilLogger.Record("llm_call", nil)
}
