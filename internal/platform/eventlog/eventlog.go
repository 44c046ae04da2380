// Package eventlog appends external-call outcomes to a JSON-lines file so
// prediction traffic can be audited without a full observability stack.
package eventlog

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type entry struct {
	TS      string `json:"ts"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Logger writes one JSON object per line. Write failures are swallowed;
// the event log must never break the request that produced the event.
type Logger struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
	now  func() time.Time
}

// New returns a Logger appending to path. An empty path disables recording.
func New(path string, log zerolog.Logger) *Logger {
	return &Logger{path: path, log: log, now: time.Now}
}

// Record appends an event. Payload must be JSON-serializable; anything that
// is not gets dropped with a debug log.
func (l *Logger) Record(event string, payload any) {
	if l == nil || l.path == "" {
		return
	}
	line, err := json.Marshal(entry{
		TS:      l.now().UTC().Format(time.RFC3339),
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		l.log.Debug().Err(err).Str("event", event).Msg("eventlog: marshal failed")
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Debug().Err(err).Str("event", event).Msg("eventlog: open failed")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		l.log.Debug().Err(err).Str("event", event).Msg("eventlog: write failed")
	}
}
