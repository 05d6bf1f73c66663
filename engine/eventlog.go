package engine

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ftahirops/xtune/model"
)

// maxEventLogSize is the size at which the event log is rotated to .old.
const maxEventLogSize = 10 * 1024 * 1024

// NewLevelEvent builds a transition event with a fresh id.
func NewLevelEvent(instance string, device model.Device, from, to int, setting model.PowerSetting) model.LevelEvent {
	return model.LevelEvent{
		ID:       uuid.NewString(),
		Time:     time.Now(),
		Instance: instance,
		Device:   device,
		From:     from,
		To:       to,
		APM:      setting.APM,
		Spindown: setting.Spindown,
	}
}

// EventSink receives level transition events.
type EventSink interface {
	Write(e model.LevelEvent) error
}

// EventLogWriter appends events to a JSONL file.
type EventLogWriter struct {
	path string
	mu   sync.Mutex
}

// NewEventLogWriter creates a writer for the given path.
func NewEventLogWriter(path string) *EventLogWriter {
	return &EventLogWriter{path: path}
}

// Write appends an event to the log file.
func (w *EventLogWriter) Write(e model.LevelEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if info, err := os.Stat(w.path); err == nil && info.Size() > maxEventLogSize {
		_ = os.Rename(w.path, w.path+".old")
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(e)
}

// ReadEventLog reads all events from a JSONL file.
func ReadEventLog(path string) ([]model.LevelEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []model.LevelEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e model.LevelEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// TailEvents returns the last n events, newest first.
func TailEvents(events []model.LevelEvent, n int) []model.LevelEvent {
	if n > len(events) {
		n = len(events)
	}
	out := make([]model.LevelEvent, 0, n)
	for i := len(events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, events[i])
	}
	return out
}
