package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/xtune/model"
)

func TestEventLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w := NewEventLogWriter(path)

	e1 := NewLevelEvent("disk", "sda", 0, 1, model.PowerSetting{APM: 225, Spindown: 250})
	e2 := NewLevelEvent("disk", "sda", 1, 0, model.PowerSetting{APM: 255, Spindown: 0})
	require.NoError(t, w.Write(e1))
	require.NoError(t, w.Write(e2))

	// garbage lines are skipped
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, _ = f.WriteString("not json\n")
	f.Close()

	events, err := ReadEventLog(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, e1.ID, events[0].ID)
	assert.NotEqual(t, e1.ID, e2.ID)
	assert.Equal(t, "promote", events[0].Direction())
	assert.Equal(t, "demote", events[1].Direction())

	tail := TailEvents(events, 5)
	require.Len(t, tail, 2)
	assert.Equal(t, e2.ID, tail[0].ID)
}

func TestReadEventLogMissingFile(t *testing.T) {
	events, err := ReadEventLog(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, events)
}
