// Package ui renders the daemon state for terminals.
package ui

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ftahirops/xtune/daemon"
	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
)

// maxEvents is the number of transitions shown below the device table.
const maxEvents = 10

type tickMsg time.Time

// loadMsg carries a fresh read of the data directory.
type loadMsg struct {
	status *model.Status
	events []model.LevelEvent
	err    error
}

// changeMsg is sent when a watched file changed.
type changeMsg struct{}

// Model is the bubbletea model of `xtune watch`.
type Model struct {
	dataDir    string
	interval   time.Duration
	profile    model.PowerProfile
	watcher    *fsnotify.Watcher
	status     *model.Status
	events     []model.LevelEvent
	err        error
	showEvents bool
	width      int
	height     int
	now        func() time.Time
}

// NewModel creates a model reading from dataDir. Files are reloaded on
// change notifications and at least every interval.
func NewModel(dataDir string, interval time.Duration) Model {
	m := Model{
		dataDir:    dataDir,
		interval:   interval,
		profile:    model.DefaultPowerProfile(),
		showEvents: true,
		now:        time.Now,
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Debugf("fsnotify unavailable, polling only: %v", err)
		return m
	}
	if err := w.Add(dataDir); err != nil {
		logrus.Debugf("watching %s: %v", dataDir, err)
		_ = w.Close()
		return m
	}
	m.watcher = w
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(load(m.dataDir), tick(m.interval), watch(m.watcher))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func load(dataDir string) tea.Cmd {
	return func() tea.Msg {
		msg := loadMsg{}
		msg.status, msg.err = daemon.ReadStatus(daemon.StatusPath(dataDir))
		if events, err := engine.ReadEventLog(daemon.EventsPath(dataDir)); err == nil {
			msg.events = engine.TailEvents(events, maxEvents)
		}
		return msg
	}
}

// watch blocks until a relevant file in the data directory changes.
func watch(w *fsnotify.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				switch filepath.Base(ev.Name) {
				case daemon.StatusFile, daemon.EventsFile:
					if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
						return changeMsg{}
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				logrus.Debugf("watch error: %v", err)
			}
		}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.close()
			return m, tea.Quit
		case "r":
			return m, load(m.dataDir)
		case "e":
			m.showEvents = !m.showEvents
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(load(m.dataDir), tick(m.interval))

	case changeMsg:
		return m, tea.Batch(load(m.dataDir), watch(m.watcher))

	case loadMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		if msg.events != nil {
			m.events = msg.events
		}
		return m, nil
	}
	return m, nil
}

func (m Model) close() {
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	now := m.now()
	body := RenderStatus(m.status, m.profile, now)
	if m.err != nil && m.status == nil {
		body += critStyle.Render("  "+m.err.Error()) + "\n"
	}
	if m.showEvents {
		body += "\n" + RenderEvents(m.events, now)
	}

	style := panelStyle
	if m.width > 4 {
		style = style.Width(m.width - 2)
	}
	return style.Render(body) + "\n" + helpStyle.Render(" q quit  r reload  e toggle transitions")
}
