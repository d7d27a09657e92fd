package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/dockstream/internal/events"
	"github.com/rusenback/dockstream/internal/stream"
)

// viewMode selects which screen the program shows.
type viewMode int

const (
	modeLogs viewMode = iota
	modeEvents
)

// Model represents the TUI application state
type Model struct {
	mode viewMode

	// Logs screen
	session *stream.Session

	// Events screen
	aggregator *events.Aggregator
	filter     events.Filter
	searchText string
	editing    bool

	scroll     int
	autoScroll bool

	width  int
	height int
	err    error
}

// Message types for the Bubbletea update loop
type updateMsg struct{}

type connectedMsg struct {
	err error
}

// NewLogsModel creates the log-streaming screen for one session.
func NewLogsModel(session *stream.Session) Model {
	return Model{
		mode:       modeLogs,
		session:    session,
		autoScroll: true,
	}
}

// NewEventsModel creates the event-timeline screen.
func NewEventsModel(agg *events.Aggregator) Model {
	return Model{
		mode:       modeEvents,
		aggregator: agg,
		autoScroll: true,
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	if m.mode == modeLogs {
		return tea.Batch(connectSession(m.session), waitForUpdate(m.session.Updates()))
	}
	return tea.Batch(connectAggregator(m.aggregator), waitForUpdate(m.aggregator.Updates()))
}
