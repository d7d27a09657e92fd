package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/dockstream/internal/events"
	"github.com/rusenback/dockstream/internal/stream"
)

// waitForUpdate creates a command that waits for the next change signal
func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return updateMsg{}
	}
}

// connectSession creates a command that opens the session's connection
func connectSession(s *stream.Session) tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{err: s.Connect()}
	}
}

// connectAggregator creates a command that opens the aggregator's connections
func connectAggregator(a *events.Aggregator) tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{err: a.Connect()}
	}
}
