package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// eventTypes is the cycle order for the type filter key.
var eventTypes = []string{"", "container", "image", "network", "volume", "service", "node"}

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.autoScroll {
			m.scroll = m.maxScroll()
		}

	case tea.KeyMsg:
		if m.editing {
			return m.updateSearchInput(msg)
		}
		return m.updateKeys(msg)

	case connectedMsg:
		m.err = msg.err

	case updateMsg:
		if m.autoScroll {
			m.scroll = m.maxScroll()
		}
		// Re-arm the wait for the next change signal.
		if m.mode == modeLogs {
			return m, waitForUpdate(m.session.Updates())
		}
		return m, waitForUpdate(m.aggregator.Updates())
	}

	return m, nil
}

// updateKeys handles normal-mode keys
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.session != nil {
			m.session.Close()
		}
		if m.aggregator != nil {
			m.aggregator.Close()
		}
		return m, tea.Quit

	case "c":
		// Clear the accumulated log/timeline
		if m.mode == modeLogs {
			m.session.ClearLog()
		} else {
			m.aggregator.ClearEvents()
		}
		m.scroll = 0

	case "r":
		if m.mode == modeLogs {
			m.session.Reconnect()
		} else {
			m.aggregator.Reconnect()
		}

	case "d":
		if m.mode == modeLogs {
			m.session.Disconnect()
		} else {
			m.aggregator.Disconnect()
		}

	case "C":
		if m.mode == modeLogs {
			return m, connectSession(m.session)
		}
		return m, connectAggregator(m.aggregator)

	case "a":
		m.autoScroll = !m.autoScroll
		if m.autoScroll {
			m.scroll = m.maxScroll()
		}

	case "pgup":
		visible := m.visibleLines()
		step := visible / 2
		if step < 1 {
			step = 1
		}
		m.scroll -= step
		if m.scroll < 0 {
			m.scroll = 0
		}
		m.autoScroll = false

	case "pgdown":
		visible := m.visibleLines()
		step := visible / 2
		if step < 1 {
			step = 1
		}
		m.scroll += step
		if max := m.maxScroll(); m.scroll >= max {
			m.scroll = max
			m.autoScroll = true
		}

	case "home":
		m.scroll = 0
		m.autoScroll = false

	case "end":
		m.scroll = m.maxScroll()
		m.autoScroll = true

	case "t":
		if m.mode == modeEvents {
			m.filter.Type = nextEventType(m.filter.Type)
			m.scroll = m.maxScroll()
		}

	case "/":
		if m.mode == modeEvents {
			m.editing = true
			m.searchText = m.filter.Search
		}
	}

	return m, nil
}

// updateSearchInput handles keys while the search field is focused
func (m Model) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filter.Search = m.searchText
		m.editing = false
		m.scroll = m.maxScroll()

	case "esc":
		m.searchText = ""
		m.filter.Search = ""
		m.editing = false

	case "backspace":
		if len(m.searchText) > 0 {
			runes := []rune(m.searchText)
			m.searchText = string(runes[:len(runes)-1])
		}

	default:
		if msg.Type == tea.KeyRunes {
			m.searchText += string(msg.Runes)
		}
	}

	return m, nil
}

// nextEventType cycles the type filter
func nextEventType(current string) string {
	for i, t := range eventTypes {
		if t == current {
			return eventTypes[(i+1)%len(eventTypes)]
		}
	}
	return ""
}
