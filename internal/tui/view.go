package tui

// View renders the TUI interface
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	if m.mode == modeLogs {
		return m.renderLogsScreen()
	}
	return m.renderEventsScreen()
}
