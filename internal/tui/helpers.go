package tui

// truncate shortens a string to a maximum length
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// entryCount returns how many entries the current screen shows
func (m Model) entryCount() int {
	if m.mode == modeLogs {
		return m.session.Len()
	}
	return len(m.aggregator.Events(m.filter))
}

// visibleLines calculates how many entries fit in the panel
func (m Model) visibleLines() int {
	// Reserve space for border, title, status and help lines
	visible := m.height - 8
	if visible < 3 {
		visible = 3
	}
	return visible
}

// maxScroll calculates the maximum scroll position
func (m Model) maxScroll() int {
	max := m.entryCount() - m.visibleLines()
	if max < 0 {
		max = 0
	}
	return max
}
