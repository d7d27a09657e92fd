package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// renderEventsScreen renders the aggregated event timeline
func (m Model) renderEventsScreen() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Events: "+m.aggregator.Scope()) + "  ")
	s.WriteString(m.renderHostStatuses() + "\n")
	s.WriteString(m.renderFilterLine() + "\n\n")

	records := m.aggregator.Events(m.filter)
	visible := m.visibleLines()

	start := m.scroll
	if start > len(records) {
		start = len(records)
	}
	end := start + visible
	if end > len(records) {
		end = len(records)
	}

	colWidth := m.width - 12
	if colWidth < 40 {
		colWidth = 40
	}
	typeWidth := 10
	actionWidth := 12
	hostWidth := 10
	actorWidth := colWidth - typeWidth - actionWidth - hostWidth - 10
	if actorWidth < 12 {
		actorWidth = 12
	}

	header := fmt.Sprintf("%-8s  %-*s %-*s %-*s %-*s",
		"TIME",
		typeWidth, "TYPE",
		actionWidth, "ACTION",
		actorWidth, "ACTOR",
		hostWidth, "HOST")
	s.WriteString(headerStyle.Render(header) + "\n")

	if len(records) == 0 {
		s.WriteString(closedStyle.Render("(no events)") + "\n")
	}

	for _, rec := range records[start:end] {
		line := fmt.Sprintf("%-8s  %-*s %-*s %-*s %-*s",
			time.Unix(rec.Time, 0).Format("15:04:05"),
			typeWidth, truncate(string(rec.Type), typeWidth),
			actionWidth, truncate(string(rec.Action), actionWidth),
			actorWidth, truncate(rec.ActorName(), actorWidth),
			hostWidth, truncate(rec.HostID, hostWidth))
		s.WriteString(line + "\n")
	}

	s.WriteString(fmt.Sprintf("\n%d shown / %d total\n", len(records), m.aggregator.Len()))
	s.WriteString(helpStyle.Render(
		"t type filter · / search · c clear · r reconnect · d disconnect · a autoscroll · q quit"))

	return panelStyle.Width(m.width - 4).Render(s.String())
}

// renderHostStatuses renders per-host connection indicators
func (m Model) renderHostStatuses() string {
	statuses := m.aggregator.Statuses()
	if len(statuses) == 0 {
		return closedStyle.Render("○ idle")
	}

	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+" "+styleState(statuses[id], ""))
	}
	return strings.Join(parts, "  ")
}

// renderFilterLine renders the active filter and the search input
func (m Model) renderFilterLine() string {
	typeLabel := m.filter.Type
	if typeLabel == "" {
		typeLabel = "all"
	}

	search := m.filter.Search
	if m.editing {
		search = m.searchText + "▌"
	}
	if search == "" {
		search = "-"
	}

	return filterStyle.Render(fmt.Sprintf("type: %s   search: %s", typeLabel, search))
}
