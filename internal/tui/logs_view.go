package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rusenback/dockstream/internal/model"
)

var (
	// Log level patterns
	errorPattern   = regexp.MustCompile(`(?i)\b(error|err|fatal|fail|failed|exception|panic)\b`)
	warningPattern = regexp.MustCompile(`(?i)\b(warn|warning|caution)\b`)
	debugPattern   = regexp.MustCompile(`(?i)\b(debug|trace)\b`)

	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")) // Dim gray

	errorLogStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")) // Red
	warningLogStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387")) // Orange
	debugLogStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")) // Dim
	defaultLogStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")) // Normal

	syntheticStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA")).Italic(true)
)

// renderLogsScreen renders the log stream panel
func (m Model) renderLogsScreen() string {
	var s strings.Builder

	target := m.session.Target()
	s.WriteString(titleStyle.Render(fmt.Sprintf("Logs: %s @ %s", target.ResourceID, target.HostID)))
	s.WriteString("  " + m.renderSessionStatus() + "\n\n")

	messages := m.session.Messages()
	visible := m.visibleLines()

	start := m.scroll
	if start > len(messages) {
		start = len(messages)
	}
	end := start + visible
	if end > len(messages) {
		end = len(messages)
	}

	if len(messages) == 0 {
		s.WriteString(closedStyle.Render("(no log entries)") + "\n")
	}

	maxWidth := m.width - 8
	if maxWidth < 20 {
		maxWidth = 20
	}
	for _, msg := range messages[start:end] {
		s.WriteString(styleLogMessage(msg, maxWidth) + "\n")
	}

	s.WriteString(helpStyle.Render(
		"c clear · r reconnect · d disconnect · C connect · a autoscroll · pgup/pgdn scroll · q quit"))

	return panelStyle.Width(m.width - 4).Render(s.String())
}

// renderSessionStatus renders the connected/connecting/failed indicator
func (m Model) renderSessionStatus() string {
	state, reason := m.session.State()
	return styleState(state, reason)
}

func styleState(state model.ConnectionState, reason string) string {
	switch state {
	case model.StateOpen:
		return openStyle.Render("● " + state.String())
	case model.StateConnecting:
		return connectingStyle.Render("◌ " + state.String())
	case model.StateFailed:
		out := failedStyle.Render("✗ " + state.String())
		if reason != "" {
			out += " " + failedStyle.Render("("+reason+")")
		}
		return out
	default:
		return closedStyle.Render("○ " + state.String())
	}
}

// styleLogMessage applies styling to one log entry
func styleLogMessage(msg model.Message, maxWidth int) string {
	timestamp := timestampStyle.Render(msg.ObservedAt.Format("15:04:05"))

	var body string
	switch msg.Kind {
	case model.KindConnected:
		body = syntheticStyle.Render("── connected ──")
	case model.KindDisconnected:
		body = syntheticStyle.Render("── disconnected: " + msg.Info + " ──")
	case model.KindError:
		body = errorLogStyle.Render(msg.Info)
	default:
		body = styleLogLine(msg.Payload)
	}

	line := timestamp + " " + body
	if lipgloss.Width(line) > maxWidth {
		line = truncateStyled(line, maxWidth)
	}
	return line
}

// styleLogLine picks a style from the detected log level
func styleLogLine(text string) string {
	switch {
	case errorPattern.MatchString(text):
		return errorLogStyle.Render(text)
	case warningPattern.MatchString(text):
		return warningLogStyle.Render(text)
	case debugPattern.MatchString(text):
		return debugLogStyle.Render(text)
	default:
		return defaultLogStyle.Render(text)
	}
}

// truncateStyled truncates a styled string to a maximum visible width.
// Not perfect with ANSI codes but good enough here.
func truncateStyled(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	if len(runes) > maxWidth {
		return string(runes[:maxWidth])
	}
	return s
}
