package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B4BEFE"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#CBA6F7"))

	openStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))

	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))

	connectingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))

	closedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6ADC8")).Padding(1, 0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#585B70")).
			Padding(1, 2)

	filterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89DCEB"))
)
