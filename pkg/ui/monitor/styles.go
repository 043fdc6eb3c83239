package monitor

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for monitor UI regions.
type theme struct {
	header     lipgloss.Style
	headerMeta lipgloss.Style
	divider    lipgloss.Style
	delivered  lipgloss.Style
	dropped    lipgloss.Style
	failed     lipgloss.Style
	phase      lipgloss.Style
	unit       lipgloss.Style
	response   lipgloss.Style
	timestamp  lipgloss.Style
	selected   lipgloss.Style
	surface    lipgloss.Style
	fillOn     lipgloss.Style
	fillOff    lipgloss.Style
	status     lipgloss.Style
	statusBusy lipgloss.Style
	statusErr  lipgloss.Style
	hint       lipgloss.Style
	viewport   lipgloss.Style
}

// defaultTheme keeps the retro terminal palette of the command center.
func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("88")),
		headerMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("223")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("130")),
		delivered: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("114")).
			Padding(0, 1),
		dropped: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("214")).
			Padding(0, 1),
		failed: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1),
		phase: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("44")),
		unit: lipgloss.NewStyle().
			Foreground(lipgloss.Color("180")),
		response: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("214")).
			Padding(0, 1),
		surface: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Padding(0, 1),
		fillOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")),
		fillOff: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Bold(true),
		statusBusy: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		statusErr: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		viewport: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("130")).
			Background(lipgloss.Color("233")).
			Padding(0, 1),
	}
}
