package screen

import "github.com/charmbracelet/lipgloss"

// Semantic color palette, grounded in the same ANSI-256 numbering the rest
// of the ecosystem's terminal UIs use for portability across terminal
// themes: low codes map to the classic 8-color set every emulator honors.
const (
	ColorSuccess lipgloss.Color = "2" // green: sweet spot, running
	ColorWarning lipgloss.Color = "3" // yellow: backing off, paused
	ColorError   lipgloss.Color = "1" // red: command failures, shut off
	ColorInfo    lipgloss.Color = "6" // cyan: informational status
	ColorMuted   lipgloss.Color = "8" // gray: captions, disabled state
)

var (
	captionStyle = lipgloss.NewStyle().Bold(true)
	activeBorder = lipgloss.NewStyle().Foreground(ColorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// RenderCaption styles a window's title line, dimming it when the window
// isn't the active tiled window.
func RenderCaption(caption string, active bool) string {
	if active {
		return activeBorder.Render(captionStyle.Render(caption))
	}
	return mutedStyle.Render(caption)
}

// StatusColor maps a ballooning controller status string to a semantic
// color for the VM window's status column.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "sweet spot":
		return ColorSuccess
	case "disabled", "vm stopped", "ballooning unsupported", "no new data":
		return ColorMuted
	default:
		switch {
		case len(status) >= 11 && status[:11] == "backing off":
			return ColorWarning
		case len(status) >= 8 && status[:8] == "updating":
			return ColorInfo
		default:
			return ColorMuted
		}
	}
}
