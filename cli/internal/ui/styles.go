package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary    = lipgloss.Color("#22d3ee") // Cyan accent
	Secondary  = lipgloss.Color("#7C3AED") // Violet
	Success    = lipgloss.Color("#10B981") // Emerald
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
)

// Text styles
var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)
)

// InfoBoxStyle frames the room card printed after joining.
var InfoBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Secondary).
	Padding(1, 2)

// Peer state styles
var (
	PeerConnectedStyle = lipgloss.NewStyle().
				Foreground(Success)

	PeerPendingStyle = lipgloss.NewStyle().
				Foreground(Warning)

	PeerFailedStyle = lipgloss.NewStyle().
			Foreground(Error)

	PeerIDStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Width(38)
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)

// Emoji helpers for consistent iconography
const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconRoom    = "🚪"
	IconPeer    = "👤"
	IconSpeed   = "⚡"
	IconTime    = "⏱️"
	IconWaiting = "⏳"
	IconCopy    = "📋"
	IconCall    = "📞"
	IconStats   = "📊"
)

// PeerStateStyle picks the style for a pion connection state name.
func PeerStateStyle(state string) lipgloss.Style {
	switch state {
	case "connected":
		return PeerConnectedStyle
	case "failed", "closed", "disconnected":
		return PeerFailedStyle
	default:
		return PeerPendingStyle
	}
}

func PrintError(msg string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintWarning(msg string) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render(msg))
}

func PrintInfo(msg string) {
	fmt.Printf("%s %s\n", IconInfo, msg)
}

func PrintInfof(format string, args ...any) {
	PrintInfo(fmt.Sprintf(format, args...))
}
