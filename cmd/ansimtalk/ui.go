package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"}
	colorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "4", Dark: "4"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"}

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleLabel   = lipgloss.NewStyle().Bold(true).Width(22)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(0, 1)
)

const (
	iconSuccess = "✔"
	iconError   = "✘"
	iconWarning = "⚠"
)

func field(label, value string) string {
	return styleLabel.Render(label) + value
}

func statusLine(ok bool, name, detail string) string {
	if ok {
		return fmt.Sprintf("%s %s", styleSuccess.Render(iconSuccess), name)
	}
	return fmt.Sprintf("%s %s %s", styleError.Render(iconError), name, styleMuted.Render("("+detail+")"))
}
