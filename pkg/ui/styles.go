package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette. Adaptive so light terminals keep enough contrast.
var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
)

var (
	clusterStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	itemStyle    = lipgloss.NewStyle().Foreground(ColorText)
	dimStyle     = lipgloss.NewStyle().Foreground(ColorMuted).Faint(true)
	lowStyle     = lipgloss.NewStyle().Foreground(ColorSubtext)

	statusStyle = lipgloss.NewStyle().Foreground(ColorSubtext)
	badgeStyle  = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorDanger)
	helpStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
)
