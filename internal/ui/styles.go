// Package ui 终端记分板（观众视角）
package ui

import "github.com/charmbracelet/lipgloss"

// 图标
const (
	CupIcon      = "🍺"
	EmptyCupIcon = "·"
	ActiveIcon   = "🎯"
	WinnerIcon   = "🏆"
	OfflineIcon  = "💤"
)

var (
	DocStyle     = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true)
	BoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	ActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	WinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D75F")).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	StatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	LatencyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)
