// Package ui provides terminal styling for maxd CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maxmarket/maxd/internal/types"
)

// Ayu theme color palette
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
)

// HeaderStyle for section headers
var HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

// StatusBadge renders a discussion status as a fixed-width colored badge.
func StatusBadge(s types.Status) string {
	label := fmt.Sprintf("%-11s", strings.ToUpper(string(s)))
	switch s {
	case types.StatusCreated:
		return MutedStyle.Render(label)
	case types.StatusInProgress:
		return AccentStyle.Render(label)
	case types.StatusDecided:
		return PassStyle.Render(label)
	case types.StatusClosed:
		return MutedStyle.Render(label)
	default:
		return label
	}
}

// ChecklistBadge renders a checklist item status with semantic color.
func ChecklistBadge(s types.ChecklistStatus) string {
	label := string(s)
	if label == "" {
		label = string(types.ChecklistPending)
	}
	switch {
	case s == types.ChecklistApproved:
		return PassStyle.Render(label)
	case s == types.ChecklistRejected || s == types.ChecklistRejectedFinal:
		return FailStyle.Render(label)
	case s == types.ChecklistReviseRequired:
		return WarnStyle.Render(label)
	case s.IsPending():
		return MutedStyle.Render(label)
	default:
		return label
	}
}

// PriceDelta renders a signed change with green/red coloring.
func PriceDelta(change, percent float64) string {
	text := fmt.Sprintf("%+.2f (%+.2f%%)", change, percent)
	if change < 0 {
		return FailStyle.Render(text)
	}
	return PassStyle.Render(text)
}

// Header renders a bold section header.
func Header(s string) string {
	return HeaderStyle.Render(s)
}

// Muted renders de-emphasized text.
func Muted(s string) string {
	return MutedStyle.Render(s)
}
