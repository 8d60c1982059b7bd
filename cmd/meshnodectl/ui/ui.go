// Package ui renders meshnodectl output: styled text and plain-grid
// tables, muted and professional like a dark-terminal admin tool.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
)

var (
	AccentStyle  = lipgloss.NewStyle().Foreground(purple)
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	WarnStyle    = lipgloss.NewStyle().Foreground(yellow)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	HeaderStyle  = lipgloss.NewStyle().Foreground(purple).Bold(true)
)

func Accent(s string) string { return AccentStyle.Render(s) }
func Muted(s string) string  { return MutedStyle.Render(s) }

func Bool(v bool) string {
	if v {
		return SuccessStyle.Render("true")
	}
	return ErrorStyle.Render("false")
}

func SuccessMsg(format string, a ...any) string {
	return SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func ErrorMsg(format string, a ...any) string {
	return ErrorStyle.Render("✗") + " " + fmt.Sprintf(format, a...)
}

// Table renders a left-aligned, column-padded grid. It intentionally
// skips border-drawing: the admin CLI favors pipeable plain text over
// box drawing.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, style lipgloss.Style) {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			padded[i] = style.Render(fmt.Sprintf("%-*s", widths[i], cell))
		}
		sb.WriteString(strings.Join(padded, "  "))
		sb.WriteString("\n")
	}
	writeRow(headers, HeaderStyle)
	for _, row := range rows {
		writeRow(row, lipgloss.NewStyle())
	}
	return sb.String()
}
