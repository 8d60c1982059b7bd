package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoColor = "NO_COLOR"
	envCI      = "CI"
	envTerm    = "TERM"
)

// ConfigureTerminal picks lipgloss's color profile for the current
// process: the real terminal profile when stderr is a TTY and
// nothing asks for plain output, or termenv.Ascii (no escape codes)
// under CI runners, NO_COLOR, TERM=dumb, or when stderr is piped.
// Called once from the root command before any output is rendered.
func ConfigureTerminal() {
	if !stderrIsTerminal() || envTruthy(envNoColor) || envTruthy(envCI) || termDumb() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.ColorProfile())
}

func termDumb() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb")
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
