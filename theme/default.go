package theme

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Theme defines the colour scheme and styling for the application
type Theme struct {
	// Log level colours
	Debug *pterm.Style
	Info  *pterm.Style
	Warn  *pterm.Style
	Error *pterm.Style
	Fatal *pterm.Style

	// Component colours
	Success   *pterm.Style
	Highlight *pterm.Style
	Muted     *pterm.Style
	Accent    *pterm.Style

	// Domain colours
	Agent  *pterm.Style
	Model  *pterm.Style
	Counts *pterm.Style
	Number *pterm.Style
}

// Default returns the default application theme
func Default() *Theme {
	return &Theme{
		Debug: pterm.NewStyle(pterm.FgLightBlue),
		Info:  pterm.NewStyle(pterm.FgGreen),
		Warn:  pterm.NewStyle(pterm.FgYellow, pterm.Bold),
		Error: pterm.NewStyle(pterm.FgRed, pterm.Bold),
		Fatal: pterm.NewStyle(pterm.FgWhite, pterm.BgRed, pterm.Bold),

		Success:   pterm.NewStyle(pterm.FgGreen, pterm.Bold),
		Highlight: pterm.NewStyle(pterm.FgCyan, pterm.Bold),
		Muted:     pterm.NewStyle(pterm.FgGray),
		Accent:    pterm.NewStyle(pterm.FgMagenta),

		Agent:  pterm.NewStyle(pterm.FgCyan),
		Model:  pterm.NewStyle(pterm.FgMagenta, pterm.Bold),
		Counts: pterm.NewStyle(pterm.FgYellow),
		Number: pterm.NewStyle(pterm.FgLightWhite, pterm.Bold),
	}
}

// Dark returns a dark theme variant
func Dark() *Theme {
	t := Default()
	t.Muted = pterm.NewStyle(pterm.FgDarkGray)
	t.Agent = pterm.NewStyle(pterm.FgLightCyan)
	t.Model = pterm.NewStyle(pterm.FgLightMagenta, pterm.Bold)
	return t
}

// GetTheme returns the appropriate theme based on environment or preference
func GetTheme(name string) *Theme {
	switch strings.ToLower(name) {
	case "dark":
		return Dark()
	default:
		if strings.ToLower(os.Getenv("GANTRY_THEME")) == "dark" {
			return Dark()
		}
		return Default()
	}
}

// ColourSplash Colours for the splash screen
func ColourSplash(message ...any) string {
	return pterm.NewStyle(pterm.FgCyan).Sprint(message...)
}

// ColourVersion Colours Version numbers, used for the splash screen
func ColourVersion(message ...any) string {
	return pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint(message...)
}

// StyleUrl Colours for URLs and hyperlinks
func StyleUrl(message ...any) string {
	return pterm.NewStyle(pterm.FgLightBlue, pterm.Underscore).Sprint(message...)
}

// Hyperlink creates a hyperlink in the terminal
func Hyperlink(uri string, text string) string {
	return fmt.Sprintf("\x1b]8;;%s\x07%s\x1b]8;;\x07", uri, text)
}
