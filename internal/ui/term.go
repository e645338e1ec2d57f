package ui

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/javiermolinar/lifeplan/internal/task"
)

// Color definitions for consistent styling across the UI.
var (
	// Headers: bold
	colorHeader = color.New(color.Bold)

	// Stats: green for positive metrics
	colorStats = color.New(color.FgGreen)

	// Warnings: yellow, used for conflicts and suggestions
	colorWarn = color.New(color.FgYellow)

	// Muted: for secondary information
	colorMuted = color.New(color.FgWhite, color.Faint)

	domainColors = map[task.Domain]*color.Color{
		task.DomainTime:      color.New(color.FgCyan, color.Bold),
		task.DomainFinance:   color.New(color.FgGreen),
		task.DomainPhysical:  color.New(color.FgRed),
		task.DomainMental:    color.New(color.FgMagenta),
		task.DomainSocial:    color.New(color.FgYellow),
		task.DomainSpiritual: color.New(color.FgBlue),
		task.DomainAdmin:     color.New(color.FgWhite, color.Faint),
	}
)

// termWidth returns the terminal width, or a default if detection fails.
func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// DisableColor disables all color output.
func DisableColor() {
	color.NoColor = true
}

// EnableColor enables color output (if terminal supports it).
func EnableColor() {
	color.NoColor = false
}

// formatDomain formats s in the color of domain d.
func formatDomain(d task.Domain, s string) string {
	c, ok := domainColors[d]
	if !ok {
		return s
	}
	return c.Sprint(s)
}

// formatHeader formats text as a header.
func formatHeader(s string) string {
	return colorHeader.Sprint(s)
}

// formatStats formats text for statistics.
func formatStats(s string) string {
	return colorStats.Sprint(s)
}

// formatWarn formats text that needs attention.
func formatWarn(s string) string {
	return colorWarn.Sprint(s)
}

// formatMuted formats text as secondary/muted.
func formatMuted(s string) string {
	return colorMuted.Sprint(s)
}
