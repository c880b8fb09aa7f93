// Package painter renders colored prompt text for the debug console,
// using github.com/fatih/color in place of hand-rolled ANSI escapes.
// It supports path and Git status coloring with optional bold formatting
// and a small set of predefined themes.
package painter

import (
	"strings"

	"github.com/fatih/color"

	"github.com/shtestcore/shtest/internal/config"
)

// Painter holds styling information for the shell prompt: a resolved
// path color and an optional Git-status color, each with its own bold
// flag.
type Painter struct {
	Path *color.Color
	Git  *color.Color
}

// NewPainter creates a Painter from cfg.Prompt. A recognized theme name
// overrides the individual color fields before they are resolved.
func NewPainter(cfg config.Prompt) Painter {
	if theme := strings.TrimSpace(cfg.Theme); theme != "" && theme != "none" {
		resolveTheme(&cfg)
	}
	return Painter{
		Path: resolveColor(cfg.PathColour, cfg.PathColourBold),
		Git:  resolveColor(cfg.GitStatusColour, cfg.GitStatusColourBold),
	}
}

func resolveTheme(cfg *config.Prompt) {
	switch strings.ToLower(strings.TrimSpace(cfg.Theme)) {
	case "shsh":
		setShsh(cfg)
	case "wildberries":
		setWildberries(cfg)
	case "monokai":
		setMonokai(cfg)
	case "ohmybash":
		setOhMyBash(cfg)
	}
}

func setShsh(cfg *config.Prompt) {
	cfg.PathColour = "yellow"
	cfg.PathColourBold = false
	cfg.GitStatusColour = "default"
	cfg.GitStatusColourBold = false
}

func setWildberries(cfg *config.Prompt) {
	cfg.PathColour = "magenta"
	cfg.PathColourBold = true
	cfg.GitStatusColour = "default"
	cfg.GitStatusColourBold = true
}

func setMonokai(cfg *config.Prompt) {
	cfg.PathColour = "red"
	cfg.PathColourBold = true
	cfg.GitStatusColour = "green"
	cfg.GitStatusColourBold = false
}

func setOhMyBash(cfg *config.Prompt) {
	cfg.PathColour = "green"
	cfg.PathColourBold = false
	cfg.GitStatusColour = "blue"
	cfg.GitStatusColourBold = true
}

// resolveColor maps a color name to a *color.Color, applying bold when
// requested. An unrecognized or empty name falls back to the terminal's
// default foreground.
func resolveColor(name string, bold bool) *color.Color {
	var c *color.Color
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "black":
		c = color.New(color.FgBlack)
	case "red":
		c = color.New(color.FgRed)
	case "green":
		c = color.New(color.FgGreen)
	case "yellow":
		c = color.New(color.FgYellow)
	case "blue":
		c = color.New(color.FgBlue)
	case "magenta":
		c = color.New(color.FgMagenta)
	case "cyan":
		c = color.New(color.FgCyan)
	case "white":
		c = color.New(color.FgWhite)
	default:
		c = color.New(color.Reset)
	}
	if bold {
		c.Add(color.Bold)
	}
	return c
}

// Paint renders text through c, or returns text unchanged if c is nil.
func Paint(c *color.Color, text string) string {
	if c == nil {
		return text
	}
	return c.Sprint(text)
}
