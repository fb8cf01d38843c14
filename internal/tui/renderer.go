// Package tui provides console and terminal UI output for logtail.
package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme represents terminal color theme.
type Theme int

const (
	ThemeDark Theme = iota
	ThemeLight
)

// ParseTheme maps a config value onto a Theme. Unknown values are dark.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), "light") {
		return ThemeLight
	}
	return ThemeDark
}

// ANSIMode controls how ANSI escape codes in tailed content are handled.
type ANSIMode int

const (
	ANSIPassthrough ANSIMode = iota
	ANSIStrip
)

const (
	glyphAdded   = "➕"
	glyphRemoved = "➖"
	glyphContent = "📝"
)

// RenderConfig holds rendering configuration.
type RenderConfig struct {
	Theme    Theme
	ANSIMode ANSIMode
	Plain    bool // no colors; glyphs and text are unchanged
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() RenderConfig {
	return RenderConfig{
		Theme:    ThemeDark,
		ANSIMode: ANSIPassthrough,
	}
}

// Renderer turns engine output into console text.
type Renderer struct {
	config RenderConfig
	styles themeStyles
}

type themeStyles struct {
	added   lipgloss.Style
	removed lipgloss.Style
	content lipgloss.Style
	name    lipgloss.Style
	dir     lipgloss.Style
	hint    lipgloss.Style
}

func darkStyles() themeStyles {
	return themeStyles{
		added:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),            // green
		removed: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),           // red
		content: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),           // yellow
		name:    lipgloss.NewStyle().Foreground(lipgloss.Color("84")).Bold(true), // bright green
		dir:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),            // bright blue
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("243")),           // dim gray
	}
}

func lightStyles() themeStyles {
	return themeStyles{
		added:   lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		removed: lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		content: lipgloss.NewStyle().Foreground(lipgloss.Color("172")),
		name:    lipgloss.NewStyle().Foreground(lipgloss.Color("22")).Bold(true),
		dir:     lipgloss.NewStyle().Foreground(lipgloss.Color("27")),
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
}

func plainStyles() themeStyles {
	s := lipgloss.NewStyle()
	return themeStyles{added: s, removed: s, content: s, name: s, dir: s, hint: s}
}

// NewRenderer creates a new Renderer with the given config.
func NewRenderer(config RenderConfig) *Renderer {
	var styles themeStyles
	switch {
	case config.Plain:
		styles = plainStyles()
	case config.Theme == ThemeLight:
		styles = lightStyles()
	default:
		styles = darkStyles()
	}
	return &Renderer{config: config, styles: styles}
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// RenderBanner renders the startup lines naming the watched directory.
func (r *Renderer) RenderBanner(dir string) string {
	return "Watching for changes in " + r.styles.dir.Render(dir) + "...\n" +
		r.styles.hint.Render("Press Ctrl+C to stop") + "\n"
}

// RenderAdded renders the lifecycle line for a newly tracked file.
func (r *Renderer) RenderAdded(path string) string {
	return r.styles.added.Render(glyphAdded) + " New log file detected: " + path + "\n"
}

// RenderRemoved renders the lifecycle line for a dropped file.
func (r *Renderer) RenderRemoved(path string) string {
	return r.styles.removed.Render(glyphRemoved) + " Removed log file: " + path + "\n"
}

// RenderContent renders newly tailed bytes. The bytes are passed through
// verbatim (apart from optional ANSI stripping) and no newline is added, so
// a partial line stays partial.
func (r *Renderer) RenderContent(name string, data []byte) string {
	return r.styles.content.Render(glyphContent) + " " + r.styles.name.Render(name) + ": " + r.RenderContinuation(data)
}

// RenderContinuation renders bytes that extend a line already shown, so
// they carry no prefix.
func (r *Renderer) RenderContinuation(data []byte) string {
	text := string(data)
	if r.config.ANSIMode == ANSIStrip {
		text = StripANSI(text)
	}
	return text
}
