package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a multi-line diagnostic printed by the CLI
//
//	✗ MODEL NOT FOUND: sample_app.bok
//	   No model sample_app.bok is registered.
//
//	   Did you mean: sample_app.book?
//
//	   → List models: schemaviewer models
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Detail      string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

func paint(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// String formats the message
func (m Message) String() string {
	var header, body *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header, body, symbol = paint(m.NoColor, color.FgYellow, color.Bold), paint(m.NoColor, color.FgYellow), "!"
	case LevelInfo:
		header, body, symbol = paint(m.NoColor, color.FgCyan, color.Bold), paint(m.NoColor, color.FgCyan), "i"
	default:
		header, body, symbol = paint(m.NoColor, color.FgRed, color.Bold), paint(m.NoColor, color.FgRed), "✗"
	}

	var b strings.Builder
	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}
	if m.Detail != "" {
		body.Fprintf(&b, "   %s\n", m.Detail)
	}
	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		paint(m.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.Hints) > 0 {
		b.WriteString("\n")
		hint := paint(m.NoColor, color.FgCyan)
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write prints the message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.String())
}

// Success formats a one-line success message
func Success(message string, noColor bool) string {
	return paint(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// Info formats a one-line informational message
func Info(message string, noColor bool) string {
	return paint(noColor, color.FgCyan).Sprintf("• %s", message)
}
