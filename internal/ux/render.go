// Package ux renders the agent's update stream for the terminal.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"codescout/internal/types"
)

var (
	thoughtStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac")).Italic(true)
	actionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")).Bold(true)
	observeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d6dae0"))
	finishStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
)

// Renderer writes styled updates to an output stream.
type Renderer struct {
	out      io.Writer
	markdown *glamour.TermRenderer
}

// NewRenderer creates a renderer writing to out. A nil markdown renderer
// (glamour init failure) degrades to plain text.
func NewRenderer(out io.Writer) *Renderer {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		md = nil
	}
	return &Renderer{out: out, markdown: md}
}

// Update prints one agent update.
func (r *Renderer) Update(u types.AgentUpdate) {
	switch u.Kind {
	case types.UpdateThought:
		fmt.Fprintln(r.out, thoughtStyle.Render("◆ "+u.Content))
	case types.UpdateAction:
		fmt.Fprintln(r.out, actionStyle.Render("▶ "+u.Content))
	case types.UpdateObservation:
		fmt.Fprintln(r.out, observeStyle.Render(indent(u.Content)))
	case types.UpdateFinish:
		fmt.Fprintln(r.out, finishStyle.Render("✔ done"))
		fmt.Fprint(r.out, r.safeMarkdown(u.Content))
	case types.UpdateError:
		fmt.Fprintln(r.out, errorStyle.Render("✘ "+u.Content))
	}
}

// Question prints an askUser prompt awaiting terminal input.
func (r *Renderer) Question(question string) {
	fmt.Fprintln(r.out, questionStyle.Render("? "+question))
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// safeMarkdown renders markdown with panic recovery; glamour can panic on
// pathological input.
func (r *Renderer) safeMarkdown(content string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			result = content + "\n"
		}
	}()

	if r.markdown != nil && content != "" {
		if rendered, err := r.markdown.Render(content); err == nil {
			return rendered
		}
	}
	if content == "" {
		return ""
	}
	return content + "\n"
}
