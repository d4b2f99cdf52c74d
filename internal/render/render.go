// Package render is the presentation sink: it formats banners, model
// listings, errors and assembled answers for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"duckchat/internal/config"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

const banner = " ____             _       ____ _           _\n" +
	"|  _ \\ _   _  ___| | __  / ___| |__   __ _| |_\n" +
	"| | | | | | |/ __| |/ / | |   | '_ \\ / _` | __|\n" +
	"| |_| | |_| | (__|   <  | |___| | | | (_| | |_\n" +
	"|____/ \\__,_|\\___|_|\\_\\  \\____|_| |_|\\__,_|\\__|\n"

// Printer renders program output.
type Printer struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

// NewPrinter creates a printer writing to out. Markdown rendering
// degrades to plain text if the terminal renderer cannot be built.
func NewPrinter(out io.Writer) *Printer {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	return &Printer{out: out, renderer: renderer}
}

// Hello prints the welcome banner.
func (p *Printer) Hello(model string) {
	fmt.Fprintln(p.out, accentStyle.Render(banner))
	fmt.Fprintln(p.out, accentStyle.Render("Welcome to DuckChat! Your assistant is "+model))
	p.Separator()
}

// Separator prints the divider between exchanges.
func (p *Printer) Separator() {
	fmt.Fprintln(p.out, "---")
}

// Error prints an error message.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, errorStyle.Render("EE:")+" "+err.Error())
}

// Warn prints a warning message.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.out, warnStyle.Render(msg))
}

// Println prints a plain line.
func (p *Printer) Println(msg string) {
	fmt.Fprintln(p.out, msg)
}

// Models prints the alias table.
func (p *Printer) Models(models config.Models) {
	for _, e := range models.List() {
		fmt.Fprintf(p.out, "%s %s\n", e.Alias, e.ID)
	}
}

// Answer prints an assembled answer attributed to model. Multi-line
// answers go through the Markdown renderer; single-line answers are
// printed plain to avoid a stray empty line.
func (p *Printer) Answer(model, text string) {
	fmt.Fprintf(p.out, "🤖 %s: ", accentStyle.Render(model))

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > 1 && p.renderer != nil {
		if rendered, err := p.renderer.Render(text); err == nil {
			fmt.Fprintln(p.out)
			fmt.Fprint(p.out, rendered)
			return
		}
	}
	fmt.Fprintln(p.out, strings.Join(lines, "\n"))
}

// CommandHelp prints the meta-command reference.
func (p *Printer) CommandHelp() {
	fmt.Fprint(p.out, `
Available commands:

listmodels - print available models
setmodel [MODEL] - set the model for a fresh session. with no argument, print the current model
newhist - clear the conversation history
help - display this help
`)
}

// ExtractFenced re-scans text line by line, toggling at every line that
// contains a triple-backtick fence, and keeps only the lines inside a
// fence. A pure transform over the already-assembled answer.
func ExtractFenced(text string) string {
	var kept []string
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
