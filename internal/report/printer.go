// Package report renders analysis results, call lists and failures for the
// terminal, and the same data as JSON.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Printer is the presentation context for one command invocation. It owns
// the output writers and colour styles; nothing in this package writes to
// process-wide state.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool

	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
	prompt  *color.Color

	banner lipgloss.Style
	dim    lipgloss.Style
}

// NewPrinter builds a Printer. Nil writers default to stdout and stderr.
func NewPrinter(out, errOut io.Writer, verbose, noColor bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	p := &Printer{
		Out:     out,
		Err:     errOut,
		Verbose: verbose,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		warning: color.New(color.FgYellow),
		info:    color.New(color.FgBlue),
		prompt:  color.New(color.FgCyan, color.Bold),
	}

	r := lipgloss.NewRenderer(out)
	p.banner = r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Bold(true)
	p.dim = r.NewStyle()
	if noColor {
		for _, c := range []*color.Color{p.success, p.failure, p.warning, p.info, p.prompt} {
			c.DisableColor()
		}
	} else {
		p.banner = p.banner.BorderForeground(lipgloss.Color("39"))
		p.dim = p.dim.Foreground(lipgloss.Color("240"))
	}
	return p
}

// Debugf writes a [DEBUG] line to stderr when verbose output is on.
func (p *Printer) Debugf(format string, args ...any) {
	if !p.Verbose {
		return
	}
	fmt.Fprintf(p.Err, "[DEBUG] "+format+"\n", args...)
}

func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.Out, args...)
}

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.Out, format, args...)
}

func (p *Printer) Successf(format string, args ...any) {
	p.success.Fprintf(p.Out, format, args...)
}

func (p *Printer) Errorf(format string, args ...any) {
	p.failure.Fprintf(p.Out, format, args...)
}

func (p *Printer) Warnf(format string, args ...any) {
	p.warning.Fprintf(p.Out, format, args...)
}

func (p *Printer) Infof(format string, args ...any) {
	p.info.Fprintf(p.Out, format, args...)
}

// Banner draws a boxed title.
func (p *Printer) Banner(title string) {
	fmt.Fprintln(p.Out, p.banner.Render(title))
}

func (p *Printer) section(title string) {
	fmt.Fprintln(p.Out, p.dim.Render("───────────────────────────────────────────"))
	fmt.Fprintln(p.Out, title)
}
