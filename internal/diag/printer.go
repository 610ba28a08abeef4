package diag

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
)

// Printer renders diagnostics for a terminal.
type Printer struct {
	w    io.Writer
	root string

	errorColor *color.Color
	warnColor  *color.Color
	infoColor  *color.Color
	codeColor  *color.Color
}

// NewPrinter prints paths relative to root when possible.
func NewPrinter(w io.Writer, root string) *Printer {
	return &Printer{
		w:          w,
		root:       root,
		errorColor: color.New(color.FgRed, color.Bold),
		warnColor:  color.New(color.FgYellow, color.Bold),
		infoColor:  color.New(color.FgCyan),
		codeColor:  color.New(color.Faint),
	}
}

// NoColor disables escape sequences regardless of the terminal.
func (p *Printer) NoColor() *Printer {
	for _, c := range []*color.Color{p.errorColor, p.warnColor, p.infoColor, p.codeColor} {
		c.DisableColor()
	}
	return p
}

func (p *Printer) Print(ds []Diagnostic) {
	for _, d := range ds {
		p.PrintOne(d)
	}
}

func (p *Printer) PrintOne(d Diagnostic) {
	sev := p.severityColor(d.Severity).Sprint(string(d.Severity))
	code := p.codeColor.Sprint(string(d.Code))
	if loc := p.location(d.Location); loc != "" {
		fmt.Fprintf(p.w, "%s: %s %s: %s\n", loc, sev, code, d.Message)
	} else {
		fmt.Fprintf(p.w, "%s %s: %s\n", sev, code, d.Message)
	}
}

// Summary prints one line of counts.
func (p *Printer) Summary(ds []Diagnostic) {
	var errs, warns int
	for _, d := range ds {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}
	fmt.Fprintf(p.w, "%s, %s\n",
		p.errorColor.Sprintf("%d error(s)", errs),
		p.warnColor.Sprintf("%d warning(s)", warns))
}

func (p *Printer) severityColor(s Severity) *color.Color {
	switch s {
	case SeverityError:
		return p.errorColor
	case SeverityWarning:
		return p.warnColor
	default:
		return p.infoColor
	}
}

func (p *Printer) location(l Location) string {
	if l.File == "" {
		return ""
	}
	file := l.File
	if p.root != "" {
		if rel, err := filepath.Rel(p.root, file); err == nil {
			file = rel
		}
	}
	return fmt.Sprintf("%s:%d", file, l.Line)
}
