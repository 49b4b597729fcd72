package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

type statusStyle struct {
	plain string
	glyph string
	color string
}

var statusStyles = map[statusKind]statusStyle{
	statusOK:    {plain: "[OK]", glyph: "✓", color: "\x1b[32m"},
	statusWarn:  {plain: "[WARN]", glyph: "!", color: "\x1b[33m"},
	statusError: {plain: "[ERROR]", glyph: "✗", color: "\x1b[31m"},
}

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"

	statusLabelWidth = 22
)

// statusPrinter writes doctor lines. Terminals get glyphs and colour;
// anything else gets bracketed ASCII labels.
type statusPrinter struct {
	out io.Writer
	tty bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, tty: isTerminal(out)}
}

func (p *statusPrinter) section(title string) {
	if p.tty {
		title = ansiBold + title + ansiReset
	}
	fmt.Fprintln(p.out, title)
}

func (p *statusPrinter) line(label string, kind statusKind, detail string) {
	style := statusStyles[kind]
	if !p.tty {
		fmt.Fprintf(p.out, "  %s %-*s %s\n", style.plain, statusLabelWidth, label+":", detail)
		return
	}
	fmt.Fprintf(p.out, "%s  %s %-*s %s%s\n", style.color, style.glyph, statusLabelWidth, label+":", detail, ansiReset)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
