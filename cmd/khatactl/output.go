package main

import (
	"fmt"
	"io"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

const defaultWidth = 80

var (
	profitColor  = colorful.Color{R: 0.18, G: 0.49, B: 0.20}
	neutralColor = colorful.Color{R: 0.62, G: 0.62, B: 0.62}
	lossColor    = colorful.Color{R: 0.78, G: 0.16, B: 0.16}
)

// useColor reports whether w is a terminal that should get ANSI colors.
func useColor(w io.Writer) bool {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// outputWidth is the terminal width of w, or defaultWidth when w is not a
// terminal.
func outputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// notesWidth leaves room for the fixed columns of the entry table.
func notesWidth(width int) int {
	const fixed = 64
	if width-fixed < 12 {
		return 12
	}
	return width - fixed
}

// totalColor maps a signed total onto a profit to loss gradient. Profit is
// negative, so -scale is fully green and +scale fully red.
func totalColor(total, scale decimal.Decimal) colorful.Color {
	if scale.IsZero() || total.IsZero() {
		return neutralColor
	}
	t, _ := total.Abs().Div(scale.Abs()).Float64()
	if t > 1 {
		t = 1
	}
	if total.IsNegative() {
		return neutralColor.BlendLab(profitColor, t).Clamped()
	}
	return neutralColor.BlendLab(lossColor, t).Clamped()
}

// paint wraps s in a 24-bit foreground color escape.
func paint(s string, c colorful.Color) string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", r, g, b, s)
}
