package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorSuccess = lipgloss.Color("#39D98A")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#7A8C94")
	colorHeader  = lipgloss.Color("#FF6EC7")
)

var (
	labelStyle     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	valueStyle     = lipgloss.NewStyle().Foreground(colorWarning)
	successStyle   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	highlightStyle = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	headerStyle    = lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
)

// Console writes human oriented output. Styling is dropped when the writer
// is not a terminal or colour is disabled; quiet mode keeps only errors and
// tables.
type Console struct {
	out   io.Writer
	color bool
	tty   bool
	quiet bool
}

// NewConsole creates a console on out
func NewConsole(out io.Writer, noColor, quiet bool) *Console {
	tty := isTerminal(out)
	return &Console{
		out:   out,
		color: tty && !noColor && os.Getenv("NO_COLOR") == "",
		tty:   tty,
		quiet: quiet,
	}
}

var std = NewConsole(os.Stdout, false, false)

// Configure replaces the package level console used by the Print helpers
func Configure(noColor, quiet bool) *Console {
	std = NewConsole(os.Stdout, noColor, quiet)
	return std
}

// Default returns the package level console
func Default() *Console {
	return std
}

// Writer returns the underlying writer
func (c *Console) Writer() io.Writer {
	return c.out
}

// Interactive reports whether live progress lines make sense
func (c *Console) Interactive() bool {
	return c.tty && !c.quiet
}

func (c *Console) render(style lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return style.Render(text)
}

// Println writes a line unless the console is quiet
func (c *Console) Println(text string) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, text)
}

// Block writes a rendered table or summary; tables survive quiet mode
func (c *Console) Block(text string) {
	fmt.Fprintln(c.out, text)
}

// Error prints an error message
func (c *Console) Error(msg string, args ...interface{}) {
	fmt.Fprintln(c.out, c.render(errorStyle, "✗ "+withArg(msg, args)))
}

// Success prints a success message
func (c *Console) Success(msg string) {
	c.Println(c.render(successStyle, "✓ "+msg))
}

// Warning prints a warning message
func (c *Console) Warning(msg string, args ...interface{}) {
	c.Println(c.render(warningStyle, "⚠ "+withArg(msg, args)))
}

// Info prints a label and value pair
func (c *Console) Info(label, value string) {
	c.Println(fmt.Sprintf("%s: %s", c.render(labelStyle, label), c.render(valueStyle, value)))
}

// Highlight prints a section heading
func (c *Console) Highlight(msg string) {
	c.Println(c.render(highlightStyle, msg))
}

// Muted renders secondary text
func (c *Console) Muted(text string) string {
	return c.render(mutedStyle, text)
}

func withArg(msg string, args []interface{}) string {
	if len(args) > 0 {
		return msg + ": " + fmt.Sprintf("%v", args[0])
	}
	return msg
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) { std.Error(msg, args...) }

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) { std.Success(msg) }

// PrintInfo prints a label and value
func PrintInfo(label, value string) { std.Info(label, value) }

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) { std.Warning(msg, args...) }

// PrintHighlight prints a highlighted heading
func PrintHighlight(msg string) { std.Highlight(msg) }
