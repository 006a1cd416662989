package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Render writes err as a diagnostic: the error line prefixed with path, then
// the offending source line with a caret under the column when err carries a
// position. Styling is applied only when w is a color-capable terminal.
func Render(w io.Writer, path string, src []byte, err error) {
	r := lipgloss.NewRenderer(w)
	label := r.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	gutter := r.NewStyle().Faint(true)
	caret := r.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

	_, _ = fmt.Fprintf(w, "%s: %s %s\n", path, label.Render("error:"), err)

	pos, ok := Position(err)
	if !ok {
		return
	}
	line, ok := sourceLine(src, pos.Line)
	if !ok {
		return
	}
	num := fmt.Sprintf("%4d | ", pos.Line)
	pad := strings.Repeat(" ", len(num)-2) + "| "
	_, _ = fmt.Fprintf(w, "%s%s\n", gutter.Render(num), line)
	_, _ = fmt.Fprintf(w, "%s%s%s\n", gutter.Render(pad), caretIndent(line, pos.Col), caret.Render("^"))
}

func sourceLine(src []byte, n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	lines := strings.Split(string(src), "\n")
	if n > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[n-1], "\r"), true
}

// caretIndent keeps tabs so the caret lines up with the echoed source line.
func caretIndent(line string, col int) string {
	var b strings.Builder
	for i := 0; i < col-1 && i < len(line); i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
