package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	colorAccent = lipgloss.Color("#10B981")
	colorMuted  = lipgloss.Color("#6B7280")

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).PaddingRight(2)
	styleCell   = lipgloss.NewStyle().PaddingRight(2)
	styleEmpty  = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderTable writes rows under headers, styled on a terminal and
// tab-aligned otherwise.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	if !isTerminal(w) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
		return tw.Flush()
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, styleEmpty.Render("(none)"))
		return err
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i := range headers {
			if i < len(r) && lipgloss.Width(r[i]) > widths[i] {
				widths[i] = lipgloss.Width(r[i])
			}
		}
	}
	line := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(headers))
		for i := range headers {
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			out[i] = style.Width(widths[i] + 2).Render(v)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	var b strings.Builder
	b.WriteString(line(styleHeader, headers))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(line(styleCell, r))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
