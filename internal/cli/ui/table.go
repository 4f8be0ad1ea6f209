package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows in aligned columns under a highlighted header
type Table struct {
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(noColor bool, headers ...string) *Table {
	return &Table{headers: headers, noColor: noColor}
}

// AddRow appends a row; missing cells render empty and extra cells are dropped
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to w
func (t *Table) Render(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	header := paint(t.noColor, color.FgCyan, color.Bold)
	rule := paint(t.noColor, color.FgHiBlack)

	last := len(t.headers) - 1
	for i, h := range t.headers {
		header.Fprint(w, pad(h, widths[i], i == last))
		if i < last {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for i, width := range widths {
		rule.Fprint(w, strings.Repeat("─", width))
		if i < last {
			rule.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for _, row := range t.rows {
		for i, cell := range row {
			fmt.Fprint(w, pad(cell, widths[i], i == last))
			if i < last {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}
}

// pad right-pads s to width; the last column is left unpadded
func pad(s string, width int, last bool) string {
	n := utf8.RuneCountInString(s)
	if last || n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
