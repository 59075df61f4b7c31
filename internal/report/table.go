// Package report renders stage summaries for the terminal and as charts.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
)

// Table is a titled grid of text cells.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
	// Total is the row count before truncation; 0 means len(Rows).
	Total int
}

// FromFrame converts the first limit rows of f into a table. limit <= 0 keeps all rows.
func FromFrame(title string, f *frame.Frame, limit int) Table {
	t := Table{Title: title, Header: f.Names(), Total: f.Rows()}
	n := f.Rows()
	if limit > 0 && n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		row := f.Row(i)
		for j, c := range f.Columns() {
			if c.Kind == frame.Numeric {
				row[j] = FormatNumber(c.Num[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FormatNumber prints v compactly for terminal output.
func FormatNumber(v float64) string {
	s := frame.FormatFloat(v)
	if s == "" {
		return "-"
	}
	if len(s) > 10 {
		return fmt.Sprintf("%.4g", v)
	}
	return s
}

// Render writes t as a light box table followed by a row count.
func Render(w io.Writer, t Table) {
	if t.Title != "" {
		_, _ = fmt.Fprintln(w, t.Title)
	}
	if len(t.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, r := range t.Rows {
		row := make(table.Row, len(r))
		for i, c := range r {
			row[i] = c
		}
		tw.AppendRow(row)
	}
	tw.Render()

	total := t.Total
	if total == 0 {
		total = len(t.Rows)
	}
	if total > len(t.Rows) {
		_, _ = fmt.Fprintf(w, "(%d of %d rows)\n", len(t.Rows), total)
		return
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", total)
}
