package compliance

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/shinji-kodama/docpkg/internal/model"
)

// Format selects how a Matrix is written.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatMarkdown, FormatTable:
		return f, nil
	default:
		return "", model.NewCLIError(model.ExitConfiguration,
			fmt.Sprintf("invalid format %q: valid values are csv, markdown, table", s))
	}
}

// Table returns the matrix as a go-pretty table writer.
func (m *Matrix) Table() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Options.SeparateRows = true

	t.AppendHeader(toRow(m.Header()))
	for _, r := range m.Rows() {
		t.AppendRow(toRow(r))
	}
	return t
}

// Render writes the matrix to w in the given format.
func (m *Matrix) Render(w io.Writer, format Format) error {
	t := m.Table()

	var out string
	switch format {
	case FormatCSV:
		return m.writeCSV(w)
	case FormatMarkdown:
		out = t.RenderMarkdown()
	case FormatTable:
		out = t.Render()
	default:
		return model.NewCLIError(model.ExitConfiguration, fmt.Sprintf("invalid format %q", format))
	}

	_, err := fmt.Fprintln(w, out)
	return err
}

// writeCSV quotes every field and doubles embedded quotes. Cell content,
// including commas and line breaks, is written unchanged.
func (m *Matrix) writeCSV(w io.Writer) error {
	var b strings.Builder
	for _, row := range append([][]string{m.Header()}, m.Rows()...) {
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			b.WriteByte('"')
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
