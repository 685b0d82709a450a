// Package textproc turns vendor free text into structured values and HTML.
package textproc

import (
	"errors"
	"html"
	"strings"
)

// RiskColumn is the index of the risk level column in the analysis table.
const RiskColumn = 4

var ErrNoTable = errors.New("no markdown table found")

// Table is a parsed markdown pipe table.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseMarkdownTable reads the first contiguous block of lines starting with
// "|". The first row is the header and a separator row ("| --- |") directly
// below it is skipped.
func ParseMarkdownTable(md string) (Table, error) {
	var t Table
	started, afterHeader := false, false
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "|") {
			if started {
				break
			}
			continue
		}

		cells := splitRow(line)
		switch {
		case !started:
			t.Header = cells
			started, afterHeader = true, true
			continue
		case afterHeader && isSeparator(line):
		default:
			t.Rows = append(t.Rows, cells)
		}
		afterHeader = false
	}

	if !started {
		return Table{}, ErrNoTable
	}
	return t, nil
}

// Markdown renders t as a pipe table with a separator row.
func (t Table) Markdown() string {
	var b strings.Builder
	writeRow(&b, t.Header)
	sep := make([]string, len(t.Header))
	for i := range sep {
		sep[i] = ":---"
	}
	writeRow(&b, sep)
	for _, row := range t.Rows {
		writeRow(&b, row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// HTML renders t as an analysis table. The risk column carries a CSS class
// derived from its value. All cell text is escaped.
func (t Table) HTML() string {
	lines := []string{
		`<table class="analysis-table">`,
		"  <thead>",
		"    <tr>",
	}
	for _, cell := range t.Header {
		lines = append(lines, "      <th>"+html.EscapeString(cell)+"</th>")
	}
	lines = append(lines, "    </tr>", "  </thead>", "  <tbody>")

	for _, row := range t.Rows {
		lines = append(lines, "    <tr>")
		for j, cell := range row {
			if j == RiskColumn {
				lines = append(lines, `      <td class="`+RiskClass(cell)+`">`+html.EscapeString(cell)+"</td>")
				continue
			}
			lines = append(lines, "      <td>"+html.EscapeString(cell)+"</td>")
		}
		lines = append(lines, "    </tr>")
	}

	lines = append(lines, "  </tbody>", "</table>")
	return strings.Join(lines, "\n")
}

// MarkdownTableToHTML converts a markdown table to an HTML analysis table.
// Blank input yields "". Input of fewer than two lines, or with no table,
// is returned escaped and otherwise unchanged.
func MarkdownTableToHTML(md string) string {
	trimmed := strings.TrimSpace(md)
	if trimmed == "" {
		return ""
	}
	if len(strings.Split(trimmed, "\n")) < 2 {
		return html.EscapeString(md)
	}

	t, err := ParseMarkdownTable(trimmed)
	if err != nil {
		return html.EscapeString(md)
	}
	return t.HTML()
}

func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return nil
	}
	// drop what precedes the leading pipe and what follows the trailing one
	parts = parts[1:]
	if strings.HasSuffix(line, "|") {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isSeparator(line string) bool {
	if !strings.Contains(line, "---") {
		return false
	}
	return strings.Trim(line, "|:- \t") == ""
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(c, "|", "/"))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
