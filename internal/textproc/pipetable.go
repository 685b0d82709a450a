package textproc

import (
	"html"
	"strings"
)

const moodPrefix = "분위기 요약:"

// PipeTableToHTML renders loosely formatted pipe-delimited text as a simple
// table. Every line containing "|" becomes a row, the first one a header row,
// and all columns are kept. Collection stops at a line starting with
// "분위기 요약:", which is appended in bold. Text without pipes is returned
// escaped in a line-preserving block.
func PipeTableToHTML(text string) string {
	var rows []string
	summary := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, moodPrefix) {
			summary = line
			break
		}
		if strings.Contains(line, "|") {
			rows = append(rows, line)
		}
	}
	if len(rows) == 0 {
		return `<div class="pre">` + html.EscapeString(text) + `</div>`
	}

	out := []string{`<table class="md-table">`}
	for i, row := range rows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		var b strings.Builder
		b.WriteString("<tr>")
		for _, c := range strings.Split(row, "|") {
			b.WriteString("<" + tag + ">" + html.EscapeString(strings.TrimSpace(c)) + "</" + tag + ">")
		}
		b.WriteString("</tr>")
		out = append(out, b.String())
	}
	out = append(out, "</table>")
	if summary != "" {
		out = append(out, `<div style="margin-top:8px;"><b>`+html.EscapeString(summary)+`</b></div>`)
	}
	return strings.Join(out, "\n")
}
