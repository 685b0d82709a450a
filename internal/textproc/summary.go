package textproc

import (
	"regexp"
	"strings"
)

// Summary headings that follow the analysis table.
const (
	HeadingRisk    = "전체 대화 사이버폭력 위험도:"
	HeadingMood    = "대화 전체 분위기 요약:"
	HeadingCaution = "잠재적 위험/주의사항:"
)

var blankRuns = regexp.MustCompile(`\n{2,}`)

// SplitTableAndSummary separates the markdown table of a vendor response from
// the summary lines after it. Text before the table is ignored.
func SplitTableAndSummary(text string) (table, summary string) {
	var tableLines, summaryLines []string
	inTable := false

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "| ") || strings.HasPrefix(trimmed, "|:") {
			inTable = true
		}

		if inTable {
			if strings.HasPrefix(trimmed, "|") {
				tableLines = append(tableLines, trimmed)
				continue
			}
			inTable = false
		}

		if len(tableLines) > 0 && trimmed != "" {
			summaryLines = append(summaryLines, trimmed)
		}
	}

	return strings.Join(tableLines, "\n"), NormalizeSummary(strings.Join(summaryLines, "\n"))
}

// NormalizeSummary puts a blank line before each summary heading and
// collapses longer blank runs.
func NormalizeSummary(s string) string {
	s = strings.TrimSpace(s)
	for _, h := range []string{HeadingRisk, HeadingMood, HeadingCaution} {
		s = strings.ReplaceAll(s, h, "\n"+h)
	}
	s = strings.TrimSpace(s)
	return blankRuns.ReplaceAllString(s, "\n\n")
}
