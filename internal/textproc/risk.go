package textproc

import (
	"regexp"
	"strings"
)

type RiskLevel string

const (
	RiskNone       RiskLevel = "없음"
	RiskSuspicious RiskLevel = "의심"
	RiskSlight     RiskLevel = "약간 있음"
	RiskPresent    RiskLevel = "있음"
	RiskSevere     RiskLevel = "심각"
)

var riskLevels = []RiskLevel{RiskNone, RiskSuspicious, RiskSlight, RiskPresent, RiskSevere}

var riskLinePattern = regexp.MustCompile(`(?i)전체\s*대화\s*사이버폭력\s*위험도\s*:\s*([^\n\r]*)`)

// ExtractRiskLine returns the value after "전체 대화 사이버폭력 위험도:" with
// surrounding brackets and whitespace removed. ok is false when the line is
// absent.
func ExtractRiskLine(summary string) (value string, ok bool) {
	m := riskLinePattern.FindStringSubmatch(summary)
	if m == nil {
		return "", false
	}
	v := strings.TrimLeft(strings.TrimSpace(m[1]), "[({ \t")
	v = strings.TrimRight(v, "])} \t")
	return strings.TrimSpace(v), true
}

// ParseRiskLevel maps free text onto one of the five levels. Exact matches
// win; otherwise the most severe level mentioned is chosen.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	s = strings.TrimSpace(s)
	for _, l := range riskLevels {
		if s == string(l) {
			return l, true
		}
	}
	switch {
	case strings.Contains(s, string(RiskSevere)):
		return RiskSevere, true
	case strings.Contains(s, string(RiskSlight)):
		return RiskSlight, true
	case strings.Contains(s, string(RiskPresent)):
		return RiskPresent, true
	case strings.Contains(s, string(RiskSuspicious)):
		return RiskSuspicious, true
	case strings.Contains(s, string(RiskNone)):
		return RiskNone, true
	}
	return "", false
}

// English is the ASCII label used in PDF reports.
func (l RiskLevel) English() string {
	switch l {
	case RiskNone:
		return "None"
	case RiskSuspicious:
		return "Suspicious"
	case RiskSlight:
		return "Slight"
	case RiskPresent:
		return "Present"
	case RiskSevere:
		return "Severe"
	default:
		return string(l)
	}
}

// Class is the CSS class used to color the level.
func (l RiskLevel) Class() string {
	switch l {
	case RiskNone:
		return "risk-none"
	case RiskSuspicious:
		return "risk-suspicion"
	case RiskSlight:
		return "risk-slight"
	case RiskPresent:
		return "risk-present"
	case RiskSevere:
		return "risk-severe"
	default:
		return ""
	}
}

// RiskClass returns the CSS class for a risk cell, or "" when the text names
// no known level.
func RiskClass(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, l := range riskLevels {
		if text == string(l) {
			return l.Class()
		}
	}
	switch {
	case strings.Contains(text, "심각"):
		return RiskSevere.Class()
	case strings.Contains(text, "있음"):
		return RiskPresent.Class()
	case strings.Contains(text, "약간"):
		return RiskSlight.Class()
	case strings.Contains(text, "의심"):
		return RiskSuspicious.Class()
	case strings.Contains(text, "없음"):
		return RiskNone.Class()
	}
	return ""
}

// EnglishRisk maps a risk line to its English label, leaving unknown text
// as is.
func EnglishRisk(line string) string {
	if l, ok := ParseRiskLevel(line); ok && string(l) == strings.TrimSpace(line) {
		return l.English()
	}
	return line
}
