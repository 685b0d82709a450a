package textproc

import (
	"regexp"
	"strings"
)

var (
	// [홍길동] [오후 3:21] 메시지
	bracketLine = regexp.MustCompile(`^\[([^\]]+)\]\s*\[([^\]]*\d{1,2}:\d{2}[^\]]*)\]\s*(.*)$`)
	// 2024. 1. 5. 오후 3:21, 홍길동 : 메시지
	exportLine = regexp.MustCompile(`^\d{4}[./-]\s*\d{1,2}[./-]\s*\d{1,2}\.?\s*(?:오전|오후|AM|PM)?\s*\d{1,2}:\d{2}\s*,\s*([^:]+?)\s*:\s*(.*)$`)
	// 홍길동 : 메시지
	speakerLine = regexp.MustCompile(`^([^:\[\]]{1,20}?)\s*:\s*(.+)$`)

	timeOnly     = regexp.MustCompile(`^(?:오전|오후|AM|PM)?\s*\d{1,2}:\d{2}(?::\d{2})?\s*(?:AM|PM)?$`)
	dateHeader   = regexp.MustCompile(`^-*\s*\d{4}\s*년\s*\d{1,2}\s*월\s*\d{1,2}\s*일.*$`)
	unreadCount  = regexp.MustCompile(`^\d{1,3}$`)
	trailingTime = regexp.MustCompile(`\s+(?:오전|오후)\s*\d{1,2}:\d{2}$`)
	whitespace   = regexp.MustCompile(`\s+`)
	digitsOnly   = regexp.MustCompile(`^[\d\s.:/-]+$`)
	clockHour    = regexp.MustCompile(`^(?:오전|오후|AM|PM)?\s*\d{1,2}$`)
)

// NormalizeTranscript rewrites raw chat text, as produced by OCR or a chat
// export, into one "speaker: message" line per message. Timestamps, date
// headers and unread counters are dropped. Lines without a recognizable
// speaker are kept verbatim.
func NormalizeTranscript(raw string) string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
		if line == "" || timeOnly.MatchString(line) || dateHeader.MatchString(line) || unreadCount.MatchString(line) {
			continue
		}

		if speaker, msg, ok := splitSpeaker(line); ok {
			msg = strings.TrimSpace(trailingTime.ReplaceAllString(msg, ""))
			if msg == "" {
				continue
			}
			out = append(out, speaker+": "+msg)
			continue
		}

		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func splitSpeaker(line string) (speaker, msg string, ok bool) {
	if m := bracketLine.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), m[3], true
	}
	if m := exportLine.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), m[2], true
	}
	if m := speakerLine.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		if digitsOnly.MatchString(name) || clockHour.MatchString(name) || strings.Contains(strings.ToLower(name), "http") {
			return "", "", false
		}
		return name, m[2], true
	}
	return "", "", false
}
