package analysis

import (
	"fmt"
	"strings"

	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/textproc"
)

var (
	violentKeywords  = []string{"죽어", "디져", "죽여", "때려", "패줄", "꺼져", "사라져", "바보", "멍청이", "개새끼", "병신"}
	threatKeywords   = []string{"까먹으면", "안하면", "안되면", "그러면", "그럼"}
	bullyingKeywords = []string{"그런 애랑", "말 섞지 마", "따돌려", "무시해", "놀려"}
)

var tableHeader = []string{"문장", "유형", "피해자", "가해자", "위험도", "해설"}

const fallbackWarning = "AI 분석 서비스 일시적 오류로 인해 기본 키워드 분석을 제공합니다. 정확한 분석을 위해 잠시 후 다시 시도해주세요."

// KeywordAnalysis scores each non-empty line of text against fixed keyword
// lists. It stands in when the conversation analyzer is unavailable.
func KeywordAnalysis(text string) *models.CyberbullyingAnalysis {
	table := textproc.Table{Header: tableHeader}
	hits := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		kind, level, note := classifyLine(strings.ToLower(line))
		if level != textproc.RiskNone {
			hits++
		}
		table.Rows = append(table.Rows, []string{line, kind, "-", "-", string(level), note})
	}

	var overall textproc.RiskLevel
	switch {
	case hits == 0:
		overall = textproc.RiskNone
	case hits <= 2:
		overall = textproc.RiskSlight
	default:
		overall = textproc.RiskPresent
	}

	summary := strings.Join([]string{
		textproc.HeadingRisk + " " + string(overall),
		textproc.HeadingMood + " " + fmt.Sprintf("키워드 기반 분석 결과, %d개의 위험 요소가 발견되었습니다.", hits),
		textproc.HeadingCaution + " " + fallbackWarning,
	}, "\n\n")

	return &models.CyberbullyingAnalysis{
		TableMarkdown: table.Markdown(),
		TableHTML:     table.HTML(),
		Summary:       summary,
		RiskLine:      string(overall),
		Degraded:      true,
	}
}

func classifyLine(line string) (kind string, level textproc.RiskLevel, note string) {
	switch {
	case containsAny(line, violentKeywords):
		return "욕설", textproc.RiskSevere, "폭력적이거나 모욕적인 표현 포함"
	case containsAny(line, threatKeywords):
		return "위협", textproc.RiskPresent, "협박이나 위협적 표현 포함"
	case containsAny(line, bullyingKeywords):
		return "따돌림", textproc.RiskSlight, "따돌리거나 배제하려는 의도"
	default:
		return "-", textproc.RiskNone, "일반적인 대화 내용"
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
