// Package report assembles evidence analysis reports and renders them as
// HTML, PDF or plain text.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/textproc"
)

const (
	Disclaimer   = "본 보고서는 AI 기반 분석 결과를 제공하며 법률 전문가의 판단을 대체할 수 없습니다. 보고서 내용은 참고 자료로만 사용되어야 하며 법적 책임을 지지 않습니다. 정확한 법적 조치나 상담을 위해서는 변호사나 관련 기관에 문의하시기 바랍니다."
	DisclaimerEN = "This report provides AI-based analysis results and cannot replace legal expert judgment. Report content should be used for reference only and does not assume legal responsibility."

	timeLayout = "2006-01-02 15:04:05"
)

type Options struct {
	Platform          string
	ReleaseDate       string
	ConversationModel string
	FontPath          string
	Now               func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

type ModelInfo struct {
	Task     string
	Model    string
	Version  string
	Accuracy string
}

type CustodyRow struct {
	Step      string
	Timestamp string
	Server    string
}

// Document is everything a rendered report shows. It is built once and can
// be rendered in any format.
type Document struct {
	ReportID    string
	CaseNumber  string
	CreatedAt   time.Time
	Platform    string
	ReleaseDate string

	Type     models.AnalysisType
	Result   *models.AnalysisResult
	Summary  string
	Models   []ModelInfo
	Custody  []CustodyRow
	Metadata map[string]string

	// ImagePath is the evidence image to embed, empty for text evidence.
	ImagePath string
	FontPath  string
}

const reportVersion = "-v1.0"

// NewReportID returns DF-CB-<yyyy>-<8 hex>-v1.0.
func NewReportID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("DF-CB-%s-%s%s", now.Format("2006"), strings.ToUpper(hex[:8]), reportVersion)
}

// BuildDocument gathers the result, the upload it came from and the
// recorded custody events into a report. upload may be nil. Without events
// the custody table is derived from the analysis timestamp.
func BuildDocument(result *models.AnalysisResult, upload *models.UploadedFile, events []models.CustodyEvent, opts Options) *Document {
	now := opts.now()
	reportID := NewReportID(now)

	doc := &Document{
		ReportID:    reportID,
		CaseNumber:  strings.TrimSuffix(reportID, reportVersion),
		CreatedAt:   now,
		Platform:    opts.Platform,
		ReleaseDate: opts.ReleaseDate,
		Type:        result.Type,
		Result:      result,
		Summary:     Summary(result),
		Models:      modelTable(opts.ConversationModel),
		FontPath:    opts.FontPath,
	}

	if upload != nil {
		doc.Metadata = upload.Metadata
		if upload.IsImage() {
			doc.ImagePath = upload.StagingPath
		}
	}

	if len(events) > 0 {
		doc.Custody = custodyFromEvents(events, result.Type, opts.ConversationModel)
	} else {
		doc.Custody = defaultCustody(result, opts.ConversationModel)
	}
	return doc
}

// Summary is the one-line headline of a result.
func Summary(r *models.AnalysisResult) string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Type == models.AnalysisDeepfake && r.Deepfake != nil:
		if r.Deepfake.Error != "" {
			return "딥페이크 분석 오류: " + truncateRunes(r.Deepfake.Error, 100)
		}
		if r.Deepfake.Probability == nil {
			return "딥페이크일 확률: N/A%"
		}
		return fmt.Sprintf("딥페이크일 확률: %.1f%%", *r.Deepfake.Probability*100)
	case r.Type == models.AnalysisCyberbullying && r.Cyberbullying != nil:
		return textproc.HeadingRisk + " " + r.Cyberbullying.RiskLine
	}
	return ""
}

// RawDeepfakeJSON pretty-prints the deepfake section for the report appendix.
func (d *Document) RawDeepfakeJSON() string {
	if d.Result == nil || d.Result.Deepfake == nil {
		return "{}"
	}
	out, err := json.MarshalIndent(d.Result.Deepfake, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func (d *Document) UploaderID() string {
	if d.Result.UploaderID != "" {
		return d.Result.UploaderID
	}
	return models.NewUploaderID(d.CreatedAt)
}

func (d *Document) UploaderIP() string {
	if d.Result.UploaderIP != "" {
		return d.Result.UploaderIP
	}
	return "127.0.0.1"
}

func modelTable(conversationModel string) []ModelInfo {
	return []ModelInfo{
		{Task: "딥페이크 탐지", Model: "Sightengine Deepfake Detector", Version: "v1.0", Accuracy: "98.2%"},
		{Task: "사이버폭력 분석", Model: conversationName(conversationModel), Version: "v1.0", Accuracy: "94.5%"},
		{Task: "OCR 텍스트 추출", Model: "Google Cloud Vision API", Version: "v1.0", Accuracy: "99.1%"},
	}
}

func conversationName(model string) string {
	if model == "" {
		return "Google Gemini"
	}
	return "Google Gemini (" + model + ")"
}

func analysisServer(typ models.AnalysisType, conversationModel string) string {
	if typ == models.AnalysisCyberbullying {
		return "AI 서버 (" + conversationName(conversationModel) + " v1.0)"
	}
	return "AI 서버 (Sightengine v1.0)"
}

func defaultCustody(r *models.AnalysisResult, conversationModel string) []CustodyRow {
	ts := r.AnalyzedAt.Format(timeLayout)
	return []CustodyRow{
		{Step: models.StepUpload.Label(), Timestamp: ts, Server: "안심톡 서버"},
		{Step: models.StepHash.Label(), Timestamp: ts, Server: "SHA-256"},
		{Step: models.StepAnalysis.Label(), Timestamp: ts, Server: analysisServer(r.Type, conversationModel)},
		{Step: models.StepReport.Label(), Timestamp: ts, Server: "보고서 생성 서버"},
	}
}

func custodyFromEvents(events []models.CustodyEvent, typ models.AnalysisType, conversationModel string) []CustodyRow {
	rows := make([]CustodyRow, 0, len(events))
	for _, e := range events {
		var server string
		switch e.Step {
		case models.StepUpload, models.StepDisposal:
			server = "안심톡 서버"
		case models.StepHash:
			server = "SHA-256"
		case models.StepAnalysis:
			server = analysisServer(typ, conversationModel)
		case models.StepReport:
			server = "보고서 생성 서버"
		case models.StepArchive:
			server = "Cloud Storage"
		}
		if e.Detail != "" {
			server += " · " + e.Detail
		}
		rows = append(rows, CustodyRow{
			Step:      e.Step.Label(),
			Timestamp: e.CreatedAt.Local().Format(timeLayout),
			Server:    strings.TrimPrefix(server, " · "),
		})
	}
	return rows
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
