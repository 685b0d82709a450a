package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/kdimtricp/ansimtalk/internal/models"
)

var fixedNow = time.Date(2025, 7, 18, 10, 30, 0, 0, time.UTC)

func ptr(f float64) *float64 { return &f }

func testOptions() Options {
	return Options{
		Platform:          "안심톡 AI 포렌식 분석 시스템 v1.0",
		ReleaseDate:       "2025-07-18",
		ConversationModel: "gemini-1.5-flash",
		Now:               func() time.Time { return fixedNow },
	}
}

func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 120, B: 200, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "evidence.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
	return path
}

func deepfakeResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:         "r1",
		Type:       models.AnalysisDeepfake,
		FileInfo:   models.FileInfo{Filename: "evidence.png", Type: "png", SizeBytes: 2048, SHA256: "abc123"},
		AnalyzedAt: fixedNow,
		SHA256:     "abc123",
		Deepfake:   &models.DeepfakeAnalysis{Probability: ptr(0.873), Offensive: ptr(0.01)},
	}
}

func cyberbullyingResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:         "r2",
		Type:       models.AnalysisCyberbullying,
		FileInfo:   models.FileInfo{Filename: "chat.txt", Type: "txt", SizeBytes: 120, SHA256: "def456"},
		AnalyzedAt: fixedNow,
		SHA256:     "def456",
		Cyberbullying: &models.CyberbullyingAnalysis{
			TableHTML: "<table><tr><td>철수: 꺼져</td></tr></table>",
			Summary:   "전체 대화 사이버폭력 위험도: 심각\n\n대화 전체 분위기 요약: 공격적",
			RiskLine:  "심각",
		},
	}
}

func TestNewReportID(t *testing.T) {
	re := regexp.MustCompile(`^DF-CB-2025-[0-9A-F]{8}-v1\.0$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := NewReportID(fixedNow)
		if !re.MatchString(id) {
			t.Fatalf("Unexpected report id %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 20 {
		t.Errorf("Expected unique report ids, got %d distinct", len(seen))
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name   string
		result *models.AnalysisResult
		want   string
	}{
		{name: "probability", result: deepfakeResult(), want: "딥페이크일 확률: 87.3%"},
		{
			name:   "missing probability",
			result: &models.AnalysisResult{Type: models.AnalysisDeepfake, Deepfake: &models.DeepfakeAnalysis{}},
			want:   "딥페이크일 확률: N/A%",
		},
		{
			name:   "vendor error",
			result: &models.AnalysisResult{Type: models.AnalysisDeepfake, Deepfake: &models.DeepfakeAnalysis{Error: "quota exceeded"}},
			want:   "딥페이크 분석 오류: quota exceeded",
		},
		{name: "cyberbullying", result: cyberbullyingResult(), want: "전체 대화 사이버폭력 위험도: 심각"},
		{
			name:   "unsupported",
			result: &models.AnalysisResult{Type: models.AnalysisDeepfake, Error: "딥페이크 분석은 이미지 파일만 지원합니다."},
			want:   "딥페이크 분석은 이미지 파일만 지원합니다.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.result); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDocumentCustody(t *testing.T) {
	t.Run("derived from result", func(t *testing.T) {
		doc := BuildDocument(deepfakeResult(), nil, nil, testOptions())
		if len(doc.Custody) != 4 {
			t.Fatalf("Expected 4 custody rows, got %d", len(doc.Custody))
		}
		if doc.Custody[0].Step != "파일 업로드" || doc.Custody[3].Step != "결과 생성" {
			t.Errorf("Unexpected custody steps: %+v", doc.Custody)
		}
		if !strings.Contains(doc.Custody[2].Server, "Sightengine") {
			t.Errorf("Expected deepfake analysis server, got %q", doc.Custody[2].Server)
		}
		if doc.CaseNumber+"-v1.0" != doc.ReportID {
			t.Errorf("Case number %q does not match report id %q", doc.CaseNumber, doc.ReportID)
		}
	})

	t.Run("from events", func(t *testing.T) {
		events := []models.CustodyEvent{
			{Step: models.StepUpload, CreatedAt: fixedNow},
			{Step: models.StepArchive, Detail: "gs://bucket/evidence/x", CreatedAt: fixedNow.Add(time.Second)},
		}
		doc := BuildDocument(cyberbullyingResult(), nil, events, testOptions())
		if len(doc.Custody) != 2 {
			t.Fatalf("Expected 2 custody rows, got %d", len(doc.Custody))
		}
		if doc.Custody[1].Step != "증거 보관" {
			t.Errorf("Unexpected step %q", doc.Custody[1].Step)
		}
		if !strings.Contains(doc.Custody[1].Server, "gs://bucket/evidence/x") {
			t.Errorf("Expected detail in server column, got %q", doc.Custody[1].Server)
		}
	})

	t.Run("image upload", func(t *testing.T) {
		upload := &models.UploadedFile{StagingPath: "/tmp/x.png", Extension: "png", Metadata: map[string]string{"Make": "Canon"}}
		doc := BuildDocument(deepfakeResult(), upload, nil, testOptions())
		if doc.ImagePath != "/tmp/x.png" {
			t.Errorf("Expected image path, got %q", doc.ImagePath)
		}
		if doc.Metadata["Make"] != "Canon" {
			t.Errorf("Expected metadata to be carried")
		}
	})
}

func TestRenderHTML(t *testing.T) {
	path := writePNG(t)
	upload := &models.UploadedFile{StagingPath: path, Extension: "png"}
	doc := BuildDocument(deepfakeResult(), upload, nil, testOptions())

	var buf bytes.Buffer
	if err := RenderHTML(&buf, doc); err != nil {
		t.Fatalf("Failed to render html: %v", err)
	}
	out := buf.String()

	for _, want := range []string{doc.ReportID, "딥페이크일 확률: 87.3%", "abc123", "data:image/jpeg;base64,", Disclaimer} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected html to contain %q", want)
		}
	}
}

func TestRenderHTMLCyberbullying(t *testing.T) {
	doc := BuildDocument(cyberbullyingResult(), nil, nil, testOptions())

	var buf bytes.Buffer
	if err := RenderHTML(&buf, doc); err != nil {
		t.Fatalf("Failed to render html: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "<td>철수: 꺼져</td>") {
		t.Error("Expected risk table to be embedded unescaped")
	}
	if !strings.Contains(out, "risk-severe") {
		t.Error("Expected severe risk class")
	}
	if strings.Contains(out, "data:image") {
		t.Error("Expected no image for text evidence")
	}
}

func TestRenderPDF(t *testing.T) {
	path := writePNG(t)
	upload := &models.UploadedFile{StagingPath: path, Extension: "png"}

	tests := []struct {
		name   string
		result *models.AnalysisResult
		upload *models.UploadedFile
	}{
		{name: "deepfake with image", result: deepfakeResult(), upload: upload},
		{name: "cyberbullying", result: cyberbullyingResult()},
		{name: "error result", result: &models.AnalysisResult{Type: models.AnalysisDeepfake, Error: "딥페이크 분석은 이미지 파일만 지원합니다.", AnalyzedAt: fixedNow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := BuildDocument(tt.result, tt.upload, nil, testOptions())
			out, err := RenderPDF(doc, nil)
			if err != nil {
				t.Fatalf("Failed to render pdf: %v", err)
			}
			if !bytes.HasPrefix(out, []byte("%PDF")) {
				t.Errorf("Expected PDF header, got %q", out[:min(len(out), 8)])
			}
		})
	}
}

func TestRenderPDFMissingFontFallsBack(t *testing.T) {
	opts := testOptions()
	opts.FontPath = "/nonexistent/NanumGothic.ttf"
	doc := BuildDocument(cyberbullyingResult(), nil, nil, opts)

	out, err := RenderPDF(doc, nil)
	if err != nil {
		t.Fatalf("Failed to render pdf: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("Expected PDF output with core font")
	}
}

func TestRenderText(t *testing.T) {
	result := cyberbullyingResult()
	result.Cyberbullying.Summary = strings.Repeat("가", 600)
	doc := BuildDocument(result, nil, nil, testOptions())

	out := RenderText(doc)

	for _, want := range []string{
		"DIGITAL EVIDENCE ANALYSIS REPORT",
		"Case Management Number: " + doc.CaseNumber,
		"Report ID: " + doc.ReportID,
		"Issue Date: 2025-07-18",
		"II. AI-BASED FORENSIC ANALYSIS",
		"Cyberbullying Analysis: " + strings.Repeat("가", 500) + "...",
		"III. EVIDENTIARY INTEGRITY",
		"SHA-256 Hash: def456",
		"Analysis Type: cyberbullying",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected text report to contain %q", want)
		}
	}
	if strings.Contains(out, strings.Repeat("가", 501)) {
		t.Error("Expected summary to be truncated at 500 characters")
	}
}

func TestRenderTextDeepfake(t *testing.T) {
	doc := BuildDocument(deepfakeResult(), nil, nil, testOptions())
	out := RenderText(doc)
	if !strings.Contains(out, "Deepfake Detection: 87.3% probability") {
		t.Errorf("Unexpected deepfake line in %q", out)
	}
}
