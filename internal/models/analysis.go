package models

import (
	"encoding/json"
	"time"
)

type AnalysisType string

const (
	AnalysisDeepfake      AnalysisType = "deepfake"
	AnalysisCyberbullying AnalysisType = "cyberbullying"
)

func (t AnalysisType) Valid() bool {
	return t == AnalysisDeepfake || t == AnalysisCyberbullying
}

type FileInfo struct {
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// DeepfakeAnalysis holds the Sightengine scores. Probability is nil when the
// vendor did not return a deepfake score.
type DeepfakeAnalysis struct {
	Probability *float64        `json:"probability,omitempty"`
	Offensive   *float64        `json:"offensive,omitempty"`
	NudityRaw   *float64        `json:"nudity_raw,omitempty"`
	Weapon      *float64        `json:"weapon,omitempty"`
	Alcohol     *float64        `json:"alcohol,omitempty"`
	Drugs       *float64        `json:"drugs,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type CyberbullyingAnalysis struct {
	TableMarkdown string `json:"table_markdown,omitempty"`
	TableHTML     string `json:"table_html"`
	Summary       string `json:"summary"`
	RiskLine      string `json:"risk_line,omitempty"`
	Degraded      bool   `json:"degraded,omitempty"`
}

type AnalysisResult struct {
	ID            string                 `json:"id"`
	Type          AnalysisType           `json:"analysis_type"`
	FileInfo      FileInfo               `json:"file_info"`
	AnalyzedAt    time.Time              `json:"analysis_timestamp"`
	SHA256        string                 `json:"sha256"`
	Deepfake      *DeepfakeAnalysis      `json:"deepfake_analysis,omitempty"`
	Cyberbullying *CyberbullyingAnalysis `json:"cyberbullying_analysis,omitempty"`
	ExtractedText string                 `json:"extracted_text,omitempty"`
	Error         string                 `json:"error,omitempty"`

	UploaderID      string    `json:"uploader_id,omitempty"`
	UploaderIP      string    `json:"uploader_ip,omitempty"`
	UploadedAt      time.Time `json:"upload_timestamp"`
	FileSizeBytes   int64     `json:"file_size_bytes"`
	FileSizeMB      float64   `json:"file_size_mb"`
	ImageWidth      int       `json:"image_width,omitempty"`
	ImageHeight     int       `json:"image_height,omitempty"`
	ImageResolution string    `json:"image_resolution"`
}

// Annotate copies the uploader and file-size fields of f onto the result.
func (r *AnalysisResult) Annotate(f *UploadedFile, uploaderID string) {
	r.UploaderID = uploaderID
	r.UploaderIP = f.UploaderIP
	r.UploadedAt = f.UploadedAt
	r.FileSizeBytes = f.Size
	r.FileSizeMB = f.SizeMB()
	r.ImageWidth = f.Width
	r.ImageHeight = f.Height
	r.ImageResolution = f.Resolution()
}

// RiskLine returns the extracted overall risk, or "" for non-cyberbullying results.
func (r *AnalysisResult) RiskLine() string {
	if r.Cyberbullying == nil {
		return ""
	}
	return r.Cyberbullying.RiskLine
}

// SessionState is everything a browser session carries between requests.
type SessionState struct {
	Upload  *UploadedFile   `json:"upload,omitempty"`
	Result  *AnalysisResult `json:"result,omitempty"`
	Flashes []string        `json:"flashes,omitempty"`
}
