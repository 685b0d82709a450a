package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadedFile is the evidence file of the active analysis in a session.
// It lives in two places: the staging directory the analyzers read from and
// the public directory the result pages link to.
type UploadedFile struct {
	StagingPath  string            `json:"staging_path"`
	PublicPath   string            `json:"public_path"`
	PublicURL    string            `json:"public_url"`
	OriginalName string            `json:"original_name"`
	SafeName     string            `json:"safe_name"`
	StoredName   string            `json:"stored_name"`
	Extension    string            `json:"extension"`
	Size         int64             `json:"size"`
	SHA256       string            `json:"sha256"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	UploaderIP   string            `json:"uploader_ip"`
	UploadedAt   time.Time         `json:"uploaded_at"`
}

var imageExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true}

func IsImageExtension(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}

func (f *UploadedFile) IsImage() bool {
	return IsImageExtension(f.Extension)
}

func (f *UploadedFile) Resolution() string {
	if f.Width == 0 || f.Height == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// SizeMB is the file size in MiB rounded to two decimals.
func (f *UploadedFile) SizeMB() float64 {
	return math.Round(float64(f.Size)/(1024*1024)*100) / 100
}

// NewUploaderID returns an id of the form ANSIMTALK_USER_<yyyymmdd>_<8 hex>.
func NewUploaderID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("ANSIMTALK_USER_%s_%s", now.Format("20060102"), strings.ToUpper(hex[:8]))
}
