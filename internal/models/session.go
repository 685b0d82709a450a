package models

import (
	"time"

	"gorm.io/datatypes"
)

type Session struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	State     datatypes.JSON `gorm:"not null" json:"state"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	ExpiresAt time.Time      `gorm:"not null;index" json:"expires_at"`
}

func (Session) TableName() string {
	return "sessions"
}

type CustodyStep string

const (
	StepUpload   CustodyStep = "upload"
	StepHash     CustodyStep = "hash"
	StepAnalysis CustodyStep = "analysis"
	StepReport   CustodyStep = "report"
	StepArchive  CustodyStep = "archive"
	StepDisposal CustodyStep = "disposal"
)

// Label is the Korean step name shown in the chain-of-custody table.
func (s CustodyStep) Label() string {
	switch s {
	case StepUpload:
		return "파일 업로드"
	case StepHash:
		return "해시값 계산"
	case StepAnalysis:
		return "AI 분석"
	case StepReport:
		return "결과 생성"
	case StepArchive:
		return "증거 보관"
	case StepDisposal:
		return "파일 폐기"
	default:
		return string(s)
	}
}

type CustodyEvent struct {
	ID        string      `gorm:"primaryKey" json:"id" firestore:"id"`
	SessionID string      `gorm:"not null;index" json:"session_id" firestore:"sessionId"`
	SHA256    string      `gorm:"column:sha256;not null;index" json:"sha256" firestore:"sha256"`
	Step      CustodyStep `gorm:"not null" json:"step" firestore:"step"`
	Actor     string      `gorm:"not null" json:"actor" firestore:"actor"`
	Detail    string      `json:"detail" firestore:"detail"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at" firestore:"createdAt"`
}

func (CustodyEvent) TableName() string {
	return "custody_events"
}
