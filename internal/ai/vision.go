package ai

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotConfigured = errors.New("service not configured")
	ErrNoText        = errors.New("no text found in image")
	ErrRefusal       = errors.New("model refused the request")
)

// DeepfakeDetector scores an image for synthetic faces and unsafe content.
type DeepfakeDetector interface {
	Check(ctx context.Context, image []byte, filename string) (*DeepfakeResult, error)
}

// TextExtractor runs OCR on an image.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// ConversationAnalyzer classifies a chat transcript for cyberbullying and
// returns the raw markdown answer.
type ConversationAnalyzer interface {
	AnalyzeConversation(ctx context.Context, transcript string) (string, error)
}

type DeepfakeResult struct {
	RequestID string
	Deepfake  *float64
	Offensive *float64
	Nudity    *float64
	Weapon    *float64
	Alcohol   *float64
	Drugs     *float64
	Raw       json.RawMessage
}
