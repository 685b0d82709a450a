package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/kdimtricp/ansimtalk/internal/config"
)

// Clients holds whichever vendor clients could be built from the config. A
// nil field means the vendor is unavailable and callers fall back.
type Clients struct {
	Deepfake     DeepfakeDetector
	OCR          TextExtractor
	Conversation ConversationAnalyzer
	closers      []io.Closer
}

type ServiceStatus struct {
	Name    string
	Enabled bool
	Detail  string
}

func NewClients(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Clients {
	clients := &Clients{}

	if cfg.SightengineEnabled() {
		clients.Deepfake = NewSightengineClient(cfg.Sightengine.APIUser, cfg.Sightengine.APISecret).
			WithEndpoint(cfg.Sightengine.Endpoint).
			WithModels(cfg.Sightengine.Models)
		logger.Info("Sightengine deepfake detection enabled")
	} else {
		logger.Warn("Sightengine not configured, set SIGHTENGINE_API_USER and SIGHTENGINE_API_SECRET")
	}

	if cfg.VisionEnabled() {
		ocr, err := NewVisionOCRClient(ctx, VisionCredentials{
			APIKey:             cfg.Vision.APIKey,
			ServiceAccountJSON: cfg.Vision.ServiceAccountJSON,
			CredentialsFile:    cfg.Vision.CredentialsFile,
		})
		if err != nil {
			logger.Warn("Failed to initialize Google Vision OCR", "error", err)
		} else {
			clients.OCR = ocr
			logger.Info("Google Vision OCR enabled")
		}
	} else {
		logger.Warn("Google Vision not configured, OCR disabled")
	}

	if cfg.GeminiEnabled() {
		gemini, err := NewGeminiClient(ctx, GeminiConfig{
			ProjectID:       cfg.Gemini.ProjectID,
			Region:          cfg.Gemini.Region,
			Model:           cfg.Gemini.Model,
			CredentialsFile: cfg.Gemini.CredentialsFile,
		})
		if err != nil {
			logger.Warn("Failed to initialize Gemini", "error", err)
		} else {
			clients.Conversation = gemini
			clients.closers = append(clients.closers, gemini)
			logger.Info("Gemini conversation analysis enabled", "model", cfg.Gemini.Model)
		}
	} else {
		logger.Warn("Gemini not configured, keyword analysis will be used")
	}

	return clients
}

func (c *Clients) Status() []ServiceStatus {
	return []ServiceStatus{
		{Name: "Sightengine deepfake", Enabled: c.Deepfake != nil, Detail: "SIGHTENGINE_API_USER / SIGHTENGINE_API_SECRET"},
		{Name: "Google Vision OCR", Enabled: c.OCR != nil, Detail: "GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_APPLICATION_CREDENTIALS / GOOGLE_VISION_API_KEY"},
		{Name: "Gemini conversation analysis", Enabled: c.Conversation != nil, Detail: "GCP_PROJECT_ID / VERTEX_AI_REGION"},
	}
}

func (c *Clients) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
