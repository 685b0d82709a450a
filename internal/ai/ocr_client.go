package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

type VisionCredentials struct {
	APIKey             string
	ServiceAccountJSON string
	CredentialsFile    string
}

// clientOptions prefers an inline service account, then a credentials file
// on disk, then an API key.
func (c VisionCredentials) clientOptions() ([]option.ClientOption, error) {
	switch {
	case c.ServiceAccountJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.ServiceAccountJSON))}, nil
	case c.CredentialsFile != "":
		if _, err := os.Stat(c.CredentialsFile); err == nil {
			return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}, nil
		}
		if c.APIKey == "" {
			return nil, fmt.Errorf("credentials file %s not found: %w", c.CredentialsFile, ErrNotConfigured)
		}
		fallthrough
	case c.APIKey != "":
		return []option.ClientOption{option.WithAPIKey(c.APIKey)}, nil
	}
	return nil, ErrNotConfigured
}

type VisionOCRClient struct {
	svc *vision.Service
}

// NewVisionOCRClient builds a Cloud Vision client. extra options are applied
// after the credential options.
func NewVisionOCRClient(ctx context.Context, creds VisionCredentials, extra ...option.ClientOption) (*VisionOCRClient, error) {
	opts, err := creds.clientOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}
	return &VisionOCRClient{svc: svc}, nil
}

func (c *VisionOCRClient) ExtractText(ctx context.Context, image []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
				Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
				ImageContext: &vision.ImageContext{
					LanguageHints: []string{"ko", "en"},
				},
			},
		},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("Google Vision API request failed: %w", err)
	}

	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("no response from Google Vision API")
	}

	response := resp.Responses[0]
	if response.Error != nil && response.Error.Message != "" {
		return "", fmt.Errorf("Google Vision API error: %s", response.Error.Message)
	}

	var text string
	if len(response.TextAnnotations) > 0 {
		text = response.TextAnnotations[0].Description
	} else if response.FullTextAnnotation != nil {
		text = response.FullTextAnnotation.Text
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
