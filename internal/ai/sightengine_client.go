package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const sightengineAPIURL = "https://api.sightengine.com/1.0/check.json"

const defaultSightengineModels = "deepfake,offensive,nudity,wad"

type SightengineClient struct {
	apiUser    string
	apiSecret  string
	endpoint   string
	models     string
	httpClient *http.Client
}

func NewSightengineClient(apiUser, apiSecret string) *SightengineClient {
	return &SightengineClient{
		apiUser:   apiUser,
		apiSecret: apiSecret,
		endpoint:  sightengineAPIURL,
		models:    defaultSightengineModels,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithEndpoint points the client at another check endpoint.
func (c *SightengineClient) WithEndpoint(endpoint string) *SightengineClient {
	if endpoint != "" {
		c.endpoint = endpoint
	}
	return c
}

func (c *SightengineClient) WithModels(models string) *SightengineClient {
	if models != "" {
		c.models = models
	}
	return c
}

type sightengineResponse struct {
	Status  string `json:"status"`
	Request struct {
		ID string `json:"id"`
	} `json:"request"`
	Type struct {
		Deepfake *float64 `json:"deepfake"`
	} `json:"type"`
	Offensive *struct {
		Prob *float64 `json:"prob"`
	} `json:"offensive"`
	Nudity *struct {
		Raw *float64 `json:"raw"`
	} `json:"nudity"`
	Weapon  json.RawMessage   `json:"weapon"`
	Alcohol json.RawMessage   `json:"alcohol"`
	Drugs   json.RawMessage   `json:"drugs"`
	Error   *sightengineError `json:"error"`
}

type sightengineError struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *SightengineClient) Check(ctx context.Context, image []byte, filename string) (*DeepfakeResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("media", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	for key, value := range map[string]string{
		"models":     c.models,
		"api_user":   c.apiUser,
		"api_secret": c.apiSecret,
	} {
		if err := mw.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var seResp sightengineResponse
	if err := json.Unmarshal(raw, &seResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("Sightengine API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if seResp.Error != nil && seResp.Error.Message != "" {
		return nil, fmt.Errorf("Sightengine API error: %s", seResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || seResp.Status != "success" {
		return nil, fmt.Errorf("Sightengine API returned status %d (%s)", resp.StatusCode, seResp.Status)
	}

	result := &DeepfakeResult{
		RequestID: seResp.Request.ID,
		Deepfake:  seResp.Type.Deepfake,
		Weapon:    optionalFloat(seResp.Weapon),
		Alcohol:   optionalFloat(seResp.Alcohol),
		Drugs:     optionalFloat(seResp.Drugs),
		Raw:       json.RawMessage(raw),
	}
	if seResp.Offensive != nil {
		result.Offensive = seResp.Offensive.Prob
	}
	if seResp.Nudity != nil {
		result.Nudity = seResp.Nudity.Raw
	}

	return result, nil
}

// optionalFloat reads a bare JSON number. Object-shaped scores from newer
// model versions are left to the raw payload.
func optionalFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
