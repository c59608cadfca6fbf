package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KattaManasa0402/Marine-life/internal/config"
	"github.com/KattaManasa0402/Marine-life/internal/model"
)

const (
	NoMarineLife   = "No Marine Life Detected"
	NotApplicable  = "N/A"
	defaultVersion = "marine-classifier-v1"
)

var (
	// ErrUnparseable means the model answered but not with the expected JSON.
	// Retrying the same image is not expected to help.
	ErrUnparseable = errors.New("classifier: unparseable response")
	// ErrRejected means the endpoint refused the request (bad key, bad input).
	ErrRejected = errors.New("classifier: request rejected")
)

// Classifier turns an image URL into a species and health assessment.
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (*model.AIResult, error)
}

// New returns the mock classifier when cfg.Mock is set, otherwise an HTTP
// client for an OpenAI-compatible chat completions endpoint.
func New(cfg config.ClassifierConfig) Classifier {
	if cfg.Mock {
		return Mock{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   &http.Client{Timeout: timeout},
	}
}

type Client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

const prompt = `You are an expert marine biologist. Analyse the image of marine life.
Respond with a single JSON object and nothing else, in this shape:
{
  "is_marine_life_present": boolean,
  "primary_species": {"scientific_name": "string", "common_name": "string",
                      "identification_confidence": float, "justification": "string"},
  "health_assessment": {"status": "string", "observations": "string"},
  "environmental_context": {"habitat_type": "string", "water_clarity": "string", "notes": "string"},
  "other_detected_species": ["string"],
  "ai_model_version": "string"
}
If no marine life is visible, set is_marine_life_present to false and the nested objects to null.`

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends one image to the model. Transport failures and 5xx/429
// responses are returned as plain errors so the caller may retry.
func (c *Client) Classify(ctx context.Context, imageURL string) (*model.AIResult, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("classifier: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("classifier: upstream status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil || len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: malformed envelope", ErrUnparseable)
	}
	return Parse(out.Choices[0].Message.Content)
}

type analysis struct {
	IsMarineLifePresent *bool `json:"is_marine_life_present"`
	PrimarySpecies      *struct {
		ScientificName string  `json:"scientific_name"`
		CommonName     string  `json:"common_name"`
		Confidence     float64 `json:"identification_confidence"`
		Justification  string  `json:"justification"`
	} `json:"primary_species"`
	HealthAssessment *struct {
		Status       string `json:"status"`
		Observations string `json:"observations"`
	} `json:"health_assessment"`
	EnvironmentalContext *struct {
		HabitatType  string `json:"habitat_type"`
		WaterClarity string `json:"water_clarity"`
		Notes        string `json:"notes"`
	} `json:"environmental_context"`
	OtherDetectedSpecies []string `json:"other_detected_species"`
	ModelVersion         string   `json:"ai_model_version"`
}

// Parse decodes the model's answer. Markdown code fences around the JSON
// are tolerated. An answer with no marine life yields the
// NoMarineLife / NotApplicable placeholder labels.
func Parse(text string) (*model.AIResult, error) {
	text = stripFences(text)

	var a analysis
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	res := &model.AIResult{
		OtherSpecies: a.OtherDetectedSpecies,
		ModelVersion: a.ModelVersion,
	}
	if res.ModelVersion == "" {
		res.ModelVersion = defaultVersion
	}
	if res.OtherSpecies == nil {
		res.OtherSpecies = []string{}
	}

	present := a.PrimarySpecies != nil
	if a.IsMarineLifePresent != nil && !*a.IsMarineLifePresent {
		present = false
	}
	if !present {
		res.CommonName = NoMarineLife
		res.ScientificName = NotApplicable
		res.HealthStatus = NotApplicable
		return res, nil
	}

	if a.PrimarySpecies.CommonName == "" && a.PrimarySpecies.ScientificName == "" {
		return nil, fmt.Errorf("%w: primary species without a name", ErrUnparseable)
	}
	res.ScientificName = a.PrimarySpecies.ScientificName
	res.CommonName = a.PrimarySpecies.CommonName
	res.Confidence = a.PrimarySpecies.Confidence
	res.Justification = a.PrimarySpecies.Justification

	res.HealthStatus = NotApplicable
	if h := a.HealthAssessment; h != nil {
		if h.Status != "" {
			res.HealthStatus = h.Status
		}
		res.HealthObservations = h.Observations
	}
	if e := a.EnvironmentalContext; e != nil {
		res.HabitatType = e.HabitatType
		res.WaterClarity = e.WaterClarity
		res.EnvironmentNotes = e.Notes
	}
	return res, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Mock always identifies a healthy beluga whale. Used for local development.
type Mock struct{}

func (Mock) Classify(_ context.Context, _ string) (*model.AIResult, error) {
	return &model.AIResult{
		ScientificName:     "Delphinapterus leucas",
		CommonName:         "Beluga Whale",
		Confidence:         0.95,
		Justification:      "Recognized by distinctive white coloration and melon head.",
		HealthStatus:       "Healthy",
		HealthObservations: "Skin appears clear, no visible injuries.",
		HabitatType:        "Open water",
		WaterClarity:       "Clear",
		OtherSpecies:       []string{},
		ModelVersion:       "mock-classifier",
	}, nil
}
