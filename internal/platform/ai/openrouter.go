package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// OpenRouterConfig configures the hosted chat-completions endpoint.
type OpenRouterConfig struct {
	APIURL string
	APIKey string
	Model  string
}

// OpenRouterClient implements Client against an OpenRouter-compatible
// chat-completions API.
type OpenRouterClient struct {
	http   *resty.Client
	cfg    OpenRouterConfig
	logger zerolog.Logger
}

func NewOpenRouterClient(cfg OpenRouterConfig, logger zerolog.Logger) *OpenRouterClient {
	http := resty.New().
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)
	return &OpenRouterClient{
		http:   http,
		cfg:    cfg,
		logger: logger.With().Str("component", "ai_client").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete posts one system/user prompt pair and returns the raw
// completion text.
func (c *OpenRouterClient) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.cfg.Model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: temperature,
		}).
		SetResult(&out).
		Post(c.cfg.APIURL)
	if err != nil {
		return "", fmt.Errorf("ai request: %w", err)
	}
	if resp.IsError() {
		c.logger.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).
			Msg("ai endpoint returned error")
		return "", fmt.Errorf("ai endpoint returned status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("ai response contained no choices")
	}
	return out.Choices[0].Message.Content, nil
}

const matchSystemPrompt = `You are an AI matching engine. I will provide a search query and a list of candidates.
Evaluate how well each candidate matches the query on a scale of 0.0 to 1.0.
Respond ONLY with a valid JSON array of objects: [{"id": "...", "name": "...", "matchScore": 0.95}]`

func (c *OpenRouterClient) match(ctx context.Context, query string, candidates []Candidate) ([]Match, error) {
	if len(candidates) == 0 {
		return []Match{}, nil
	}
	payload, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("encode candidates: %w", err)
	}
	user := fmt.Sprintf("Query: %s\nCandidates: %s", query, payload)

	content, err := c.complete(ctx, matchSystemPrompt, user, 0.1)
	if err != nil {
		return nil, err
	}
	var matches []Match
	if err := json.Unmarshal([]byte(content), &matches); err != nil {
		return nil, fmt.Errorf("decode match result: %w", err)
	}
	return matches, nil
}

func (c *OpenRouterClient) MatchDoctorByName(ctx context.Context, query string, candidates []Candidate) ([]Match, error) {
	return c.match(ctx, query, candidates)
}

// MatchDoctorByCode resolves a 4-digit code locally: the code is an
// exact platform identifier, so no model call is needed.
func (c *OpenRouterClient) MatchDoctorByCode(_ context.Context, code string, candidates []Candidate) ([]Match, error) {
	var matches []Match
	for _, cand := range candidates {
		if cand.Code != "" && cand.Code == code {
			matches = append(matches, Match{ID: cand.ID, Name: cand.Name, MatchScore: 1.0})
		}
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

func (c *OpenRouterClient) MatchPatient(ctx context.Context, query string, candidates []Candidate) ([]Match, error) {
	return c.match(ctx, query, candidates)
}

const predictionSystemPrompt = `You are a medical AI assistant. Analyze the provided patient data and generate a realistic health prediction.
Your response MUST be valid JSON with this exact structure:
{"predictionType": "...", "description": "...", "severity": "low|medium|high", "confidenceScore": 0.0, "riskFactors": [], "recommendations": [], "suggestedActions": []}`

func (c *OpenRouterClient) GenerateHealthPrediction(ctx context.Context, patientData map[string]interface{}) (*Prediction, error) {
	payload, err := json.Marshal(patientData)
	if err != nil {
		return nil, fmt.Errorf("encode patient data: %w", err)
	}

	content, err := c.complete(ctx, predictionSystemPrompt, "Patient Data: "+string(payload), 0.3)
	if err != nil {
		return nil, err
	}
	var p Prediction
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	if p.PredictionType == "" {
		p.PredictionType = "General Health Update"
	}
	if p.Severity == "" {
		p.Severity = "low"
	}
	return &p, nil
}

const researchSystemPrompt = `You are a research assistant for an anonymized population-health dataset.
Answer the researcher's question with summary statistics and trends. Never include personally identifiable information.`

func (c *OpenRouterClient) ResearchChat(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, researchSystemPrompt, question, 0.7)
}
