package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-pro"

// ErrMissingAPIKey is returned when no credential is configured.
var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY not found")

// GenAIClient implements Generator with the Gemini API.
type GenAIClient struct {
	client      *genai.Client
	model       string
	temperature *float32
}

// GenAIOption configures a GenAIClient.
type GenAIOption func(*GenAIClient)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) GenAIOption {
	return func(c *GenAIClient) { c.temperature = &t }
}

// NewGenAIClient creates a client for model using apiKey.
func NewGenAIClient(ctx context.Context, apiKey, model string, opts ...GenAIOption) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	c := &GenAIClient{client: client, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *GenAIClient) Model() string { return c.model }

// Generate sends prompt as a single user turn and returns the response text.
func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{}
	if c.temperature != nil {
		config.Temperature = c.temperature
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return ResponseText(resp)
}

// ResponseText joins the text parts of the first candidate, skipping
// thought parts.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("empty candidate (finish reason %s)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
