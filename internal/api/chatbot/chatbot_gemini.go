package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var _ LLMClient = (*GeminiClient)(nil)

type GeminiClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		},
	}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	answer := strings.TrimSpace(result.Text())
	if answer == "" {
		return "", errors.New("empty response from gemini")
	}
	return answer, nil
}
