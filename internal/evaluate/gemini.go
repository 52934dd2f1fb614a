package evaluate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiModel adapts the Gemini API to the ModelClient port.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(client *genai.Client, model string) *GeminiModel {
	return &GeminiModel{client: client, model: model}
}

func (g *GeminiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty completion")
	}
	return text, nil
}
