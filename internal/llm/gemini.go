package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Gemini calls Gemini's generateContent through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey string, model string, client *http.Client) (*Gemini, error) {
	return newGeminiWithURL(ctx, apiKey, model, client, "")
}

// newGeminiWithURL points the SDK at baseURL; an empty baseURL keeps the SDK default.
func newGeminiWithURL(
	ctx context.Context,
	apiKey string,
	model string,
	client *http.Client,
	baseURL string,
) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("model is empty")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  client,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: c, model: model}, nil
}

// Generate doubles the output budget while the answer is cut by MAX_TOKENS before any text arrives.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return "", errors.New("input is empty")
	}

	maxOutputTokens := req.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}

	for {
		config := &genai.GenerateContentConfig{
			MaxOutputTokens: int32(maxOutputTokens), //nolint:gosec // Bounded by limitMaxOutputTokens.
		}
		if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
			config.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleUser)
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(input), config)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}

		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt is blocked (reason = %s)", resp.PromptFeedback.BlockReason)
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
			return "", errors.New("response has no candidates")
		}

		text := strings.TrimSpace(resp.Text())
		if text != "" {
			return text, nil
		}

		finishReason := resp.Candidates[0].FinishReason
		if finishReason == genai.FinishReasonMaxTokens && maxOutputTokens < limitMaxOutputTokens {
			maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
			continue
		}

		return "", fmt.Errorf("output text is missing (finishReason = %s)", finishReason)
	}
}
