package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	defaultMaxOutputTokens int64 = 1024
	limitMaxOutputTokens   int64 = 8192
)

// OpenAI calls OpenAI's Responses API.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey string, model string, opts ...option.RequestOption) (*OpenAI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("model is empty")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Generate retries with a doubled output budget while the response is cut by max_output_tokens.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return "", errors.New("input is empty")
	}

	maxOutputTokens := req.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}

	for {
		params := responses.ResponseNewParams{
			Model:           o.model,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Reasoning: responses.ReasoningParam{
				Effort: openai.ReasoningEffortLow,
			},
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(input),
			},
		}
		if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
			params.Instructions = openai.String(instructions)
		}

		resp, err := o.client.Responses.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		text := strings.TrimSpace(resp.OutputText())
		if text == "" {
			return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
		}
		return text, nil
	}
}
