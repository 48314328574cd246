package recognize

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the vision model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiEngine recognizes text with a Gemini vision model. The client
// reads its API key from the environment when no explicit key is given.
type GeminiEngine struct {
	client *genai.Client
	model  string
}

func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	var cfg *genai.ClientConfig
	if apiKey != "" {
		cfg = &genai.ClientConfig{APIKey: apiKey}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing gemini client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}

	return &GeminiEngine{client: client, model: model}, nil
}

func (e *GeminiEngine) Recognize(ctx context.Context, image []byte, lang string) ([]byte, error) {
	prompt := "Transcribe all text visible in this photo. Reply with the raw text only, no commentary."
	if lang != "" {
		prompt = fmt.Sprintf("Transcribe all text visible in this photo; the text language hint is %q. Reply with the raw text only, no commentary.", lang)
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: image}},
			{Text: prompt},
		},
	}}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("empty recognition response")
	}

	return []byte(resp.Candidates[0].Content.Parts[0].Text), nil
}
