package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
)

// Client generates structured JSON completions. The API key is stored at
// construction time; a new genai.Client is created per call so that the
// caller's context governs the connection and the client is always closed
// after use.
type Client interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type client struct {
	log    *logger.Logger
	apiKey string
	model  string
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing env var GEMINI_API_KEY")
	}
	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &client{
		log:    log.With("service", "GeminiClient"),
		apiKey: apiKey,
		model:  model,
	}, nil
}

func (c *client) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	gc, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer gc.Close()

	m := gc.GenerativeModel(c.model)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	// Force JSON output mode so the model cannot wrap the response in
	// markdown code fences.
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				parts = append(parts, string(t))
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini: response contained no text content")
	}
	return strings.Join(parts, ""), nil
}
