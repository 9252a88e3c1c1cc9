package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"review_sentiment/internal/adapters/observability"
)

const DefaultModel = "gemini-1.5-flash"

// TextModel turns a prompt into raw response text.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator asks an LLM for synthetic customer reviews of a restaurant.
type Generator struct {
	model TextModel
	city  string
}

func New(ctx context.Context, apiKey, model, city string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
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
	return NewWithModel(&genaiModel{client: client, model: model}, city), nil
}

func NewWithModel(m TextModel, city string) *Generator {
	return &Generator{model: m, city: city}
}

// Generate returns the model's raw answer; it is expected to be a JSON array
// of {"review": ...} objects, possibly wrapped in a markdown fence.
func (g *Generator) Generate(ctx context.Context, restaurant string, count int) (string, error) {
	if count <= 0 {
		return "", fmt.Errorf("review count must be positive, got %d", count)
	}
	text, err := g.model.GenerateText(ctx, BuildPrompt(restaurant, g.city, count))
	if err != nil {
		return "", fmt.Errorf("generate reviews for %s: %w", restaurant, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("generate reviews for %s: empty response", restaurant)
	}
	return text, nil
}

func BuildPrompt(restaurant, city string, count int) string {
	where := restaurant
	if city != "" {
		where = restaurant + " in " + city
	}
	return strings.TrimSpace(fmt.Sprintf(`
Generate %d realistic customer reviews for %s.
Each review should be 2-3 sentences about food quality, service, ambiance, or value.
Format as JSON array with 'review' key for each entry.
Reviews should vary in sentiment (positive, negative, neutral).`, count, where))
}

type genaiModel struct {
	client *genai.Client
	model  string
}

func (m *genaiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		observability.ObserveExternal("gemini", "generate", 0, time.Since(start))
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	observability.ObserveExternal("gemini", "generate", 200, time.Since(start))
	return resp.Text(), nil
}
