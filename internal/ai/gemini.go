package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Flash keeps latency low for an interactive cart screen.
	model := client.GenerativeModel("gemini-2.0-flash")

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) ParseShoppingList(ctx context.Context, text string, catalogHints []string) (*ShoppingList, error) {
	prompt := fmt.Sprintf("%s\n\nCustomer order: %s", buildShoppingPrompt(catalogHints), text)

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	list, err := decodeShoppingList(responseText.String())
	if err != nil {
		return nil, err
	}
	if resp.UsageMetadata != nil {
		list.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return list, nil
}

func decodeShoppingList(raw string) (*ShoppingList, error) {
	cleanJSON := cleanJSONString(raw)

	var list ShoppingList
	if err := json.Unmarshal([]byte(cleanJSON), &list); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}

	kept := list.Items[:0]
	for _, it := range list.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		kept = append(kept, it)
	}
	list.Items = kept
	return &list, nil
}

// buildShoppingPrompt constructs the instructions for the AI.
func buildShoppingPrompt(catalogHints []string) string {
	hints := "NONE"
	if len(catalogHints) > 0 {
		hints = strings.Join(catalogHints, ", ")
	}

	return fmt.Sprintf(`Role: You read grocery and household orders written by customers of a village shop in India.
Orders may mix English, Hindi and Marathi and use local units (kg, litre, packet, dozen).
Products stocked nearby: %s

RULES:
1. Output one item per distinct product. Merge repeats.
2. Prefer the stocked product name when the customer clearly means it.
3. Quantity is a whole number. If none is given use 1.
4. Never invent prices.
5. "reply" is one short, friendly sentence confirming what you understood.

Output JSON Schema:
{
  "items": [{"name": "string", "quantity": integer, "unit": "string or empty"}],
  "reply": "string"
}
`, hints)
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
