package ai

import (
	"context"
)

// LLMProvider defines the contract for interacting with AI models.
// This interface allows for swapping different AI providers in the future.
type LLMProvider interface {
	// ParseShoppingList turns a free-text custom order into structured list
	// items. catalogHints lists product names the village shops stock, so the
	// model can prefer them when a request is ambiguous.
	ParseShoppingList(ctx context.Context, text string, catalogHints []string) (*ShoppingList, error)
}
