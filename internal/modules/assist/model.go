package assist

import (
	"errors"

	"village/internal/ai"
	"village/internal/modules/cart"
)

var (
	// ErrInsufficientTokens is returned when a user has no tokens remaining for the current month.
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrBadRequest         = errors.New("bad request")
	// ErrUnavailable means no language model is configured.
	ErrUnavailable = errors.New("assistant unavailable")
)

// DefaultTokens is the number of assistant calls granted per month.
const DefaultTokens = 100

// Match pairs a requested item with the catalog product it resolved to.
type Match struct {
	Requested ai.ListItem    `json:"requested"`
	Product   cart.Candidate `json:"product"`
}

// Suggestion is what the assistant proposes for a free-text order. Matched
// items can be added to the cart as line items; the rest stays as custom
// order text for the shop to price by hand.
type Suggestion struct {
	Reply           string        `json:"reply"`
	Matched         []Match       `json:"matched"`
	Unmatched       []ai.ListItem `json:"unmatched"`
	CustomOrderText string        `json:"customOrderText"`
}
