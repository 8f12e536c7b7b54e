package ai

// ShoppingList captures the structured output from the AI model.
type ShoppingList struct {
	Items []ListItem `json:"items"`

	// Reply is a short confirmation shown back to the customer.
	Reply string `json:"reply"`

	// TokensUsed is the total token count reported by the provider for the
	// call. It is not part of the model's JSON output.
	TokensUsed int `json:"-"`
}

// ListItem is one requested product. Quantity is in Unit; a missing
// quantity is reported as 1.
type ListItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}
