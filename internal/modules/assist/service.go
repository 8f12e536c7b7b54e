package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"village/internal/ai"
	"village/internal/modules/cart"
)

// Quota is the monthly per-user allowance.
type Quota interface {
	UseToken(ctx context.Context, uid string) error
	EnsureUser(ctx context.Context, uid string) error
	Remaining(ctx context.Context, uid string) (int, error)
}

type Catalog interface {
	FindByName(term string) (cart.Candidate, bool)
	ProductNames() []string
}

// Service orchestrates quota checks, the language model and catalog matching.
type Service struct {
	quota   Quota
	llm     ai.LLMProvider
	catalog Catalog
}

// NewService creates a Service. llm may be nil when no model is configured;
// suggestions then fail with ErrUnavailable.
func NewService(quota Quota, llm ai.LLMProvider, catalog Catalog) *Service {
	return &Service{quota: quota, llm: llm, catalog: catalog}
}

// UseToken deducts one token from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the token is immediately consumed.
// Returns ErrInsufficientTokens when the quota for the current month is exhausted.
func (s *Service) UseToken(ctx context.Context, uid string) error {
	err := s.quota.UseToken(ctx, uid)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.quota.EnsureUser(ctx, uid); initErr != nil {
		return initErr
	}
	return s.quota.UseToken(ctx, uid)
}

func (s *Service) Remaining(ctx context.Context, uid string) (int, error) {
	return s.quota.Remaining(ctx, uid)
}

// SuggestCustomOrder parses text into list items and resolves each against
// the catalog. One token is consumed per call, before the model is invoked.
func (s *Service) SuggestCustomOrder(ctx context.Context, uid, text string) (*Suggestion, error) {
	text = strings.TrimSpace(text)
	if uid == "" || text == "" {
		return nil, fmt.Errorf("%w: order text is required", ErrBadRequest)
	}
	if s.llm == nil {
		return nil, ErrUnavailable
	}
	if err := s.UseToken(ctx, uid); err != nil {
		return nil, err
	}

	list, err := s.llm.ParseShoppingList(ctx, text, s.catalog.ProductNames())
	if err != nil {
		return nil, fmt.Errorf("parse custom order: %w", err)
	}

	out := &Suggestion{Reply: list.Reply}
	var custom []string
	for _, it := range list.Items {
		if cand, ok := s.catalog.FindByName(it.Name); ok {
			out.Matched = append(out.Matched, Match{Requested: it, Product: cand})
			continue
		}
		out.Unmatched = append(out.Unmatched, it)
		custom = append(custom, describe(it))
	}
	out.CustomOrderText = strings.Join(custom, ", ")
	return out, nil
}

func describe(it ai.ListItem) string {
	if it.Unit != "" {
		return fmt.Sprintf("%d %s %s", it.Quantity, it.Unit, it.Name)
	}
	return fmt.Sprintf("%d %s", it.Quantity, it.Name)
}
