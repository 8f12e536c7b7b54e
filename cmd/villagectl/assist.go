package main

import (
	"context"

	"github.com/spf13/cobra"

	"village/internal/ai"
	"village/internal/config"
	"village/internal/modules/assist"
	"village/internal/modules/catalog"
)

// unmetered lets operators try the assistant without touching user quotas.
type unmetered struct{}

func (unmetered) UseToken(context.Context, string) error { return nil }
func (unmetered) EnsureUser(context.Context, string) error { return nil }
func (unmetered) Remaining(context.Context, string) (int, error) { return assist.DefaultTokens, nil }

func newAssistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assist <text>",
		Short: "Parse a free-text custom order against the shop catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AI.GeminiKey == "" {
				return codeError(3, "VILLAGE_GEMINI_API_KEY is not set")
			}
			gemini, err := ai.NewGeminiProvider(cmd.Context(), cfg.AI.GeminiKey)
			if err != nil {
				return err
			}
			defer gemini.Close()
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			s, err := assist.NewService(unmetered{}, gemini, cat).SuggestCustomOrder(cmd.Context(), "villagectl", args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
}
