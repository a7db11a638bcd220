package generation

import (
	"context"
	"errors"
)

// ErrContentGeneration marks recoverable external generation failures.
// Callers fall back to placeholder content instead of aborting.
var ErrContentGeneration = errors.New("content generation failed")

// StructuredCard is the parsed shape of a structured generation response.
type StructuredCard struct {
	Name       string `json:"name"`
	RarityHint string `json:"rarity_hint"`
	Attack     int    `json:"attack"`
	Health     int    `json:"health"`
	Ability    string `json:"ability"`
}

// ContentGenerator produces card names, lore and campaign narration.
// Implementations may fail; the engine recovers with placeholders.
type ContentGenerator interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error)
	GenerateStructuredCard(ctx context.Context, prompt string) (StructuredCard, error)
}
