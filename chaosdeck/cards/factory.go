package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/generation"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/utils"
	"golang.org/x/sync/errgroup"
)

// ErrPersistence marks a card that was generated but could not be
// saved. The card attached to the error is still shown to the player.
var ErrPersistence = errors.New("failed to persist card")

const maxDescriptionLen = 1024

// Archiver re-hosts generated art. The factory works without one.
type Archiver interface {
	Archive(ctx context.Context, imageURL, theme, cardID string) string
}

type Factory struct {
	cards    repositories.CardRepository
	content  generation.ContentGenerator
	images   *generation.Poller
	archiver Archiver
	rng      gacha.RandomSource
}

type FactoryOption func(*Factory)

func WithArchiver(a Archiver) FactoryOption {
	return func(f *Factory) { f.archiver = a }
}

func WithRNG(rng gacha.RandomSource) FactoryOption {
	return func(f *Factory) { f.rng = rng }
}

func NewFactory(cards repositories.CardRepository, content generation.ContentGenerator, images *generation.Poller, opts ...FactoryOption) *Factory {
	f := &Factory{
		cards:   cards,
		content: content,
		images:  images,
		rng:     gacha.DefaultRNG(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCard assembles and persists a pull card of the given rarity.
// Generation failures degrade to placeholder content; a persistence
// failure still returns the generated card wrapped in ErrPersistence.
func (f *Factory) CreateCard(ctx context.Context, rarity models.Rarity, theme, ownerID string) (*models.Card, error) {
	card := &models.Card{
		ID:            utils.NewID(),
		UserID:        ownerID,
		Rarity:        rarity,
		Theme:         theme,
		Power:         f.rollPower(rarity),
		SpecialEffect: f.rollSpecial(),
	}

	f.generateContent(ctx, card,
		fmt.Sprintf("Generate a unique name for a %s card in %s theme. Respond in English only. Only return the name, nothing else.", rarity, theme),
		fmt.Sprintf("Generate an exciting, chaotic description for a %s gacha card named '%%s' in a crossover game, inspired by %s universe. Respond in English only. Make it 3-5 punchy sentences with unique abilities and lore tie-ins.", rarity, theme),
		f.cardArtPrompt(card))

	return card, f.persist(ctx, card)
}

// CreateFusionCard assembles the output of a successful fusion. Power
// and rarity are decided by the fusion resolver; only the content is
// generated here, with fusion-specific prompt context.
func (f *Factory) CreateFusionCard(ctx context.Context, rarity models.Rarity, power int, ownerID string, inputA, inputB *models.Card) (*models.Card, error) {
	card := &models.Card{
		ID:            utils.NewID(),
		UserID:        ownerID,
		Rarity:        rarity,
		Theme:         "fusion",
		Power:         power,
		SpecialEffect: "Fusion Power",
	}

	f.generateContent(ctx, card,
		fmt.Sprintf("Generate a unique name for a fused card combining '%s' and '%s'. Respond in English only. Only return the name.", inputA.Name, inputB.Name),
		fmt.Sprintf("Generate a description for a fused card named '%%s' that combines the powers of '%s' (%s) and '%s' (%s). Respond in English only.", inputA.Name, inputA.SpecialEffect, inputB.Name, inputB.SpecialEffect),
		fmt.Sprintf("Generate a HIGH-QUALITY SINGLE trading card ONLY: Fused %s card combining %s and %s, detailed central illustration, glowing %s borders, anime/JRPG vibe, high resolution. Card frame like Yu-Gi-Oh.", rarity, inputA.Name, inputB.Name, rarity))

	return card, f.persist(ctx, card)
}

// CreateRewardCard builds the daily-milestone and campaign-loot cards.
// Reward cards roll a wider power band with a per-rarity multiplier.
func (f *Factory) CreateRewardCard(ctx context.Context, rarity models.Rarity, theme, ownerID, special string) (*models.Card, error) {
	multiplier := 1
	switch rarity {
	case models.RarityLegendary:
		multiplier = 4
	case models.RarityRare:
		multiplier = 2
	}

	card := &models.Card{
		ID:            utils.NewID(),
		UserID:        ownerID,
		Rarity:        rarity,
		Theme:         theme,
		Power:         (50 + f.rng.IntN(151)) * multiplier,
		SpecialEffect: special,
	}

	f.generateContent(ctx, card,
		fmt.Sprintf("Generate a unique name for a %s %s card. Respond in English only.", rarity, special),
		fmt.Sprintf("Generate an exciting description for a %s card named '%%s' earned as a %s. Respond in English only.", rarity, special),
		f.cardArtPrompt(card))

	return card, f.persist(ctx, card)
}

// generateContent fills name, description and image, running text and
// image generation concurrently. descPromptFmt takes the generated name.
func (f *Factory) generateContent(ctx context.Context, card *models.Card, namePrompt, descPromptFmt, imagePrompt string) {
	name, err := f.content.GenerateText(ctx, namePrompt, 50)
	if err != nil || name == "" {
		slog.Warn("Name generation failed, using fallback",
			slog.String("type", "gen"),
			slog.String("card_id", card.ID),
			slog.Any("error", err))
		name = fmt.Sprintf("%s %s Card", card.Rarity, capitalizeTheme(card.Theme))
	}
	card.Name = name

	var g errgroup.Group
	g.Go(func() error {
		desc, err := f.content.GenerateText(ctx, fmt.Sprintf(descPromptFmt, card.Name), 200)
		if err != nil || desc == "" {
			slog.Warn("Description generation failed, using fallback",
				slog.String("type", "gen"),
				slog.String("card_id", card.ID),
				slog.Any("error", err))
			desc = fmt.Sprintf("A %s card pulled from the chaos of the %s universe.", card.Rarity, card.Theme)
		}
		if len(desc) > maxDescriptionLen {
			desc = desc[:maxDescriptionLen-3] + "..."
		}
		card.Description = desc
		return nil
	})
	g.Go(func() error {
		url := f.images.Generate(ctx, imagePrompt, card.Name, card.Rarity)
		if f.archiver != nil {
			url = f.archiver.Archive(ctx, url, card.Theme, card.ID)
		}
		card.ImageURL = url
		return nil
	})
	g.Wait()
}

func (f *Factory) persist(ctx context.Context, card *models.Card) error {
	if err := f.cards.Create(ctx, card); err != nil {
		slog.Error("Card persistence failed",
			slog.String("type", "db"),
			slog.String("card_id", card.ID),
			slog.String("user_id", card.UserID),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// rollPower is the pull-path power roll: 10-100 with the Legendary
// multiplier applied.
func (f *Factory) rollPower(rarity models.Rarity) int {
	power := 10 + f.rng.IntN(91)
	if rarity == models.RarityLegendary {
		power *= 4
	}
	return power
}

func (f *Factory) rollSpecial() string {
	if f.rng.Float64() > 0.5 {
		return "Chaos Boost"
	}
	return "Power Drain"
}

func (f *Factory) cardArtPrompt(card *models.Card) string {
	return fmt.Sprintf("Generate a HIGH-QUALITY SINGLE trading card ONLY in %s gacha style, themed around %s: detailed central illustration, glowing %s borders, anime/JRPG vibe with %s elements, high resolution, no text overlays except title. Card frame like Yu-Gi-Oh.",
		card.Rarity, card.Theme, card.Rarity, card.Theme)
}

func capitalizeTheme(theme string) string {
	if theme == "" {
		return "Chaos"
	}
	return strings.ToUpper(theme[:1]) + theme[1:]
}
