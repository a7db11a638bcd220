package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/achievements"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/generation"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/progression"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/utils"
)

// ErrNoActiveCampaign is returned by Resume and End when the user has
// no running campaign.
var ErrNoActiveCampaign = errors.New("no active campaign")

const (
	// MaxTurns caps a run; reaching it completes the campaign.
	MaxTurns = 10

	// DefaultChoiceTimeout bounds each player decision before the run
	// falls back to a random pick.
	DefaultChoiceTimeout = 120 * time.Second

	completionBonus = 200
	surrenderBonus  = 100
	actionOptions   = 3
	handSize        = 3

	powerDrainBonus = 0.2
	outcomeJitter   = 0.1
)

// TurnResult records what happened in one resolved turn.
type TurnResult struct {
	Turn      int
	Narrative string
	Choice    int
	Card      *models.Card
	Success   bool
	Outcome   string
	TimedOut  bool
}

// RunResult summarizes a finished (or aborted) run.
type RunResult struct {
	Campaign  *models.Campaign
	Turns     []TurnResult
	Completed bool
	LootCard  *models.Card
	Aborted   bool
}

// Service drives the turn-based PVE campaign loop.
type Service struct {
	campaigns repositories.CampaignRepository
	cards     repositories.CardRepository
	badges    repositories.BadgeRepository
	content   generation.ContentGenerator
	images    *generation.Poller
	factory   *cards.Factory
	ledger    *progression.Ledger
	notifier  notifications.Notifier
	rng       gacha.RandomSource
	timeout   time.Duration
	turnPause time.Duration
}

type ServiceOption func(*Service)

func WithRNG(rng gacha.RandomSource) ServiceOption {
	return func(s *Service) { s.rng = rng }
}

func WithChoiceTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithTurnPause sets the delay between turns; tests set it to zero.
func WithTurnPause(d time.Duration) ServiceOption {
	return func(s *Service) { s.turnPause = d }
}

func NewService(
	campaigns repositories.CampaignRepository,
	cardRepo repositories.CardRepository,
	badges repositories.BadgeRepository,
	content generation.ContentGenerator,
	images *generation.Poller,
	factory *cards.Factory,
	ledger *progression.Ledger,
	notifier notifications.Notifier,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		campaigns: campaigns,
		cards:     cardRepo,
		badges:    badges,
		content:   content,
		images:    images,
		factory:   factory,
		ledger:    ledger,
		notifier:  notifier,
		rng:       gacha.DefaultRNG(),
		timeout:   DefaultChoiceTimeout,
		turnPause: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a fresh campaign with a generated story intro. Any
// previous active campaign stays untouched; Resume picks the newest.
func (s *Service) Start(ctx context.Context, userID, theme string) (*models.Campaign, error) {
	theme = utils.ResolveTheme(theme)

	story, err := s.content.GenerateText(ctx,
		fmt.Sprintf("Generate a short D&D-like campaign story intro (3-5 sentences) in %s theme, crossover with One Piece/Dragon Ball/Evangelion/From Software. Respond in English only. Include a quest goal, enemies, and chaos elements.", theme),
		200)
	if err != nil || story == "" {
		slog.Warn("Campaign intro generation failed, using fallback",
			slog.String("type", "gen"),
			slog.String("user_id", userID),
			slog.Any("error", err))
		story = fmt.Sprintf("A rift tears open over the %s world. Strange champions spill through, and only you can push them back before the realm collapses.", theme)
	}

	camp := &models.Campaign{
		ID:          utils.NewID(),
		UserID:      userID,
		Theme:       theme,
		CurrentTurn: 0,
		Story:       story,
		Status:      models.CampaignActive,
	}
	if err := s.campaigns.Create(ctx, camp); err != nil {
		return nil, err
	}

	slog.Info("Campaign started",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.String("campaign_id", camp.ID),
		slog.String("theme", theme))

	return camp, nil
}

// Resume returns the user's newest active campaign.
func (s *Service) Resume(ctx context.Context, userID string) (*models.Campaign, error) {
	camp, err := s.campaigns.GetActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveCampaign
		}
		return nil, err
	}
	return camp, nil
}

// End marks the active campaign ended and credits the surrender bonus.
func (s *Service) End(ctx context.Context, userID string) error {
	camp, err := s.Resume(ctx, userID)
	if err != nil {
		return err
	}

	camp.Status = models.CampaignEnded
	if err := s.campaigns.Update(ctx, camp); err != nil {
		return err
	}

	if _, err := s.ledger.AddPoints(ctx, userID, surrenderBonus); err != nil {
		return err
	}

	return s.notifier.Announce(ctx, userID, fmt.Sprintf("Campaign ended! Points gained: %d.", surrenderBonus))
}

// Run plays turns until the cap, an abort, or ctx cancellation. A run
// that hits the turn cap completes the campaign and pays out loot; a
// player with no cards aborts the run but keeps the campaign active.
func (s *Service) Run(ctx context.Context, camp *models.Campaign, provider ChoiceProvider) (*RunResult, error) {
	if camp.Status != models.CampaignActive {
		return nil, ErrNoActiveCampaign
	}
	if provider == nil {
		provider = NewRandomProvider(s.rng)
	}

	result := &RunResult{Campaign: camp}

	for camp.CurrentTurn < MaxTurns {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		turn, err := s.playTurn(ctx, camp, provider)
		if err != nil {
			if errors.Is(err, errNoCardsInHand) {
				result.Aborted = true
				return result, nil
			}
			return result, err
		}
		result.Turns = append(result.Turns, *turn)

		if s.turnPause > 0 && camp.CurrentTurn < MaxTurns {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.turnPause):
			}
		}
	}

	loot, err := s.complete(ctx, camp)
	if err != nil {
		return result, err
	}
	result.Completed = true
	result.LootCard = loot
	return result, nil
}

var errNoCardsInHand = errors.New("no cards to play")

func (s *Service) playTurn(ctx context.Context, camp *models.Campaign, provider ChoiceProvider) (*TurnResult, error) {
	turnNum := camp.CurrentTurn + 1

	narrative, err := s.content.GenerateText(ctx,
		fmt.Sprintf("Based on story: '%s', generate next turn for D&D-like PVE in %s: Describe situation (2-3 sentences), then list 1-3 choices (e.g., '1: Attack the boss, 2: Defend allies, 3: Use special ability'). Respond in English only. Include chaos elements from crossover themes.", camp.Story, camp.Theme),
		200)
	if err != nil || narrative == "" {
		narrative = fmt.Sprintf("The %s forces regroup. 1: Charge head-on, 2: Hold the line, 3: Gamble on chaos.", camp.Theme)
	}

	imageURL := s.images.Generate(ctx,
		fmt.Sprintf("High-quality anime scene from %s D&D campaign: %s, chaotic crossover vibe.", camp.Theme, truncate(narrative, 100)),
		camp.Theme, models.RarityCommon)

	turn := &TurnResult{Turn: turnNum, Narrative: narrative}

	turn.Choice, turn.TimedOut = waitChoice(ctx, s.timeout,
		func(cctx context.Context) (int, error) {
			return provider.ChooseAction(cctx, camp, turnNum, narrative, actionOptions)
		},
		func() int { return 1 + s.rng.IntN(actionOptions) })

	hand, err := s.cards.GetFirstByUserID(ctx, camp.UserID, handSize)
	if err != nil {
		return nil, err
	}
	if len(hand) == 0 {
		if err := s.notifier.Announce(ctx, camp.UserID, "❌ No cards! Pull one first."); err != nil {
			slog.Warn("Abort notice failed",
				slog.String("type", "cmd"),
				slog.String("user_id", camp.UserID),
				slog.String("error", err.Error()))
		}
		return nil, errNoCardsInHand
	}

	cardIndex, cardTimedOut := waitChoice(ctx, s.timeout,
		func(cctx context.Context) (int, error) {
			return provider.ChooseCard(cctx, camp, hand)
		},
		func() int { return s.rng.IntN(len(hand)) })
	if cardIndex < 0 || cardIndex >= len(hand) {
		cardIndex = s.rng.IntN(len(hand))
	}
	turn.Card = hand[cardIndex]
	turn.TimedOut = turn.TimedOut || cardTimedOut

	turn.Success = s.rollOutcome(turn.Card)
	flavor := "Epic success!"
	if !turn.Success {
		flavor = "Chaotic failure!"
	}

	outcome, err := s.content.GenerateText(ctx,
		fmt.Sprintf("Generate a punchy outcome (2-3 sentences) for choice %d using card '%s' (%s): %s with a chaotic twist from %s crossover. Respond in English only. No hashtags or artifacts.", turn.Choice, turn.Card.Name, turn.Card.SpecialEffect, flavor, camp.Theme),
		100)
	if err != nil || outcome == "" {
		outcome = flavor
	}
	turn.Outcome = outcome

	camp.Story += fmt.Sprintf("\n\n**Turn %d:** %s\nChoice: %d with %s\n%s", turnNum, narrative, turn.Choice, turn.Card.Name, outcome)
	camp.CurrentTurn = turnNum
	if err := s.campaigns.Update(ctx, camp); err != nil {
		return nil, err
	}

	if err := s.notifier.CampaignAdvanced(ctx, notifications.CampaignUpdate{
		UserID:    camp.UserID,
		Turn:      turnNum,
		Theme:     camp.Theme,
		Narrative: narrative,
		ImageURL:  imageURL,
		Outcome:   outcome,
	}); err != nil {
		slog.Warn("Campaign notification failed",
			slog.String("type", "cmd"),
			slog.String("user_id", camp.UserID),
			slog.String("error", err.Error()))
	}

	return turn, nil
}

// rollOutcome resolves a turn with the selected card: power scaled to
// a probability, a Power Drain bonus, and a chaos jitter either way.
func (s *Service) rollOutcome(card *models.Card) bool {
	prob := float64(card.Power) / 100
	if card.SpecialEffect == "Power Drain" {
		prob += powerDrainBonus
	}
	prob += s.rng.Float64()*2*outcomeJitter - outcomeJitter
	return s.rng.Float64() < prob
}

func (s *Service) complete(ctx context.Context, camp *models.Campaign) (*models.Card, error) {
	camp.Status = models.CampaignEnded
	if err := s.campaigns.Update(ctx, camp); err != nil {
		return nil, err
	}

	lootRarities := []models.Rarity{models.RarityCommon, models.RarityRare, models.RarityEpic, models.RarityLegendary}
	rarity := lootRarities[s.rng.IntN(len(lootRarities))]

	special := "Campaign Reward"
	if s.rng.Float64() <= 0.5 {
		special = "Victory Bonus"
	}

	loot, err := s.factory.CreateRewardCard(ctx, rarity, camp.Theme, camp.UserID, special)
	if err != nil && !errors.Is(err, cards.ErrPersistence) {
		return nil, err
	}

	if isNew, err := s.badges.Unlock(ctx, camp.UserID, achievements.BadgeCampaignConqueror); err == nil && isNew {
		slog.Info("Badge unlocked",
			slog.String("type", "cmd"),
			slog.String("user_id", camp.UserID),
			slog.String("badge", achievements.BadgeCampaignConqueror))
	}

	if _, err := s.ledger.AddPoints(ctx, camp.UserID, completionBonus); err != nil {
		return loot, err
	}

	slog.Info("Campaign completed",
		slog.String("type", "cmd"),
		slog.String("user_id", camp.UserID),
		slog.String("campaign_id", camp.ID))

	return loot, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
