package chaosdeck

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/achievements"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/campaign"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/dailies"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/events"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/fusion"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/progression"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/utils"
)

// PullResult carries everything a single pull produced.
type PullResult struct {
	Card       *models.Card
	Resolution gacha.Resolution
	Award      *progression.Award
	NewBadges  []string
	Unlocked   []*models.Achievement
	Persisted  bool
}

// Engine composes the game systems behind single entry points. Writes
// for one user are serialized through a per-user lock so a player
// hammering commands cannot race their own state.
type Engine struct {
	users     repositories.UserRepository
	pulls     repositories.PullRepository
	badgeRepo repositories.BadgeRepository

	resolver  *gacha.Resolver
	calendar  *events.Calendar
	factory   *cards.Factory
	ledger    *progression.Ledger
	evaluator *achievements.Evaluator
	fusions   *fusion.Resolver
	dailies   *dailies.Manager
	campaigns *campaign.Service
	notifier  notifications.Notifier

	userLocks sync.Map // userID -> *sync.Mutex
	now       func() time.Time
}

type EngineOption func(*Engine)

// WithClock overrides engine time for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(
	users repositories.UserRepository,
	pulls repositories.PullRepository,
	badgeRepo repositories.BadgeRepository,
	resolver *gacha.Resolver,
	calendar *events.Calendar,
	factory *cards.Factory,
	ledger *progression.Ledger,
	evaluator *achievements.Evaluator,
	fusions *fusion.Resolver,
	dailyManager *dailies.Manager,
	campaigns *campaign.Service,
	notifier notifications.Notifier,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		users:     users,
		pulls:     pulls,
		badgeRepo: badgeRepo,
		resolver:  resolver,
		calendar:  calendar,
		factory:   factory,
		ledger:    ledger,
		evaluator: evaluator,
		fusions:   fusions,
		dailies:   dailyManager,
		campaigns: campaigns,
		notifier:  notifier,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) lockUser(userID string) func() {
	muIface, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Pull runs one gacha pull end to end: rarity roll with events and
// pity, card assembly, pull record, point award, badges and
// achievements, and the reveal notification.
func (e *Engine) Pull(ctx context.Context, userID, theme string) (*PullResult, error) {
	defer e.lockUser(userID)()

	user, err := e.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	theme = utils.ResolveTheme(theme)
	active := e.calendar.ForTheme(e.now(), theme)
	res := e.resolver.Resolve(user.Level, user.PityCount, active, user.EventBooster)

	result := &PullResult{Resolution: res, Persisted: true}

	card, err := e.factory.CreateCard(ctx, res.Rarity, theme, userID)
	if err != nil {
		if card == nil {
			return nil, err
		}
		// Generated but unsaved: still reveal it, flag the loss.
		result.Persisted = false
	}
	result.Card = card

	// The pity write lands only once a card exists, so a dead generation
	// pipeline cannot burn a pity-triggered Legendary.
	if err := e.users.UpdatePity(ctx, userID, res.PityAfter); err != nil {
		return nil, err
	}

	if err := e.pulls.Record(ctx, &models.Pull{
		UserID:    userID,
		CardID:    card.ID,
		Rarity:    card.Rarity,
		Theme:     theme,
		PityAfter: res.PityAfter,
		Upgraded:  res.Upgraded,
	}); err != nil {
		slog.Error("Failed to record pull",
			slog.String("type", "db"),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	award, err := e.ledger.AddPullPoints(ctx, userID, int64(card.Power/10))
	if err != nil {
		return result, err
	}
	result.Award = award

	if badges, err := e.evaluator.EvaluateCollectionBadges(ctx, userID); err == nil {
		result.NewBadges = badges
	}
	if unlocked, err := e.evaluator.Evaluate(ctx, userID); err == nil {
		result.Unlocked = unlocked
	}

	allBadges, _ := e.badgeRepo.GetByUserID(ctx, userID)
	if err := e.notifier.CardRevealed(ctx, notifications.CardReveal{
		Card:       card,
		PityAfter:  res.PityAfter,
		EventBonus: res.UpgradedBy,
		Badges:     allBadges,
		Level:      award.Level,
	}); err != nil {
		slog.Warn("Card reveal notification failed",
			slog.String("type", "cmd"),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	if !result.Persisted {
		if err := e.notifier.Announce(ctx, userID, "⚠️ Card could not be saved to your collection."); err != nil {
			slog.Warn("Persistence warning notification failed",
				slog.String("type", "cmd"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// Fuse consumes two cards and reports the outcome. Achievements are
// re-evaluated afterwards because the fusion counter may have crossed
// a threshold.
func (e *Engine) Fuse(ctx context.Context, userID, cardIDA, cardIDB string) (*fusion.Outcome, error) {
	defer e.lockUser(userID)()

	outcome, err := e.fusions.Fuse(ctx, userID, cardIDA, cardIDB)
	if err != nil && (outcome == nil || !errors.Is(err, cards.ErrPersistence)) {
		return nil, err
	}
	// On ErrPersistence both inputs are already consumed and the fused
	// card exists in memory: still reveal it, flag the loss.
	persisted := err == nil

	notif := notifications.FusionResult{
		UserID:  userID,
		Success: outcome.Success,
		Card:    outcome.Card,
		FusedA:  outcome.InputA.Name,
		FusedB:  outcome.InputB.Name,
	}
	if err := e.notifier.FusionResolved(ctx, notif); err != nil {
		slog.Warn("Fusion notification failed",
			slog.String("type", "cmd"),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	if !persisted {
		if err := e.notifier.Announce(ctx, userID, "⚠️ Fused card could not be saved to your collection."); err != nil {
			slog.Warn("Persistence warning notification failed",
				slog.String("type", "cmd"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}

	if _, err := e.evaluator.Evaluate(ctx, userID); err != nil {
		slog.Warn("Achievement evaluation after fusion failed",
			slog.String("type", "db"),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return outcome, nil
}

// ClaimDaily processes the user's daily reward claim.
func (e *Engine) ClaimDaily(ctx context.Context, userID string) (*dailies.Reward, error) {
	defer e.lockUser(userID)()

	reward, err := e.dailies.Claim(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := e.notifier.DailyClaimed(ctx, notifications.DailyReward{
		UserID:  userID,
		Points:  reward.Points,
		Streak:  reward.Streak,
		Special: reward.Special,
	}); err != nil {
		slog.Warn("Daily notification failed",
			slog.String("type", "cmd"),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	if _, err := e.evaluator.Evaluate(ctx, userID); err != nil {
		slog.Warn("Achievement evaluation after daily failed",
			slog.String("type", "db"),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return reward, nil
}

// StartCampaign creates a campaign and immediately plays it.
func (e *Engine) StartCampaign(ctx context.Context, userID, theme string, provider campaign.ChoiceProvider) (*campaign.RunResult, error) {
	defer e.lockUser(userID)()

	camp, err := e.campaigns.Start(ctx, userID, theme)
	if err != nil {
		return nil, err
	}
	return e.runCampaign(ctx, camp, provider)
}

// ContinueCampaign resumes the newest active campaign.
func (e *Engine) ContinueCampaign(ctx context.Context, userID string, provider campaign.ChoiceProvider) (*campaign.RunResult, error) {
	defer e.lockUser(userID)()

	camp, err := e.campaigns.Resume(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.runCampaign(ctx, camp, provider)
}

// EndCampaign explicitly closes the active campaign.
func (e *Engine) EndCampaign(ctx context.Context, userID string) error {
	defer e.lockUser(userID)()
	return e.campaigns.End(ctx, userID)
}

func (e *Engine) runCampaign(ctx context.Context, camp *models.Campaign, provider campaign.ChoiceProvider) (*campaign.RunResult, error) {
	result, err := e.campaigns.Run(ctx, camp, provider)
	if err != nil {
		return result, err
	}

	if result.Completed {
		if _, err := e.evaluator.Evaluate(ctx, camp.UserID); err != nil {
			slog.Warn("Achievement evaluation after campaign failed",
				slog.String("type", "db"),
				slog.String("user_id", camp.UserID),
				slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// Leaderboard returns the top users by lifetime points.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]*models.User, error) {
	return e.users.GetTopUsers(ctx, limit)
}

// Profile returns the user's progression snapshot.
func (e *Engine) Profile(ctx context.Context, userID string) (*progression.Profile, error) {
	return e.ledger.ProfileFor(ctx, userID)
}
