package dailies

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/progression"
)

// ErrAlreadyClaimedToday rejects a second claim on the same calendar day.
var ErrAlreadyClaimedToday = errors.New("daily reward already claimed today")

const (
	BasePoints     = 100
	StreakBonusPer = 25
	StreakBonusCap = 500

	rareMilestone      = 7
	legendaryMilestone = 30
)

// Reward is the result of a successful daily claim.
type Reward struct {
	Points        int64
	Streak        int
	MilestoneCard *models.Card
	Special       string
}

// Manager handles daily reward claims. A per-process claim set blocks
// concurrent double claims before the row update lands.
type Manager struct {
	users    repositories.UserRepository
	factory  *cards.Factory
	ledger   *progression.Ledger
	inFlight sync.Map // userID -> struct{}
	now      func() time.Time
}

type ManagerOption func(*Manager)

// WithClock overrides time for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(users repositories.UserRepository, factory *cards.Factory, ledger *progression.Ledger, opts ...ManagerOption) *Manager {
	m := &Manager{
		users:   users,
		factory: factory,
		ledger:  ledger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PointsFor computes the claim value for a streak length.
func PointsFor(streak int) int64 {
	bonus := streak * StreakBonusPer
	if bonus > StreakBonusCap {
		bonus = StreakBonusCap
	}
	return int64(BasePoints + bonus)
}

// Claim processes one daily claim: rejects same-day repeats, extends
// the streak, credits points and hands out milestone cards.
func (m *Manager) Claim(ctx context.Context, userID string) (*Reward, error) {
	if _, loaded := m.inFlight.LoadOrStore(userID, struct{}{}); loaded {
		return nil, ErrAlreadyClaimedToday
	}
	defer m.inFlight.Delete(userID)

	user, err := m.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := m.now()
	if user.ClaimedOn(today) {
		return nil, ErrAlreadyClaimedToday
	}

	newStreak := user.Streak + 1
	reward := &Reward{
		Points: PointsFor(newStreak),
		Streak: newStreak,
	}

	user.LastDaily = today
	user.Streak = newStreak
	user.DailyCount++
	if err := m.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if _, err := m.ledger.AddPoints(ctx, userID, reward.Points); err != nil {
		return nil, err
	}

	switch newStreak {
	case rareMilestone:
		reward.Special = "🔥 **7-Day Streak!** Unlocking rare card pull!"
		reward.MilestoneCard = m.milestoneCard(ctx, userID, models.RarityRare)
	case legendaryMilestone:
		reward.Special = "🌟 **30-Day Streak!** Legendary card unlocked!"
		reward.MilestoneCard = m.milestoneCard(ctx, userID, models.RarityLegendary)
	}

	slog.Info("Daily reward claimed",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.Int("streak", newStreak),
		slog.Int64("points", reward.Points))

	return reward, nil
}

// milestoneCard never fails the claim; a generation or persistence
// problem just drops the bonus card.
func (m *Manager) milestoneCard(ctx context.Context, userID string, rarity models.Rarity) *models.Card {
	card, err := m.factory.CreateRewardCard(ctx, rarity, "daily", userID, "Daily Reward")
	if err != nil && !errors.Is(err, cards.ErrPersistence) {
		slog.Error("Milestone card generation failed",
			slog.String("type", "gen"),
			slog.String("user_id", userID),
			slog.String("rarity", string(rarity)),
			slog.String("error", err.Error()))
		return nil
	}
	return card
}
