package progression

import (
	"context"
	"log/slog"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
)

// DefaultLevelDivisor converts lifetime points to a level:
// level = points/divisor + 1.
const DefaultLevelDivisor = 500

// Perks unlocked at specific levels.
var levelPerks = map[int]string{
	2:  "+5% success in PVE",
	5:  "Unlock rare themes",
	10: "Daily free pull",
}

// Award is the result of crediting points to a user.
type Award struct {
	Points    int64 // points credited, including any bonus
	Bonus     int64 // bonus portion of Points
	Total     int64 // lifetime points after the award
	Level     int
	LeveledUp bool
	Perk      string
}

// Ledger is the single write path for player points and levels.
type Ledger struct {
	users    repositories.UserRepository
	notifier notifications.Notifier
	rng      gacha.RandomSource
	divisor  int64
}

type LedgerOption func(*Ledger)

func WithRNG(rng gacha.RandomSource) LedgerOption {
	return func(l *Ledger) { l.rng = rng }
}

func WithLevelDivisor(divisor int) LedgerOption {
	return func(l *Ledger) { l.divisor = int64(divisor) }
}

func NewLedger(users repositories.UserRepository, notifier notifications.Notifier, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		users:    users,
		notifier: notifier,
		rng:      gacha.DefaultRNG(),
		divisor:  DefaultLevelDivisor,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LevelFor computes the level a points total maps to.
func (l *Ledger) LevelFor(points int64) int {
	return int(points/l.divisor) + 1
}

// PerkFor returns the perk unlocked at a level, if any.
func PerkFor(level int) string {
	return levelPerks[level]
}

// AddPoints credits delta points to the user, recomputes the level and
// emits a level-up notification when the level changed.
func (l *Ledger) AddPoints(ctx context.Context, userID string, delta int64) (*Award, error) {
	return l.addPoints(ctx, userID, delta, 0)
}

// AddPullPoints credits the pull reward: base points plus a 30% chance
// of a +50 chaos bonus.
func (l *Ledger) AddPullPoints(ctx context.Context, userID string, base int64) (*Award, error) {
	var bonus int64
	if l.rng.Float64() < 0.3 {
		bonus = 50
	}
	return l.addPoints(ctx, userID, base+bonus, bonus)
}

func (l *Ledger) addPoints(ctx context.Context, userID string, delta, bonus int64) (*Award, error) {
	user, err := l.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldLevel := l.LevelFor(user.Points)
	newLevel := l.LevelFor(user.Points + delta)

	user, err = l.users.AddPoints(ctx, userID, delta, newLevel)
	if err != nil {
		return nil, err
	}

	award := &Award{
		Points: delta,
		Bonus:  bonus,
		Total:  user.Points,
		Level:  newLevel,
	}

	if newLevel > oldLevel {
		award.LeveledUp = true
		award.Perk = PerkFor(newLevel)
		if award.Perk == "" {
			award.Perk = "Bragging rights"
		}
		if err := l.notifier.LeveledUp(ctx, notifications.LevelUp{
			UserID: userID,
			Level:  newLevel,
			Perk:   award.Perk,
		}); err != nil {
			slog.Warn("Level-up notification failed",
				slog.String("type", "cmd"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}

	return award, nil
}

// Profile summarizes a user's progression for display.
type Profile struct {
	User          *models.User
	NextLevelAt   int64
	PointsToLevel int64
}

func (l *Ledger) ProfileFor(ctx context.Context, userID string) (*Profile, error) {
	user, err := l.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := (user.Points/l.divisor + 1) * l.divisor
	return &Profile{
		User:          user,
		NextLevelAt:   next,
		PointsToLevel: next - user.Points,
	}, nil
}
