package notifications

import (
	"context"
	"log/slog"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
)

// Embed colors per rarity tier.
var RarityColors = map[models.Rarity]int{
	models.RarityCommon:    0xC0C0C0,
	models.RarityRare:      0x0000FF,
	models.RarityEpic:      0x800080,
	models.RarityLegendary: 0xFFD700,
	models.RarityLimited:   0xFF6B35,
}

type CardReveal struct {
	Card       *models.Card
	PityAfter  int
	EventBonus string
	Badges     []string
	Level      int
}

type LevelUp struct {
	UserID string
	Level  int
	Perk   string
}

type AchievementUnlock struct {
	UserID string
	Name   string
	Points int64
}

type FusionResult struct {
	UserID  string
	Success bool
	Card    *models.Card
	FusedA  string
	FusedB  string
}

type CampaignUpdate struct {
	UserID    string
	Turn      int
	Theme     string
	Narrative string
	ImageURL  string
	Outcome   string
}

type DailyReward struct {
	UserID  string
	Points  int64
	Streak  int
	Special string
}

// Notifier delivers player-facing messages. The engine treats delivery
// as best effort; failures are logged and never fail the operation.
type Notifier interface {
	CardRevealed(ctx context.Context, reveal CardReveal) error
	LeveledUp(ctx context.Context, up LevelUp) error
	AchievementUnlocked(ctx context.Context, unlock AchievementUnlock) error
	FusionResolved(ctx context.Context, result FusionResult) error
	CampaignAdvanced(ctx context.Context, update CampaignUpdate) error
	DailyClaimed(ctx context.Context, reward DailyReward) error
	Announce(ctx context.Context, userID, message string) error
}

// LogNotifier is the fallback sink used when no chat client is
// configured; it mirrors every notification into the structured log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) CardRevealed(_ context.Context, reveal CardReveal) error {
	slog.Info("Card revealed",
		slog.String("type", "cmd"),
		slog.String("user_id", reveal.Card.UserID),
		slog.String("card", reveal.Card.Name),
		slog.String("rarity", string(reveal.Card.Rarity)),
		slog.Int("power", reveal.Card.Power),
		slog.Int("pity", reveal.PityAfter))
	return nil
}

func (n *LogNotifier) LeveledUp(_ context.Context, up LevelUp) error {
	slog.Info("Level up",
		slog.String("type", "cmd"),
		slog.String("user_id", up.UserID),
		slog.Int("level", up.Level),
		slog.String("perk", up.Perk))
	return nil
}

func (n *LogNotifier) AchievementUnlocked(_ context.Context, unlock AchievementUnlock) error {
	slog.Info("Achievement unlocked",
		slog.String("type", "cmd"),
		slog.String("user_id", unlock.UserID),
		slog.String("achievement", unlock.Name),
		slog.Int64("points", unlock.Points))
	return nil
}

func (n *LogNotifier) FusionResolved(_ context.Context, result FusionResult) error {
	if result.Success {
		slog.Info("Fusion succeeded",
			slog.String("type", "cmd"),
			slog.String("user_id", result.UserID),
			slog.String("card", result.Card.Name))
	} else {
		slog.Info("Fusion failed, cards lost",
			slog.String("type", "cmd"),
			slog.String("user_id", result.UserID))
	}
	return nil
}

func (n *LogNotifier) CampaignAdvanced(_ context.Context, update CampaignUpdate) error {
	slog.Info("Campaign turn",
		slog.String("type", "cmd"),
		slog.String("user_id", update.UserID),
		slog.Int("turn", update.Turn),
		slog.String("theme", update.Theme))
	return nil
}

func (n *LogNotifier) DailyClaimed(_ context.Context, reward DailyReward) error {
	slog.Info("Daily claimed",
		slog.String("type", "cmd"),
		slog.String("user_id", reward.UserID),
		slog.Int64("points", reward.Points),
		slog.Int("streak", reward.Streak))
	return nil
}

func (n *LogNotifier) Announce(_ context.Context, userID, message string) error {
	slog.Info("Announcement",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.String("message", message))
	return nil
}
