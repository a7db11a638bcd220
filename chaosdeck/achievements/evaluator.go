package achievements

import (
	"context"
	"log/slog"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/progression"
)

// Rules is the static achievement set, seeded at startup.
var Rules = []*models.Achievement{
	{ID: "first_pull", Name: "First Pull", Description: "Pull your first card", PointsReward: 50, RequirementType: models.RequirementCards, RequirementValue: 1},
	{ID: "card_collector", Name: "Card Collector", Description: "Collect 25 cards", PointsReward: 200, RequirementType: models.RequirementCards, RequirementValue: 25},
	{ID: "legendary_hunter", Name: "Legendary Hunter", Description: "Pull 5 legendary cards", PointsReward: 500, RequirementType: models.RequirementLegendary, RequirementValue: 5},
	{ID: "streak_master", Name: "Streak Master", Description: "Maintain 7-day streak", PointsReward: 300, RequirementType: models.RequirementStreak, RequirementValue: 7},
	{ID: "campaign_veteran", Name: "Campaign Veteran", Description: "Complete 3 campaigns", PointsReward: 400, RequirementType: models.RequirementCampaigns, RequirementValue: 3},
	{ID: "fusion_expert", Name: "Fusion Expert", Description: "Successfully fuse 5 cards", PointsReward: 600, RequirementType: models.RequirementFusions, RequirementValue: 5},
	{ID: "chaos_puller", Name: "Chaos Puller", Description: "Pull 100 cards total", PointsReward: 1000, RequirementType: models.RequirementCards, RequirementValue: 100},
	{ID: "daily_warrior", Name: "Daily Warrior", Description: "Claim 30 daily rewards", PointsReward: 800, RequirementType: models.RequirementDailies, RequirementValue: 30},
}

// Collection badges awarded on card-count milestones.
const (
	BadgePullMaster        = "🃏 Pull Master"
	BadgeCardCollector     = "🎴 Card Collector"
	BadgeCampaignConqueror = "⚔️ Campaign Conqueror"

	pullMasterThreshold    = 50
	cardCollectorThreshold = 100
)

// Evaluator checks every locked rule against the user's current
// metrics and unlocks those whose requirement is met. Unlocks are
// idempotent; re-evaluating never awards twice.
type Evaluator struct {
	achievements repositories.AchievementRepository
	badges       repositories.BadgeRepository
	users        repositories.UserRepository
	cards        repositories.CardRepository
	campaigns    repositories.CampaignRepository
	ledger       *progression.Ledger
	notifier     notifications.Notifier
}

func NewEvaluator(
	achievements repositories.AchievementRepository,
	badges repositories.BadgeRepository,
	users repositories.UserRepository,
	cards repositories.CardRepository,
	campaigns repositories.CampaignRepository,
	ledger *progression.Ledger,
	notifier notifications.Notifier,
) *Evaluator {
	return &Evaluator{
		achievements: achievements,
		badges:       badges,
		users:        users,
		cards:        cards,
		campaigns:    campaigns,
		ledger:       ledger,
		notifier:     notifier,
	}
}

// Seed writes the static rule set into the database.
func (e *Evaluator) Seed(ctx context.Context) error {
	return e.achievements.SeedRules(ctx, Rules)
}

// Evaluate runs all rules for the user and returns the newly unlocked
// achievements. Reward points are credited through the ledger, so an
// achievement can itself trigger a level up.
func (e *Evaluator) Evaluate(ctx context.Context, userID string) ([]*models.Achievement, error) {
	rules, err := e.achievements.GetRules(ctx)
	if err != nil {
		return nil, err
	}

	user, err := e.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	var unlocked []*models.Achievement
	for _, rule := range rules {
		done, err := e.achievements.IsUnlocked(ctx, userID, rule.ID)
		if err != nil {
			return unlocked, err
		}
		if done {
			continue
		}

		met, err := e.requirementMet(ctx, user, rule)
		if err != nil {
			return unlocked, err
		}
		if !met {
			continue
		}

		isNew, err := e.achievements.Unlock(ctx, userID, rule.ID)
		if err != nil {
			return unlocked, err
		}
		if !isNew {
			continue
		}

		if _, err := e.ledger.AddPoints(ctx, userID, rule.PointsReward); err != nil {
			slog.Error("Failed to credit achievement reward",
				slog.String("type", "db"),
				slog.String("user_id", userID),
				slog.String("achievement", rule.ID),
				slog.String("error", err.Error()))
		}

		if err := e.notifier.AchievementUnlocked(ctx, notifications.AchievementUnlock{
			UserID: userID,
			Name:   rule.Name,
			Points: rule.PointsReward,
		}); err != nil {
			slog.Warn("Achievement notification failed",
				slog.String("type", "cmd"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}

		unlocked = append(unlocked, rule)
	}

	return unlocked, nil
}

func (e *Evaluator) requirementMet(ctx context.Context, user *models.User, rule *models.Achievement) (bool, error) {
	switch rule.RequirementType {
	case models.RequirementCards:
		count, err := e.cards.CountByUserID(ctx, user.ID)
		return count >= rule.RequirementValue, err
	case models.RequirementLegendary:
		count, err := e.cards.CountByUserIDAndRarity(ctx, user.ID, models.RarityLegendary)
		return count >= rule.RequirementValue, err
	case models.RequirementStreak:
		return int64(user.Streak) >= rule.RequirementValue, nil
	case models.RequirementCampaigns:
		count, err := e.campaigns.CountEndedByUserID(ctx, user.ID)
		return count >= rule.RequirementValue, err
	case models.RequirementFusions:
		return int64(user.FusionCount) >= rule.RequirementValue, nil
	case models.RequirementDailies:
		return int64(user.DailyCount) >= rule.RequirementValue, nil
	case models.RequirementPoints:
		return user.Points >= rule.RequirementValue, nil
	}
	return false, nil
}

// EvaluateCollectionBadges awards the card-count badges and returns
// any that are new.
func (e *Evaluator) EvaluateCollectionBadges(ctx context.Context, userID string) ([]string, error) {
	count, err := e.cards.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var awarded []string
	if count >= pullMasterThreshold {
		if isNew, err := e.badges.Unlock(ctx, userID, BadgePullMaster); err == nil && isNew {
			awarded = append(awarded, BadgePullMaster)
		}
	}
	if count >= cardCollectorThreshold {
		if isNew, err := e.badges.Unlock(ctx, userID, BadgeCardCollector); err == nil && isNew {
			awarded = append(awarded, BadgeCardCollector)
		}
	}
	return awarded, nil
}

// AwardCampaignBadge marks a finished campaign run.
func (e *Evaluator) AwardCampaignBadge(ctx context.Context, userID string) (bool, error) {
	return e.badges.Unlock(ctx, userID, BadgeCampaignConqueror)
}

// UnlockNext force-unlocks the first locked achievement, crediting its
// reward. Used by the store's achievement booster.
func (e *Evaluator) UnlockNext(ctx context.Context, userID string) (*models.Achievement, error) {
	rules, err := e.achievements.GetRules(ctx)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		isNew, err := e.achievements.Unlock(ctx, userID, rule.ID)
		if err != nil {
			return nil, err
		}
		if !isNew {
			continue
		}
		if _, err := e.ledger.AddPoints(ctx, userID, rule.PointsReward); err != nil {
			return rule, err
		}
		return rule, nil
	}
	return nil, nil
}
