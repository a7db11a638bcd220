package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/uptrace/bun"
)

type AchievementRepository interface {
	SeedRules(ctx context.Context, rules []*models.Achievement) error
	GetRules(ctx context.Context) ([]*models.Achievement, error)
	IsUnlocked(ctx context.Context, userID, achievementID string) (bool, error)
	Unlock(ctx context.Context, userID, achievementID string) (bool, error)
	GetUnlockedIDs(ctx context.Context, userID string) ([]string, error)
}

type achievementRepository struct {
	db *bun.DB
}

func NewAchievementRepository(db *bun.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

// SeedRules inserts the static rule set, ignoring rules already present.
func (r *achievementRepository) SeedRules(ctx context.Context, rules []*models.Achievement) error {
	for _, rule := range rules {
		_, err := r.db.NewInsert().
			Model(rule).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			slog.Error("Failed to seed achievement rule",
				slog.String("type", "db"),
				slog.String("achievement_id", rule.ID),
				slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

func (r *achievementRepository) GetRules(ctx context.Context) ([]*models.Achievement, error) {
	var rules []*models.Achievement
	err := r.db.NewSelect().
		Model(&rules).
		Order("id ASC").
		Scan(ctx)
	return rules, err
}

func (r *achievementRepository) IsUnlocked(ctx context.Context, userID, achievementID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.UserAchievement)(nil)).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Exists(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return exists, nil
}

// Unlock records the (user, rule) pair. The primary key makes this
// idempotent; it reports whether a new row was written.
func (r *achievementRepository) Unlock(ctx context.Context, userID, achievementID string) (bool, error) {
	res, err := r.db.NewInsert().
		Model(&models.UserAchievement{
			UserID:        userID,
			AchievementID: achievementID,
			UnlockedAt:    time.Now(),
		}).
		On("CONFLICT (user_id, achievement_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *achievementRepository) GetUnlockedIDs(ctx context.Context, userID string) ([]string, error) {
	var unlocks []*models.UserAchievement
	err := r.db.NewSelect().
		Model(&unlocks).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(unlocks))
	for _, u := range unlocks {
		ids = append(ids, u.AchievementID)
	}
	return ids, nil
}
