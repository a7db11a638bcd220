package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/uptrace/bun"
)

type BadgeRepository interface {
	Unlock(ctx context.Context, userID, name string) (bool, error)
	GetByUserID(ctx context.Context, userID string) ([]string, error)
}

type badgeRepository struct {
	db *bun.DB
}

func NewBadgeRepository(db *bun.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

// Unlock inserts the badge if absent and reports whether it is new.
func (r *badgeRepository) Unlock(ctx context.Context, userID, name string) (bool, error) {
	res, err := r.db.NewInsert().
		Model(&models.Badge{
			UserID:    userID,
			Name:      name,
			CreatedAt: time.Now(),
		}).
		On("CONFLICT (user_id, badge_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		slog.Error("Failed to unlock badge",
			slog.String("type", "db"),
			slog.String("user_id", userID),
			slog.String("badge", name),
			slog.String("error", err.Error()))
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *badgeRepository) GetByUserID(ctx context.Context, userID string) ([]string, error) {
	var badges []*models.Badge
	err := r.db.NewSelect().
		Model(&badges).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(badges))
	for _, b := range badges {
		names = append(names, b.Name)
	}
	return names, nil
}
