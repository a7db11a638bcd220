package repositories

import (
	"context"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/uptrace/bun"
)

type PullRepository interface {
	Record(ctx context.Context, pull *models.Pull) error
	CountByUserID(ctx context.Context, userID string) (int64, error)
	GetRecent(ctx context.Context, userID string, limit int) ([]*models.Pull, error)
}

type pullRepository struct {
	db *bun.DB
}

func NewPullRepository(db *bun.DB) PullRepository {
	return &pullRepository{db: db}
}

func (r *pullRepository) Record(ctx context.Context, pull *models.Pull) error {
	pull.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(pull).Exec(ctx)
	return err
}

func (r *pullRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	count, err := r.db.NewSelect().
		Model((*models.Pull)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	return int64(count), err
}

func (r *pullRepository) GetRecent(ctx context.Context, userID string, limit int) ([]*models.Pull, error) {
	var pulls []*models.Pull
	err := r.db.NewSelect().
		Model(&pulls).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return pulls, err
}
