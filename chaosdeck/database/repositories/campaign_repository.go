package repositories

import (
	"context"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/uptrace/bun"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	GetActiveByUserID(ctx context.Context, userID string) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	CountEndedByUserID(ctx context.Context, userID string) (int64, error)
}

type campaignRepository struct {
	db *bun.DB
}

func NewCampaignRepository(db *bun.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(campaign).Exec(ctx)
	return err
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	campaign := new(models.Campaign)
	err := r.db.NewSelect().
		Model(campaign).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

// GetActiveByUserID returns the most recently created active campaign.
func (r *campaignRepository) GetActiveByUserID(ctx context.Context, userID string) (*models.Campaign, error) {
	campaign := new(models.Campaign)
	err := r.db.NewSelect().
		Model(campaign).
		Where("user_id = ? AND status = ?", userID, models.CampaignActive).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

func (r *campaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(campaign).
		WherePK().
		Exec(ctx)
	return err
}

func (r *campaignRepository) CountEndedByUserID(ctx context.Context, userID string) (int64, error) {
	count, err := r.db.NewSelect().
		Model((*models.Campaign)(nil)).
		Where("user_id = ? AND status = ?", userID, models.CampaignEnded).
		Count(ctx)
	return int64(count), err
}
