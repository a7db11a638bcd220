package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"
)

const cardCacheSize = 2048

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id string) (*models.Card, error)
	GetByIDAndOwner(ctx context.Context, id, userID string) (*models.Card, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Card, error)
	GetFirstByUserID(ctx context.Context, userID string, limit int) ([]*models.Card, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	CountByUserIDAndRarity(ctx context.Context, userID string, rarity models.Rarity) (int64, error)
	Delete(ctx context.Context, id string) error
	DeletePairTx(ctx context.Context, tx bun.Tx, idA, idB string) error
	CreateTx(ctx context.Context, tx bun.Tx, card *models.Card) error
}

type cardRepository struct {
	db    *bun.DB
	cache *lru.Cache
}

func NewCardRepository(db *bun.DB) CardRepository {
	cache, _ := lru.New(cardCacheSize)
	return &cardRepository{db: db, cache: cache}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	card.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(card).Exec(ctx)
	if err != nil {
		slog.Error("Failed to insert card",
			slog.String("type", "db"),
			slog.String("operation", "Create"),
			slog.String("card_id", card.ID),
			slog.String("error", err.Error()))
		return err
	}
	r.cache.Add(card.ID, card)
	return nil
}

func (r *cardRepository) CreateTx(ctx context.Context, tx bun.Tx, card *models.Card) error {
	card.CreatedAt = time.Now()
	if _, err := tx.NewInsert().Model(card).Exec(ctx); err != nil {
		return err
	}
	r.cache.Add(card.ID, card)
	return nil
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cached.(*models.Card), nil
	}

	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("Database error when getting card",
				slog.String("type", "db"),
				slog.String("operation", "GetByID"),
				slog.String("card_id", id),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	r.cache.Add(id, card)
	return card, nil
}

func (r *cardRepository) GetByIDAndOwner(ctx context.Context, id, userID string) (*models.Card, error) {
	card, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return card, nil
}

func (r *cardRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Card, error) {
	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	return cards, err
}

func (r *cardRepository) GetFirstByUserID(ctx context.Context, userID string, limit int) ([]*models.Card, error) {
	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	return cards, err
}

func (r *cardRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	count, err := r.db.NewSelect().
		Model((*models.Card)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	return int64(count), err
}

func (r *cardRepository) CountByUserIDAndRarity(ctx context.Context, userID string, rarity models.Rarity) (int64, error) {
	count, err := r.db.NewSelect().
		Model((*models.Card)(nil)).
		Where("user_id = ? AND rarity = ?", userID, rarity).
		Count(ctx)
	return int64(count), err
}

func (r *cardRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().
		Model((*models.Card)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	r.cache.Remove(id)
	return err
}

// DeletePairTx removes both fusion inputs inside the caller's transaction.
func (r *cardRepository) DeletePairTx(ctx context.Context, tx bun.Tx, idA, idB string) error {
	_, err := tx.NewDelete().
		Model((*models.Card)(nil)).
		Where("id IN (?, ?)", idA, idB).
		Exec(ctx)
	r.cache.Remove(idA)
	r.cache.Remove(idB)
	return err
}
