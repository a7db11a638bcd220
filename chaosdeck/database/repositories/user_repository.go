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

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetOrCreate(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePity(ctx context.Context, id string, pity int) error
	AddPoints(ctx context.Context, id string, delta int64, level int) (*models.User, error)
	ApplyFusionTx(ctx context.Context, tx bun.Tx, id string, success, crystalUsed bool) error
	ClearLastDaily(ctx context.Context, id string) error
	GetTopUsers(ctx context.Context, limit int) ([]*models.User, error)
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.Level == 0 {
		user.Level = 1
	}
	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("User not found in database",
				slog.String("type", "db"),
				slog.String("operation", "GetByID"),
				slog.String("user_id", id))
		} else {
			slog.Error("Database error when getting user",
				slog.String("type", "db"),
				slog.String("operation", "GetByID"),
				slog.String("user_id", id),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	return user, nil
}

// GetOrCreate returns the user row, creating it on first interaction.
func (r *userRepository) GetOrCreate(ctx context.Context, id string) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	user = &models.User{ID: id, Level: 1}
	if err := r.Create(ctx, user); err != nil {
		// Lost a create race: fall back to the row the winner inserted.
		if existing, getErr := r.GetByID(ctx, id); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	return err
}

func (r *userRepository) UpdatePity(ctx context.Context, id string, pity int) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("pity_count = ?", pity).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// AddPoints applies a point delta and the recomputed level in one statement
// and returns the fresh row.
func (r *userRepository) AddPoints(ctx context.Context, id string, delta int64, level int) (*models.User, error) {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("points = points + ?", delta).
		Set("level = ?", level).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// ApplyFusionTx updates the fusion counters inside the transaction
// that consumes the input cards.
func (r *userRepository) ApplyFusionTx(ctx context.Context, tx bun.Tx, id string, success, crystalUsed bool) error {
	update := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id)
	if success {
		update = update.Set("fusion_count = fusion_count + 1")
	}
	if crystalUsed {
		update = update.Set("fusion_crystal = FALSE")
	}
	_, err := update.Exec(ctx)
	return err
}

func (r *userRepository) ClearLastDaily(ctx context.Context, id string) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_daily = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *userRepository) GetTopUsers(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		OrderExpr("points DESC").
		Limit(limit).
		Scan(ctx)
	return users, err
}
