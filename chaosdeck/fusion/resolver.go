package fusion

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
	"github.com/uptrace/bun"
)

// ErrInvalidFusionInput rejects a fusion before any card is touched:
// unknown cards, cards not owned by the caller, or the same card twice.
var ErrInvalidFusionInput = errors.New("invalid fusion input")

const (
	baseSuccessRate  = 0.7
	epicInputBonus   = 0.1
	maxPowerBonus    = 0.2
	maxLevelBonus    = 0.1
	powerBonusDiv    = 200.0
	levelBonusDiv    = 20.0
	outputPowerScale = 1.5
)

// Outcome describes a resolved fusion. Inputs are consumed either way;
// Card is nil when the fusion failed.
type Outcome struct {
	Success     bool
	SuccessRate float64
	CrystalUsed bool
	Card        *models.Card
	InputA      *models.Card
	InputB      *models.Card
}

// txRunner is the slice of database.TransactionManager the resolver
// needs.
type txRunner interface {
	WithTransaction(ctx context.Context, opts *database.TransactionOptions, fn func(context.Context, bun.Tx) error) error
}

// Resolver consumes two owned cards and produces either a stronger
// fused card or nothing. A mutex serializes fusions so two concurrent
// attempts cannot consume the same card twice.
type Resolver struct {
	mu      sync.Mutex
	txm     txRunner
	cards   repositories.CardRepository
	users   repositories.UserRepository
	factory *cards.Factory
	rng     gacha.RandomSource
}

type ResolverOption func(*Resolver)

func WithRNG(rng gacha.RandomSource) ResolverOption {
	return func(r *Resolver) { r.rng = rng }
}

func NewResolver(txm txRunner, cardRepo repositories.CardRepository, users repositories.UserRepository, factory *cards.Factory, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		txm:     txm,
		cards:   cardRepo,
		users:   users,
		factory: factory,
		rng:     gacha.DefaultRNG(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SuccessRate computes the fusion success probability for two inputs
// and the owner's level. Values above 1 mean a guaranteed success.
func SuccessRate(a, b *models.Card, userLevel int) float64 {
	rate := baseSuccessRate
	if a.Rarity == models.RarityEpic || b.Rarity == models.RarityEpic {
		rate += epicInputBonus
	}
	rate += math.Min(float64(a.Power+b.Power)/powerBonusDiv, maxPowerBonus)
	rate += math.Min(float64(userLevel)/levelBonusDiv, maxLevelBonus)
	return rate
}

// OutputRarity is the tier of a successful fusion: the better input's
// tier carries over, floored at Rare.
func OutputRarity(a, b *models.Card) models.Rarity {
	best := models.MaxRarity(a.Rarity, b.Rarity)
	if best.Rank() < models.RarityRare.Rank() {
		return models.RarityRare
	}
	return best
}

// OutputPower averages the inputs and scales the result up.
func OutputPower(a, b *models.Card) int {
	return int(math.Floor(float64(a.Power+b.Power)/2) * outputPowerScale)
}

// Fuse validates, consumes and resolves a fusion of two cards. Both
// inputs are deleted atomically with the user's counters whether the
// roll succeeds or not.
func (r *Resolver) Fuse(ctx context.Context, userID, cardIDA, cardIDB string) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cardIDA == cardIDB {
		return nil, ErrInvalidFusionInput
	}

	inputA, err := r.cards.GetByIDAndOwner(ctx, cardIDA, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidFusionInput
		}
		return nil, err
	}
	inputB, err := r.cards.GetByIDAndOwner(ctx, cardIDB, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidFusionInput
		}
		return nil, err
	}

	user, err := r.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		SuccessRate: SuccessRate(inputA, inputB, user.Level),
		InputA:      inputA,
		InputB:      inputB,
	}

	if user.FusionCrystal {
		outcome.Success = true
		outcome.CrystalUsed = true
	} else {
		outcome.Success = r.rng.Float64() < outcome.SuccessRate
	}

	err = r.txm.WithTransaction(ctx, database.SerializableTransactionOptions(), func(txCtx context.Context, tx bun.Tx) error {
		if err := r.cards.DeletePairTx(txCtx, tx, cardIDA, cardIDB); err != nil {
			return err
		}
		return r.users.ApplyFusionTx(txCtx, tx, userID, outcome.Success, outcome.CrystalUsed)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Fusion resolved",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.Bool("success", outcome.Success),
		slog.Float64("rate", outcome.SuccessRate),
		slog.Bool("crystal", outcome.CrystalUsed))

	if !outcome.Success {
		return outcome, nil
	}

	card, err := r.factory.CreateFusionCard(ctx, OutputRarity(inputA, inputB), OutputPower(inputA, inputB), userID, inputA, inputB)
	if err != nil && !errors.Is(err, cards.ErrPersistence) {
		return outcome, err
	}
	outcome.Card = card
	return outcome, err
}
