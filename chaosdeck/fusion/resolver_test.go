package fusion

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/generation"
	"github.com/uptrace/bun"
)

func card(rarity models.Rarity, power int) *models.Card {
	return &models.Card{ID: "c-" + string(rarity), Rarity: rarity, Power: power}
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *models.Card
		level int
		want  float64
	}{
		{
			name: "base rate only",
			a:    card(models.RarityCommon, 0), b: card(models.RarityCommon, 0),
			level: 0,
			want:  0.7,
		},
		{
			name: "epic input adds bonus once",
			a:    card(models.RarityEpic, 0), b: card(models.RarityEpic, 0),
			level: 0,
			want:  0.8,
		},
		{
			name: "power bonus capped at 0.2",
			a:    card(models.RarityCommon, 500), b: card(models.RarityCommon, 500),
			level: 0,
			want:  0.9,
		},
		{
			name: "level bonus capped at 0.1",
			a:    card(models.RarityCommon, 0), b: card(models.RarityCommon, 0),
			level: 40,
			want:  0.8,
		},
		{
			name: "strong inputs exceed certainty",
			a:    card(models.RarityEpic, 80), b: card(models.RarityRare, 60),
			level: 10,
			want:  1.1, // 0.7 + 0.1 + 0.2 + 0.1
		},
		{
			name: "uncapped bonuses sum",
			a:    card(models.RarityCommon, 20), b: card(models.RarityCommon, 20),
			level: 1,
			want:  0.7 + 0.2 + 0.05, // 40/200 power, 1/20 level
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuccessRate(tt.a, tt.b, tt.level)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SuccessRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputRarity(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Rarity
		want models.Rarity
	}{
		{"two commons floor to rare", models.RarityCommon, models.RarityCommon, models.RarityRare},
		{"rare and common", models.RarityRare, models.RarityCommon, models.RarityRare},
		{"epic carries over", models.RarityEpic, models.RarityCommon, models.RarityEpic},
		{"legendary carries over", models.RarityCommon, models.RarityLegendary, models.RarityLegendary},
		{"two legendaries", models.RarityLegendary, models.RarityLegendary, models.RarityLegendary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputRarity(card(tt.a, 10), card(tt.b, 10))
			if got != tt.want {
				t.Errorf("OutputRarity(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestOutputPower(t *testing.T) {
	tests := []struct {
		name   string
		pa, pb int
		want   int
	}{
		{"even sum", 80, 60, 105},
		{"odd sum floors before scaling", 11, 10, 15}, // floor(10.5)=10, 10*1.5=15
		{"zero power", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputPower(card(models.RarityCommon, tt.pa), card(models.RarityCommon, tt.pb))
			if got != tt.want {
				t.Errorf("OutputPower(%d, %d) = %d, want %d", tt.pa, tt.pb, got, tt.want)
			}
		})
	}
}

func TestFuseRejectsSameCard(t *testing.T) {
	r := NewResolver(nil, nil, nil, nil)

	_, err := r.Fuse(context.Background(), "user-1", "card-1", "card-1")
	if !errors.Is(err, ErrInvalidFusionInput) {
		t.Errorf("Fuse(same card) error = %v, want ErrInvalidFusionInput", err)
	}
}

type fakeTxm struct {
	calls int
}

func (f *fakeTxm) WithTransaction(ctx context.Context, _ *database.TransactionOptions, fn func(context.Context, bun.Tx) error) error {
	f.calls++
	return fn(ctx, bun.Tx{})
}

type fakeUserRepo struct {
	users         map[string]*models.User
	fusionApplied bool
	fusionSuccess bool
}

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserRepo) GetOrCreate(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	u := &models.User{ID: id, Level: 1}
	f.users[id] = u
	return u, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *models.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) UpdatePity(_ context.Context, id string, pity int) error {
	f.users[id].PityCount = pity
	return nil
}

func (f *fakeUserRepo) AddPoints(_ context.Context, id string, delta int64, level int) (*models.User, error) {
	u := f.users[id]
	u.Points += delta
	u.Level = level
	return u, nil
}

func (f *fakeUserRepo) ApplyFusionTx(_ context.Context, _ bun.Tx, id string, success, crystalUsed bool) error {
	f.fusionApplied = true
	f.fusionSuccess = success
	if success {
		f.users[id].FusionCount++
	}
	if crystalUsed {
		f.users[id].FusionCrystal = false
	}
	return nil
}

func (f *fakeUserRepo) ClearLastDaily(_ context.Context, id string) error {
	f.users[id].LastDaily = time.Time{}
	return nil
}

func (f *fakeUserRepo) GetTopUsers(_ context.Context, _ int) ([]*models.User, error) {
	return nil, nil
}

type fakeCardRepo struct {
	owned   map[string]*models.Card
	created []*models.Card
	deleted []string
}

func (f *fakeCardRepo) Create(_ context.Context, c *models.Card) error {
	f.created = append(f.created, c)
	return nil
}

func (f *fakeCardRepo) CreateTx(ctx context.Context, _ bun.Tx, c *models.Card) error {
	return f.Create(ctx, c)
}

func (f *fakeCardRepo) GetByID(_ context.Context, id string) (*models.Card, error) {
	c, ok := f.owned[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeCardRepo) GetByIDAndOwner(_ context.Context, id, userID string) (*models.Card, error) {
	c, ok := f.owned[id]
	if !ok || c.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeCardRepo) GetByUserID(_ context.Context, _ string) ([]*models.Card, error) {
	return f.created, nil
}

func (f *fakeCardRepo) GetFirstByUserID(_ context.Context, _ string, limit int) ([]*models.Card, error) {
	if len(f.created) > limit {
		return f.created[:limit], nil
	}
	return f.created, nil
}

func (f *fakeCardRepo) CountByUserID(_ context.Context, _ string) (int64, error) {
	return int64(len(f.created)), nil
}

func (f *fakeCardRepo) CountByUserIDAndRarity(_ context.Context, _ string, _ models.Rarity) (int64, error) {
	return 0, nil
}

func (f *fakeCardRepo) Delete(_ context.Context, id string) error {
	delete(f.owned, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCardRepo) DeletePairTx(_ context.Context, _ bun.Tx, idA, idB string) error {
	delete(f.owned, idA)
	delete(f.owned, idB)
	f.deleted = append(f.deleted, idA, idB)
	return nil
}

type fakeContent struct{}

func (fakeContent) GenerateText(_ context.Context, _ string, _ int) (string, error) {
	return "Generated Text", nil
}

func (fakeContent) GenerateStructuredCard(_ context.Context, _ string) (generation.StructuredCard, error) {
	return generation.StructuredCard{}, errors.New("not implemented")
}

type fakeImageGen struct{}

func (fakeImageGen) Submit(_ context.Context, _ string) (string, error) { return "job-1", nil }

func (fakeImageGen) Poll(_ context.Context, _ string) (string, bool, error) {
	return "https://img.example/card.jpg", true, nil
}

type stubRNG struct {
	f float64
	n int
}

func (r stubRNG) Float64() float64 { return r.f }
func (r stubRNG) IntN(_ int) int   { return r.n }

type resolverFixture struct {
	resolver *Resolver
	txm      *fakeTxm
	users    *fakeUserRepo
	cardRepo *fakeCardRepo
}

func newTestResolver(t *testing.T, rng stubRNG, owned ...*models.Card) *resolverFixture {
	t.Helper()

	users := &fakeUserRepo{users: make(map[string]*models.User)}
	cardRepo := &fakeCardRepo{owned: make(map[string]*models.Card)}
	for _, c := range owned {
		cardRepo.owned[c.ID] = c
	}
	txm := &fakeTxm{}
	poller := generation.NewPoller(fakeImageGen{}, generation.WithPollBudget(1, time.Millisecond))
	factory := cards.NewFactory(cardRepo, fakeContent{}, poller, cards.WithRNG(rng))
	resolver := NewResolver(txm, cardRepo, users, factory, WithRNG(rng))

	return &resolverFixture{resolver: resolver, txm: txm, users: users, cardRepo: cardRepo}
}

func ownedCard(id string, rarity models.Rarity, power int) *models.Card {
	return &models.Card{ID: id, UserID: "user-1", Name: "Card " + id, Rarity: rarity, Power: power}
}

func TestFuseFailureStillConsumesInputs(t *testing.T) {
	// Two weak commons at level 1: 0.7 + 0.1 + 0.05 = 0.85, roll 0.9 fails.
	fx := newTestResolver(t, stubRNG{f: 0.9, n: 0},
		ownedCard("card-a", models.RarityCommon, 10),
		ownedCard("card-b", models.RarityCommon, 10))

	outcome, err := fx.resolver.Fuse(context.Background(), "user-1", "card-a", "card-b")
	if err != nil {
		t.Fatalf("Fuse() error = %v", err)
	}
	if outcome.Success {
		t.Error("fusion succeeded with roll above the rate")
	}
	if outcome.Card != nil {
		t.Error("failed fusion produced a card")
	}
	if fx.txm.calls != 1 {
		t.Errorf("transactions = %d, want 1", fx.txm.calls)
	}
	if len(fx.cardRepo.deleted) != 2 {
		t.Fatalf("deleted %d cards, want both inputs", len(fx.cardRepo.deleted))
	}
	if len(fx.cardRepo.owned) != 0 {
		t.Error("inputs still owned after failed fusion")
	}
	if !fx.users.fusionApplied || fx.users.fusionSuccess {
		t.Errorf("counter update applied=%v success=%v, want applied failure",
			fx.users.fusionApplied, fx.users.fusionSuccess)
	}
	if fx.users.users["user-1"].FusionCount != 0 {
		t.Errorf("fusion count = %d, want 0", fx.users.users["user-1"].FusionCount)
	}
}

func TestFuseSuccessCreatesFusedCard(t *testing.T) {
	fx := newTestResolver(t, stubRNG{f: 0.1, n: 0},
		ownedCard("card-a", models.RarityEpic, 40),
		ownedCard("card-b", models.RarityCommon, 10))

	outcome, err := fx.resolver.Fuse(context.Background(), "user-1", "card-a", "card-b")
	if err != nil {
		t.Fatalf("Fuse() error = %v", err)
	}
	if !outcome.Success {
		t.Fatal("fusion failed with roll below the rate")
	}
	if outcome.Card == nil {
		t.Fatal("successful fusion produced no card")
	}
	if outcome.Card.Rarity != models.RarityEpic {
		t.Errorf("fused rarity = %s, want Epic", outcome.Card.Rarity)
	}
	if outcome.Card.Power != OutputPower(outcome.InputA, outcome.InputB) {
		t.Errorf("fused power = %d, want %d", outcome.Card.Power, OutputPower(outcome.InputA, outcome.InputB))
	}
	if len(fx.cardRepo.deleted) != 2 {
		t.Errorf("deleted %d cards, want both inputs", len(fx.cardRepo.deleted))
	}
	if fx.users.users["user-1"].FusionCount != 1 {
		t.Errorf("fusion count = %d, want 1", fx.users.users["user-1"].FusionCount)
	}
}

func TestFuseCrystalForcesSuccess(t *testing.T) {
	fx := newTestResolver(t, stubRNG{f: 0.99, n: 0},
		ownedCard("card-a", models.RarityCommon, 10),
		ownedCard("card-b", models.RarityCommon, 10))
	fx.users.users["user-1"] = &models.User{ID: "user-1", Level: 1, FusionCrystal: true}

	outcome, err := fx.resolver.Fuse(context.Background(), "user-1", "card-a", "card-b")
	if err != nil {
		t.Fatalf("Fuse() error = %v", err)
	}
	if !outcome.Success || !outcome.CrystalUsed {
		t.Errorf("success=%v crystal=%v, want forced success", outcome.Success, outcome.CrystalUsed)
	}
	if fx.users.users["user-1"].FusionCrystal {
		t.Error("crystal not consumed")
	}
}

func TestFuseRejectsUnownedCard(t *testing.T) {
	fx := newTestResolver(t, stubRNG{f: 0.1, n: 0},
		ownedCard("card-a", models.RarityCommon, 10),
		&models.Card{ID: "card-b", UserID: "someone-else", Rarity: models.RarityCommon, Power: 10})

	_, err := fx.resolver.Fuse(context.Background(), "user-1", "card-a", "card-b")
	if !errors.Is(err, ErrInvalidFusionInput) {
		t.Errorf("Fuse(unowned card) error = %v, want ErrInvalidFusionInput", err)
	}
	if len(fx.cardRepo.deleted) != 0 {
		t.Error("rejected fusion deleted cards")
	}
}
