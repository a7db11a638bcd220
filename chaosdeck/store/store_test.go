package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/achievements"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/generation"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/progression"
	"github.com/uptrace/bun"
)

type fakeUserRepo struct {
	users map[string]*models.User
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

func (f *fakeUserRepo) ApplyFusionTx(_ context.Context, _ bun.Tx, _ string, _, _ bool) error {
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
	created []*models.Card
}

func (f *fakeCardRepo) Create(_ context.Context, c *models.Card) error {
	f.created = append(f.created, c)
	return nil
}

func (f *fakeCardRepo) CreateTx(_ context.Context, _ bun.Tx, c *models.Card) error {
	f.created = append(f.created, c)
	return nil
}

func (f *fakeCardRepo) GetByID(_ context.Context, _ string) (*models.Card, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeCardRepo) GetByIDAndOwner(_ context.Context, _, _ string) (*models.Card, error) {
	return nil, sql.ErrNoRows
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

func (f *fakeCardRepo) CountByUserIDAndRarity(_ context.Context, _ string, rarity models.Rarity) (int64, error) {
	var n int64
	for _, c := range f.created {
		if c.Rarity == rarity {
			n++
		}
	}
	return n, nil
}

func (f *fakeCardRepo) Delete(_ context.Context, _ string) error { return nil }

func (f *fakeCardRepo) DeletePairTx(_ context.Context, _ bun.Tx, _, _ string) error { return nil }

type fakeAchievementRepo struct {
	rules    []*models.Achievement
	unlocked map[string]map[string]bool
}

func (f *fakeAchievementRepo) SeedRules(_ context.Context, rules []*models.Achievement) error {
	f.rules = rules
	return nil
}

func (f *fakeAchievementRepo) GetRules(_ context.Context) ([]*models.Achievement, error) {
	return f.rules, nil
}

func (f *fakeAchievementRepo) IsUnlocked(_ context.Context, userID, achievementID string) (bool, error) {
	return f.unlocked[userID][achievementID], nil
}

func (f *fakeAchievementRepo) Unlock(_ context.Context, userID, achievementID string) (bool, error) {
	if f.unlocked[userID] == nil {
		f.unlocked[userID] = make(map[string]bool)
	}
	if f.unlocked[userID][achievementID] {
		return false, nil
	}
	f.unlocked[userID][achievementID] = true
	return true, nil
}

func (f *fakeAchievementRepo) GetUnlockedIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for id := range f.unlocked[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeBadgeRepo struct{}

func (fakeBadgeRepo) Unlock(_ context.Context, _, _ string) (bool, error) { return false, nil }

func (fakeBadgeRepo) GetByUserID(_ context.Context, _ string) ([]string, error) { return nil, nil }

type fakeCampaignRepo struct{}

func (fakeCampaignRepo) Create(_ context.Context, _ *models.Campaign) error { return nil }

func (fakeCampaignRepo) GetByID(_ context.Context, _ string) (*models.Campaign, error) {
	return nil, sql.ErrNoRows
}

func (fakeCampaignRepo) GetActiveByUserID(_ context.Context, _ string) (*models.Campaign, error) {
	return nil, sql.ErrNoRows
}

func (fakeCampaignRepo) Update(_ context.Context, _ *models.Campaign) error { return nil }

func (fakeCampaignRepo) CountEndedByUserID(_ context.Context, _ string) (int64, error) {
	return 0, nil
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

func newTestGrantor(t *testing.T) (*Grantor, *fakeUserRepo, *fakeCardRepo) {
	t.Helper()

	users := &fakeUserRepo{users: make(map[string]*models.User)}
	cardRepo := &fakeCardRepo{}
	achRepo := &fakeAchievementRepo{unlocked: make(map[string]map[string]bool)}
	poller := generation.NewPoller(fakeImageGen{}, generation.WithPollBudget(1, time.Millisecond))
	factory := cards.NewFactory(cardRepo, fakeContent{}, poller)
	ledger := progression.NewLedger(users, notifications.NewLogNotifier())
	evaluator := achievements.NewEvaluator(achRepo, fakeBadgeRepo{}, users, cardRepo, fakeCampaignRepo{}, ledger, notifications.NewLogNotifier())
	if err := evaluator.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	return NewGrantor(users, factory, evaluator, notifications.NewLogNotifier()), users, cardRepo
}

func TestItemByID(t *testing.T) {
	item, ok := ItemByID("fusion_crystal")
	if !ok {
		t.Fatal("fusion_crystal not in catalog")
	}
	if item.Name != "Fusion Crystal" {
		t.Errorf("item.Name = %q", item.Name)
	}

	if _, ok := ItemByID("nonsense"); ok {
		t.Error("ItemByID(nonsense) = true, want false")
	}
}

func TestGrantUnknownItem(t *testing.T) {
	g, _, _ := newTestGrantor(t)

	err := g.Grant(context.Background(), "user-1", "nonsense", "sess-1")
	if !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Grant(nonsense) error = %v, want ErrUnknownItem", err)
	}
}

func TestGrantBoosterPack(t *testing.T) {
	g, _, cardRepo := newTestGrantor(t)

	if err := g.Grant(context.Background(), "user-1", "booster", "sess-1"); err != nil {
		t.Fatalf("Grant(booster) error = %v", err)
	}
	if len(cardRepo.created) != 5 {
		t.Fatalf("created %d cards, want 5", len(cardRepo.created))
	}
	for _, c := range cardRepo.created {
		if c.Rarity != models.RarityRare {
			t.Errorf("pack card rarity = %s, want Rare", c.Rarity)
		}
		if c.UserID != "user-1" {
			t.Errorf("pack card owner = %s, want user-1", c.UserID)
		}
	}
}

func TestGrantLegendaryPack(t *testing.T) {
	g, _, cardRepo := newTestGrantor(t)

	if err := g.Grant(context.Background(), "user-1", "legendary", "sess-1"); err != nil {
		t.Fatalf("Grant(legendary) error = %v", err)
	}
	if len(cardRepo.created) != 3 {
		t.Fatalf("created %d cards, want 3", len(cardRepo.created))
	}
	for _, c := range cardRepo.created {
		if c.Rarity != models.RarityLegendary {
			t.Errorf("pack card rarity = %s, want Legendary", c.Rarity)
		}
	}
}

func TestGrantStreakSaver(t *testing.T) {
	g, users, _ := newTestGrantor(t)
	ctx := context.Background()

	u, _ := users.GetOrCreate(ctx, "user-1")
	u.LastDaily = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := g.Grant(ctx, "user-1", "streak_saver", "sess-1"); err != nil {
		t.Fatalf("Grant(streak_saver) error = %v", err)
	}
	if !users.users["user-1"].LastDaily.IsZero() {
		t.Error("LastDaily not cleared")
	}
}

func TestGrantPityBooster(t *testing.T) {
	tests := []struct {
		name string
		pity int
		want int
	}{
		{"reduces by ten", 35, 25},
		{"floors at zero", 4, 0},
		{"already zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, users, _ := newTestGrantor(t)
			ctx := context.Background()

			u, _ := users.GetOrCreate(ctx, "user-1")
			u.PityCount = tt.pity

			if err := g.Grant(ctx, "user-1", "pity_booster", "sess-1"); err != nil {
				t.Fatalf("Grant(pity_booster) error = %v", err)
			}
			if got := users.users["user-1"].PityCount; got != tt.want {
				t.Errorf("pity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGrantAchievementBooster(t *testing.T) {
	g, users, _ := newTestGrantor(t)
	ctx := context.Background()

	if err := g.Grant(ctx, "user-1", "achievement_booster", "sess-1"); err != nil {
		t.Fatalf("Grant(achievement_booster) error = %v", err)
	}
	if users.users["user-1"].Points == 0 {
		t.Error("unlocked achievement paid no reward points")
	}
}

func TestGrantFlags(t *testing.T) {
	g, users, _ := newTestGrantor(t)
	ctx := context.Background()

	if err := g.Grant(ctx, "user-1", "fusion_crystal", "sess-1"); err != nil {
		t.Fatalf("Grant(fusion_crystal) error = %v", err)
	}
	if !users.users["user-1"].FusionCrystal {
		t.Error("FusionCrystal flag not set")
	}

	if err := g.Grant(ctx, "user-1", "event_booster", "sess-2"); err != nil {
		t.Fatalf("Grant(event_booster) error = %v", err)
	}
	if !users.users["user-1"].EventBooster {
		t.Error("EventBooster flag not set")
	}
}
