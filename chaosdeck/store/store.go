package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/achievements"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
)

// ErrUnknownItem rejects a grant for an item not in the catalog.
var ErrUnknownItem = errors.New("unknown store item")

const pityReduction = 10

// Item is one purchasable entry. Prices are in USD cents' display
// units; payment collection itself happens upstream, the store only
// fulfills grants.
type Item struct {
	ID      string
	Name    string
	Price   int
	Rewards string
}

// Catalog is the fixed item set, keyed by the payment metadata item id.
var Catalog = []Item{
	{ID: "booster", Name: "Epic Booster Pack", Price: 200, Rewards: "5 rare cards"},
	{ID: "legendary", Name: "Legendary Pack", Price: 500, Rewards: "3 legendary cards"},
	{ID: "streak_saver", Name: "Streak Saver", Price: 50, Rewards: "Reset daily cooldown"},
	{ID: "pity_booster", Name: "Pity Booster", Price: 100, Rewards: "Reduce pity by 10"},
	{ID: "achievement_booster", Name: "Achievement Booster", Price: 50, Rewards: "Auto-unlock next achievement"},
	{ID: "fusion_crystal", Name: "Fusion Crystal", Price: 100, Rewards: "Guarantee fusion success"},
	{ID: "event_booster", Name: "Event Booster", Price: 100, Rewards: "Extra drops during events"},
}

func ItemByID(id string) (Item, bool) {
	for _, item := range Catalog {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Grantor fulfills purchases reported by the payment callback. Every
// grant works create-on-demand: a buyer who never played gets a user
// row on the spot.
type Grantor struct {
	users     repositories.UserRepository
	factory   *cards.Factory
	evaluator *achievements.Evaluator
	notifier  notifications.Notifier
}

func NewGrantor(users repositories.UserRepository, factory *cards.Factory, evaluator *achievements.Evaluator, notifier notifications.Notifier) *Grantor {
	return &Grantor{
		users:     users,
		factory:   factory,
		evaluator: evaluator,
		notifier:  notifier,
	}
}

// Grant fulfills one purchased item for the user. sessionID is the
// upstream payment session, carried for the audit log only.
func (g *Grantor) Grant(ctx context.Context, userID, itemID, sessionID string) error {
	item, ok := ItemByID(itemID)
	if !ok {
		slog.Warn("Purchase for unknown item",
			slog.String("type", "cmd"),
			slog.String("user_id", userID),
			slog.String("item_id", itemID),
			slog.String("session_id", sessionID))
		return ErrUnknownItem
	}

	slog.Info("Processing purchase",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.String("item", item.Name),
		slog.String("session_id", sessionID))

	var err error
	switch itemID {
	case "booster":
		err = g.grantPack(ctx, userID, models.RarityRare, 5)
	case "legendary":
		err = g.grantPack(ctx, userID, models.RarityLegendary, 3)
	case "streak_saver":
		err = g.resetDailyCooldown(ctx, userID)
	case "pity_booster":
		err = g.reducePity(ctx, userID)
	case "achievement_booster":
		_, err = g.evaluator.UnlockNext(ctx, userID)
	case "fusion_crystal":
		err = g.setFlag(ctx, userID, func(u *models.User) { u.FusionCrystal = true })
	case "event_booster":
		err = g.setFlag(ctx, userID, func(u *models.User) { u.EventBooster = true })
	}
	if err != nil {
		return err
	}

	return g.notifier.Announce(ctx, userID,
		fmt.Sprintf("🎉 **Purchase Successful!**\nYou bought: **%s**\nRewards: **%s**\nThank you for your purchase!", item.Name, item.Rewards))
}

func (g *Grantor) grantPack(ctx context.Context, userID string, rarity models.Rarity, count int) error {
	if _, err := g.users.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if _, err := g.factory.CreateRewardCard(ctx, rarity, "store", userID, "Store Pack"); err != nil && !errors.Is(err, cards.ErrPersistence) {
			return err
		}
	}
	return nil
}

func (g *Grantor) resetDailyCooldown(ctx context.Context, userID string) error {
	if _, err := g.users.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	return g.users.ClearLastDaily(ctx, userID)
}

func (g *Grantor) reducePity(ctx context.Context, userID string) error {
	user, err := g.users.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	pity := user.PityCount - pityReduction
	if pity < 0 {
		pity = 0
	}
	return g.users.UpdatePity(ctx, userID, pity)
}

func (g *Grantor) setFlag(ctx context.Context, userID string, set func(*models.User)) error {
	user, err := g.users.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	set(user)
	return g.users.Update(ctx, user)
}
