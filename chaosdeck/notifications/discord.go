package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

var rarityEmojis = map[models.Rarity]string{
	models.RarityCommon:    "⚪",
	models.RarityRare:      "🔵",
	models.RarityEpic:      "💎",
	models.RarityLegendary: "✨",
	models.RarityLimited:   "🎪",
}

// DiscordNotifier delivers game notifications as embeds to a channel.
type DiscordNotifier struct {
	client    bot.Client
	channelID snowflake.ID
	mu        sync.RWMutex
}

func NewDiscordNotifier(client bot.Client, channelID snowflake.ID) *DiscordNotifier {
	return &DiscordNotifier{client: client, channelID: channelID}
}

func (n *DiscordNotifier) SetClient(client bot.Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.client = client
}

func (n *DiscordNotifier) send(message discord.MessageCreate) error {
	n.mu.RLock()
	client := n.client
	n.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("discord notifier has no client")
	}

	_, err := client.Rest().CreateMessage(n.channelID, message)
	return err
}

func (n *DiscordNotifier) CardRevealed(_ context.Context, reveal CardReveal) error {
	card := reveal.Card
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("%s %s Card: %s", rarityEmojis[card.Rarity], card.Rarity, card.Name)).
		SetColor(RarityColors[card.Rarity]).
		AddField("Power", fmt.Sprintf("%d", card.Power), true).
		AddField("Special", card.SpecialEffect, true).
		AddField("Description", fmt.Sprintf("*%s*", card.Description), false).
		SetImage(card.ImageURL)

	footer := fmt.Sprintf("🚀 Powered by Chaos | Level: %d | Pity: %d/50", reveal.Level, reveal.PityAfter)
	if len(reveal.Badges) > 0 {
		footer += " " + strings.Join(reveal.Badges, " ")
	}
	builder.SetFooter(footer, "")

	content := ""
	if reveal.EventBonus != "" {
		content = fmt.Sprintf("🎭 Event Bonus: Upgraded by %s!", reveal.EventBonus)
	}

	return n.send(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEmbeds(builder.Build()).
		Build())
}

func (n *DiscordNotifier) LeveledUp(_ context.Context, up LevelUp) error {
	embed := discord.NewEmbedBuilder().
		SetTitle("🔥 Level Up!").
		SetDescription(fmt.Sprintf("<@%s> reached Level %d! Unlocked: %s", up.UserID, up.Level, up.Perk)).
		SetColor(0xFFD700).
		Build()

	return n.send(discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
}

func (n *DiscordNotifier) AchievementUnlocked(_ context.Context, unlock AchievementUnlock) error {
	embed := discord.NewEmbedBuilder().
		SetTitle("🏆 Achievement Unlocked!").
		SetDescription(fmt.Sprintf("**%s**\n+%d points!", unlock.Name, unlock.Points)).
		SetColor(0xFFD700).
		Build()

	return n.send(discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
}

func (n *DiscordNotifier) FusionResolved(_ context.Context, result FusionResult) error {
	if !result.Success {
		return n.send(discord.NewMessageCreateBuilder().
			SetContent(fmt.Sprintf("💥 **Fusion failed!** <@%s>'s cards were lost...", result.UserID)).
			Build())
	}

	card := result.Card
	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🔗 Fusion Card: %s", card.Name)).
		SetDescription(card.Description).
		SetColor(RarityColors[card.Rarity]).
		AddField("Power", fmt.Sprintf("%d", card.Power), true).
		AddField("Special", card.SpecialEffect, true).
		AddField("Fused From", fmt.Sprintf("%s + %s", result.FusedA, result.FusedB), false).
		SetImage(card.ImageURL).
		SetFooter("Fusion Success | Chaos Deck", "").
		Build()

	return n.send(discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
}

func (n *DiscordNotifier) CampaignAdvanced(_ context.Context, update CampaignUpdate) error {
	title := fmt.Sprintf("Turn %d - %s", update.Turn, capitalize(update.Theme))
	builder := discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(update.Narrative).
		SetColor(0xFF0000)
	if update.ImageURL != "" {
		builder.SetImage(update.ImageURL)
	}

	content := ""
	if update.Outcome != "" {
		content = fmt.Sprintf("🎲 **Outcome:** %s", update.Outcome)
	}

	return n.send(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEmbeds(builder.Build()).
		Build())
}

func (n *DiscordNotifier) DailyClaimed(_ context.Context, reward DailyReward) error {
	builder := discord.NewEmbedBuilder().
		SetTitle("🎁 Daily Reward Claimed!").
		SetColor(0xFFD700).
		AddField("Points Earned", fmt.Sprintf("+%d points", reward.Points), true).
		AddField("Streak", fmt.Sprintf("%d days 🔥", reward.Streak), true).
		SetFooter("Come back tomorrow to maintain your streak!", "")
	if reward.Special != "" {
		builder.AddField("Special Reward", reward.Special, false)
	}

	return n.send(discord.NewMessageCreateBuilder().SetEmbeds(builder.Build()).Build())
}

func (n *DiscordNotifier) Announce(_ context.Context, userID, message string) error {
	return n.send(discord.NewMessageCreateBuilder().
		SetContent(fmt.Sprintf("<@%s> %s", userID, message)).
		Build())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
