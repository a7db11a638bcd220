package chaosdeck

import (
	"context"
	"log/slog"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/store"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
)

// App aggregates the wired game systems. The chat command layer and
// the payment callback are external embedders; they drive the app
// through Engine and Grantor.
type App struct {
	Cfg      *Config
	Client   bot.Client
	Version  string
	Commit   string
	DB       *database.DB
	Engine   *Engine
	Grantor  *store.Grantor
	Notifier notifications.Notifier
}

func New(cfg *Config, version, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

func (a *App) SetupClient(listeners ...bot.EventListener) error {
	client, err := disgo.New(a.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages, gateway.IntentMessageContent)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	a.Client = client
	return nil
}

func (a *App) OnReady(_ *events.Ready) {
	slog.Info("ChaosDeck is now ready",
		slog.String("version", a.Version),
		slog.String("commit", a.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Client.SetPresence(ctx,
		gateway.WithListeningActivity("the chaos of the gacha"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
