package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/achievements"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/campaign"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/cards"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/dailies"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/repositories"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/events"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/fusion"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/generation"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/logger"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/notifications"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/progression"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/store"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting ChaosDeck engine",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := chaosdeck.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	cfg.Game.ApplyDefaults()
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dbConfig := database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	}

	db, err := database.New(ctx, dbConfig)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}

	app := chaosdeck.New(cfg, version, commit)
	app.DB = db

	userRepo := repositories.NewUserRepository(db.BunDB())
	cardRepo := repositories.NewCardRepository(db.BunDB())
	campaignRepo := repositories.NewCampaignRepository(db.BunDB())
	achievementRepo := repositories.NewAchievementRepository(db.BunDB())
	badgeRepo := repositories.NewBadgeRepository(db.BunDB())
	pullRepo := repositories.NewPullRepository(db.BunDB())
	txm := database.NewTransactionManager(db.BunDB())

	// Notifications go to Discord when a token is configured, to the
	// structured log otherwise.
	var notifier notifications.Notifier = notifications.NewLogNotifier()
	var discordNotifier *notifications.DiscordNotifier
	if cfg.Bot.Token != "" {
		channelID, err := snowflake.Parse(cfg.Bot.ChannelID)
		if err != nil {
			slog.Error("Invalid notification channel id", slog.Any("error", err))
			os.Exit(-1)
		}
		discordNotifier = notifications.NewDiscordNotifier(nil, channelID)
		notifier = discordNotifier
	}
	app.Notifier = notifier

	// Generation pipeline
	content := generation.NewChatClient(cfg.Generation.TextAPIKey, cfg.Generation.TextBaseURL)
	leonardo := generation.NewLeonardoClient(cfg.Generation.ImageAPIKey, cfg.Generation.ImageBaseURL)
	pollerOpts := []generation.PollerOption{
		generation.WithValidator(generation.NewChromeValidator()),
	}
	if cfg.Generation.PollAttempts > 0 && cfg.Generation.PollInterval > 0 {
		pollerOpts = append(pollerOpts, generation.WithPollBudget(
			cfg.Generation.PollAttempts,
			time.Duration(cfg.Generation.PollInterval)*time.Second))
	}
	poller := generation.NewPoller(leonardo, pollerOpts...)

	var factoryOpts []cards.FactoryOption
	if cfg.Spaces.Key != "" {
		archiver, err := generation.NewSpacesArchiver(
			cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region,
			cfg.Spaces.Bucket, cfg.Spaces.CardRoot)
		if err != nil {
			slog.Error("Failed to initialize Spaces archiver", slog.Any("error", err))
			os.Exit(-1)
		}
		factoryOpts = append(factoryOpts, cards.WithArchiver(archiver))
	}
	factory := cards.NewFactory(cardRepo, content, poller, factoryOpts...)

	// Game systems
	ledger := progression.NewLedger(userRepo, notifier,
		progression.WithLevelDivisor(cfg.Game.LevelDivisor))
	evaluator := achievements.NewEvaluator(achievementRepo, badgeRepo, userRepo, cardRepo, campaignRepo, ledger, notifier)
	if err := evaluator.Seed(ctx); err != nil {
		slog.Error("Failed to seed achievements", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Achievement rules seeded",
		slog.String("type", "db"),
		slog.Int("rules", len(achievements.Rules)))

	resolver := gacha.NewResolver(gacha.WithPityThreshold(cfg.Game.PityThreshold))
	calendar := events.NewCalendar()
	fusions := fusion.NewResolver(txm, cardRepo, userRepo, factory)
	dailyManager := dailies.NewManager(userRepo, factory, ledger)
	campaigns := campaign.NewService(campaignRepo, cardRepo, badgeRepo, content, poller, factory, ledger, notifier,
		campaign.WithChoiceTimeout(cfg.Game.ChoiceTimeoutDuration()))

	app.Engine = chaosdeck.NewEngine(userRepo, pullRepo, badgeRepo, resolver, calendar, factory, ledger, evaluator, fusions, dailyManager, campaigns, notifier)
	app.Grantor = store.NewGrantor(userRepo, factory, evaluator, notifier)

	if cfg.Bot.Token != "" {
		if err := app.SetupClient(bot.NewListenerFunc(app.OnReady)); err != nil {
			slog.Error("Failed to setup Discord client",
				slog.String("type", "sys"),
				slog.Any("error", err))
			os.Exit(-1)
		}
		discordNotifier.SetClient(app.Client)

		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer closeCancel()
			app.Client.Close(closeCtx)
		}()

		gwCtx, gwCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer gwCancel()
		if err := app.Client.OpenGateway(gwCtx); err != nil {
			slog.Error("Failed to open gateway",
				slog.String("type", "sys"),
				slog.Any("error", err))
			os.Exit(-1)
		}
	}

	slog.Info("ChaosDeck engine is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down...")
}
