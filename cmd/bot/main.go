package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/bot"
	"tanishuv-bot/internal/cache"
	"tanishuv-bot/internal/config"
	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/logger"
	"tanishuv-bot/internal/notify"
	"tanishuv-bot/internal/service/admin"
	"tanishuv-bot/internal/service/entitlement"
	"tanishuv-bot/internal/service/matching"
	"tanishuv-bot/internal/service/profile"
	"tanishuv-bot/internal/worker"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if cfg.Bot.Token == "" {
		log.Error("BOT_TOKEN is required")
		os.Exit(1)
	}
	if cfg.Bot.SuperAdminID == 0 {
		log.Error("SUPER_ADMIN_ID is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	// Telegram client
	tgBot, err := telego.NewBot(cfg.Bot.Token)
	if err != nil {
		log.Error("failed to create telegram bot", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(database, redisCache, log, cfg)

	notifier := notify.NewTelegramNotifier(tgBot)
	dispatcher := notify.NewDispatcher(notifier, log)

	entSvc := entitlement.NewService(appCtx)
	profileSvc := profile.NewService(appCtx)
	matchingSvc := matching.NewService(appCtx, entSvc)
	adminSvc := admin.NewService(appCtx, notifier)

	// hourly premium sweep
	checker := worker.NewChecker(appCtx, entSvc, dispatcher)
	go checker.Start(ctx)

	b := bot.NewBot(appCtx, tgBot, profileSvc, matchingSvc, entSvc, adminSvc, notifier, dispatcher)
	log.Info("starting bot", "super_admin", cfg.Bot.SuperAdminID)
	if err := b.Start(ctx); err != nil {
		log.Error("bot stopped with error", "err", err)
		os.Exit(1)
	}
}
