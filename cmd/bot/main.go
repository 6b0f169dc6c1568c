// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"personabot/internal/admission"
	"personabot/internal/bot"
	"personabot/internal/bot/handlers"
	"personabot/internal/bot/tasks"
	"personabot/internal/chat"
	"personabot/internal/config"
	"personabot/internal/database"
	"personabot/internal/ledger"
	"personabot/internal/logger"
	"personabot/internal/premium"
	"personabot/internal/provider"
	"personabot/internal/router"
	"personabot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires all components and blocks until shutdown, returning the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)

	ledgerStore := ledger.NewStore(db, log, cfg.Ledger.DefaultTokens)
	premiumStore := premium.NewStore(db, log)
	historyStore := chat.NewHistoryStore(db, log)
	lock := admission.NewLock(log)

	registry, err := provider.BuildRegistry(ctx, cfg.Providers, log)
	if err != nil {
		log.Error("Failed to build provider registry", "error", err)
		return 1
	}

	dispatcher := router.New(registry, cfg.Dispatch.AttemptsPerProvider, cfg.Dispatch.RetryDelay, log)
	orchestrator := chat.New(ledgerStore, lock, dispatcher, premiumStore, historyStore,
		cfg.AI, cfg.Messages, log)

	hDeps := handlers.HandlerDeps{
		Logger:       log,
		Config:       cfg,
		Orchestrator: orchestrator,
		Ledger:       ledgerStore,
		Premium:      premiumStore,
		Registry:     registry,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewChatHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	taskMap := tasks.RegisterAllTasks(tasks.Deps{
		Logger:    log,
		Config:    cfg,
		DB:        db,
		Admission: lock,
	})
	sched, err := bot.NewScheduler(log, cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, tg, sched)

	log.Info("Starting bot")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	time.Sleep(time.Second)
	return 0
}
