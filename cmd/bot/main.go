package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/kulun-school/telegram-bot/internal/app"
	"github.com/kulun-school/telegram-bot/internal/config"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/fsm"
	"github.com/kulun-school/telegram-bot/internal/jobs"
	"github.com/kulun-school/telegram-bot/internal/logging"
	"github.com/kulun-school/telegram-bot/internal/mirror"
	"github.com/kulun-school/telegram-bot/internal/observability"
)

var release = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("конфигурация: %v", err)
	}
	fsm.DefaultTTL = cfg.FSMTTL

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("логгер: %v", err)
	}
	defer lg.Closer()
	sugar := lg.Sugar

	closeSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		sugar.Warnw("sentry init", "err", err)
	}
	defer closeSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("подключение к БД", "err", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		sugar.Fatalw("миграции", "err", err)
	}
	if err := db.EnsureAdmins(ctx, database, cfg.AdminIDs); err != nil {
		sugar.Fatalw("администраторы из конфигурации", "err", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.MirrorPath), 0o755); err != nil {
		sugar.Fatalw("каталог зеркала", "err", err)
	}
	mirrorClient, err := mirror.OpenExcel(cfg.MirrorPath)
	if err != nil {
		sugar.Fatalw("открытие зеркала", "err", err)
	}
	engine := mirror.NewEngine(database, mirrorClient, sugar)

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		sugar.Fatalw("запуск бота", "err", err)
	}
	sugar.Infow("бот запущен", "username", bot.Self.UserName, "env", cfg.Env)

	app.StartHTTP(ctx, cfg.HTTPAddr, database)

	runner := jobs.New(ctx)
	runner.Every(5*time.Minute, "fsm_sweep", fsm.Sweep)

	dispatcher := app.NewDispatcher(bot, database, engine, sugar)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			sugar.Info("остановка по сигналу")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			dispatcher.HandleUpdate(ctx, upd)
		}
	}
}
