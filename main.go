package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go_suggest_bot/config"
	"go_suggest_bot/database"
	"go_suggest_bot/handlers"
	"go_suggest_bot/redisstore"
	"go_suggest_bot/tglog"
	"go_suggest_bot/webhook"
	"go_suggest_bot/workflow"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const pollTimeout = time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env не найден, используются переменные окружения")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("конфигурация", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	var sessionRows workflow.SessionRows = db
	if cfg.SessionBackend == config.SessionRedis {
		rs, err := redisstore.Connect(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rs.Close()
		sessionRows = rs
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {}),
	}
	if cfg.Proxy != "" {
		client, err := proxyClient(cfg.Proxy)
		if err != nil {
			logger.Fatal("APP_BOT_PROXY", zap.Error(err))
		}
		opts = append(opts, bot.WithHTTPClient(pollTimeout, client))
	}
	if cfg.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.WebhookSecret))
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		logger.Fatal("bot", zap.Error(err))
	}

	// Предупреждения и ошибки дублируются в TG-чат
	logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, tglog.New(b, cfg.LogChatID, zapcore.WarnLevel))
	}))

	me, err := b.GetMe(ctx)
	if err != nil {
		logger.Fatal("getMe", zap.Error(err))
	}
	chat, err := b.GetChat(ctx, &bot.GetChatParams{ChatID: cfg.ChannelChatID()})
	if err != nil {
		logger.Fatal("канал недоступен", zap.String("channel", cfg.ChannelID), zap.Error(err))
	}
	channel := handlers.Channel{ID: chat.ID, Username: chat.Username, Title: chat.Title}

	out := handlers.NewTelegram(b, cfg.ModeratorID, channel, me.Username)
	engine := workflow.New(db, db, sessionRows, out, logger.Named("workflow"))
	h := handlers.New(engine, out, cfg.ModeratorID, channel, logger.Named("handlers"))

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, h.OnMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.OnCallback)

	logger.Info("бот запущен",
		zap.String("bot", me.Username),
		zap.String("channel", channel.Title),
		zap.String("run_method", cfg.RunMethod),
		zap.String("session_backend", cfg.SessionBackend),
	)

	switch cfg.RunMethod {
	case config.RunWebhook:
		runWebhook(ctx, b, cfg, logger)
	default:
		runPolling(ctx, b, logger)
	}
	logger.Info("бот остановлен")
}

func runPolling(ctx context.Context, b *bot.Bot, logger *zap.Logger) {
	// getUpdates не работает, пока установлен вебхук
	if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		logger.Fatal("deleteWebhook", zap.Error(err))
	}
	b.Start(ctx)
}

func runWebhook(ctx context.Context, b *bot.Bot, cfg *config.Config, logger *zap.Logger) {
	_, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:         cfg.WebhookURL,
		SecretToken: cfg.WebhookSecret,
	})
	if err != nil {
		logger.Fatal("setWebhook", zap.Error(err))
	}
	go b.StartWebhook(ctx)

	srv := &http.Server{
		Addr:         cfg.WebhookListen,
		Handler:      webhook.NewRouter(b.WebhookHandler(), logger.Named("webhook")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info("webhook слушает", zap.String("addr", cfg.WebhookListen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func proxyClient(raw string) (*http.Client, error) {
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Timeout:   2 * pollTimeout,
	}, nil
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := zcfg.Build()
	return logger
}
