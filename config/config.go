package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	RunPolling = "polling"
	RunWebhook = "webhook"

	SessionPostgres = "postgres"
	SessionRedis    = "redis"
)

type Config struct {
	BotToken    string
	ModeratorID int64
	// числовой идентификатор или @username канала
	ChannelID   string
	DatabaseURL string
	Proxy       string

	RunMethod     string
	WebhookURL    string
	WebhookListen string
	WebhookSecret string

	LogLevel  string
	LogChatID int64

	SessionBackend string
	RedisURL       string
}

// Load читает config.yaml из рабочего каталога (если он есть) и переменные APP_*.
// Переменные окружения важнее файла.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("run_method", RunPolling)
	v.SetDefault("webhook_listen", ":8443")
	v.SetDefault("log_level", "info")
	v.SetDefault("session_backend", SessionPostgres)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		BotToken:       v.GetString("bot_token"),
		ModeratorID:    v.GetInt64("bot_admin_id"),
		ChannelID:      v.GetString("channel_id"),
		DatabaseURL:    v.GetString("database_url"),
		Proxy:          v.GetString("bot_proxy"),
		RunMethod:      strings.ToLower(v.GetString("run_method")),
		WebhookURL:     v.GetString("webhook_url"),
		WebhookListen:  v.GetString("webhook_listen"),
		WebhookSecret:  v.GetString("webhook_secret"),
		LogLevel:       v.GetString("log_level"),
		LogChatID:      v.GetInt64("log_chat_id"),
		SessionBackend: strings.ToLower(v.GetString("session_backend")),
		RedisURL:       v.GetString("redis_url"),
	}, nil
}

// Validate проверяет обязательные параметры. Без них бот не запускается.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("APP_BOT_TOKEN не задан"))
	}
	if c.ModeratorID == 0 {
		errs = append(errs, errors.New("APP_BOT_ADMIN_ID не задан"))
	}
	if c.ChannelID == "" {
		errs = append(errs, errors.New("APP_CHANNEL_ID не задан"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("APP_DATABASE_URL не задан"))
	}
	switch c.RunMethod {
	case RunPolling:
	case RunWebhook:
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("APP_WEBHOOK_URL обязателен для webhook"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный APP_RUN_METHOD %q", c.RunMethod))
	}
	switch c.SessionBackend {
	case SessionPostgres:
	case SessionRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("APP_REDIS_URL обязателен для redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный APP_SESSION_BACKEND %q", c.SessionBackend))
	}
	return errors.Join(errs...)
}

// ChannelChatID возвращает идентификатор канала в виде, пригодном для Bot API
func (c *Config) ChannelChatID() any {
	if id, err := strconv.ParseInt(c.ChannelID, 10, 64); err == nil {
		return id
	}
	if !strings.HasPrefix(c.ChannelID, "@") {
		return "@" + c.ChannelID
	}
	return c.ChannelID
}
