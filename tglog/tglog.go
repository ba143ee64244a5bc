package tglog

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap/zapcore"
)

const sendTimeout = 5 * time.Second

// Sender отправляет сообщения в чат логов
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Core дублирует записи лога в TG-чат. Отправка неблокирующая,
// ошибки отправки пишутся в стандартный log, чтобы не зациклиться.
type Core struct {
	zapcore.LevelEnabler
	enc    zapcore.Encoder
	sender Sender
	chatID int64
	wg     *sync.WaitGroup
}

// New возвращает ядро для zapcore.NewTee. Если чат не задан, логирование в чат отключено.
func New(sender Sender, chatID int64, level zapcore.LevelEnabler) zapcore.Core {
	if chatID == 0 || sender == nil {
		log.Println("APP_LOG_CHAT_ID не задан, логирование в чат отключено")
		return zapcore.NewNopCore()
	}
	return &Core{
		LevelEnabler: level,
		enc: zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			LevelKey:         "level",
			MessageKey:       "msg",
			NameKey:          "logger",
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: " ",
		}),
		sender: sender,
		chatID: chatID,
		wg:     &sync.WaitGroup{},
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.enc = c.enc.Clone()
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	text := buf.String()
	buf.Free()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		_, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: c.chatID,
			Text:   text,
		})
		if err != nil {
			log.Printf("Ошибка отправки лога в чат: %v", err)
		}
	}()
	return nil
}

// Sync дожидается отправки уже записанных сообщений
func (c *Core) Sync() error {
	c.wg.Wait()
	return nil
}
