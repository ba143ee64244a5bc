package handlers

import (
	"context"
	"errors"
	"strings"

	"go_suggest_bot/messages"
	"go_suggest_bot/workflow"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Engine принимает события от Телеграма
type Engine interface {
	Handle(ctx context.Context, ev workflow.Event) error
}

type Handler struct {
	engine      Engine
	out         *Telegram
	log         *zap.Logger
	moderatorID int64
	channel     Channel
}

func New(engine Engine, out *Telegram, moderatorID int64, channel Channel, logger *zap.Logger) *Handler {
	return &Handler{
		engine:      engine,
		out:         out,
		log:         logger,
		moderatorID: moderatorID,
		channel:     channel,
	}
}

// reply отправляется пользователю в обход движка
type reply struct {
	text string
}

func (h *Handler) OnMessage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat.Type != models.ChatTypePrivate {
		return
	}

	ev, r := h.route(msg)
	if r != nil {
		if err := h.out.Reply(ctx, msg.Chat.ID, msg.ID, r.text); err != nil {
			h.log.Warn("не удалось ответить", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		}
		return
	}
	h.dispatch(ctx, ev)
}

// route решает, что делать с личным сообщением: событие для движка или простой ответ
func (h *Handler) route(msg *models.Message) (workflow.Event, *reply) {
	command := commandOf(msg.Text)
	switch command {
	case "/start", "/help":
		return nil, &reply{text: messages.FormatStart(h.channel.Title, h.channel.Username)}
	}

	if len(msg.Photo) > 0 {
		return submissionFrom(msg), nil
	}

	if msg.From.ID == h.moderatorID {
		if command == "/cancel" {
			return workflow.ModeratorCancel{}, nil
		}
		if msg.Text != "" {
			return workflow.ModeratorText{Text: msg.Text}, nil
		}
	}
	return nil, &reply{text: messages.MsgWrongContent}
}

func (h *Handler) OnCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	ev, err := decodeCallback(cb.ID, cb.From.ID, cb.Data)
	if err != nil {
		h.log.Warn("непонятная кнопка", zap.String("data", cb.Data), zap.Error(err))
		h.answer(ctx, cb.ID, messages.MsgAnswerError)
		return
	}
	if _, ok := ev.(workflow.ModeratorDecision); ok && cb.From.ID != h.moderatorID {
		h.answer(ctx, cb.ID, messages.MsgAnswerNotModerator)
		return
	}
	h.dispatch(ctx, ev)
}

func (h *Handler) dispatch(ctx context.Context, ev workflow.Event) {
	err := h.engine.Handle(ctx, ev)
	switch {
	case err == nil:
	case errors.Is(err, workflow.ErrStaleAction), errors.Is(err, workflow.ErrSymbolCount):
		h.log.Info("событие отклонено", zap.String("event", eventName(ev)), zap.Error(err))
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, workflow.ErrUnknownOption):
		h.log.Warn("объект события не найден", zap.String("event", eventName(ev)), zap.Error(err))
	default:
		h.log.Error("ошибка обработки события", zap.String("event", eventName(ev)), zap.Error(err))
	}
}

func (h *Handler) answer(ctx context.Context, id, text string) {
	if err := h.out.Answer(ctx, id, text); err != nil {
		h.log.Warn("не удалось ответить на нажатие", zap.Error(err))
	}
}

func submissionFrom(msg *models.Message) workflow.SubmissionArrived {
	// Последний размер самый большой
	photo := msg.Photo[len(msg.Photo)-1]
	return workflow.SubmissionArrived{
		FileID: photo.FileID,
		Submitter: workflow.Submitter{
			ID:       msg.From.ID,
			Name:     fullName(msg.From.FirstName, msg.From.LastName),
			Username: msg.From.Username,
		},
		Forward:   forwardOrigin(msg.ForwardOrigin),
		MessageID: msg.ID,
	}
}

func forwardOrigin(o *models.MessageOrigin) *workflow.ForwardOrigin {
	if o == nil {
		return nil
	}
	switch {
	case o.MessageOriginUser != nil:
		u := o.MessageOriginUser.SenderUser
		return &workflow.ForwardOrigin{ID: u.ID, Username: u.Username, Title: fullName(u.FirstName, u.LastName)}
	case o.MessageOriginHiddenUser != nil:
		return &workflow.ForwardOrigin{Title: o.MessageOriginHiddenUser.SenderUserName}
	case o.MessageOriginChat != nil:
		return chatOrigin(o.MessageOriginChat.SenderChat)
	case o.MessageOriginChannel != nil:
		return chatOrigin(o.MessageOriginChannel.Chat)
	}
	return nil
}

func chatOrigin(c models.Chat) *workflow.ForwardOrigin {
	title := c.Title
	if title == "" {
		title = c.Username
	}
	return &workflow.ForwardOrigin{ID: c.ID, Username: c.Username, Title: title}
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

// commandOf возвращает команду без упоминания бота: "/start@my_bot arg" -> "/start"
func commandOf(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	command, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return strings.ToLower(command)
}

func eventName(ev workflow.Event) string {
	switch ev.(type) {
	case workflow.SubmissionArrived:
		return "submission"
	case workflow.ModeratorDecision:
		return "decision"
	case workflow.ModeratorText:
		return "moderator_text"
	case workflow.ModeratorCancel:
		return "cancel"
	case workflow.VoteTap:
		return "vote"
	}
	return "unknown"
}
