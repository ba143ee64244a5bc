package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go_suggest_bot/messages"
	"go_suggest_bot/workflow"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Channel, в который публикуются посты
type Channel struct {
	ID       int64
	Username string // пустой у закрытых каналов
	Title    string
}

// Telegram рисует состояние движка в чатах модератора, отправителей и канала
type Telegram struct {
	bot         *bot.Bot
	moderatorID int64
	channel     Channel
	botUsername string
}

var _ workflow.Transport = (*Telegram)(nil)

func NewTelegram(b *bot.Bot, moderatorID int64, channel Channel, botUsername string) *Telegram {
	return &Telegram{bot: b, moderatorID: moderatorID, channel: channel, botUsername: botUsername}
}

func (t *Telegram) SendCard(ctx context.Context, s *workflow.Submission) (int, error) {
	msg, err := t.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:      t.moderatorID,
		Photo:       &models.InputFileString{Data: s.FileID},
		Caption:     cardCaption(s, ""),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: decisionKeyboard(s.ID),
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *Telegram) EditCard(ctx context.Context, s *workflow.Submission, withActions bool) error {
	params := &bot.EditMessageCaptionParams{
		ChatID:    t.moderatorID,
		MessageID: s.CardMessageID,
		Caption:   cardCaption(s, t.PostLink(s.PostID)),
		ParseMode: models.ParseModeHTML,
	}
	// Без reply_markup Телеграм убирает кнопки
	if withActions {
		params.ReplyMarkup = decisionKeyboard(s.ID)
	}
	_, err := t.bot.EditMessageCaption(ctx, params)
	return ignoreNotModified(err)
}

func (t *Telegram) Publish(ctx context.Context, fileID string, poll *workflow.PollView) (int, error) {
	params := &bot.SendPhotoParams{
		ChatID:  t.channel.ID,
		Photo:   &models.InputFileString{Data: fileID},
		Caption: messages.FormatSignature(t.botUsername),
	}
	if poll != nil {
		params.ReplyMarkup = pollKeyboard(poll)
	}
	msg, err := t.bot.SendPhoto(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *Telegram) EditPollButtons(ctx context.Context, poll *workflow.PollView) error {
	_, err := t.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      t.channel.ID,
		MessageID:   poll.PostID,
		ReplyMarkup: pollKeyboard(poll),
	})
	return ignoreNotModified(err)
}

func (t *Telegram) NotifySubmitter(ctx context.Context, s *workflow.Submission, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             s.Submitter.ID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
		ReplyParameters: &models.ReplyParameters{
			MessageID:                s.SubmitterMessageID,
			AllowSendingWithoutReply: true,
		},
	})
	return err
}

func (t *Telegram) NotifyModerator(ctx context.Context, n workflow.Notice) error {
	params := &bot.SendMessageParams{
		ChatID:    t.moderatorID,
		Text:      n.Text,
		ParseMode: models.ParseModeHTML,
	}
	if n.ReplyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: n.ReplyTo, AllowSendingWithoutReply: true}
	}
	switch {
	case len(n.Suggestions) > 0:
		params.ReplyMarkup = suggestionsKeyboard(n.Suggestions)
	case n.DropSuggestions:
		params.ReplyMarkup = &models.ReplyKeyboardRemove{RemoveKeyboard: true}
	}
	_, err := t.bot.SendMessage(ctx, params)
	return err
}

func (t *Telegram) Answer(ctx context.Context, interactionID, text string) error {
	_, err := t.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: interactionID,
		Text:            text,
	})
	return err
}

// PostLink строит ссылку на пост. У закрытого канала ссылка ведёт через /c/ без префикса -100.
func (t *Telegram) PostLink(postID int) string {
	if postID == 0 {
		return ""
	}
	if t.channel.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", t.channel.Username, postID)
	}
	internal := strings.TrimPrefix(strconv.FormatInt(t.channel.ID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", internal, postID)
}

// Reply отправляет обычный ответ пользователю вне сценария модерации
func (t *Telegram) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	params := &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo, AllowSendingWithoutReply: true}
	}
	_, err := t.bot.SendMessage(ctx, params)
	return err
}

// Повторная отрисовка того же содержимого не считается ошибкой
func ignoreNotModified(err error) error {
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}
