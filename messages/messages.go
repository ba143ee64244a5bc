package messages

import (
	"fmt"
	"html"
)

const (
	MsgStart = `👋 Привет! Это предложка канала <b>%s</b> (@%s).

Пришлите картинку — модератор посмотрит её и, возможно, опубликует.`

	MsgSubmissionReceived = `✅ Предложка отправлена модератору. Если её опубликуют, я пришлю ссылку.`

	MsgWrongContent = `🤷 Я принимаю только картинки.`

	MsgPublished = `🎉 Ваша предложка опубликована: <a href="%s">пост в канале</a>`

	MsgSignature = `via @%s`

	// Карточка предложки у модератора
	MsgCardHead              = `📨 <b>Новая предложка</b>`
	MsgCardFrom              = `👤 От: <a href="tg://user?id=%d">%s</a>`
	MsgCardForwardedPlain    = `↪️ Переслано от: %s`
	MsgCardForwardedURL      = `↪️ Переслано от: <a href="https://t.me/%s">%s</a>`
	MsgCardWaitingEmoji      = `⏳ Ожидаю эмодзи для опроса`
	MsgCardPostURL           = `🔗 <a href="%s">Пост в канале</a>`
	MsgDecisionAccepted      = `✅ <b>Опубликовано</b>`
	MsgDecisionAcceptedPoll  = `📊 <b>Опубликовано с опросом</b>`
	MsgDecisionDeclined      = `❌ <b>Отклонено</b>`
	MsgButtonAccept          = `✅ Запостить`
	MsgButtonAcceptWithPoll  = `📊 Запостить с опросом`
	MsgButtonDecline         = `❌ Отклонить`
	MsgAnswerAccepted        = `Опубликовано`
	MsgAnswerAcceptedPoll    = `Жду эмодзи для опроса`
	MsgAnswerDeclined        = `Отклонено`
	MsgAnswerWrongState      = `Решение по этой предложке уже принимается или принято`
	MsgAnswerNotModerator    = `Решения принимает только модератор`
	MsgAnswerError           = `❌ Ошибка. Попробуйте позже.`
	MsgAdminWaitEmoji        = `📊 Пришлите эмодзи для кнопок опроса (от 1 до 6). /cancel — отмена.`
	MsgAdminEmojiConstraints = `⚠️ Нужно от 1 до 6 эмодзи. Попробуйте ещё раз или /cancel.`
	MsgAdminPollPosted       = `✅ Пост с опросом опубликован.`
	MsgAdminCancelled        = `↩️ Операция отменена.`
	MsgAdminPreviousCanceled = `↩️ Предыдущая операция отменена.`
	MsgAdminNothingPending   = `🤷 Сейчас я ничего не жду. Пришлите картинку, чтобы сделать предложку.`

	// Голосование
	MsgVoteVoted     = `Ваш голос: %s`
	MsgVoteCancelled = `Голос за %s отменён`
	MsgVoteError     = `❌ Вариант ответа не найден`
)

func FormatStart(channelTitle, channelUsername string) string {
	return fmt.Sprintf(MsgStart, html.EscapeString(channelTitle), channelUsername)
}

func FormatPublished(postURL string) string {
	return fmt.Sprintf(MsgPublished, postURL)
}

func FormatSignature(botUsername string) string {
	return fmt.Sprintf(MsgSignature, botUsername)
}

func FormatCardFrom(userID int64, title string) string {
	return fmt.Sprintf(MsgCardFrom, userID, html.EscapeString(title))
}

func FormatCardForwarded(username, title string) string {
	if username == "" {
		return fmt.Sprintf(MsgCardForwardedPlain, html.EscapeString(title))
	}
	return fmt.Sprintf(MsgCardForwardedURL, username, html.EscapeString(title))
}

func FormatCardPostURL(postURL string) string {
	return fmt.Sprintf(MsgCardPostURL, postURL)
}

func FormatVoted(label string) string {
	return fmt.Sprintf(MsgVoteVoted, label)
}

func FormatVoteCancelled(label string) string {
	return fmt.Sprintf(MsgVoteCancelled, label)
}

// FormatPollButton: эмодзи и число голосов
func FormatPollButton(label string, voters int) string {
	return fmt.Sprintf("%s %d", label, voters)
}
