package handlers

import (
	"strings"

	"go_suggest_bot/messages"
	"go_suggest_bot/workflow"

	"github.com/go-telegram/bot/models"
)

// cardCaption собирает подпись карточки предложки в чате модератора
func cardCaption(s *workflow.Submission, postLink string) string {
	lines := []string{
		messages.MsgCardHead,
		messages.FormatCardFrom(s.Submitter.ID, submitterTitle(s.Submitter)),
	}
	if s.Forward != nil {
		lines = append(lines, messages.FormatCardForwarded(s.Forward.Username, s.Forward.Title))
	}
	if s.State == workflow.StateAwaitingInput && s.Decision == workflow.DecisionNone {
		lines = append(lines, messages.MsgCardWaitingEmoji)
	}

	switch s.Decision {
	case workflow.DecisionAccept:
		lines = append(lines, "", messages.MsgDecisionAccepted)
	case workflow.DecisionAcceptWithPoll:
		lines = append(lines, "", messages.MsgDecisionAcceptedPoll)
	case workflow.DecisionDecline:
		lines = append(lines, "", messages.MsgDecisionDeclined)
	}
	if s.Decision.Publishes() && s.PostID != 0 && postLink != "" {
		lines = append(lines, messages.FormatCardPostURL(postLink))
	}
	return strings.Join(lines, "\n")
}

func submitterTitle(u workflow.Submitter) string {
	if u.Username == "" {
		return u.Name
	}
	return u.Name + " (@" + u.Username + ")"
}

func decisionKeyboard(submissionID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: messages.MsgButtonAccept, CallbackData: encodeDecision(submissionID, workflow.ActionAccept)},
				{Text: messages.MsgButtonAcceptWithPoll, CallbackData: encodeDecision(submissionID, workflow.ActionAcceptWithPoll)},
			},
			{
				{Text: messages.MsgButtonDecline, CallbackData: encodeDecision(submissionID, workflow.ActionDecline)},
			},
		},
	}
}

// pollKeyboard: одна строка, по кнопке на вариант
func pollKeyboard(view *workflow.PollView) *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, len(view.Tallies))
	for _, t := range view.Tallies {
		row = append(row, models.InlineKeyboardButton{
			Text:         messages.FormatPollButton(t.Option.Label, t.Voters),
			CallbackData: encodeVote(view.PollID, t.Option.ID),
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// suggestionsKeyboard показывает прошлые наборы эмодзи под полем ввода
func suggestionsKeyboard(sets []string) *models.ReplyKeyboardMarkup {
	rows := make([][]models.KeyboardButton, 0, len(sets))
	for _, set := range sets {
		rows = append(rows, []models.KeyboardButton{{Text: set}})
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard:        rows,
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}
