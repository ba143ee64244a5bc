package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go_suggest_bot/messages"

	"go.uber.org/zap"
)

// Сколько последних наборов эмодзи предлагать модератору
const suggestedSetsLimit = 5

// Engine ведёт машину состояний предложек и опросов.
//
// События модератора обрабатываются строго по одному: слот состояния модератора
// рассчитан на то, что две операции модератора не выполняются одновременно.
// Голоса обрабатываются параллельно, согласованность обеспечивает Ballots.
type Engine struct {
	submissions SubmissionStore
	polls       PollStore
	session     *Session
	ballots     *Ballots
	out         Transport
	log         *zap.Logger

	moderator sync.Mutex
}

func New(submissions SubmissionStore, polls PollStore, rows SessionRows, out Transport, logger *zap.Logger) *Engine {
	return &Engine{
		submissions: submissions,
		polls:       polls,
		session:     NewSession(rows),
		ballots:     NewBallots(polls),
		out:         out,
		log:         logger,
	}
}

// Handle применяет событие. Ошибки ErrStaleAction и ErrSymbolCount означают,
// что пользователь уже получил объяснение и ничего не изменилось.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	switch ev := ev.(type) {
	case SubmissionArrived:
		return e.onArrived(ctx, ev)
	case ModeratorDecision:
		e.moderator.Lock()
		defer e.moderator.Unlock()
		return e.onDecision(ctx, ev)
	case ModeratorText:
		e.moderator.Lock()
		defer e.moderator.Unlock()
		return e.onText(ctx, ev)
	case ModeratorCancel:
		e.moderator.Lock()
		defer e.moderator.Unlock()
		return e.onCancel(ctx)
	case VoteTap:
		return e.onVote(ctx, ev)
	default:
		return fmt.Errorf("unknown event %T", ev)
	}
}

func (e *Engine) onArrived(ctx context.Context, ev SubmissionArrived) error {
	s := &Submission{
		State:              StateNew,
		Submitter:          ev.Submitter,
		FileID:             ev.FileID,
		SubmitterMessageID: ev.MessageID,
		Forward:            ev.Forward,
	}
	if err := e.submissions.CreateSubmission(ctx, s); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	cardID, err := e.out.SendCard(ctx, s)
	if err != nil {
		return fmt.Errorf("send card: %w", err)
	}
	s.CardMessageID = cardID
	if err := e.submissions.UpdateSubmission(ctx, s); err != nil {
		return fmt.Errorf("save card id: %w", err)
	}
	e.log.Info("новая предложка",
		zap.Int64("submission_id", s.ID),
		zap.Int64("user_id", s.Submitter.ID),
		zap.Bool("forward", s.Forward != nil),
	)
	return e.out.NotifySubmitter(ctx, s, messages.MsgSubmissionReceived)
}

func (e *Engine) onDecision(ctx context.Context, ev ModeratorDecision) error {
	s, err := e.submissions.GetSubmission(ctx, ev.SubmissionID)
	if err != nil {
		e.answer(ctx, ev.InteractionID, messages.MsgAnswerError)
		return fmt.Errorf("submission %d: %w", ev.SubmissionID, err)
	}

	switch ev.Action {
	case ActionDecline:
		return e.decline(ctx, ev.InteractionID, s)
	case ActionAccept:
		return e.accept(ctx, ev.InteractionID, s)
	case ActionAcceptWithPoll:
		return e.requestSymbols(ctx, ev.InteractionID, s)
	default:
		e.answer(ctx, ev.InteractionID, messages.MsgAnswerError)
		return fmt.Errorf("unknown action %q", ev.Action)
	}
}

func (e *Engine) decline(ctx context.Context, interactionID string, s *Submission) error {
	if !s.IsNew() {
		e.answer(ctx, interactionID, messages.MsgAnswerWrongState)
		return fmt.Errorf("decline submission %d: %w", s.ID, ErrStaleAction)
	}
	// Отправителю об отказе не сообщаем
	s.Decision = DecisionDecline
	if err := e.out.EditCard(ctx, s, false); err != nil {
		return fmt.Errorf("edit card: %w", err)
	}
	e.answer(ctx, interactionID, messages.MsgAnswerDeclined)
	if err := e.submissions.DeleteSubmission(ctx, s.ID); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	e.log.Info("предложка отклонена", zap.Int64("submission_id", s.ID))
	return nil
}

func (e *Engine) accept(ctx context.Context, interactionID string, s *Submission) error {
	if !s.IsNew() {
		e.answer(ctx, interactionID, messages.MsgAnswerWrongState)
		return fmt.Errorf("accept submission %d: %w", s.ID, ErrStaleAction)
	}
	e.answer(ctx, interactionID, messages.MsgAnswerAccepted)

	postID, err := e.out.Publish(ctx, s.FileID, nil)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	s.Decision = DecisionAccept
	s.PostID = postID
	// Пост уже в канале: фиксируем решение до остальных шагов, чтобы повторное
	// нажатие не опубликовало его второй раз
	if err := e.submissions.UpdateSubmission(ctx, s); err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	return e.finishPublished(ctx, s)
}

// requestSymbols — первая фаза публикации с опросом: просим у модератора эмодзи
func (e *Engine) requestSymbols(ctx context.Context, interactionID string, s *Submission) error {
	st, err := e.session.Read(ctx)
	if err != nil {
		return err
	}
	if pending, ok := st.(AwaitingEmojiSet); ok && pending.SubmissionID != s.ID {
		if err := e.supersede(ctx, pending.SubmissionID); err != nil {
			return err
		}
	}

	if err := e.session.Write(ctx, AwaitingEmojiSet{SubmissionID: s.ID}); err != nil {
		return err
	}
	e.answer(ctx, interactionID, messages.MsgAnswerAcceptedPoll)

	s.State = StateAwaitingInput
	if err := e.submissions.UpdateSubmission(ctx, s); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if err := e.out.EditCard(ctx, s, false); err != nil {
		return fmt.Errorf("edit card: %w", err)
	}
	return e.out.NotifyModerator(ctx, Notice{
		Text:        messages.MsgAdminWaitEmoji,
		ReplyTo:     s.CardMessageID,
		Suggestions: e.suggestedSets(ctx),
	})
}

// supersede возвращает кнопки предложке, которая ждала эмодзи
func (e *Engine) supersede(ctx context.Context, submissionID int64) error {
	other, err := e.submissions.GetSubmission(ctx, submissionID)
	if errors.Is(err, ErrNotFound) {
		e.log.Warn("ожидающая эмодзи предложка не найдена", zap.Int64("submission_id", submissionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("submission %d: %w", submissionID, err)
	}
	if err := e.reset(ctx, other); err != nil {
		return err
	}
	return e.out.NotifyModerator(ctx, Notice{
		Text:            messages.MsgAdminPreviousCanceled,
		ReplyTo:         other.CardMessageID,
		DropSuggestions: true,
	})
}

// onText — вторая фаза публикации с опросом: модератор прислал эмодзи
func (e *Engine) onText(ctx context.Context, ev ModeratorText) error {
	st, err := e.session.Read(ctx)
	if err != nil {
		return err
	}
	pending, ok := st.(AwaitingEmojiSet)
	if !ok {
		return e.out.NotifyModerator(ctx, Notice{Text: messages.MsgAdminNothingPending})
	}

	s, err := e.submissions.GetSubmission(ctx, pending.SubmissionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if clearErr := e.session.Clear(ctx); clearErr != nil {
				return clearErr
			}
			_ = e.out.NotifyModerator(ctx, Notice{Text: messages.MsgAnswerError, DropSuggestions: true})
		}
		return fmt.Errorf("submission %d: %w", pending.SubmissionID, err)
	}

	labels := ExtractSymbols(ev.Text)
	if !validSymbolCount(len(labels)) {
		if err := e.out.NotifyModerator(ctx, Notice{Text: messages.MsgAdminEmojiConstraints}); err != nil {
			return err
		}
		return fmt.Errorf("%d symbols: %w", len(labels), ErrSymbolCount)
	}

	poll, err := e.polls.CreatePoll(ctx, labels)
	if err != nil {
		return fmt.Errorf("create poll: %w", err)
	}
	view, err := e.ballots.View(ctx, poll)
	if err != nil {
		return err
	}
	postID, err := e.out.Publish(ctx, s.FileID, view)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := e.polls.SetPollPost(ctx, poll.ID, postID); err != nil {
		return fmt.Errorf("set poll post: %w", err)
	}
	if err := e.session.Clear(ctx); err != nil {
		return err
	}
	if err := e.out.NotifyModerator(ctx, Notice{
		Text:            messages.MsgAdminPollPosted,
		ReplyTo:         s.CardMessageID,
		DropSuggestions: true,
	}); err != nil {
		e.log.Warn("не удалось уведомить модератора", zap.Error(err))
	}

	s.Decision = DecisionAcceptWithPoll
	s.PostID = postID
	e.log.Info("опрос создан", zap.Int64("poll_id", poll.ID), zap.Strings("options", labels))
	return e.finishPublished(ctx, s)
}

// finishPublished перерисовывает карточку, сообщает отправителю и удаляет предложку
func (e *Engine) finishPublished(ctx context.Context, s *Submission) error {
	if err := e.out.EditCard(ctx, s, false); err != nil {
		e.log.Warn("не удалось обновить карточку", zap.Int64("submission_id", s.ID), zap.Error(err))
	}
	link := e.out.PostLink(s.PostID)
	if err := e.out.NotifySubmitter(ctx, s, messages.FormatPublished(link)); err != nil {
		e.log.Warn("не удалось уведомить отправителя", zap.Int64("user_id", s.Submitter.ID), zap.Error(err))
	}
	if err := e.submissions.DeleteSubmission(ctx, s.ID); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	e.log.Info("предложка опубликована",
		zap.Int64("submission_id", s.ID),
		zap.String("decision", string(s.Decision)),
		zap.Int("post_id", s.PostID),
	)
	return nil
}

func (e *Engine) onCancel(ctx context.Context) error {
	st, err := e.session.Read(ctx)
	if err != nil {
		return err
	}
	pending, ok := st.(AwaitingEmojiSet)
	if !ok {
		return nil
	}
	if err := e.session.Clear(ctx); err != nil {
		return err
	}
	s, err := e.submissions.GetSubmission(ctx, pending.SubmissionID)
	switch {
	case errors.Is(err, ErrNotFound):
		e.log.Warn("отменяемая предложка не найдена", zap.Int64("submission_id", pending.SubmissionID))
	case err != nil:
		return fmt.Errorf("submission %d: %w", pending.SubmissionID, err)
	default:
		if err := e.reset(ctx, s); err != nil {
			return err
		}
	}
	return e.out.NotifyModerator(ctx, Notice{Text: messages.MsgAdminCancelled, DropSuggestions: true})
}

func (e *Engine) reset(ctx context.Context, s *Submission) error {
	s.ResetToNew()
	if err := e.submissions.UpdateSubmission(ctx, s); err != nil {
		return fmt.Errorf("reset submission %d: %w", s.ID, err)
	}
	if err := e.out.EditCard(ctx, s, true); err != nil {
		return fmt.Errorf("edit card: %w", err)
	}
	return nil
}

// onVote — нажатие на кнопку опроса:
// первый голос добавляется, повторное нажатие на тот же вариант снимает голос,
// нажатие на другой вариант переносит голос.
func (e *Engine) onVote(ctx context.Context, ev VoteTap) error {
	option, err := e.polls.GetOption(ctx, ev.OptionID)
	if err == nil && option.PollID != ev.PollID {
		err = ErrUnknownOption
	}
	if err != nil {
		e.answer(ctx, ev.InteractionID, messages.MsgVoteError)
		return fmt.Errorf("option %d of poll %d: %w", ev.OptionID, ev.PollID, err)
	}
	poll, err := e.polls.GetPoll(ctx, option.PollID)
	if err != nil {
		e.answer(ctx, ev.InteractionID, messages.MsgVoteError)
		return fmt.Errorf("poll %d: %w", option.PollID, err)
	}

	current, err := e.ballots.Current(ctx, poll.ID, ev.VoterID)
	if err != nil {
		return err
	}
	answer := messages.FormatVoted(option.Label)
	switch {
	case current == nil:
		err = e.ballots.Add(ctx, poll.ID, option.ID, ev.VoterID)
	case current.OptionID == option.ID:
		err = e.ballots.Clear(ctx, poll.ID, ev.VoterID)
		answer = messages.FormatVoteCancelled(option.Label)
	default:
		if err = e.ballots.Clear(ctx, poll.ID, ev.VoterID); err == nil {
			err = e.ballots.Add(ctx, poll.ID, option.ID, ev.VoterID)
		}
	}
	if err != nil {
		e.answer(ctx, ev.InteractionID, messages.MsgAnswerError)
		return err
	}
	e.answer(ctx, ev.InteractionID, answer)

	// Счётчики всегда пересчитываются заново, а не по дельте
	view, err := e.ballots.View(ctx, poll)
	if err != nil {
		return err
	}
	return e.out.EditPollButtons(ctx, view)
}

// suggestedSets возвращает последние уникальные наборы эмодзи, новые первыми
func (e *Engine) suggestedSets(ctx context.Context) []string {
	sets, err := e.polls.RecentOptionSets(ctx, suggestedSetsLimit*4)
	if err != nil {
		e.log.Warn("не удалось получить прошлые наборы эмодзи", zap.Error(err))
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, labels := range sets {
		set := strings.Join(labels, "")
		if set == "" || seen[set] {
			continue
		}
		seen[set] = true
		out = append(out, set)
		if len(out) == suggestedSetsLimit {
			break
		}
	}
	return out
}

func (e *Engine) answer(ctx context.Context, interactionID, text string) {
	if interactionID == "" {
		return
	}
	if err := e.out.Answer(ctx, interactionID, text); err != nil {
		e.log.Warn("не удалось ответить на нажатие", zap.Error(err))
	}
}
