package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go_suggest_bot/messages"

	"go.uber.org/zap/zaptest"
)

type harness struct {
	store  *memStore
	out    *fakeTransport
	engine *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	out := newFakeTransport()
	return &harness{
		store:  store,
		out:    out,
		engine: New(store, store, store, out, zaptest.NewLogger(t)),
	}
}

func (h *harness) submit(t *testing.T, fileID string) *Submission {
	t.Helper()
	err := h.engine.Handle(context.Background(), SubmissionArrived{
		FileID:    fileID,
		Submitter: Submitter{ID: 501, Name: "Иван Петров", Username: "ivan"},
		MessageID: 77,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	var latest *Submission
	for _, s := range h.store.submissions {
		if s.FileID == fileID {
			cp := s
			latest = &cp
		}
	}
	if latest == nil {
		t.Fatalf("submission %q not stored", fileID)
	}
	return latest
}

func (h *harness) decide(t *testing.T, id int64, action Action, interaction string) error {
	t.Helper()
	return h.engine.Handle(context.Background(), ModeratorDecision{
		InteractionID: interaction,
		SubmissionID:  id,
		Action:        action,
	})
}

func (h *harness) exists(id int64) bool {
	_, err := h.store.GetSubmission(context.Background(), id)
	return err == nil
}

func TestArrivalSendsCardAndAcknowledges(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")

	if s.State != StateNew || s.Decision != DecisionNone {
		t.Fatalf("expected NEW undecided submission, got %s/%s", s.State, s.Decision)
	}
	if s.CardMessageID == 0 {
		t.Fatalf("expected card message id to be stored")
	}
	if !h.out.cards[s.ID].WithActions {
		t.Fatalf("expected card with decision buttons")
	}
	if len(h.out.submitter) != 1 || h.out.submitter[0] != messages.MsgSubmissionReceived {
		t.Fatalf("expected acknowledgement to submitter, got %q", h.out.submitter)
	}
}

func TestAcceptPublishesNotifiesAndDeletes(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")

	if err := h.decide(t, s.ID, ActionAccept, "cb-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(h.out.published) != 1 || h.out.published[0].Poll != nil {
		t.Fatalf("expected one plain publish, got %#v", h.out.published)
	}
	postID := h.out.published[0].PostID
	card := h.out.cards[s.ID]
	if card.Decision != DecisionAccept || card.WithActions || card.PostID != postID {
		t.Fatalf("unexpected card render %#v", card)
	}
	last := h.out.submitter[len(h.out.submitter)-1]
	if !strings.Contains(last, h.out.PostLink(postID)) {
		t.Fatalf("expected submitter to receive post link, got %q", last)
	}
	if h.out.answers["cb-1"] != messages.MsgAnswerAccepted {
		t.Fatalf("unexpected answer %q", h.out.answers["cb-1"])
	}
	if h.exists(s.ID) {
		t.Fatalf("expected submission to be deleted")
	}
}

func TestDeclineIsSilentToSubmitter(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")

	if err := h.decide(t, s.ID, ActionDecline, "cb-1"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if len(h.out.submitter) != 1 {
		t.Fatalf("expected only the arrival acknowledgement, got %q", h.out.submitter)
	}
	if card := h.out.cards[s.ID]; card.Decision != DecisionDecline || card.WithActions {
		t.Fatalf("unexpected card render %#v", card)
	}
	if len(h.out.published) != 0 {
		t.Fatalf("decline must not publish")
	}
	if h.exists(s.ID) {
		t.Fatalf("expected submission to be deleted")
	}
}

func TestStaleDeclineNoticeWithoutMutation(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")
	if err := h.decide(t, s.ID, ActionAcceptWithPoll, "cb-1"); err != nil {
		t.Fatalf("accept with poll: %v", err)
	}
	before, _ := h.store.GetSubmission(context.Background(), s.ID)
	cardBefore := h.out.cards[s.ID]

	err := h.decide(t, s.ID, ActionDecline, "cb-2")
	if !errors.Is(err, ErrStaleAction) {
		t.Fatalf("expected stale action error, got %v", err)
	}
	if h.out.answers["cb-2"] != messages.MsgAnswerWrongState {
		t.Fatalf("expected wrong state notice, got %q", h.out.answers["cb-2"])
	}
	after, _ := h.store.GetSubmission(context.Background(), s.ID)
	if *after != *before {
		t.Fatalf("stale decline mutated submission: %#v -> %#v", before, after)
	}
	if h.out.cards[s.ID] != cardBefore {
		t.Fatalf("stale decline re-rendered the card")
	}
}

func TestStaleAcceptIsNoOp(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")
	if err := h.decide(t, s.ID, ActionAcceptWithPoll, "cb-1"); err != nil {
		t.Fatalf("accept with poll: %v", err)
	}
	before, _ := h.store.GetSubmission(context.Background(), s.ID)

	err := h.decide(t, s.ID, ActionAccept, "cb-2")
	if !errors.Is(err, ErrStaleAction) {
		t.Fatalf("expected stale action error, got %v", err)
	}
	if len(h.out.published) != 0 {
		t.Fatalf("stale accept must not publish")
	}
	after, _ := h.store.GetSubmission(context.Background(), s.ID)
	if *after != *before {
		t.Fatalf("stale accept mutated submission: %#v -> %#v", before, after)
	}
	st, _ := h.engine.session.Read(context.Background())
	if pending, ok := st.(AwaitingEmojiSet); !ok || pending.SubmissionID != s.ID {
		t.Fatalf("stale accept touched session state: %#v", st)
	}
}

func TestAcceptAfterPublishedButNotDeletedIsStale(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")

	// Падение после публикации: решение сохранено, запись ещё не удалена
	s.Decision = DecisionAccept
	s.PostID = 555
	_ = h.store.UpdateSubmission(context.Background(), s)

	if err := h.decide(t, s.ID, ActionAccept, "cb-1"); !errors.Is(err, ErrStaleAction) {
		t.Fatalf("expected stale action, got %v", err)
	}
	if len(h.out.published) != 0 {
		t.Fatalf("expected no second publish")
	}
}

func TestUnknownSubmissionAnswersError(t *testing.T) {
	h := newHarness(t)
	err := h.decide(t, 404, ActionAccept, "cb-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.out.answers["cb-1"] != messages.MsgAnswerError {
		t.Fatalf("expected generic error answer, got %q", h.out.answers["cb-1"])
	}
}

func TestPublishFailureKeepsSubmission(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")
	h.out.failPublish = errors.New("telegram is down")

	if err := h.decide(t, s.ID, ActionAccept, "cb-1"); err == nil {
		t.Fatalf("expected publish error")
	}
	got, err := h.store.GetSubmission(context.Background(), s.ID)
	if err != nil || !got.IsNew() {
		t.Fatalf("expected submission to stay NEW, got %#v (%v)", got, err)
	}
}

func TestPollFlowPublishesDistinctDuplicateOptions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.submit(t, "file-1")

	if err := h.decide(t, s.ID, ActionAcceptWithPoll, "cb-1"); err != nil {
		t.Fatalf("accept with poll: %v", err)
	}
	pending, _ := h.store.GetSubmission(ctx, s.ID)
	if pending.State != StateAwaitingInput {
		t.Fatalf("expected AWAITING_MODERATOR_INPUT, got %s", pending.State)
	}
	if h.out.cards[s.ID].WithActions {
		t.Fatalf("expected buttons removed while waiting for symbols")
	}
	if n := h.out.lastModeratorNotice(); n.Text != messages.MsgAdminWaitEmoji || n.ReplyTo != s.CardMessageID {
		t.Fatalf("unexpected prompt %#v", n)
	}

	if err := h.engine.Handle(ctx, ModeratorText{Text: "😀😀😂"}); err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if len(h.out.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(h.out.published))
	}
	pub := h.out.published[0]
	if pub.Poll == nil || len(pub.Poll.Tallies) != 3 {
		t.Fatalf("expected poll with 3 options, got %#v", pub.Poll)
	}
	labels := []string{pub.Poll.Tallies[0].Option.Label, pub.Poll.Tallies[1].Option.Label, pub.Poll.Tallies[2].Option.Label}
	if strings.Join(labels, "") != "😀😀😂" {
		t.Fatalf("unexpected option labels %q", labels)
	}
	if pub.Poll.Tallies[0].Option.ID == pub.Poll.Tallies[1].Option.ID {
		t.Fatalf("duplicate symbols must be distinct options")
	}
	poll, _ := h.store.GetPoll(ctx, pub.Poll.PollID)
	if poll.PostID != pub.PostID {
		t.Fatalf("expected poll to reference post %d, got %d", pub.PostID, poll.PostID)
	}
	if h.exists(s.ID) {
		t.Fatalf("expected submission deleted after poll publish")
	}
	if h.store.sessionRowCount() != 0 {
		t.Fatalf("expected session state cleared")
	}
	if card := h.out.cards[s.ID]; card.Decision != DecisionAcceptWithPoll || card.PostID != pub.PostID {
		t.Fatalf("unexpected final card %#v", card)
	}
	if last := h.out.submitter[len(h.out.submitter)-1]; !strings.Contains(last, h.out.PostLink(pub.PostID)) {
		t.Fatalf("expected submitter link, got %q", last)
	}

	second := pub.Poll.Tallies[1].Option
	if err := h.engine.Handle(ctx, VoteTap{InteractionID: "v-1", PollID: poll.ID, OptionID: second.ID, VoterID: 900}); err != nil {
		t.Fatalf("vote: %v", err)
	}
	edit := h.out.lastPollEdit()
	if edit.PostID != pub.PostID {
		t.Fatalf("expected re-render of post %d, got %d", pub.PostID, edit.PostID)
	}
	for i, want := range []int{0, 1, 0} {
		if edit.Tallies[i].Voters != want {
			t.Fatalf("option %d: expected %d voters, got %d", i, want, edit.Tallies[i].Voters)
		}
	}
}

func TestSymbolCountOutOfRangeKeepsPendingState(t *testing.T) {
	for _, text := range []string{"просто текст", "😀😁😂🤣😃😄😅"} {
		t.Run(text, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			s := h.submit(t, "file-1")
			if err := h.decide(t, s.ID, ActionAcceptWithPoll, "cb-1"); err != nil {
				t.Fatalf("accept with poll: %v", err)
			}

			err := h.engine.Handle(ctx, ModeratorText{Text: text})
			if !errors.Is(err, ErrSymbolCount) {
				t.Fatalf("expected symbol count error, got %v", err)
			}
			if h.out.lastModeratorNotice().Text != messages.MsgAdminEmojiConstraints {
				t.Fatalf("expected constraint notice")
			}
			if h.store.pollCount() != 0 || len(h.out.published) != 0 {
				t.Fatalf("expected no poll and no publish")
			}
			st, _ := h.engine.session.Read(ctx)
			if pending, ok := st.(AwaitingEmojiSet); !ok || pending.SubmissionID != s.ID {
				t.Fatalf("expected pending state unchanged, got %#v", st)
			}
		})
	}
}

func TestVoteToggleAndSwitch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	poll := newTestPoll(t, h.store, "👍", "👎")
	_ = h.store.SetPollPost(ctx, poll.ID, 321)
	a, b := poll.Options[0], poll.Options[1]
	tap := func(opt Option) PollView {
		t.Helper()
		if err := h.engine.Handle(ctx, VoteTap{InteractionID: "v", PollID: poll.ID, OptionID: opt.ID, VoterID: 7}); err != nil {
			t.Fatalf("vote: %v", err)
		}
		return h.out.lastPollEdit()
	}

	view := tap(a)
	if view.Tallies[0].Voters != 1 || h.out.answers["v"] != messages.FormatVoted("👍") {
		t.Fatalf("first tap: %#v / %q", view.Tallies, h.out.answers["v"])
	}
	view = tap(a)
	if view.Tallies[0].Voters != 0 || h.out.answers["v"] != messages.FormatVoteCancelled("👍") {
		t.Fatalf("second tap: %#v / %q", view.Tallies, h.out.answers["v"])
	}
	view = tap(b)
	if view.Tallies[0].Voters != 0 || view.Tallies[1].Voters != 1 {
		t.Fatalf("switch tap: %#v", view.Tallies)
	}
	view = tap(a)
	if view.Tallies[0].Voters != 1 || view.Tallies[1].Voters != 0 {
		t.Fatalf("moved vote: %#v", view.Tallies)
	}
}

func TestVoteUnknownOption(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	poll := newTestPoll(t, h.store, "👍")
	other := newTestPoll(t, h.store, "👎")

	err := h.engine.Handle(ctx, VoteTap{InteractionID: "v", PollID: poll.ID, OptionID: 12345, VoterID: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.out.answers["v"] != messages.MsgVoteError {
		t.Fatalf("expected vote error answer")
	}

	err = h.engine.Handle(ctx, VoteTap{InteractionID: "w", PollID: poll.ID, OptionID: other.Options[0].ID, VoterID: 1})
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected unknown option, got %v", err)
	}
	if len(h.out.pollEdits) != 0 {
		t.Fatalf("expected no re-render on error")
	}
}

func TestSecondPollRequestSupersedesFirst(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	x := h.submit(t, "file-x")
	y := h.submit(t, "file-y")

	if err := h.decide(t, x.ID, ActionAcceptWithPoll, "cb-x"); err != nil {
		t.Fatalf("accept x with poll: %v", err)
	}
	if err := h.decide(t, y.ID, ActionAcceptWithPoll, "cb-y"); err != nil {
		t.Fatalf("accept y with poll: %v", err)
	}

	xs, _ := h.store.GetSubmission(ctx, x.ID)
	if !xs.IsNew() || xs.PostID != 0 {
		t.Fatalf("expected X reset to NEW, got %#v", xs)
	}
	if !h.out.cards[x.ID].WithActions {
		t.Fatalf("expected X card restored with buttons")
	}
	var notified bool
	for _, n := range h.out.moderator {
		if n.Text == messages.MsgAdminPreviousCanceled && n.ReplyTo == x.CardMessageID {
			notified = true
		}
	}
	if !notified {
		t.Fatalf("expected moderator to be told the previous operation was cancelled")
	}
	st, _ := h.engine.session.Read(ctx)
	if pending, ok := st.(AwaitingEmojiSet); !ok || pending.SubmissionID != y.ID {
		t.Fatalf("expected pending state for Y, got %#v", st)
	}
	if h.store.sessionRowCount() != 1 {
		t.Fatalf("expected a single session row")
	}
}

func TestRepeatedPollRequestForSameSubmission(t *testing.T) {
	h := newHarness(t)
	s := h.submit(t, "file-1")
	_ = h.decide(t, s.ID, ActionAcceptWithPoll, "cb-1")
	if err := h.decide(t, s.ID, ActionAcceptWithPoll, "cb-2"); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	for _, n := range h.out.moderator {
		if n.Text == messages.MsgAdminPreviousCanceled {
			t.Fatalf("same submission must not be reported as cancelled")
		}
	}
}

func TestCancelRestoresSubmission(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.submit(t, "file-1")
	_ = h.decide(t, s.ID, ActionAcceptWithPoll, "cb-1")

	if err := h.engine.Handle(ctx, ModeratorCancel{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := h.store.GetSubmission(ctx, s.ID)
	if !got.IsNew() {
		t.Fatalf("expected NEW after cancel, got %#v", got)
	}
	if !h.out.cards[s.ID].WithActions {
		t.Fatalf("expected buttons restored")
	}
	if n := h.out.lastModeratorNotice(); n.Text != messages.MsgAdminCancelled || !n.DropSuggestions {
		t.Fatalf("unexpected notice %#v", n)
	}
	if h.store.sessionRowCount() != 0 {
		t.Fatalf("expected session cleared")
	}

	// После отмены обычный Accept снова доступен
	if err := h.decide(t, s.ID, ActionAccept, "cb-2"); err != nil {
		t.Fatalf("accept after cancel: %v", err)
	}
}

func TestCancelWithoutPendingIsIgnored(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Handle(context.Background(), ModeratorCancel{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(h.out.moderator) != 0 {
		t.Fatalf("expected no notices, got %#v", h.out.moderator)
	}
}

func TestTextWithoutPendingState(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Handle(context.Background(), ModeratorText{Text: "👍"}); err != nil {
		t.Fatalf("text: %v", err)
	}
	if h.out.lastModeratorNotice().Text != messages.MsgAdminNothingPending {
		t.Fatalf("expected nothing-pending notice")
	}
	if h.store.pollCount() != 0 {
		t.Fatalf("expected no poll")
	}
}

func TestPromptOffersPreviousSymbolSets(t *testing.T) {
	h := newHarness(t)
	for _, labels := range [][]string{{"👍", "👎"}, {"🔥"}, {"👍", "👎"}} {
		newTestPoll(t, h.store, labels...)
	}
	s := h.submit(t, "file-1")
	if err := h.decide(t, s.ID, ActionAcceptWithPoll, "cb-1"); err != nil {
		t.Fatalf("accept with poll: %v", err)
	}
	got := h.out.lastModeratorNotice().Suggestions
	want := []string{"👍👎", "🔥"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected suggestions %q, got %q", want, got)
	}
}
