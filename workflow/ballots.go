package workflow

import (
	"context"
	"fmt"
)

// Ballots работает с журналом голосов. Голоса только добавляются, поэтому у одного
// пользователя может скопиться несколько строк (двойные нажатия, повторная доставка).
// Учитывается только последняя вставленная строка, остальные удаляются при чтении.
type Ballots struct {
	store PollStore
}

func NewBallots(store PollStore) *Ballots {
	return &Ballots{store: store}
}

// Current возвращает действующий голос пользователя или nil
func (b *Ballots) Current(ctx context.Context, pollID, voterID int64) (*Vote, error) {
	votes, err := b.store.VoterVotes(ctx, pollID, voterID)
	if err != nil {
		return nil, fmt.Errorf("voter votes: %w", err)
	}
	if len(votes) == 0 {
		return nil, nil
	}
	latest := votes[0]
	for _, v := range votes[1:] {
		if v.ID > latest.ID {
			latest = v
		}
	}
	var stale []int64
	for _, v := range votes {
		if v.ID != latest.ID {
			stale = append(stale, v.ID)
		}
	}
	if len(stale) > 0 {
		if err := b.store.DeleteVotes(ctx, stale...); err != nil {
			return nil, fmt.Errorf("compact votes: %w", err)
		}
	}
	return &latest, nil
}

// Add добавляет голос без проверки уникальности
func (b *Ballots) Add(ctx context.Context, pollID, optionID, voterID int64) error {
	v := &Vote{PollID: pollID, OptionID: optionID, VoterID: voterID}
	if err := b.store.InsertVote(ctx, v); err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

// Clear снимает действующий голос пользователя, если он есть
func (b *Ballots) Clear(ctx context.Context, pollID, voterID int64) error {
	v, err := b.Current(ctx, pollID, voterID)
	if err != nil || v == nil {
		return err
	}
	if err := b.store.DeleteVotes(ctx, v.ID); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

// Tally считает уникальных голосующих по каждому варианту в порядке вариантов опроса.
// Голоса за варианты, которых нет в опросе, не учитываются.
func (b *Ballots) Tally(ctx context.Context, poll *Poll) ([]OptionTally, error) {
	votes, err := b.store.PollVotes(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("poll votes: %w", err)
	}
	latest := make(map[int64]Vote, len(votes))
	for _, v := range votes {
		if cur, ok := latest[v.VoterID]; !ok || v.ID > cur.ID {
			latest[v.VoterID] = v
		}
	}
	counts := make(map[int64]int, len(poll.Options))
	for _, v := range latest {
		counts[v.OptionID]++
	}
	tallies := make([]OptionTally, 0, len(poll.Options))
	for _, o := range poll.Options {
		tallies = append(tallies, OptionTally{Option: o, Voters: counts[o.ID]})
	}
	return tallies, nil
}

// View собирает данные для отрисовки кнопок опроса
func (b *Ballots) View(ctx context.Context, poll *Poll) (*PollView, error) {
	tallies, err := b.Tally(ctx, poll)
	if err != nil {
		return nil, err
	}
	return &PollView{PollID: poll.ID, PostID: poll.PostID, Tallies: tallies}, nil
}
