package database

import (
	"context"
	"fmt"

	"go_suggest_bot/workflow"

	"github.com/jackc/pgx/v5"
)

// CreatePoll создаёт опрос с вариантами в одной транзакции
func (db *DB) CreatePoll(ctx context.Context, labels []string) (*workflow.Poll, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var p workflow.Poll
	if err := tx.QueryRow(ctx, `INSERT INTO poll DEFAULT VALUES RETURNING id`).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("insert poll: %w", err)
	}
	for i, label := range labels {
		o := workflow.Option{PollID: p.ID, Label: label}
		err := tx.QueryRow(ctx,
			`INSERT INTO poll_option (poll_id, position, text) VALUES ($1, $2, $3) RETURNING id`,
			p.ID, i, label,
		).Scan(&o.ID)
		if err != nil {
			return nil, fmt.Errorf("insert option: %w", err)
		}
		p.Options = append(p.Options, o)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) GetPoll(ctx context.Context, id int64) (*workflow.Poll, error) {
	var (
		p      workflow.Poll
		postID *int
	)
	err := db.Pool.QueryRow(ctx, `SELECT id, message_id FROM poll WHERE id = $1`, id).Scan(&p.ID, &postID)
	if err != nil {
		return nil, notFound(err)
	}
	p.PostID = derefInt(postID)

	rows, err := db.Pool.Query(ctx, `
		SELECT id, poll_id, text FROM poll_option
		WHERE poll_id = $1
		ORDER BY position, id`, id)
	if err != nil {
		return nil, err
	}
	p.Options, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (workflow.Option, error) {
		var o workflow.Option
		err := row.Scan(&o.ID, &o.PollID, &o.Label)
		return o, err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) GetOption(ctx context.Context, id int64) (*workflow.Option, error) {
	var o workflow.Option
	err := db.Pool.QueryRow(ctx, `SELECT id, poll_id, text FROM poll_option WHERE id = $1`, id).
		Scan(&o.ID, &o.PollID, &o.Label)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (db *DB) SetPollPost(ctx context.Context, pollID int64, postID int) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE poll SET message_id = $1 WHERE id = $2`, postID, pollID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

func (db *DB) RecentOptionSets(ctx context.Context, limit int) ([][]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT p.id, o.text
		FROM (SELECT id FROM poll ORDER BY id DESC LIMIT $1) p
		JOIN poll_option o ON o.poll_id = p.id
		ORDER BY p.id DESC, o.position, o.id`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		sets   [][]string
		lastID int64
	)
	for rows.Next() {
		var (
			pollID int64
			label  string
		)
		if err := rows.Scan(&pollID, &label); err != nil {
			return nil, err
		}
		if len(sets) == 0 || pollID != lastID {
			sets = append(sets, nil)
			lastID = pollID
		}
		sets[len(sets)-1] = append(sets[len(sets)-1], label)
	}
	return sets, rows.Err()
}

// ============================================
// Votes (журнал голосов)
// ============================================

func (db *DB) InsertVote(ctx context.Context, v *workflow.Vote) error {
	return db.Pool.QueryRow(ctx,
		`INSERT INTO poll_vote (poll_id, option_id, user_id) VALUES ($1, $2, $3) RETURNING id`,
		v.PollID, v.OptionID, v.VoterID,
	).Scan(&v.ID)
}

func (db *DB) VoterVotes(ctx context.Context, pollID, voterID int64) ([]workflow.Vote, error) {
	return db.queryVotes(ctx, `
		SELECT id, poll_id, option_id, user_id FROM poll_vote
		WHERE poll_id = $1 AND user_id = $2
		ORDER BY id`, pollID, voterID)
}

func (db *DB) PollVotes(ctx context.Context, pollID int64) ([]workflow.Vote, error) {
	return db.queryVotes(ctx, `
		SELECT id, poll_id, option_id, user_id FROM poll_vote
		WHERE poll_id = $1
		ORDER BY id`, pollID)
}

func (db *DB) queryVotes(ctx context.Context, query string, args ...any) ([]workflow.Vote, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (workflow.Vote, error) {
		var v workflow.Vote
		err := row.Scan(&v.ID, &v.PollID, &v.OptionID, &v.VoterID)
		return v, err
	})
}

func (db *DB) DeleteVotes(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Pool.Exec(ctx, `DELETE FROM poll_vote WHERE id = ANY($1)`, ids)
	return err
}
