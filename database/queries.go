package database

import (
	"context"

	"go_suggest_bot/workflow"

	"github.com/jackc/pgx/v5"
)

// ============================================
// Submissions (предложки)
// ============================================

const submissionColumns = `id, state, user_id, user_title, user_username, file_id, user_message_id,
		forwarded_from_id, forwarded_from_username, forwarded_from_title,
		admin_message_id, decision, channel_post_id`

func scanSubmission(row pgx.Row) (*workflow.Submission, error) {
	var r submissionRow
	err := row.Scan(
		&r.ID, &r.State, &r.UserID, &r.UserTitle, &r.UserUsername, &r.FileID, &r.UserMessageID,
		&r.ForwardedFromID, &r.ForwardedUsername, &r.ForwardedTitle,
		&r.AdminMessageID, &r.Decision, &r.ChannelPostID,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return r.toSubmission(), nil
}

func (db *DB) CreateSubmission(ctx context.Context, s *workflow.Submission) error {
	query := `
		INSERT INTO submission (state, user_id, user_title, user_username, file_id, user_message_id,
		                        forwarded_from_id, forwarded_from_username, forwarded_from_title,
		                        admin_message_id, decision, channel_post_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	r := fromSubmission(s)
	return db.Pool.QueryRow(ctx, query,
		r.State, r.UserID, r.UserTitle, r.UserUsername, r.FileID, r.UserMessageID,
		r.ForwardedFromID, r.ForwardedUsername, r.ForwardedTitle,
		r.AdminMessageID, r.Decision, r.ChannelPostID,
	).Scan(&s.ID)
}

func (db *DB) GetSubmission(ctx context.Context, id int64) (*workflow.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submission WHERE id = $1`
	return scanSubmission(db.Pool.QueryRow(ctx, query, id))
}

func (db *DB) UpdateSubmission(ctx context.Context, s *workflow.Submission) error {
	query := `
		UPDATE submission SET
			state = $1, admin_message_id = $2, decision = $3, channel_post_id = $4
		WHERE id = $5`

	r := fromSubmission(s)
	tag, err := db.Pool.Exec(ctx, query, r.State, r.AdminMessageID, r.Decision, r.ChannelPostID, r.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

func (db *DB) DeleteSubmission(ctx context.Context, id int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM submission WHERE id = $1`, id)
	return err
}

// ============================================
// Moderator state (состояние чата модератора)
// ============================================

func (db *DB) ListSessionRows(ctx context.Context) ([]workflow.SessionRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, COALESCE(state, ''), COALESCE(data, '')
		FROM moderator_state
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []workflow.SessionRow
	for rows.Next() {
		var r workflow.SessionRow
		if err := rows.Scan(&r.ID, &r.State, &r.Data); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) InsertSessionRow(ctx context.Context, state, data string) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO moderator_state (state, data) VALUES ($1, $2)`,
		nullable(state), nullable(data))
	return err
}

func (db *DB) DeleteSessionRows(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Pool.Exec(ctx, `DELETE FROM moderator_state WHERE id = ANY($1)`, ids)
	return err
}
