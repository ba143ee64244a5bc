package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SessionState описывает незавершённую операцию, которую модератор должен довести до конца.
// Набор состояний закрыт: реализации есть только в этом пакете.
type SessionState interface {
	kind() string
}

// AwaitingEmojiSet — бот ждёт от модератора набор эмодзи для опроса
type AwaitingEmojiSet struct {
	SubmissionID int64
}

const kindAwaitingEmojiSet = "wait_buttons"

func (AwaitingEmojiSet) kind() string { return kindAwaitingEmojiSet }

type awaitingEmojiSetData struct {
	SubmissionID *int64 `json:"suggestion_id"`
}

func encodeSessionState(st SessionState) (string, string, error) {
	switch v := st.(type) {
	case AwaitingEmojiSet:
		id := v.SubmissionID
		data, err := json.Marshal(awaitingEmojiSetData{SubmissionID: &id})
		if err != nil {
			return "", "", err
		}
		return v.kind(), string(data), nil
	default:
		return "", "", fmt.Errorf("unknown session state %T", st)
	}
}

var errMalformedSession = errors.New("malformed session state")

func decodeSessionState(state, data string) (SessionState, error) {
	switch state {
	case kindAwaitingEmojiSet:
		dec := json.NewDecoder(bytes.NewReader([]byte(data)))
		dec.DisallowUnknownFields()
		var payload awaitingEmojiSetData
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedSession, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: trailing data", errMalformedSession)
		}
		if payload.SubmissionID == nil || *payload.SubmissionID <= 0 {
			return nil, fmt.Errorf("%w: suggestion_id missing", errMalformedSession)
		}
		return AwaitingEmojiSet{SubmissionID: *payload.SubmissionID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown state %q", errMalformedSession, state)
	}
}

// Session управляет единственным слотом состояния чата модератора.
//
// Хранилище не гарантирует, что строка одна: после падения или гонки строк может
// оказаться несколько. Поэтому перед каждым чтением и после каждой записи выполняется
// санитизация: если строк больше одной, удаляются все. Строка с пустыми полями или
// с данными, не подходящими под своё состояние, удаляется при чтении.
type Session struct {
	rows SessionRows
}

func NewSession(rows SessionRows) *Session {
	return &Session{rows: rows}
}

// sanitize возвращает оставшиеся строки: ноль или одну
func (s *Session) sanitize(ctx context.Context) ([]SessionRow, error) {
	rows, err := s.rows.ListSessionRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session rows: %w", err)
	}
	if len(rows) <= 1 {
		return rows, nil
	}
	if err := s.rows.DeleteSessionRows(ctx, rowIDs(rows)...); err != nil {
		return nil, fmt.Errorf("purge session rows: %w", err)
	}
	return nil, nil
}

// Read возвращает текущее состояние или nil
func (s *Session) Read(ctx context.Context) (SessionState, error) {
	rows, err := s.sanitize(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	if row.State == "" || row.Data == "" {
		return nil, s.drop(ctx, row)
	}
	st, err := decodeSessionState(row.State, row.Data)
	if err != nil {
		return nil, s.drop(ctx, row)
	}
	return st, nil
}

// Write заменяет текущее состояние новым
func (s *Session) Write(ctx context.Context, st SessionState) error {
	state, data, err := encodeSessionState(st)
	if err != nil {
		return err
	}
	rows, err := s.sanitize(ctx)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := s.rows.DeleteSessionRows(ctx, rowIDs(rows)...); err != nil {
			return fmt.Errorf("delete session rows: %w", err)
		}
	}
	if err := s.rows.InsertSessionRow(ctx, state, data); err != nil {
		return fmt.Errorf("insert session row: %w", err)
	}
	_, err = s.sanitize(ctx)
	return err
}

func (s *Session) Clear(ctx context.Context) error {
	rows, err := s.sanitize(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.rows.DeleteSessionRows(ctx, rowIDs(rows)...); err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	return nil
}

func (s *Session) drop(ctx context.Context, row SessionRow) error {
	if err := s.rows.DeleteSessionRows(ctx, row.ID); err != nil {
		return fmt.Errorf("drop invalid session row: %w", err)
	}
	return nil
}

func rowIDs(rows []SessionRow) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}
