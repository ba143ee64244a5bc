package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go_suggest_bot/workflow"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	rowsKey = "suggest:moderator_state"
	seqKey  = "suggest:moderator_state:seq"
)

// Store хранит строки состояния модератора в хэше Redis: поле хранит id строки, значение хранит JSON.
// Как и таблица в Postgres, хэш не ограничивает число строк, уникальность
// обеспечивает workflow.Session.
type Store struct {
	client *redis.Client
	prefix string
}

var _ workflow.SessionRows = (*Store)(nil)

type row struct {
	State *string `json:"state"`
	Data  *string `json:"data"`
}

func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	logger.Info("Redis подключён", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return New(client, ""), nil
}

// New оборачивает готового клиента. prefix отделяет ключи разных ботов в одной базе.
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ListSessionRows(ctx context.Context) ([]workflow.SessionRow, error) {
	raw, err := s.client.HGetAll(ctx, s.prefix+rowsKey).Result()
	if err != nil {
		return nil, err
	}

	out := make([]workflow.SessionRow, 0, len(raw))
	var junk []string
	for field, value := range raw {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil || id <= 0 {
			junk = append(junk, field)
			continue
		}
		out = append(out, decodeRow(id, value))
	}
	if len(junk) > 0 {
		if err := s.client.HDel(ctx, s.prefix+rowsKey, junk...).Err(); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertSessionRow(ctx context.Context, state, data string) error {
	id, err := s.client.Incr(ctx, s.prefix+seqKey).Result()
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.prefix+rowsKey, strconv.FormatInt(id, 10), encodeRow(state, data)).Err()
}

func (s *Store) DeleteSessionRows(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = strconv.FormatInt(id, 10)
	}
	return s.client.HDel(ctx, s.prefix+rowsKey, fields...).Err()
}

func encodeRow(state, data string) string {
	var r row
	if state != "" {
		r.State = &state
	}
	if data != "" {
		r.Data = &data
	}
	b, _ := json.Marshal(r)
	return string(b)
}

// decodeRow не падает на мусоре: нечитаемое значение становится строкой без
// состояния, и Session удалит её при чтении
func decodeRow(id int64, value string) workflow.SessionRow {
	out := workflow.SessionRow{ID: id}
	var r row
	if err := json.Unmarshal([]byte(value), &r); err != nil {
		return out
	}
	if r.State != nil {
		out.State = *r.State
	}
	if r.Data != nil {
		out.Data = *r.Data
	}
	return out
}
