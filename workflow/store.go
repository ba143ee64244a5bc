package workflow

import "context"

// SubmissionStore хранит предложки. Get возвращает ErrNotFound, если записи нет.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, s *Submission) error
	GetSubmission(ctx context.Context, id int64) (*Submission, error)
	UpdateSubmission(ctx context.Context, s *Submission) error
	DeleteSubmission(ctx context.Context, id int64) error
}

// PollStore хранит опросы, варианты ответа и журнал голосов.
// Голоса только добавляются; уникальность голоса восстанавливается при чтении.
type PollStore interface {
	CreatePoll(ctx context.Context, labels []string) (*Poll, error)
	GetPoll(ctx context.Context, id int64) (*Poll, error)
	GetOption(ctx context.Context, id int64) (*Option, error)
	SetPollPost(ctx context.Context, pollID int64, postID int) error
	// RecentOptionSets возвращает подписи вариантов последних limit опросов, новые первыми
	RecentOptionSets(ctx context.Context, limit int) ([][]string, error)

	InsertVote(ctx context.Context, v *Vote) error
	VoterVotes(ctx context.Context, pollID, voterID int64) ([]Vote, error)
	PollVotes(ctx context.Context, pollID int64) ([]Vote, error)
	DeleteVotes(ctx context.Context, ids ...int64) error
}

// SessionRow хранит сырую строку состояния модератора. Пустая строка означает NULL.
type SessionRow struct {
	ID    int64
	State string
	Data  string
}

// SessionRows хранит строки состояния модератора без ограничения уникальности.
type SessionRows interface {
	ListSessionRows(ctx context.Context) ([]SessionRow, error)
	InsertSessionRow(ctx context.Context, state, data string) error
	DeleteSessionRows(ctx context.Context, ids ...int64) error
}

// Notice отправляется модератору
type Notice struct {
	Text    string
	ReplyTo int
	// быстрые варианты наборов эмодзи под полем ввода
	Suggestions []string
	// DropSuggestions убирает ранее показанные варианты
	DropSuggestions bool
}

// Transport показывает изменения движка в чатах.
type Transport interface {
	// SendCard отправляет модератору карточку новой предложки с кнопками решения
	SendCard(ctx context.Context, s *Submission) (messageID int, err error)
	EditCard(ctx context.Context, s *Submission, withActions bool) error
	// Publish публикует пост в канале; при poll == nil пост идёт без кнопок голосования
	Publish(ctx context.Context, fileID string, poll *PollView) (postID int, err error)
	EditPollButtons(ctx context.Context, poll *PollView) error
	NotifySubmitter(ctx context.Context, s *Submission, text string) error
	NotifyModerator(ctx context.Context, n Notice) error
	Answer(ctx context.Context, interactionID, text string) error
	PostLink(postID int) string
}
