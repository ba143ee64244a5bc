package workflow

// SubmissionState задаёт стадию жизненного цикла предложки.
// Терминальные исходы не хранятся: запись удаляется сразу после решения.
type SubmissionState string

const (
	StateNew           SubmissionState = "new"
	StateAwaitingInput SubmissionState = "wait"
)

type Decision string

const (
	DecisionNone           Decision = ""
	DecisionAccept         Decision = "decision_accept"
	DecisionAcceptWithPoll Decision = "decision_accept_with_poll"
	DecisionDecline        Decision = "decision_decline"
)

// Publishes сообщает, приводит ли решение к посту в канале
func (d Decision) Publishes() bool {
	return d == DecisionAccept || d == DecisionAcceptWithPoll
}

type Submitter struct {
	ID       int64
	Name     string
	Username string // пустой, если у отправителя нет юзернейма
}

// ForwardOrigin описывает, откуда переслана предложка. Title обязателен, Username может отсутствовать.
type ForwardOrigin struct {
	ID       int64
	Username string
	Title    string
}

// Submission хранит временное представление предложки от отправки до решения модератора.
// Нужна, чтобы перерисовывать карточку в чате модератора на каждом шаге.
type Submission struct {
	ID                 int64
	State              SubmissionState
	Submitter          Submitter
	FileID             string
	SubmitterMessageID int
	Forward            *ForwardOrigin
	CardMessageID      int
	Decision           Decision
	PostID             int // 0, пока пост не опубликован
}

// IsNew: предложка ещё не трогалась модератором
func (s *Submission) IsNew() bool {
	return s.State == StateNew && s.Decision == DecisionNone
}

// ResetToNew возвращает предложку в исходное состояние
func (s *Submission) ResetToNew() {
	s.State = StateNew
	s.Decision = DecisionNone
	s.PostID = 0
}

type Poll struct {
	ID      int64
	PostID  int
	Options []Option
}

type Option struct {
	ID     int64
	PollID int64
	Label  string
}

// Vote соответствует строке журнала голосов. ID монотонно растёт и определяет порядок вставки.
type Vote struct {
	ID       int64
	PollID   int64
	OptionID int64
	VoterID  int64
}

type OptionTally struct {
	Option Option
	Voters int
}

// PollView содержит всё для отрисовки кнопок опроса
type PollView struct {
	PollID  int64
	PostID  int
	Tallies []OptionTally
}
