package workflow

// Action — решение модератора по предложке. Значения короткие: они уходят
// в нагрузку кнопок, а Телеграм ограничивает её 64 байтами.
type Action string

const (
	ActionAccept         Action = "a"
	ActionAcceptWithPoll Action = "p"
	ActionDecline        Action = "d"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAccept, ActionAcceptWithPoll, ActionDecline:
		return true
	}
	return false
}

// Event приходит от транспорта. Набор событий закрыт.
type Event interface {
	event()
}

type SubmissionArrived struct {
	FileID    string
	Submitter Submitter
	Forward   *ForwardOrigin
	MessageID int
}

type ModeratorDecision struct {
	InteractionID string
	SubmissionID  int64
	Action        Action
}

// ModeratorText имеет смысл, только пока ожидается набор эмодзи
type ModeratorText struct {
	Text string
}

type ModeratorCancel struct{}

type VoteTap struct {
	InteractionID string
	PollID        int64
	OptionID      int64
	VoterID       int64
}

func (SubmissionArrived) event() {}
func (ModeratorDecision) event() {}
func (ModeratorText) event()     {}
func (ModeratorCancel) event()   {}
func (VoteTap) event()           {}
