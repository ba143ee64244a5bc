package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"go_suggest_bot/workflow"
)

// Нагрузка кнопки ограничена 64 байтами, поэтому ключи однобуквенные:
// решение модератора {"a":"p","s":12}, голос {"a":"v","p":3,"o":7}.
const actionVote = "v"

var errBadCallback = errors.New("bad callback data")

type callbackData struct {
	Action     string `json:"a"`
	Submission int64  `json:"s,omitempty"`
	Poll       int64  `json:"p,omitempty"`
	Option     int64  `json:"o,omitempty"`
}

func encodeDecision(submissionID int64, action workflow.Action) string {
	return encodeCallback(callbackData{Action: string(action), Submission: submissionID})
}

func encodeVote(pollID, optionID int64) string {
	return encodeCallback(callbackData{Action: actionVote, Poll: pollID, Option: optionID})
}

func encodeCallback(d callbackData) string {
	b, _ := json.Marshal(d)
	return string(b)
}

// decodeCallback превращает нажатие кнопки в событие движка
func decodeCallback(interactionID string, from int64, data string) (workflow.Event, error) {
	var d callbackData
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadCallback, err)
	}

	if d.Action == actionVote {
		if d.Poll <= 0 || d.Option <= 0 {
			return nil, fmt.Errorf("%w: vote %q", errBadCallback, data)
		}
		return workflow.VoteTap{
			InteractionID: interactionID,
			PollID:        d.Poll,
			OptionID:      d.Option,
			VoterID:       from,
		}, nil
	}

	action := workflow.Action(d.Action)
	if !action.Valid() || d.Submission <= 0 {
		return nil, fmt.Errorf("%w: decision %q", errBadCallback, data)
	}
	return workflow.ModeratorDecision{
		InteractionID: interactionID,
		SubmissionID:  d.Submission,
		Action:        action,
	}, nil
}
