package database

import "go_suggest_bot/workflow"

// submissionRow повторяет строку таблицы submission, nullable-колонки через указатели
type submissionRow struct {
	ID                int64
	State             string
	UserID            int64
	UserTitle         string
	UserUsername      *string
	FileID            string
	UserMessageID     int
	ForwardedFromID   *int64
	ForwardedUsername *string
	ForwardedTitle    *string
	AdminMessageID    *int
	Decision          *string
	ChannelPostID     *int
}

func (r *submissionRow) toSubmission() *workflow.Submission {
	s := &workflow.Submission{
		ID:    r.ID,
		State: workflow.SubmissionState(r.State),
		Submitter: workflow.Submitter{
			ID:       r.UserID,
			Name:     r.UserTitle,
			Username: deref(r.UserUsername),
		},
		FileID:             r.FileID,
		SubmitterMessageID: r.UserMessageID,
		CardMessageID:      derefInt(r.AdminMessageID),
		Decision:           workflow.Decision(deref(r.Decision)),
		PostID:             derefInt(r.ChannelPostID),
	}
	// Переслано, если есть название источника
	if r.ForwardedTitle != nil {
		s.Forward = &workflow.ForwardOrigin{
			Title:    *r.ForwardedTitle,
			Username: deref(r.ForwardedUsername),
		}
		if r.ForwardedFromID != nil {
			s.Forward.ID = *r.ForwardedFromID
		}
	}
	return s
}

func fromSubmission(s *workflow.Submission) submissionRow {
	r := submissionRow{
		ID:             s.ID,
		State:          string(s.State),
		UserID:         s.Submitter.ID,
		UserTitle:      s.Submitter.Name,
		UserUsername:   nullable(s.Submitter.Username),
		FileID:         s.FileID,
		UserMessageID:  s.SubmitterMessageID,
		AdminMessageID: nullableInt(s.CardMessageID),
		Decision:       nullable(string(s.Decision)),
		ChannelPostID:  nullableInt(s.PostID),
	}
	if f := s.Forward; f != nil {
		r.ForwardedTitle = &f.Title
		r.ForwardedUsername = nullable(f.Username)
		if f.ID != 0 {
			id := f.ID
			r.ForwardedFromID = &id
		}
	}
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
