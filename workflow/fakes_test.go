package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memStore держит в памяти предложки, опросы и строки состояния.
type memStore struct {
	mu          sync.Mutex
	seq         int64
	submissions map[int64]Submission
	polls       map[int64]*Poll
	options     map[int64]Option
	votes       map[int64]Vote
	session     map[int64]SessionRow
}

func newMemStore() *memStore {
	return &memStore{
		submissions: make(map[int64]Submission),
		polls:       make(map[int64]*Poll),
		options:     make(map[int64]Option),
		votes:       make(map[int64]Vote),
		session:     make(map[int64]SessionRow),
	}
}

func (m *memStore) next() int64 {
	m.seq++
	return m.seq
}

func (m *memStore) CreateSubmission(_ context.Context, s *Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.next()
	m.submissions[s.ID] = *s
	return nil
}

func (m *memStore) GetSubmission(_ context.Context, id int64) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStore) UpdateSubmission(_ context.Context, s *Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[s.ID]; !ok {
		return ErrNotFound
	}
	m.submissions[s.ID] = *s
	return nil
}

func (m *memStore) DeleteSubmission(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.submissions, id)
	return nil
}

func (m *memStore) CreatePoll(_ context.Context, labels []string) (*Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &Poll{ID: m.next()}
	for _, l := range labels {
		o := Option{ID: m.next(), PollID: p.ID, Label: l}
		m.options[o.ID] = o
		p.Options = append(p.Options, o)
	}
	m.polls[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *memStore) GetPoll(_ context.Context, id int64) (*Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetOption(_ context.Context, id int64) (*Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.options[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *memStore) SetPollPost(_ context.Context, pollID int64, postID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[pollID]
	if !ok {
		return ErrNotFound
	}
	p.PostID = postID
	return nil
}

func (m *memStore) RecentOptionSets(_ context.Context, limit int) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.polls))
	for id := range m.polls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var sets [][]string
	for _, id := range ids {
		if len(sets) == limit {
			break
		}
		var labels []string
		for _, o := range m.polls[id].Options {
			labels = append(labels, o.Label)
		}
		sets = append(sets, labels)
	}
	return sets, nil
}

func (m *memStore) InsertVote(_ context.Context, v *Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.next()
	m.votes[v.ID] = *v
	return nil
}

func (m *memStore) filterVotes(keep func(Vote) bool) []Vote {
	var out []Vote
	for _, v := range m.votes {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) VoterVotes(_ context.Context, pollID, voterID int64) ([]Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterVotes(func(v Vote) bool { return v.PollID == pollID && v.VoterID == voterID }), nil
}

func (m *memStore) PollVotes(_ context.Context, pollID int64) ([]Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterVotes(func(v Vote) bool { return v.PollID == pollID }), nil
}

func (m *memStore) DeleteVotes(_ context.Context, ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.votes, id)
	}
	return nil
}

func (m *memStore) ListSessionRows(context.Context) ([]SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]SessionRow, 0, len(m.session))
	for _, r := range m.session {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memStore) InsertSessionRow(_ context.Context, state, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next()
	m.session[id] = SessionRow{ID: id, State: state, Data: data}
	return nil
}

func (m *memStore) DeleteSessionRows(_ context.Context, ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.session, id)
	}
	return nil
}

func (m *memStore) sessionRowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.session)
}

func (m *memStore) pollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.polls)
}

// fakeTransport записывает всё, что движок отправил наружу
type fakeTransport struct {
	mu          sync.Mutex
	nextMsgID   int
	cards       map[int64]cardRender
	published   []publishCall
	pollEdits   []PollView
	submitter   []string
	moderator   []Notice
	answers     map[string]string
	failPublish error
}

type cardRender struct {
	Decision    Decision
	State       SubmissionState
	WithActions bool
	PostID      int
}

type publishCall struct {
	FileID string
	Poll   *PollView
	PostID int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		nextMsgID: 100,
		cards:     make(map[int64]cardRender),
		answers:   make(map[string]string),
	}
}

func (f *fakeTransport) SendCard(_ context.Context, s *Submission) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	f.cards[s.ID] = cardRender{Decision: s.Decision, State: s.State, WithActions: true}
	return f.nextMsgID, nil
}

func (f *fakeTransport) EditCard(_ context.Context, s *Submission, withActions bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards[s.ID] = cardRender{Decision: s.Decision, State: s.State, WithActions: withActions, PostID: s.PostID}
	return nil
}

func (f *fakeTransport) Publish(_ context.Context, fileID string, poll *PollView) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish != nil {
		return 0, f.failPublish
	}
	f.nextMsgID++
	f.published = append(f.published, publishCall{FileID: fileID, Poll: poll, PostID: f.nextMsgID})
	return f.nextMsgID, nil
}

func (f *fakeTransport) EditPollButtons(_ context.Context, poll *PollView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollEdits = append(f.pollEdits, *poll)
	return nil
}

func (f *fakeTransport) NotifySubmitter(_ context.Context, _ *Submission, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitter = append(f.submitter, text)
	return nil
}

func (f *fakeTransport) NotifyModerator(_ context.Context, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moderator = append(f.moderator, n)
	return nil
}

func (f *fakeTransport) Answer(_ context.Context, interactionID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[interactionID] = text
	return nil
}

func (f *fakeTransport) PostLink(postID int) string {
	return fmt.Sprintf("https://t.me/test_channel/%d", postID)
}

func (f *fakeTransport) lastPollEdit() PollView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollEdits[len(f.pollEdits)-1]
}

func (f *fakeTransport) lastModeratorNotice() Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moderator[len(f.moderator)-1]
}
