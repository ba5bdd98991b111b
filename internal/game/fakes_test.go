package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"quizdeck/internal/compute"
	"quizdeck/internal/model"
)

// In-memory collaborators. Each appends to a shared call log so tests can
// assert ordering across components.

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	log      *callLog
	sessions map[string]*model.GameSession
}

func newFakeSessionRepo(log *callLog) *fakeSessionRepo {
	return &fakeSessionRepo{log: log, sessions: make(map[string]*model.GameSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *model.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = "sess-" + s.PIN
	}
	s.CreatedAt = time.Now()
	copied := *s
	r.sessions[s.PIN] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*model.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) GetByPIN(ctx context.Context, pin string) (*model.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[pin]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *model.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.add("session.update:" + string(s.State))
	copied := *s
	r.sessions[s.PIN] = &copied
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, pin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.add("session.delete")
	delete(r.sessions, pin)
	return nil
}

func (r *fakeSessionRepo) ListStale(ctx context.Context, cutoff time.Time) ([]*model.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []*model.GameSession
	for _, s := range r.sessions {
		if !s.State.IsTerminal() && s.UpdatedAt.Before(cutoff) {
			copied := *s
			stale = append(stale, &copied)
		}
	}
	return stale, nil
}

type fakePlayerRepo struct {
	mu      sync.Mutex
	players map[string]*model.Player
	seq     int
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[string]*model.Player)}
}

func (r *fakePlayerRepo) Create(ctx context.Context, p *model.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		r.seq++
		p.ID = "player-" + string(rune('a'+r.seq))
	}
	copied := *p
	r.players[p.ID] = &copied
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakePlayerRepo) ListByPIN(ctx context.Context, pin string) ([]*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Player
	for _, p := range r.players {
		if p.PIN == pin {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) AppendAnswer(ctx context.Context, playerID string, record model.AnswerRecord, newScore, newStreak int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return errors.New("player not found")
	}
	p.Answers = append(p.Answers, record)
	p.Score = newScore
	p.Streak = newStreak
	return nil
}

func (r *fakePlayerRepo) DeleteByPIN(ctx context.Context, pin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.players {
		if p.PIN == pin {
			delete(r.players, id)
		}
	}
	return nil
}

type fakeSubmissionRepo struct{}

func (fakeSubmissionRepo) Create(ctx context.Context, s *model.Submission) error { return nil }
func (fakeSubmissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	return nil, nil
}
func (fakeSubmissionRepo) ListByPIN(ctx context.Context, pin string) ([]*model.Submission, error) {
	return nil, nil
}
func (fakeSubmissionRepo) CountByPlayer(ctx context.Context, pin, playerID string) (int, error) {
	return 0, nil
}
func (fakeSubmissionRepo) Update(ctx context.Context, s *model.Submission) error { return nil }
func (fakeSubmissionRepo) SetSelection(ctx context.Context, pin string, ids []string) error {
	return nil
}
func (fakeSubmissionRepo) DeleteByPIN(ctx context.Context, pin string) error { return nil }

type fakeSessionCache struct {
	mu       sync.Mutex
	sessions map[string]*model.GameSession
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{sessions: make(map[string]*model.GameSession)}
}

func (c *fakeSessionCache) Set(ctx context.Context, s *model.GameSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *s
	c.sessions[s.PIN] = &copied
	return nil
}

func (c *fakeSessionCache) Get(ctx context.Context, pin string) (*model.GameSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[pin]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (c *fakeSessionCache) Delete(ctx context.Context, pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, pin)
	return nil
}

type fakeRoster struct {
	mu    sync.Mutex
	names map[string]map[string]string
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{names: make(map[string]map[string]string)}
}

func (r *fakeRoster) Add(ctx context.Context, pin, playerID, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[pin] == nil {
		r.names[pin] = make(map[string]string)
	}
	r.names[pin][playerID] = nickname
	return nil
}

func (r *fakeRoster) Count(ctx context.Context, pin string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names[pin]), nil
}

func (r *fakeRoster) NicknameTaken(ctx context.Context, pin, nickname string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.names[pin] {
		if name == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRoster) Remove(ctx context.Context, pin, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names[pin], playerID)
	return nil
}

func (r *fakeRoster) Delete(ctx context.Context, pin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, pin)
	return nil
}

type fakeLeaderboard struct {
	mu       sync.Mutex
	log      *callLog
	initErr  error
	answered int
	inited   bool
}

func (l *fakeLeaderboard) Init(ctx context.Context, pin string, playerCount, questionIndex int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initErr != nil {
		return l.initErr
	}
	l.log.add("lb.init")
	l.inited = true
	l.answered = 0
	return nil
}

func (l *fakeLeaderboard) ApplyScore(ctx context.Context, pin string, event model.ScoreEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.answered++
	return nil
}

func (l *fakeLeaderboard) Snapshot(ctx context.Context, pin string, n int) (*model.LeaderboardAggregate, error) {
	return &model.LeaderboardAggregate{PIN: pin}, nil
}

func (l *fakeLeaderboard) AnsweredCount(ctx context.Context, pin string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.answered, nil
}

func (l *fakeLeaderboard) Delete(ctx context.Context, pin string) error {
	l.log.add("lb.delete")
	return nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) ToSession(pin, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) ToHost(pin, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, "host:"+event)
}

type fakeInvoker struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (i *fakeInvoker) Invoke(ctx context.Context, name string, payload any) (*compute.Response, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, name)
	if i.err != nil {
		return nil, i.err
	}
	return &compute.Response{Success: true}, nil
}
