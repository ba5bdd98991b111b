package crowdsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"quizdeck/internal/compute"
	"quizdeck/internal/config"
	"quizdeck/internal/domain"
	"quizdeck/internal/model"
	"quizdeck/internal/security"
)

type memSessions struct {
	mu  sync.Mutex
	log *[]string
	m   map[string]*model.GameSession
}

func (r *memSessions) Create(ctx context.Context, s *model.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.m[s.PIN] = &copied
	return nil
}

func (r *memSessions) GetByID(ctx context.Context, id string) (*model.GameSession, error) {
	return nil, nil
}

func (r *memSessions) GetByPIN(ctx context.Context, pin string) (*model.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[pin]
	if !ok {
		return nil, nil
	}
	copied := *s
	if s.Crowdsource != nil {
		cs := *s.Crowdsource
		copied.Crowdsource = &cs
	}
	return &copied, nil
}

func (r *memSessions) Update(ctx context.Context, s *model.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, fmt.Sprintf("update:locked=%v", s.Crowdsource.SubmissionsLocked))
	copied := *s
	cs := *s.Crowdsource
	copied.Crowdsource = &cs
	r.m[s.PIN] = &copied
	return nil
}

func (r *memSessions) Delete(ctx context.Context, pin string) error { return nil }

func (r *memSessions) ListStale(ctx context.Context, cutoff time.Time) ([]*model.GameSession, error) {
	return nil, nil
}

type memCache struct{}

func (memCache) Set(ctx context.Context, s *model.GameSession) error { return nil }
func (memCache) Get(ctx context.Context, pin string) (*model.GameSession, error) {
	return nil, nil
}
func (memCache) Delete(ctx context.Context, pin string) error { return nil }

type memSubmissions struct {
	mu  sync.Mutex
	m   map[string]*model.Submission
	seq int
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{m: make(map[string]*model.Submission)}
}

func (r *memSubmissions) Create(ctx context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = fmt.Sprintf("sub-%d", r.seq)
	copied := *s
	r.m[s.ID] = &copied
	return nil
}

func (r *memSubmissions) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *memSubmissions) ListByPIN(ctx context.Context, pin string) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Submission
	for i := 1; i <= r.seq; i++ {
		if s, ok := r.m[fmt.Sprintf("sub-%d", i)]; ok && s.PIN == pin {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memSubmissions) CountByPlayer(ctx context.Context, pin, playerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.m {
		if s.PIN == pin && s.PlayerID == playerID {
			count++
		}
	}
	return count, nil
}

func (r *memSubmissions) Update(ctx context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.m[s.ID] = &copied
	return nil
}

func (r *memSubmissions) SetSelection(ctx context.Context, pin string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	for _, s := range r.m {
		if s.PIN == pin {
			s.AISelected = selected[s.ID]
		}
	}
	return nil
}

func (r *memSubmissions) DeleteByPIN(ctx context.Context, pin string) error { return nil }

type stubInvoker struct {
	mu      sync.Mutex
	log     *[]string
	err     error
	data    interface{}
	payload map[string]interface{}
}

func (i *stubInvoker) Invoke(ctx context.Context, name string, payload any) (*compute.Response, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	*i.log = append(*i.log, "invoke:"+name)
	raw, _ := json.Marshal(payload)
	json.Unmarshal(raw, &i.payload)
	if i.err != nil {
		return nil, i.err
	}
	raw, _ = json.Marshal(i.data)
	return &compute.Response{Success: true, Data: raw}, nil
}

type noopBroadcast struct{}

func (noopBroadcast) ToSession(pin, event string, payload interface{}) {}
func (noopBroadcast) ToHost(pin, event string, payload interface{})   {}

type fixture struct {
	svc      *Service
	log      []string
	sessions *memSessions
	subs     *memSubmissions
	invoker  *stubInvoker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.sessions = &memSessions{log: &f.log, m: make(map[string]*model.GameSession)}
	f.subs = newMemSubmissions()
	f.invoker = &stubInvoker{log: &f.log}

	f.svc = NewService(
		f.sessions,
		memCache{},
		f.subs,
		f.invoker,
		security.New(),
		noopBroadcast{},
		zap.NewNop(),
		config.Game{SubmissionCap: 3, LockGrace: "1ms"},
	)
	f.svc.sleep = func(time.Duration) { f.log = append(f.log, "grace") }

	f.sessions.m["777777"] = &model.GameSession{
		ID:                  "sess-1",
		PIN:                 "777777",
		Type:                model.ActivityQuiz,
		HostID:              "host-1",
		State:               model.StateLobby,
		ItemSubmissionsOpen: true,
		Crowdsource:         &model.CrowdsourceState{},
	}
	return f
}

func answers() [4]string {
	return [4]string{"Helsinki", "Oslo", "Stockholm", "Copenhagen"}
}

func TestSubmitCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Submit(ctx, "777777", "p1", fmt.Sprintf("Question %d?", i), answers(), 0); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if _, err := f.svc.Submit(ctx, "777777", "p1", "One too many?", answers(), 0); !errors.Is(err, domain.ErrSubmissionCap) {
		t.Fatalf("expected cap error, got %v", err)
	}
	// The cap is per player.
	if _, err := f.svc.Submit(ctx, "777777", "p2", "Fresh player?", answers(), 0); err != nil {
		t.Fatalf("other player blocked by cap: %v", err)
	}
}

func TestSubmitAfterLockRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Lock(ctx, "host-1", "777777"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Submit(ctx, "777777", "p1", "Too late?", answers(), 0); !errors.Is(err, domain.ErrSubmissionsLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestSubmitSanitizesAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, "777777", "p1", "<img src=x>What is <b>two</b> plus two?", answers(), 2)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Text != "What is two plus two?" {
		t.Fatalf("text not sanitized: %q", sub.Text)
	}

	if _, err := f.svc.Submit(ctx, "777777", "p1", "<script></script>", answers(), 0); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("markup-only text must be rejected, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, "777777", "p1", "Index?", answers(), 4); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("out-of-range correct index must be rejected, got %v", err)
	}
}

func TestEvaluateLocksBeforeInvoking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, "777777", "p1", "Capital of Norway?", answers(), 1)
	if err != nil {
		t.Fatal(err)
	}
	f.invoker.data = []evalResult{
		{ID: sub.ID, Score: 0.9, Selected: true, Reasoning: "clear and on-topic"},
	}

	if _, err := f.svc.Evaluate(ctx, "host-1", "777777", "Nordic capitals", 3); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	lockAt, graceAt, invokeAt := -1, -1, -1
	for i, entry := range f.log {
		switch entry {
		case "update:locked=true":
			if lockAt == -1 {
				lockAt = i
			}
		case "grace":
			graceAt = i
		case "invoke:" + compute.FuncEvaluateSubmissions:
			invokeAt = i
		}
	}
	if lockAt == -1 || graceAt == -1 || invokeAt == -1 {
		t.Fatalf("missing steps in %v", f.log)
	}
	if !(lockAt < graceAt && graceAt < invokeAt) {
		t.Fatalf("expected lock, then grace, then invoke; got %v", f.log)
	}

	stored, err := f.subs.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Score != 0.9 || !stored.AISelected || stored.Reasoning == "" {
		t.Fatalf("evaluation not applied: %+v", stored)
	}
	session, _ := f.sessions.GetByPIN(ctx, "777777")
	if !session.Crowdsource.Evaluated || session.Crowdsource.SelectedCount != 1 {
		t.Fatalf("session state not updated: %+v", session.Crowdsource)
	}
}

func TestEvaluatePayloadCarriesPromptAndCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, "777777", "p1", "Capital of Norway?", answers(), 1); err != nil {
		t.Fatal(err)
	}
	f.invoker.data = []evalResult{}

	if _, err := f.svc.Evaluate(ctx, "host-1", "777777", "<b>Nordic</b> capitals", 3); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if got := f.invoker.payload["topicPrompt"]; got != "Nordic capitals" {
		t.Fatalf("topicPrompt = %v, want sanitized prompt", got)
	}
	if got := f.invoker.payload["questionCount"]; got != float64(3) {
		t.Fatalf("questionCount = %v, want 3", got)
	}

	session, _ := f.sessions.GetByPIN(ctx, "777777")
	if session.Crowdsource.TopicPrompt != "Nordic capitals" {
		t.Fatalf("prompt not persisted: %q", session.Crowdsource.TopicPrompt)
	}

	// A retry without a prompt reuses the persisted one and falls back to
	// the default target count.
	if _, err := f.svc.Evaluate(ctx, "host-1", "777777", "", 0); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := f.invoker.payload["topicPrompt"]; got != "Nordic capitals" {
		t.Fatalf("retry topicPrompt = %v, want persisted prompt", got)
	}
	if got := f.invoker.payload["questionCount"]; got != float64(defaultQuestionTarget) {
		t.Fatalf("retry questionCount = %v, want default", got)
	}
}

func TestEvaluateFailureKeepsLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, "777777", "p1", "Capital of Norway?", answers(), 1); err != nil {
		t.Fatal(err)
	}
	f.invoker.err = errors.New("model unavailable")

	if _, err := f.svc.Evaluate(ctx, "host-1", "777777", "Nordic capitals", 3); err == nil {
		t.Fatal("expected evaluation failure")
	}

	session, _ := f.sessions.GetByPIN(ctx, "777777")
	if !session.Crowdsource.SubmissionsLocked {
		t.Fatal("lock must survive a failed evaluation")
	}
	if session.Crowdsource.Evaluated {
		t.Fatal("failed evaluation must not mark the session evaluated")
	}
	if _, err := f.svc.Submit(ctx, "777777", "p2", "Reopened?", answers(), 0); !errors.Is(err, domain.ErrSubmissionsLocked) {
		t.Fatalf("submissions must stay closed, got %v", err)
	}
}

func TestEvaluateRequiresHost(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Evaluate(context.Background(), "intruder", "777777", "", 0); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected not-host, got %v", err)
	}
}

func TestToggleSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, "777777", "p1", "Capital of Denmark?", answers(), 3)
	if err != nil {
		t.Fatal(err)
	}

	toggled, err := f.svc.ToggleSelection(ctx, "host-1", "777777", sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !toggled.AISelected {
		t.Fatal("toggle on failed")
	}
	session, _ := f.sessions.GetByPIN(ctx, "777777")
	if session.Crowdsource.SelectedCount != 1 {
		t.Fatalf("selected count = %d", session.Crowdsource.SelectedCount)
	}

	toggled, err = f.svc.ToggleSelection(ctx, "host-1", "777777", sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if toggled.AISelected {
		t.Fatal("toggle off failed")
	}
}

func TestSaveSelectionAppendsQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, "777777", "p1", "Capital of Norway?", answers(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Submit(ctx, "777777", "p2", "Capital of Sweden?", answers(), 2); err != nil {
		t.Fatal(err)
	}

	session, err := f.svc.SaveSelection(ctx, "host-1", "777777", []string{first.ID}, 20)
	if err != nil {
		t.Fatalf("save selection: %v", err)
	}
	if len(session.Questions) != 1 {
		t.Fatalf("expected 1 appended question, got %d", len(session.Questions))
	}
	q := session.Questions[0]
	if q.Type != model.QuestionSingleChoice || q.Prompt != "Capital of Norway?" {
		t.Fatalf("unexpected question: %+v", q)
	}
	if q.SingleChoice == nil || q.SingleChoice.CorrectIndex != 1 || q.TimeLimitSec != 20 {
		t.Fatalf("payload not carried over: %+v", q.SingleChoice)
	}
	if session.Crowdsource.SelectedCount != 1 {
		t.Fatalf("selected count = %d", session.Crowdsource.SelectedCount)
	}
}
