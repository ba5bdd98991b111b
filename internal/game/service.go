// Package game owns the live session lifecycle. Every state change flows
// through this service so the transition tables stay authoritative, whether
// the trigger is a host action, the question timer, or stale-session
// cleanup.
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quizdeck/internal/cache"
	"quizdeck/internal/compute"
	"quizdeck/internal/config"
	"quizdeck/internal/domain"
	"quizdeck/internal/model"
	"quizdeck/internal/question"
	"quizdeck/internal/repository"
	"quizdeck/internal/security"
	"quizdeck/internal/timer"
)

// Broadcaster pushes realtime events to session participants.
type Broadcaster interface {
	ToSession(pin, event string, payload interface{})
	ToHost(pin, event string, payload interface{})
}

// FinishReason records what ended a question phase.
type FinishReason string

const (
	FinishManual      FinishReason = "manual"
	FinishTimeout     FinishReason = "timeout"
	FinishAllAnswered FinishReason = "all_answered"
)

// Service runs the game session state machine.
type Service struct {
	sessions     repository.SessionRepo
	players      repository.PlayerRepo
	submissions  repository.SubmissionRepo
	sessionCache cache.SessionCache
	roster       cache.RosterCache
	leaderboard  cache.Leaderboard
	registry     *question.Registry
	compute      compute.Invoker
	broadcast    Broadcaster
	sanitizer    *security.Sanitizer
	logger       *zap.Logger
	cfg          config.Game

	mu     sync.Mutex
	timers map[string]*timer.Timer

	// onQuestionFinished runs after every question close, manual or
	// timer-driven. Wired at startup to record timed-out players.
	onQuestionFinished func(ctx context.Context, session *model.GameSession, reason FinishReason)
}

// NewService wires the state machine to its collaborators.
func NewService(
	sessions repository.SessionRepo,
	players repository.PlayerRepo,
	submissions repository.SubmissionRepo,
	sessionCache cache.SessionCache,
	roster cache.RosterCache,
	leaderboard cache.Leaderboard,
	registry *question.Registry,
	invoker compute.Invoker,
	broadcast Broadcaster,
	sanitizer *security.Sanitizer,
	logger *zap.Logger,
	cfg config.Game,
) *Service {
	return &Service{
		sessions:     sessions,
		players:      players,
		submissions:  submissions,
		sessionCache: sessionCache,
		roster:       roster,
		leaderboard:  leaderboard,
		registry:     registry,
		compute:      invoker,
		broadcast:    broadcast,
		sanitizer:    sanitizer,
		logger:       logger,
		cfg:          cfg,
		timers:       make(map[string]*timer.Timer),
	}
}

// SetOnQuestionFinished installs the question-close hook.
func (s *Service) SetOnQuestionFinished(fn func(ctx context.Context, session *model.GameSession, reason FinishReason)) {
	s.onQuestionFinished = fn
}

// GetSession reads the live session, cache first.
func (s *Service) GetSession(ctx context.Context, pin string) (*model.GameSession, error) {
	session, err := s.sessionCache.Get(ctx, pin)
	if err != nil {
		s.logger.Warn("session cache read failed", zap.String("pin", pin), zap.Error(err))
	}
	if session != nil {
		return session, nil
	}
	session, err = s.sessions.GetByPIN(ctx, pin)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func (s *Service) saveSession(ctx context.Context, session *model.GameSession) error {
	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache write failed", zap.String("pin", session.PIN), zap.Error(err))
	}
	return nil
}

func requireHost(session *model.GameSession, hostID string) error {
	if session.HostID != hostID {
		return domain.ErrNotHost
	}
	return nil
}

// CreateSession snapshots the activity's questions into a new lobby
// session. The snapshot is sanitized once here so mid-play activity edits
// and markup in prompts can never reach players.
func (s *Service) CreateSession(ctx context.Context, hostID string, activity *model.Activity) (*model.GameSession, error) {
	if activity.HostID != hostID {
		return nil, domain.ErrPermissionDenied
	}
	for i := range activity.Questions {
		if err := question.Validate(&activity.Questions[i]); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}

	pin, err := s.generatePIN(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session pin: %w", err)
	}

	session := &model.GameSession{
		PIN:          pin,
		ActivityID:   activity.ID,
		Type:         activity.Type,
		HostID:       hostID,
		Title:        s.sanitizer.Clean(activity.Title),
		State:        model.StateLobby,
		CurrentIndex: -1,
		Questions:    s.snapshotQuestions(activity.Questions),
	}
	if activity.Type == model.ActivityQuiz {
		session.Crowdsource = &model.CrowdsourceState{}
		session.ItemSubmissionsOpen = true
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache write failed", zap.String("pin", pin), zap.Error(err))
	}

	s.logger.Info("session created",
		zap.String("pin", pin),
		zap.String("activityId", activity.ID),
		zap.String("type", string(activity.Type)))
	return session, nil
}

func (s *Service) snapshotQuestions(questions []model.Question) []model.Question {
	snapshot := make([]model.Question, len(questions))
	copy(snapshot, questions)
	for i := range snapshot {
		snapshot[i].Prompt = s.sanitizer.Clean(snapshot[i].Prompt)
	}
	return snapshot
}

// Join adds a player to a non-terminal session.
func (s *Service) Join(ctx context.Context, pin, nickname string) (*model.Player, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() {
		return nil, domain.ErrSessionEnded
	}

	nickname = s.sanitizer.CleanNickname(nickname)
	if nickname == "" {
		return nil, domain.ErrInvalidNickname
	}
	taken, err := s.roster.NicknameTaken(ctx, pin, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to check nickname: %w", err)
	}
	if taken {
		return nil, domain.ErrNicknameTaken
	}

	player := &model.Player{
		PIN:      pin,
		Nickname: nickname,
		JoinedAt: time.Now(),
	}
	if err := s.players.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	if err := s.roster.Add(ctx, pin, player.ID, nickname); err != nil {
		return nil, fmt.Errorf("failed to add to roster: %w", err)
	}

	count, _ := s.roster.Count(ctx, pin)
	s.broadcast.ToSession(pin, "player_joined", map[string]interface{}{
		"playerId":    player.ID,
		"nickname":    nickname,
		"playerCount": count,
	})
	return player, nil
}

// Start moves a lobby session into its first active state.
func (s *Service) Start(ctx context.Context, hostID, pin string) (*model.GameSession, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := requireHost(session, hostID); err != nil {
		return nil, err
	}
	target, ok := firstActiveState[session.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown activity type %q", domain.ErrInvalidTransition, session.Type)
	}
	if err := checkTransition(session.Type, session.State, target); err != nil {
		return nil, err
	}

	session.State = target
	if target == model.StateCollecting {
		session.SubmissionsOpen = true
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast.ToSession(pin, "state_changed", map[string]interface{}{"state": session.State})
	return session, nil
}

// StartQuestion activates a question. The leaderboard aggregate is
// initialized before the state flip is persisted: if players see the
// question state, the aggregate they are about to write into exists.
func (s *Service) StartQuestion(ctx context.Context, hostID, pin string, index int) (*model.GameSession, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := requireHost(session, hostID); err != nil {
		return nil, err
	}
	if err := checkTransition(session.Type, session.State, model.StateQuestion); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(session.Questions) {
		return nil, fmt.Errorf("%w: question index %d out of range", domain.ErrInvalidTransition, index)
	}
	q := &session.Questions[index]
	if _, err := s.registry.Handler(q.Type); err != nil {
		return nil, err
	}

	playerCount, err := s.roster.Count(ctx, pin)
	if err != nil {
		return nil, fmt.Errorf("failed to count roster: %w", err)
	}
	if err := s.leaderboard.Init(ctx, pin, playerCount, index); err != nil {
		return nil, fmt.Errorf("failed to init leaderboard: %w", err)
	}

	now := time.Now()
	session.State = model.StateQuestion
	session.CurrentIndex = index
	session.QuestionStartTime = &now
	session.SubmissionsOpen = true
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	s.activateTimer(pin, index, q, &now)
	s.broadcast.ToSession(pin, "question_started", map[string]interface{}{
		"index":        index,
		"type":         q.Type,
		"startTime":    now,
		"timeLimitSec": q.TimeLimitSec,
	})
	return session, nil
}

// ShowSlide moves a presentation to a slide.
func (s *Service) ShowSlide(ctx context.Context, hostID, pin string, index int) (*model.GameSession, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := requireHost(session, hostID); err != nil {
		return nil, err
	}
	if err := checkTransition(session.Type, session.State, model.StateSlide); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(session.Questions) {
		return nil, fmt.Errorf("%w: slide index %d out of range", domain.ErrInvalidTransition, index)
	}

	s.stopTimer(pin)
	session.State = model.StateSlide
	session.CurrentIndex = index
	session.QuestionStartTime = nil
	session.SubmissionsOpen = false
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast.ToSession(pin, "state_changed", map[string]interface{}{
		"state": session.State,
		"index": index,
	})
	return session, nil
}

// FinishQuestion is the host-triggered question close. Timer expiry and
// the all-answered early finish land in the same place, so every path out
// of the question state is identical.
func (s *Service) FinishQuestion(ctx context.Context, hostID, pin string) (*model.GameSession, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := requireHost(session, hostID); err != nil {
		return nil, err
	}
	return s.finishQuestion(ctx, session, FinishManual)
}

func (s *Service) finishQuestion(ctx context.Context, session *model.GameSession, reason FinishReason) (*model.GameSession, error) {
	if session.State != model.StateQuestion {
		// The timer can race a manual finish; the loser is a no-op.
		return session, nil
	}
	if err := checkTransition(session.Type, session.State, model.StateLeaderboard); err != nil {
		return nil, err
	}

	s.stopTimer(session.PIN)
	session.State = model.StateLeaderboard
	session.SubmissionsOpen = false
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	if s.onQuestionFinished != nil {
		s.onQuestionFinished(ctx, session, reason)
	}

	agg, err := s.leaderboard.Snapshot(ctx, session.PIN, s.cfg.LeaderboardSize)
	if err != nil {
		s.logger.Warn("leaderboard snapshot failed", zap.String("pin", session.PIN), zap.Error(err))
	}
	s.broadcast.ToSession(session.PIN, "question_finished", map[string]interface{}{
		"index":       session.CurrentIndex,
		"reason":      reason,
		"leaderboard": agg,
	})
	return session, nil
}

// autoFinish is the timer callback path.
func (s *Service) autoFinish(pin string, index int, reason FinishReason) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session, err := s.GetSession(ctx, pin)
	if err != nil {
		s.logger.Warn("auto finish lookup failed", zap.String("pin", pin), zap.Error(err))
		return
	}
	if session.CurrentIndex != index {
		return // host already moved on
	}
	if _, err := s.finishQuestion(ctx, session, reason); err != nil {
		s.logger.Error("auto finish failed", zap.String("pin", pin), zap.Error(err))
	}
}

func (s *Service) activateTimer(pin string, index int, q *model.Question, start *time.Time) {
	if q.TimeLimitSec <= 0 {
		return // untimed question, host closes it manually
	}
	s.mu.Lock()
	t, ok := s.timers[pin]
	if !ok {
		t = timer.New()
		s.timers[pin] = t
	}
	s.mu.Unlock()

	t.Activate(timer.Config{
		TimeLimitSec:  q.TimeLimitSec,
		QuestionIndex: index,
		StartTime:     start,
		Roster: func() (int, int) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			answered, err := s.leaderboard.AnsweredCount(ctx, pin)
			if err != nil {
				return 0, 0
			}
			total, err := s.roster.Count(ctx, pin)
			if err != nil {
				return 0, 0
			}
			return answered, total
		},
		OnTick: func(remaining int) {
			s.broadcast.ToHost(pin, "timer_tick", map[string]interface{}{
				"index":     index,
				"remaining": remaining,
			})
		},
		OnAutoFinish: func() {
			s.autoFinish(pin, index, FinishTimeout)
		},
	})
}

func (s *Service) stopTimer(pin string) {
	s.mu.Lock()
	t, ok := s.timers[pin]
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

func (s *Service) dropTimer(pin string) {
	s.mu.Lock()
	t, ok := s.timers[pin]
	delete(s.timers, pin)
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// Advance performs a plain host transition (leaderboard to the next
// preparing screen, display back to collecting, results onward).
func (s *Service) Advance(ctx context.Context, hostID, pin string, target model.SessionState) (*model.GameSession, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := requireHost(session, hostID); err != nil {
		return nil, err
	}
	if target == model.StateQuestion || target == model.StateSlide {
		return nil, fmt.Errorf("%w: use the dedicated question/slide operations", domain.ErrInvalidTransition)
	}
	if err := checkTransition(session.Type, session.State, target); err != nil {
		return nil, err
	}

	session.State = target
	if target == model.StateCollecting {
		session.SubmissionsOpen = true
	}
	if target.IsTerminal() {
		s.dropTimer(pin)
		session.SubmissionsOpen = false
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast.ToSession(pin, "state_changed", map[string]interface{}{"state": session.State})
	return session, nil
}

// StartRanking closes collection and opens the player ranking phase.
func (s *Service) StartRanking(ctx context.Context, hostID, pin string) (*model.GameSession, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := requireHost(session, hostID); err != nil {
		return nil, err
	}
	if err := checkTransition(session.Type, session.State, model.StateRanking); err != nil {
		return nil, err
	}

	session.State = model.StateRanking
	session.SubmissionsOpen = false
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast.ToSession(pin, "state_changed", map[string]interface{}{"state": session.State})
	return session, nil
}

// EndRanking runs the compute-backed analyzing phase. On compute failure
// the session reverts to the ranking state so the host can retry.
func (s *Service) EndRanking(ctx context.Context, hostID, pin string) (*model.GameSession, error) {
	return s.computeTransition(ctx, hostID, pin,
		model.StateAnalyzing, model.StateResults,
		compute.FuncComputeRankingResults)
}

// EndCollecting runs the compute-backed processing phase for gathering
// activities. On compute failure the session reverts to collecting.
func (s *Service) EndCollecting(ctx context.Context, hostID, pin string) (*model.GameSession, error) {
	fn := compute.FuncComputeEvaluationResults
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.Type == model.ActivityThoughts {
		fn = compute.FuncExtractTopics
	}
	return s.computeTransition(ctx, hostID, pin,
		model.StateProcessing, model.StateDisplay, fn)
}

// computeTransition flips into the intermediate state, invokes the remote
// function, then completes or rolls back. The intermediate state is
// persisted first so clients can show progress, but a failure always lands
// back where the host started.
func (s *Service) computeTransition(ctx context.Context, hostID, pin string, intermediate, final model.SessionState, fn string) (*model.GameSession, error) {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := requireHost(session, hostID); err != nil {
		return nil, err
	}
	prior := session.State
	if err := checkTransition(session.Type, prior, intermediate); err != nil {
		return nil, err
	}

	session.State = intermediate
	session.SubmissionsOpen = false
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast.ToSession(pin, "state_changed", map[string]interface{}{"state": session.State})

	resp, err := s.compute.Invoke(ctx, fn, map[string]interface{}{
		"pin":        pin,
		"activityId": session.ActivityID,
	})
	if err != nil {
		session.State = prior
		if revertErr := s.saveSession(ctx, session); revertErr != nil {
			s.logger.Error("state rollback failed",
				zap.String("pin", pin),
				zap.Error(revertErr))
		}
		s.broadcast.ToSession(pin, "state_changed", map[string]interface{}{"state": session.State})
		return nil, fmt.Errorf("%s failed: %w", fn, err)
	}

	session.State = final
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast.ToSession(pin, "state_changed", map[string]interface{}{
		"state":   session.State,
		"results": resp.Data,
	})
	return session, nil
}

// End transitions the session to its terminal state. The document stays
// around for results until cleanup reaps it.
func (s *Service) End(ctx context.Context, hostID, pin string) (*model.GameSession, error) {
	return s.Advance(ctx, hostID, pin, model.StateEnded)
}

// Cancel deletes the session and everything attached to it, regardless of
// state. There is no confirmation step here; the transport owns that.
func (s *Service) Cancel(ctx context.Context, hostID, pin string) error {
	session, err := s.GetSession(ctx, pin)
	if err != nil {
		return err
	}
	if err := requireHost(session, hostID); err != nil {
		return err
	}
	return s.cancel(ctx, session)
}

func (s *Service) cancel(ctx context.Context, session *model.GameSession) error {
	pin := session.PIN
	s.dropTimer(pin)

	if err := s.sessions.Delete(ctx, pin); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := s.sessionCache.Delete(ctx, pin); err != nil {
		s.logger.Warn("session cache delete failed", zap.String("pin", pin), zap.Error(err))
	}
	if err := s.leaderboard.Delete(ctx, pin); err != nil {
		s.logger.Warn("leaderboard delete failed", zap.String("pin", pin), zap.Error(err))
	}
	if err := s.roster.Delete(ctx, pin); err != nil {
		s.logger.Warn("roster delete failed", zap.String("pin", pin), zap.Error(err))
	}
	if err := s.players.DeleteByPIN(ctx, pin); err != nil {
		s.logger.Warn("player delete failed", zap.String("pin", pin), zap.Error(err))
	}
	if err := s.submissions.DeleteByPIN(ctx, pin); err != nil {
		s.logger.Warn("submission delete failed", zap.String("pin", pin), zap.Error(err))
	}

	s.broadcast.ToSession(pin, "session_cancelled", nil)
	s.logger.Info("session cancelled", zap.String("pin", pin))
	return nil
}

// CleanupStale cancels non-terminal sessions untouched for longer than
// the configured TTL. Run from the cleanup command and the periodic loop.
func (s *Service) CleanupStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.StaleSessionDuration())
	stale, err := s.sessions.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	cleaned := 0
	for _, session := range stale {
		if err := s.cancel(ctx, session); err != nil {
			s.logger.Error("stale cleanup failed",
				zap.String("pin", session.PIN),
				zap.Error(err))
			continue
		}
		cleaned++
	}
	return cleaned, nil
}
