package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizdeck/internal/cache"
	"quizdeck/internal/domain"
	"quizdeck/internal/model"
	"quizdeck/internal/question"
	"quizdeck/internal/repository"
	"quizdeck/internal/scoring"
)

// AnswerService is the authoritative scoring path. Clients submit raw
// answers; every point on a player document or the leaderboard aggregate
// was computed here.
type AnswerService struct {
	sessions     repository.SessionRepo
	sessionCache cache.SessionCache
	players      repository.PlayerRepo
	leaderboard  cache.Leaderboard
	registry     *question.Registry
	broadcast    Broadcaster
	logger       *zap.Logger
	now          func() time.Time
}

func NewAnswerService(
	sessions repository.SessionRepo,
	sessionCache cache.SessionCache,
	players repository.PlayerRepo,
	leaderboard cache.Leaderboard,
	registry *question.Registry,
	broadcast Broadcaster,
	logger *zap.Logger,
) *AnswerService {
	return &AnswerService{
		sessions:     sessions,
		sessionCache: sessionCache,
		players:      players,
		leaderboard:  leaderboard,
		registry:     registry,
		broadcast:    broadcast,
		logger:       logger,
		now:          time.Now,
	}
}

// SubmitResult is the scored outcome returned to the submitting player.
type SubmitResult struct {
	Points     int  `json:"points"`
	Correct    bool `json:"correct"`
	TotalScore int  `json:"totalScore"`
	Streak     int  `json:"streak"`
}

func (s *AnswerService) getSession(ctx context.Context, pin string) (*model.GameSession, error) {
	session, err := s.sessionCache.Get(ctx, pin)
	if err != nil {
		s.logger.Warn("session cache read failed", zap.String("pin", pin), zap.Error(err))
	}
	if session == nil {
		session, err = s.sessions.GetByPIN(ctx, pin)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

// Submit validates, scores and records one answer. A second submission for
// the same question is rejected, and the leaderboard event is keyed by
// player and question index so a retried request cannot double-count.
func (s *AnswerService) Submit(ctx context.Context, pin, playerID string, questionIndex int, answer model.AnswerValue) (*SubmitResult, error) {
	session, err := s.getSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() {
		return nil, domain.ErrSessionEnded
	}
	if session.State != model.StateQuestion || !session.SubmissionsOpen {
		return nil, domain.ErrSubmissionsLocked
	}
	if questionIndex != session.CurrentIndex {
		return nil, fmt.Errorf("%w: question %d is not active", domain.ErrInvalidAnswer, questionIndex)
	}
	q := session.CurrentQuestion()
	if q == nil {
		return nil, fmt.Errorf("%w: no active question", domain.ErrInvalidAnswer)
	}

	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || player.PIN != pin {
		return nil, domain.ErrNotFound
	}
	if player.HasAnswered(questionIndex) {
		return nil, fmt.Errorf("%w: already answered", domain.ErrInvalidAnswer)
	}

	handler, err := s.registry.Handler(q.Type)
	if err != nil {
		return nil, err
	}
	if err := handler.ValidateAnswer(q, answer); err != nil {
		return nil, err
	}

	now := s.now()
	remaining := timeRemaining(session.QuestionStartTime, q.TimeLimitSec, now)
	points := handler.CalculateScore(q, answer, remaining)
	correct := handler.IsCorrect(q, answer)

	newScore := player.Score + points
	newStreak := player.Streak
	if handler.HasCorrectAnswer() {
		newStreak = scoring.NextStreak(player.Streak, correct)
	}

	record := model.AnswerRecord{
		QuestionIndex: questionIndex,
		QuestionType:  q.Type,
		Answer:        answer,
		Points:        points,
		Correct:       correct,
		AnsweredAtMS:  now.UnixMilli(),
	}
	if err := s.players.AppendAnswer(ctx, playerID, record, newScore, newStreak); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	event := model.ScoreEvent{
		EventID:       fmt.Sprintf("%s-q%d", playerID, questionIndex),
		PlayerID:      playerID,
		Nickname:      player.Nickname,
		QuestionIndex: questionIndex,
		Points:        points,
		TotalScore:    newScore,
		Streak:        newStreak,
		OptionKey:     optionKey(answer),
		ScoredAtMS:    now.UnixMilli(),
	}
	if err := s.leaderboard.ApplyScore(ctx, pin, event); err != nil {
		// The durable record exists; the aggregate is rebuilt at the next
		// phase start, so log and keep going.
		s.logger.Error("aggregate update failed", zap.String("pin", pin), zap.Error(err))
	}

	answered, _ := s.leaderboard.AnsweredCount(ctx, pin)
	s.broadcast.ToHost(pin, "player_answered", map[string]interface{}{
		"playerId":      playerID,
		"index":         questionIndex,
		"answeredCount": answered,
	})

	return &SubmitResult{
		Points:     points,
		Correct:    correct,
		TotalScore: newScore,
		Streak:     newStreak,
	}, nil
}

// RecordTimeouts writes a zero-point default answer for every player who
// never submitted. Runs when a question closes.
func (s *AnswerService) RecordTimeouts(ctx context.Context, session *model.GameSession) error {
	q := session.CurrentQuestion()
	if q == nil {
		return nil
	}
	handler, err := s.registry.Handler(q.Type)
	if err != nil {
		return err
	}

	players, err := s.players.ListByPIN(ctx, session.PIN)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}

	now := s.now()
	for _, player := range players {
		if player.HasAnswered(session.CurrentIndex) {
			continue
		}
		record := model.AnswerRecord{
			QuestionIndex: session.CurrentIndex,
			QuestionType:  q.Type,
			Answer:        handler.DefaultAnswer(q),
			Points:        0,
			Correct:       false,
			TimedOut:      true,
			AnsweredAtMS:  now.UnixMilli(),
		}
		newStreak := player.Streak
		if handler.HasCorrectAnswer() {
			newStreak = 0
		}
		if err := s.players.AppendAnswer(ctx, player.ID, record, player.Score, newStreak); err != nil {
			s.logger.Error("timeout record failed",
				zap.String("pin", session.PIN),
				zap.String("playerId", player.ID),
				zap.Error(err))
		}
	}
	return nil
}

// timeRemaining mirrors the client countdown with full precision: the
// bonus formula divides by the limit, so rounding here would quantize
// scores.
func timeRemaining(start *time.Time, limitSec int, now time.Time) float64 {
	limit := float64(limitSec)
	if start == nil {
		return limit
	}
	remaining := limit - now.Sub(*start).Seconds()
	if remaining < 0 {
		return 0
	}
	if remaining > limit {
		return limit
	}
	return remaining
}

// optionKey buckets an answer for the host-side distribution chart.
func optionKey(a model.AnswerValue) string {
	switch {
	case a.OptionIndex != nil:
		return strconv.Itoa(*a.OptionIndex)
	case len(a.OptionIndices) > 0:
		indices := append([]int(nil), a.OptionIndices...)
		sort.Ints(indices)
		parts := make([]string, len(indices))
		for i, idx := range indices {
			parts[i] = strconv.Itoa(idx)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
