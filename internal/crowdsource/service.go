// Package crowdsource runs the player-submitted question flow: collect
// capped submissions, lock, evaluate remotely, let the host curate the
// selection into playable questions.
package crowdsource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quizdeck/internal/cache"
	"quizdeck/internal/compute"
	"quizdeck/internal/config"
	"quizdeck/internal/domain"
	"quizdeck/internal/model"
	"quizdeck/internal/repository"
	"quizdeck/internal/security"
)

// Broadcaster pushes realtime events to session participants.
type Broadcaster interface {
	ToSession(pin, event string, payload interface{})
	ToHost(pin, event string, payload interface{})
}

// Service owns crowdsource submissions and their evaluation lifecycle.
type Service struct {
	sessions     repository.SessionRepo
	sessionCache cache.SessionCache
	submissions  repository.SubmissionRepo
	compute      compute.Invoker
	sanitizer    *security.Sanitizer
	broadcast    Broadcaster
	logger       *zap.Logger
	cfg          config.Game

	// sleep is swapped in tests so the lock grace does not slow them down.
	sleep func(time.Duration)
}

func NewService(
	sessions repository.SessionRepo,
	sessionCache cache.SessionCache,
	submissions repository.SubmissionRepo,
	invoker compute.Invoker,
	sanitizer *security.Sanitizer,
	broadcast Broadcaster,
	logger *zap.Logger,
	cfg config.Game,
) *Service {
	return &Service{
		sessions:     sessions,
		sessionCache: sessionCache,
		submissions:  submissions,
		compute:      invoker,
		sanitizer:    sanitizer,
		broadcast:    broadcast,
		logger:       logger,
		cfg:          cfg,
		sleep:        time.Sleep,
	}
}

func (s *Service) getSession(ctx context.Context, pin string) (*model.GameSession, error) {
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
	if session.Crowdsource == nil {
		return nil, fmt.Errorf("%w: session does not collect submissions", domain.ErrInvalidTransition)
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

// Submit stores a player's candidate question. Rejected once the host has
// locked submissions or the player hit the per-player cap.
func (s *Service) Submit(ctx context.Context, pin, playerID, text string, answers [4]string, correctIndex int) (*model.Submission, error) {
	session, err := s.getSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() {
		return nil, domain.ErrSessionEnded
	}
	if session.Crowdsource.SubmissionsLocked || !session.ItemSubmissionsOpen {
		return nil, domain.ErrSubmissionsLocked
	}

	count, err := s.submissions.CountByPlayer(ctx, pin, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	if count >= s.cfg.SubmissionCap {
		return nil, domain.ErrSubmissionCap
	}

	text = s.sanitizer.Clean(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty question text", domain.ErrInvalidAnswer)
	}
	if correctIndex < 0 || correctIndex >= len(answers) {
		return nil, fmt.Errorf("%w: correct index %d out of range", domain.ErrInvalidAnswer, correctIndex)
	}
	for i := range answers {
		answers[i] = s.sanitizer.Clean(answers[i])
		if answers[i] == "" {
			return nil, fmt.Errorf("%w: answer %d is empty", domain.ErrInvalidAnswer, i)
		}
	}

	submission := &model.Submission{
		PIN:          pin,
		PlayerID:     playerID,
		Text:         text,
		Answers:      answers,
		CorrectIndex: correctIndex,
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.broadcast.ToHost(pin, "submission_received", map[string]interface{}{
		"submissionId": submission.ID,
		"playerId":     playerID,
	})
	return submission, nil
}

// List returns all submissions for the host's review screen.
func (s *Service) List(ctx context.Context, hostID, pin string) ([]*model.Submission, error) {
	session, err := s.getSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.HostID != hostID {
		return nil, domain.ErrNotHost
	}
	return s.submissions.ListByPIN(ctx, pin)
}

// Lock closes the submission window. Persisted immediately so a submit
// racing the lock loses.
func (s *Service) Lock(ctx context.Context, hostID, pin string) (*model.GameSession, error) {
	return s.lock(ctx, hostID, pin, "")
}

// lock persists the closed window together with the topic prompt, when
// given, in a single write.
func (s *Service) lock(ctx context.Context, hostID, pin, topicPrompt string) (*model.GameSession, error) {
	session, err := s.getSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.HostID != hostID {
		return nil, domain.ErrNotHost
	}

	session.Crowdsource.SubmissionsLocked = true
	session.ItemSubmissionsOpen = false
	if topicPrompt != "" {
		session.Crowdsource.TopicPrompt = topicPrompt
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast.ToSession(pin, "submissions_locked", nil)
	return session, nil
}

// evalResult is one scored submission in the compute response.
type evalResult struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	Selected  bool    `json:"selected"`
	Reasoning string  `json:"reasoning"`
}

// defaultQuestionTarget is how many submissions the evaluator is asked to
// select when the host does not name a count.
const defaultQuestionTarget = 5

// Evaluate locks submissions, waits out the grace window for in-flight
// submits, then runs the remote evaluation against the host's topic prompt
// and target question count. A failed evaluation leaves the lock in place:
// reopening the window would invalidate scores already shown to the host,
// so the host retries evaluation instead. An empty prompt on a retry keeps
// the prompt persisted by the first attempt.
func (s *Service) Evaluate(ctx context.Context, hostID, pin, topicPrompt string, questionCount int) ([]*model.Submission, error) {
	session, err := s.lock(ctx, hostID, pin, s.sanitizer.Clean(topicPrompt))
	if err != nil {
		return nil, err
	}
	if questionCount <= 0 {
		questionCount = defaultQuestionTarget
	}

	s.sleep(s.cfg.LockGraceDuration())

	submissions, err := s.submissions.ListByPIN(ctx, pin)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	if len(submissions) == 0 {
		return nil, fmt.Errorf("%w: nothing to evaluate", domain.ErrInvalidAnswer)
	}

	resp, err := s.compute.Invoke(ctx, compute.FuncEvaluateSubmissions, map[string]interface{}{
		"pin":           pin,
		"topicPrompt":   session.Crowdsource.TopicPrompt,
		"questionCount": questionCount,
		"submissions":   submissions,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	var results []evalResult
	if err := json.Unmarshal(resp.Data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation results: %w", err)
	}

	byID := make(map[string]*model.Submission, len(submissions))
	for _, submission := range submissions {
		byID[submission.ID] = submission
	}
	selected := 0
	for _, result := range results {
		submission, ok := byID[result.ID]
		if !ok {
			continue
		}
		submission.Score = result.Score
		submission.AISelected = result.Selected
		submission.Reasoning = result.Reasoning
		if result.Selected {
			selected++
		}
		if err := s.submissions.Update(ctx, submission); err != nil {
			return nil, fmt.Errorf("failed to store evaluation: %w", err)
		}
	}

	session.Crowdsource.Evaluated = true
	session.Crowdsource.SelectedCount = selected
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	s.broadcast.ToHost(pin, "submissions_evaluated", map[string]interface{}{
		"selectedCount": selected,
	})
	return submissions, nil
}

// ToggleSelection flips one submission in or out of the host's selection.
func (s *Service) ToggleSelection(ctx context.Context, hostID, pin, submissionID string) (*model.Submission, error) {
	session, err := s.getSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.HostID != hostID {
		return nil, domain.ErrNotHost
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil || submission.PIN != pin {
		return nil, domain.ErrNotFound
	}

	submission.AISelected = !submission.AISelected
	if err := s.submissions.Update(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	if submission.AISelected {
		session.Crowdsource.SelectedCount++
	} else if session.Crowdsource.SelectedCount > 0 {
		session.Crowdsource.SelectedCount--
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return submission, nil
}

// SaveSelection persists the final selection and appends the selected
// submissions to the session's playable question list.
func (s *Service) SaveSelection(ctx context.Context, hostID, pin string, selectedIDs []string, timeLimitSec int) (*model.GameSession, error) {
	session, err := s.getSession(ctx, pin)
	if err != nil {
		return nil, err
	}
	if session.HostID != hostID {
		return nil, domain.ErrNotHost
	}

	if err := s.submissions.SetSelection(ctx, pin, selectedIDs); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	appended := 0
	for _, id := range selectedIDs {
		submission, err := s.submissions.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get submission: %w", err)
		}
		if submission == nil || submission.PIN != pin {
			return nil, domain.ErrNotFound
		}
		session.Questions = append(session.Questions, submission.ToQuestion(timeLimitSec))
		appended++
	}

	session.Crowdsource.SelectedCount = appended
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	s.broadcast.ToSession(pin, "questions_added", map[string]interface{}{
		"count": appended,
	})
	return session, nil
}
