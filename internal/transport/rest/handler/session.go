package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quizdeck/internal/cache"
	"quizdeck/internal/config"
	"quizdeck/internal/game"
	"quizdeck/internal/model"
	"quizdeck/internal/repository"
	"quizdeck/internal/resume"
	"quizdeck/internal/service"
	"quizdeck/internal/transport/rest/middleware"
)

// SessionHandler handles live game-session endpoints
type SessionHandler struct {
	gameSvc     *game.Service
	activities  repository.ActivityRepo
	authSvc     *service.AuthService
	answerSvc   *service.AnswerService
	leaderboard cache.Leaderboard
	resume      *resume.Manager
	cfg         config.Game
	logger      *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	gameSvc *game.Service,
	activities repository.ActivityRepo,
	authSvc *service.AuthService,
	answerSvc *service.AnswerService,
	leaderboard cache.Leaderboard,
	resumeMgr *resume.Manager,
	cfg config.Game,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		gameSvc:     gameSvc,
		activities:  activities,
		authSvc:     authSvc,
		answerSvc:   answerSvc,
		leaderboard: leaderboard,
		resume:      resumeMgr,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateSessionRequest is the request body for creating a session
type CreateSessionRequest struct {
	ActivityID string `json:"activityId"`
}

// Create handles POST /v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	activity, err := h.activities.GetByID(r.Context(), req.ActivityID)
	if err != nil {
		respondError(w, err)
		return
	}
	if activity == nil {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}

	session, err := h.gameSvc.CreateSession(r.Context(), hostID, activity)
	if err != nil {
		respondError(w, err)
		return
	}

	h.track(r, session)
	writeJSON(w, http.StatusCreated, session)
}

// Get handles GET /v1/sessions/{pin}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]

	session, err := h.gameSvc.GetSession(r.Context(), pin)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// JoinRequest is the request body for joining a session
type JoinRequest struct {
	Nickname string `json:"nickname"`
}

// JoinResponse carries the new player and their session-scoped token
type JoinResponse struct {
	Player *model.Player `json:"player"`
	Token  string        `json:"token"`
}

// Join handles POST /v1/sessions/{pin}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	player, err := h.gameSvc.Join(r.Context(), pin, req.Nickname)
	if err != nil {
		respondError(w, err)
		return
	}

	token, err := h.authSvc.GeneratePlayerToken(pin, player.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, JoinResponse{Player: player, Token: token})
}

// Start handles POST /v1/sessions/{pin}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.Start(r.Context(), hostID, pin)
	})
}

// StartQuestionRequest selects which question to run
type StartQuestionRequest struct {
	Index int `json:"index"`
}

// StartQuestion handles POST /v1/sessions/{pin}/questions/start
func (h *SessionHandler) StartQuestion(w http.ResponseWriter, r *http.Request) {
	var req StartQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.StartQuestion(r.Context(), hostID, pin, req.Index)
	})
}

// ShowSlideRequest selects which slide to show
type ShowSlideRequest struct {
	Index int `json:"index"`
}

// ShowSlide handles POST /v1/sessions/{pin}/slides/show
func (h *SessionHandler) ShowSlide(w http.ResponseWriter, r *http.Request) {
	var req ShowSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.ShowSlide(r.Context(), hostID, pin, req.Index)
	})
}

// FinishQuestion handles POST /v1/sessions/{pin}/questions/finish
func (h *SessionHandler) FinishQuestion(w http.ResponseWriter, r *http.Request) {
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.FinishQuestion(r.Context(), hostID, pin)
	})
}

// AdvanceRequest names the lifecycle state to move to
type AdvanceRequest struct {
	State model.SessionState `json:"state"`
}

// Advance handles POST /v1/sessions/{pin}/advance
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.Advance(r.Context(), hostID, pin, req.State)
	})
}

// StartRanking handles POST /v1/sessions/{pin}/ranking/start
func (h *SessionHandler) StartRanking(w http.ResponseWriter, r *http.Request) {
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.StartRanking(r.Context(), hostID, pin)
	})
}

// EndRanking handles POST /v1/sessions/{pin}/ranking/end
func (h *SessionHandler) EndRanking(w http.ResponseWriter, r *http.Request) {
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.EndRanking(r.Context(), hostID, pin)
	})
}

// EndCollecting handles POST /v1/sessions/{pin}/collecting/end
func (h *SessionHandler) EndCollecting(w http.ResponseWriter, r *http.Request) {
	h.hostTransition(w, r, func(hostID, pin string) (*model.GameSession, error) {
		return h.gameSvc.EndCollecting(r.Context(), hostID, pin)
	})
}

// End handles POST /v1/sessions/{pin}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	pin := mux.Vars(r)["pin"]

	session, err := h.gameSvc.End(r.Context(), hostID, pin)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.resume.Clear(r.Context(), hostID); err != nil {
		h.logger.Warn("failed to clear resume pointer", zap.String("pin", pin), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, session)
}

// Cancel handles DELETE /v1/sessions/{pin}
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	pin := mux.Vars(r)["pin"]

	if err := h.gameSvc.Cancel(r.Context(), hostID, pin); err != nil {
		respondError(w, err)
		return
	}

	if err := h.resume.Clear(r.Context(), hostID); err != nil {
		h.logger.Warn("failed to clear resume pointer", zap.String("pin", pin), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Leaderboard handles GET /v1/sessions/{pin}/leaderboard
func (h *SessionHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]

	top := h.cfg.LeaderboardSize
	if topStr := r.URL.Query().Get("top"); topStr != "" {
		if n, err := strconv.Atoi(topStr); err == nil && n > 0 {
			top = n
		}
	}

	snapshot, err := h.leaderboard.Snapshot(r.Context(), pin, top)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// ResumeResponse carries the host's active-session pointer and its live state
type ResumeResponse struct {
	Pointer *resume.Pointer    `json:"pointer"`
	Session *model.GameSession `json:"session"`
}

// Resume handles GET /v1/sessions/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	pointer, session, err := h.resume.Resume(r.Context(), hostID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResumeResponse{Pointer: pointer, Session: session})
}

// SubmitAnswerRequest is the player answer body
type SubmitAnswerRequest struct {
	QuestionIndex int               `json:"questionIndex"`
	Answer        model.AnswerValue `json:"answer"`
}

// SubmitAnswer handles POST /v1/sessions/{pin}/answers
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]
	playerID := middleware.GetPlayerID(r.Context())

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.answerSvc.Submit(r.Context(), pin, playerID, req.QuestionIndex, req.Answer)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// hostTransition runs one host-driven lifecycle call and refreshes the
// resume pointer on success.
func (h *SessionHandler) hostTransition(w http.ResponseWriter, r *http.Request, fn func(hostID, pin string) (*model.GameSession, error)) {
	hostID := middleware.GetHostID(r.Context())
	pin := mux.Vars(r)["pin"]

	session, err := fn(hostID, pin)
	if err != nil {
		respondError(w, err)
		return
	}

	if session.State.IsTerminal() {
		if err := h.resume.Clear(r.Context(), hostID); err != nil {
			h.logger.Warn("failed to clear resume pointer", zap.String("pin", pin), zap.Error(err))
		}
	} else {
		h.track(r, session)
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) track(r *http.Request, session *model.GameSession) {
	returnPath := "/host/sessions/" + session.PIN
	if err := h.resume.Track(r.Context(), session, returnPath); err != nil {
		h.logger.Warn("failed to track resume pointer",
			zap.String("pin", session.PIN), zap.Error(err))
	}
}
