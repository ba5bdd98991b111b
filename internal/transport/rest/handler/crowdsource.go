package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"quizdeck/internal/crowdsource"
	"quizdeck/internal/model"
	"quizdeck/internal/transport/rest/middleware"
)

// CrowdsourceHandler handles crowdsourced-question endpoints
type CrowdsourceHandler struct {
	svc *crowdsource.Service
}

// NewCrowdsourceHandler creates a new crowdsource handler
func NewCrowdsourceHandler(svc *crowdsource.Service) *CrowdsourceHandler {
	return &CrowdsourceHandler{svc: svc}
}

// SubmitRequest is a player-authored question
type SubmitRequest struct {
	Text         string    `json:"text"`
	Answers      [4]string `json:"answers"`
	CorrectIndex int       `json:"correctIndex"`
}

// Submit handles POST /v1/sessions/{pin}/submissions
func (h *CrowdsourceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]
	playerID := middleware.GetPlayerID(r.Context())

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submission, err := h.svc.Submit(r.Context(), pin, playerID, req.Text, req.Answers, req.CorrectIndex)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submission)
}

// List handles GET /v1/sessions/{pin}/submissions
func (h *CrowdsourceHandler) List(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]
	hostID := middleware.GetHostID(r.Context())

	submissions, err := h.svc.List(r.Context(), hostID, pin)
	if err != nil {
		respondError(w, err)
		return
	}
	if submissions == nil {
		submissions = []*model.Submission{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": submissions})
}

// Lock handles POST /v1/sessions/{pin}/submissions/lock
func (h *CrowdsourceHandler) Lock(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]
	hostID := middleware.GetHostID(r.Context())

	session, err := h.svc.Lock(r.Context(), hostID, pin)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// EvaluateRequest names the topic and how many questions to select
type EvaluateRequest struct {
	TopicPrompt   string `json:"topicPrompt"`
	QuestionCount int    `json:"questionCount"`
}

// Evaluate handles POST /v1/sessions/{pin}/submissions/evaluate. An empty
// body retries with the previously persisted prompt.
func (h *CrowdsourceHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]
	hostID := middleware.GetHostID(r.Context())

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submissions, err := h.svc.Evaluate(r.Context(), hostID, pin, req.TopicPrompt, req.QuestionCount)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": submissions})
}

// ToggleSelection handles POST /v1/sessions/{pin}/submissions/{submissionId}/toggle
func (h *CrowdsourceHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hostID := middleware.GetHostID(r.Context())

	submission, err := h.svc.ToggleSelection(r.Context(), hostID, vars["pin"], vars["submissionId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submission)
}

// SaveSelectionRequest finalizes which submissions become questions
type SaveSelectionRequest struct {
	SelectedIDs  []string `json:"selectedIds"`
	TimeLimitSec int      `json:"timeLimitSec"`
}

// SaveSelection handles POST /v1/sessions/{pin}/submissions/selection
func (h *CrowdsourceHandler) SaveSelection(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]
	hostID := middleware.GetHostID(r.Context())

	var req SaveSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.svc.SaveSelection(r.Context(), hostID, pin, req.SelectedIDs, req.TimeLimitSec)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}
