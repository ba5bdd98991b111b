package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"quizdeck/internal/model"
	"quizdeck/internal/question"
	"quizdeck/internal/repository"
	"quizdeck/internal/transport/rest/middleware"
)

// ActivityHandler handles activity template endpoints
type ActivityHandler struct {
	activities repository.ActivityRepo
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activities repository.ActivityRepo) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// Create handles POST /v1/activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	var activity model.Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if activity.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	for i := range activity.Questions {
		if err := question.Validate(&activity.Questions[i]); err != nil {
			respondError(w, err)
			return
		}
	}

	activity.ID = ""
	activity.HostID = hostID
	if err := h.activities.Create(r.Context(), &activity); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, activity)
}

// List handles GET /v1/activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	activities, err := h.activities.ListByHost(r.Context(), hostID)
	if err != nil {
		respondError(w, err)
		return
	}
	if activities == nil {
		activities = []*model.Activity{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

// Get handles GET /v1/activities/{activityId}
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.ownedActivity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

// Update handles PUT /v1/activities/{activityId}
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.ownedActivity(w, r)
	if !ok {
		return
	}

	var updated model.Activity
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if updated.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	for i := range updated.Questions {
		if err := question.Validate(&updated.Questions[i]); err != nil {
			respondError(w, err)
			return
		}
	}

	// Identity and ownership are not client-writable.
	updated.ID = existing.ID
	updated.HostID = existing.HostID
	updated.CreatedAt = existing.CreatedAt

	if err := h.activities.Update(r.Context(), &updated); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /v1/activities/{activityId}
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.ownedActivity(w, r)
	if !ok {
		return
	}

	if err := h.activities.Delete(r.Context(), activity.ID); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ownedActivity loads the path activity and enforces host ownership.
func (h *ActivityHandler) ownedActivity(w http.ResponseWriter, r *http.Request) (*model.Activity, bool) {
	hostID := middleware.GetHostID(r.Context())
	activityID := mux.Vars(r)["activityId"]

	activity, err := h.activities.GetByID(r.Context(), activityID)
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	if activity == nil {
		writeError(w, http.StatusNotFound, "activity not found")
		return nil, false
	}
	if activity.HostID != hostID {
		writeError(w, http.StatusForbidden, "activity belongs to another host")
		return nil, false
	}
	return activity, true
}
