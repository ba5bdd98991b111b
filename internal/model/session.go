package model

import "time"

// SessionState is one phase of a live session's lifecycle.
type SessionState string

const (
	// Shared
	StateLobby SessionState = "lobby"
	StateEnded SessionState = "ended"

	// Quiz / presentation
	StatePreparing   SessionState = "preparing"
	StateQuestion    SessionState = "question"
	StateLeaderboard SessionState = "leaderboard"
	StateSlide       SessionState = "slide"

	// Gathering (thoughts, poll)
	StateCollecting SessionState = "collecting"
	StateProcessing SessionState = "processing"
	StateDisplay    SessionState = "display"

	// Ranking / evaluation
	StateRanking   SessionState = "ranking"
	StateAnalyzing SessionState = "analyzing"
	StateResults   SessionState = "results"
)

// IsTerminal reports whether no further transition is possible.
func (s SessionState) IsTerminal() bool { return s == StateEnded }

// CrowdsourceState tracks the embedded crowdsourced-question flow.
type CrowdsourceState struct {
	SubmissionsLocked bool   `json:"submissionsLocked" bson:"submissionsLocked"`
	Evaluated         bool   `json:"evaluated" bson:"evaluated"`
	SelectedCount     int    `json:"selectedCount" bson:"selectedCount"`
	TopicPrompt       string `json:"topicPrompt,omitempty" bson:"topicPrompt,omitempty"`
}

// GameSession ties an activity to one live PIN-addressable run. The State
// field is the single authoritative lifecycle location; only the owning
// host's transitions mutate it.
type GameSession struct {
	ID         string       `json:"id" bson:"_id,omitempty"`
	PIN        string       `json:"pin" bson:"pin"`
	ActivityID string       `json:"activityId" bson:"activityId"`
	Type       ActivityType `json:"type" bson:"type"`
	HostID     string       `json:"hostId" bson:"hostId"`
	Title      string       `json:"title" bson:"title"`

	State        SessionState `json:"state" bson:"state"`
	CurrentIndex int          `json:"currentIndex" bson:"currentIndex"`

	// QuestionStartTime is the server-assigned instant used for timer
	// synchronization across clients. Set once per question transition.
	QuestionStartTime *time.Time `json:"questionStartTime,omitempty" bson:"questionStartTime,omitempty"`

	SubmissionsOpen     bool `json:"submissionsOpen" bson:"submissionsOpen"`
	ItemSubmissionsOpen bool `json:"itemSubmissionsOpen" bson:"itemSubmissionsOpen"`

	// Questions is the sanitized snapshot taken from the activity at
	// session creation, so mid-play edits to the activity cannot drift.
	Questions []Question `json:"questions,omitempty" bson:"questions,omitempty"`

	Crowdsource *CrowdsourceState `json:"crowdsource,omitempty" bson:"crowdsource,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CurrentQuestion returns the active question, or nil when the index is out
// of range (e.g. lobby or ended).
func (s *GameSession) CurrentQuestion() *Question {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentIndex]
}
