package model

import "time"

// ActivityType selects which lifecycle table a session runs.
type ActivityType string

const (
	ActivityQuiz         ActivityType = "quiz"
	ActivityPoll         ActivityType = "poll"
	ActivityRanking      ActivityType = "ranking"
	ActivityThoughts     ActivityType = "thoughts"
	ActivityPresentation ActivityType = "presentation"
)

// Activity is host-authored content, independent of any live run.
// Mutable only by the owning host; sessions snapshot a sanitized copy of
// Questions so mid-play edits cannot drift a running game.
type Activity struct {
	ID          string       `json:"id" bson:"_id,omitempty"`
	Type        ActivityType `json:"type" bson:"type"`
	HostID      string       `json:"hostId" bson:"hostId"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Questions   []Question   `json:"questions" bson:"questions"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}
