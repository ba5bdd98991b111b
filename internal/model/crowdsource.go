package model

import "time"

// Submission is a player-submitted candidate question plus its
// host-/AI-assigned evaluation fields.
type Submission struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	PIN      string `json:"pin" bson:"pin"`
	PlayerID string `json:"playerId" bson:"playerId"`

	Text         string    `json:"text" bson:"text"`
	Answers      [4]string `json:"answers" bson:"answers"`
	CorrectIndex int       `json:"correctIndex" bson:"correctIndex"`

	Score      float64 `json:"score" bson:"score"`
	AISelected bool    `json:"aiSelected" bson:"aiSelected"`
	Reasoning  string  `json:"reasoning,omitempty" bson:"reasoning,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ToQuestion converts a selected submission into a playable single-choice
// question for the session's active list.
func (s *Submission) ToQuestion(timeLimitSec int) Question {
	return Question{
		ID:           s.ID,
		Type:         QuestionSingleChoice,
		Prompt:       s.Text,
		TimeLimitSec: timeLimitSec,
		SingleChoice: &SingleChoicePayload{
			Answers:      s.Answers[:],
			CorrectIndex: s.CorrectIndex,
		},
	}
}
