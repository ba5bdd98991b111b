package model

import "time"

// Player is a per-session participant record. Score and Answers are
// mutated only via the authoritative scoring path, never by direct client
// writes.
type Player struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	PIN      string `json:"pin" bson:"pin"`
	Nickname string `json:"nickname" bson:"nickname"`
	Score    int    `json:"score" bson:"score"`
	// Streak is the current consecutive-correct run.
	Streak   int            `json:"streak" bson:"streak"`
	Answers  []AnswerRecord `json:"answers" bson:"answers"`
	JoinedAt time.Time      `json:"joinedAt" bson:"joinedAt"`
}

// HasAnswered reports whether the player already has a record for the
// given question index.
func (p *Player) HasAnswered(questionIndex int) bool {
	for i := range p.Answers {
		if p.Answers[i].QuestionIndex == questionIndex {
			return true
		}
	}
	return false
}
