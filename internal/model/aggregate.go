package model

// AggregateEntry is one ranked row of the leaderboard aggregate.
type AggregateEntry struct {
	PlayerID   string `json:"playerId"`
	Nickname   string `json:"nickname"`
	Score      int    `json:"score"`
	Streak     int    `json:"streak"`
	LastPoints int    `json:"lastPoints"`
	Rank       int    `json:"rank"`
}

// LeaderboardAggregate is the derived summary clients read instead of
// scanning raw player documents. Maintained idempotently per scoring
// event; rebuilt at phase start.
type LeaderboardAggregate struct {
	PIN           string           `json:"pin"`
	Top           []AggregateEntry `json:"top"`
	PlayerCount   int              `json:"playerCount"`
	AnsweredCount int              `json:"answeredCount"`
	QuestionIndex int              `json:"questionIndex"`
	// Distribution counts answers per option for the active question.
	Distribution map[string]int `json:"distribution,omitempty"`
}

// ScoreEvent is the input contract of the aggregate maintainer. EventID
// makes application idempotent (one event per player per question).
type ScoreEvent struct {
	EventID       string `json:"eventId"`
	PlayerID      string `json:"playerId"`
	Nickname      string `json:"nickname"`
	QuestionIndex int    `json:"questionIndex"`
	Points        int    `json:"points"`
	TotalScore    int    `json:"totalScore"`
	Streak        int    `json:"streak"`
	// OptionKey buckets the answer for the distribution ("2", "3,5", …).
	OptionKey string `json:"optionKey,omitempty"`
	// ScoredAtMS breaks score ties: earliest achiever ranks first.
	ScoredAtMS int64 `json:"scoredAtMs"`
}
