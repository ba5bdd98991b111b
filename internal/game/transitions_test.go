package game

import (
	"testing"

	"quizdeck/internal/model"
)

func TestLifecycleTables(t *testing.T) {
	cases := []struct {
		activity model.ActivityType
		from, to model.SessionState
		want     bool
	}{
		{model.ActivityQuiz, model.StateLobby, model.StatePreparing, true},
		{model.ActivityQuiz, model.StatePreparing, model.StateQuestion, true},
		{model.ActivityQuiz, model.StateQuestion, model.StateLeaderboard, true},
		{model.ActivityQuiz, model.StateLeaderboard, model.StateQuestion, true},
		{model.ActivityQuiz, model.StateLobby, model.StateQuestion, false},
		{model.ActivityQuiz, model.StateQuestion, model.StatePreparing, false},
		{model.ActivityQuiz, model.StateLeaderboard, model.StateEnded, true},

		{model.ActivityThoughts, model.StateCollecting, model.StateProcessing, true},
		{model.ActivityThoughts, model.StateProcessing, model.StateCollecting, true},
		{model.ActivityThoughts, model.StateProcessing, model.StateDisplay, true},
		{model.ActivityThoughts, model.StateCollecting, model.StateDisplay, false},

		{model.ActivityRanking, model.StateCollecting, model.StateRanking, true},
		{model.ActivityRanking, model.StateRanking, model.StateAnalyzing, true},
		{model.ActivityRanking, model.StateAnalyzing, model.StateResults, true},
		{model.ActivityRanking, model.StateAnalyzing, model.StateRanking, true},
		{model.ActivityRanking, model.StateResults, model.StateEnded, true},
		{model.ActivityRanking, model.StateCollecting, model.StateResults, false},

		{model.ActivityPresentation, model.StateSlide, model.StateSlide, true},
		{model.ActivityPresentation, model.StateSlide, model.StateQuestion, true},

		{"bogus", model.StateLobby, model.StateEnded, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.activity, c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", c.activity, c.from, c.to, got, c.want)
		}
	}
}

func TestEveryStateReachesEnded(t *testing.T) {
	for activity, table := range lifecycles {
		for from := range table {
			if !CanTransition(activity, from, model.StateEnded) {
				t.Errorf("%s: %s cannot reach ended", activity, from)
			}
		}
	}
}
