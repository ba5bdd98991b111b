package game

import (
	"fmt"

	"quizdeck/internal/domain"
	"quizdeck/internal/model"
)

// lifecycles lists the legal host-driven transitions per activity type.
// Ending is reachable from every state; states absent from a table allow
// nothing. The State field on the session is the single source of truth,
// so any move not listed here is rejected before it can be persisted.
var lifecycles = map[model.ActivityType]map[model.SessionState][]model.SessionState{
	model.ActivityQuiz: {
		model.StateLobby:       {model.StatePreparing, model.StateEnded},
		model.StatePreparing:   {model.StateQuestion, model.StateEnded},
		model.StateQuestion:    {model.StateLeaderboard, model.StateEnded},
		model.StateLeaderboard: {model.StatePreparing, model.StateQuestion, model.StateEnded},
	},
	model.ActivityPresentation: {
		model.StateLobby:       {model.StateSlide, model.StateQuestion, model.StateEnded},
		model.StateSlide:       {model.StateSlide, model.StateQuestion, model.StateEnded},
		model.StateQuestion:    {model.StateLeaderboard, model.StateEnded},
		model.StateLeaderboard: {model.StateSlide, model.StateQuestion, model.StateEnded},
	},
	model.ActivityPoll: {
		model.StateLobby:      {model.StateCollecting, model.StateEnded},
		model.StateCollecting: {model.StateProcessing, model.StateEnded},
		// processing → collecting is the failure rollback path.
		model.StateProcessing: {model.StateDisplay, model.StateCollecting, model.StateEnded},
		model.StateDisplay:    {model.StateCollecting, model.StateEnded},
	},
	model.ActivityThoughts: {
		model.StateLobby:      {model.StateCollecting, model.StateEnded},
		model.StateCollecting: {model.StateProcessing, model.StateEnded},
		model.StateProcessing: {model.StateDisplay, model.StateCollecting, model.StateEnded},
		model.StateDisplay:    {model.StateCollecting, model.StateEnded},
	},
	model.ActivityRanking: {
		model.StateLobby:      {model.StateCollecting, model.StateEnded},
		model.StateCollecting: {model.StateRanking, model.StateEnded},
		model.StateRanking:    {model.StateAnalyzing, model.StateEnded},
		// analyzing → ranking is the failure rollback path.
		model.StateAnalyzing: {model.StateResults, model.StateRanking, model.StateEnded},
		model.StateResults:   {model.StateEnded},
	},
}

// firstActiveState is where Start moves a lobby session.
var firstActiveState = map[model.ActivityType]model.SessionState{
	model.ActivityQuiz:         model.StatePreparing,
	model.ActivityPresentation: model.StateSlide,
	model.ActivityPoll:         model.StateCollecting,
	model.ActivityThoughts:     model.StateCollecting,
	model.ActivityRanking:      model.StateCollecting,
}

// CanTransition reports whether the lifecycle table for the activity type
// allows from → to.
func CanTransition(activityType model.ActivityType, from, to model.SessionState) bool {
	table, ok := lifecycles[activityType]
	if !ok {
		return false
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition is CanTransition with a descriptive error.
func checkTransition(activityType model.ActivityType, from, to model.SessionState) error {
	if from.IsTerminal() {
		return domain.ErrSessionEnded
	}
	if !CanTransition(activityType, from, to) {
		return fmt.Errorf("%w: %s %s -> %s", domain.ErrInvalidTransition, activityType, from, to)
	}
	return nil
}
