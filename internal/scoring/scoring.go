// Package scoring holds the pure score formulas. The same functions back
// the optimistic client preview and the authoritative server path, so the
// two agree by construction; only the server result is persisted.
package scoring

import "math"

// Config bounds the time-based formula.
type Config struct {
	BasePoints int
	MaxBonus   int
	MaxTotal   int
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{BasePoints: 100, MaxBonus: 900, MaxTotal: 1000}
}

// TimeBased scores single-choice and free-response answers: a flat base for
// correctness plus a bonus proportional to the fraction of time remaining,
// capped at MaxTotal. Incorrect answers always score 0.
func TimeBased(correct bool, timeRemaining, timeLimit float64, cfg Config) int {
	if !correct {
		return 0
	}
	ratio := timeRatio(timeRemaining, timeLimit)
	score := cfg.BasePoints + int(math.Round(ratio*float64(cfg.MaxBonus)))
	if score > cfg.MaxTotal {
		return cfg.MaxTotal
	}
	return score
}

// Proportional scores multi-select answers: partial credit for each correct
// selection, a 0.2 penalty per wrong selection (floored at zero), plus a
// speed component.
func Proportional(correctCount, wrongCount, totalCorrect int, timeRemaining, timeLimit float64) int {
	accuracy := 0.0
	if totalCorrect > 0 {
		accuracy = float64(correctCount) / float64(totalCorrect)
	}
	multiplier := accuracy - float64(wrongCount)*0.2
	if multiplier < 0 {
		multiplier = 0
	}
	return int(math.Round(500*multiplier)) + speedComponent(timeRemaining, timeLimit)
}

// SliderResult carries the slider score together with its correctness
// verdict, since both derive from the same distance computation.
type SliderResult struct {
	Score   int
	Correct bool
}

// Slider scores a numeric guess by distance from the correct value. The
// accuracy multiplier is squared so precision is rewarded super-linearly.
// Correctness requires distance within acceptableError, defaulting to 5%
// of the range when nil.
func Slider(value, correctValue, min, max, timeRemaining, timeLimit float64, acceptableError *float64) SliderResult {
	span := max - min
	if span <= 0 {
		return SliderResult{}
	}
	distance := math.Abs(value - correctValue)
	accuracy := 1 - distance/span
	if accuracy < 0 {
		accuracy = 0
	}
	multiplier := accuracy * accuracy

	threshold := span * 0.05
	if acceptableError != nil {
		threshold = *acceptableError
	}

	return SliderResult{
		Score:   int(math.Round(500*multiplier)) + speedComponent(timeRemaining, timeLimit),
		Correct: distance <= threshold,
	}
}

// NextStreak advances a consecutive-correct run.
func NextStreak(current int, correct bool) int {
	if !correct {
		return 0
	}
	return current + 1
}

func speedComponent(timeRemaining, timeLimit float64) int {
	return int(math.Round(500 * timeRatio(timeRemaining, timeLimit)))
}

// timeRatio clamps into [0,1]. A question with no time limit cannot be
// answered late, so it counts as full time.
func timeRatio(timeRemaining, timeLimit float64) float64 {
	if timeLimit <= 0 {
		return 1
	}
	ratio := timeRemaining / timeLimit
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
