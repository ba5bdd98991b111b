package scoring

import "testing"

func TestTimeBasedCorrect(t *testing.T) {
	cfg := DefaultConfig()

	// 15s remaining of 20s: 100 + round(15/20*900) = 775.
	if got := TimeBased(true, 15, 20, cfg); got != 775 {
		t.Fatalf("expected 775, got %d", got)
	}
	if got := TimeBased(true, 20, 20, cfg); got != 1000 {
		t.Fatalf("full time should score 1000, got %d", got)
	}
	if got := TimeBased(true, 0, 20, cfg); got != 100 {
		t.Fatalf("zero time should score base only, got %d", got)
	}
}

func TestTimeBasedIncorrectAlwaysZero(t *testing.T) {
	cfg := DefaultConfig()
	for _, remaining := range []float64{-5, 0, 10, 20, 1000} {
		if got := TimeBased(false, remaining, 20, cfg); got != 0 {
			t.Fatalf("incorrect answer must score 0, got %d at remaining=%v", got, remaining)
		}
	}
}

func TestTimeBasedMonotoneAndBounded(t *testing.T) {
	cfg := DefaultConfig()
	prev := -1
	for remaining := 0; remaining <= 20; remaining++ {
		got := TimeBased(true, float64(remaining), 20, cfg)
		if got < prev {
			t.Fatalf("score decreased at remaining=%d: %d < %d", remaining, got, prev)
		}
		if got > cfg.MaxTotal {
			t.Fatalf("score exceeds cap: %d", got)
		}
		prev = got
	}
}

func TestProportional(t *testing.T) {
	// 2 of 3 correct, 0 wrong, 10s of 20s: round(500*0.667)=333 + 250 = 583.
	if got := Proportional(2, 0, 3, 10, 20); got != 583 {
		t.Fatalf("expected 583, got %d", got)
	}
}

func TestProportionalPenaltyFloorsAtZero(t *testing.T) {
	// penalty 5*0.2=1.0 >= accuracy 1/3: accuracy component must be exactly 0.
	got := Proportional(1, 5, 3, 0, 20)
	if got != 0 {
		t.Fatalf("expected accuracy and speed components of 0, got %d", got)
	}
	// With time remaining the speed component survives, accuracy stays 0.
	if got := Proportional(1, 5, 3, 20, 20); got != 500 {
		t.Fatalf("expected speed component only (500), got %d", got)
	}
}

func TestSlider(t *testing.T) {
	// Range [0,100], correct=50, guess=60, full time:
	// accuracy 0.9, multiplier 0.81 -> 405 + 500 = 905; 10 > 5 -> incorrect.
	res := Slider(60, 50, 0, 100, 20, 20, nil)
	if res.Score != 905 {
		t.Fatalf("expected 905, got %d", res.Score)
	}
	if res.Correct {
		t.Fatalf("distance 10 exceeds default 5%% threshold, must be incorrect")
	}
}

func TestSliderExactValue(t *testing.T) {
	res := Slider(50, 50, 0, 100, 7, 20, nil)
	if !res.Correct {
		t.Fatalf("exact value must be correct")
	}
	// Maximum accuracy component for this timeRemaining.
	off := Slider(51, 50, 0, 100, 7, 20, nil)
	if off.Score >= res.Score {
		t.Fatalf("exact value must yield the max accuracy component: %d >= %d", off.Score, res.Score)
	}
}

func TestSliderAcceptableErrorOverride(t *testing.T) {
	ae := 15.0
	res := Slider(60, 50, 0, 100, 0, 20, &ae)
	if !res.Correct {
		t.Fatalf("distance 10 within acceptableError 15 must be correct")
	}
}

func TestNextStreak(t *testing.T) {
	if got := NextStreak(3, true); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
	if got := NextStreak(3, false); got != 0 {
		t.Fatalf("wrong answer must reset streak, got %d", got)
	}
}
