package question

import (
	"errors"
	"testing"

	"quizdeck/internal/domain"
	"quizdeck/internal/model"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string     { return &v }

func TestRegistryCoversAllTypes(t *testing.T) {
	r := NewRegistry()
	for _, tag := range model.AllQuestionTypes {
		h, err := r.Handler(tag)
		if err != nil {
			t.Fatalf("no handler for %q: %v", tag, err)
		}
		if h.Type() != tag {
			t.Fatalf("handler for %q reports type %q", tag, h.Type())
		}
	}
}

func TestRegistryUnknownTag(t *testing.T) {
	r := NewRegistry()
	_, err := r.Handler("matrix")
	if !errors.Is(err, domain.ErrUnsupportedQuestionType) {
		t.Fatalf("expected unsupported-type error, got %v", err)
	}
}

func TestSingleChoice(t *testing.T) {
	q := &model.Question{
		Type:         model.QuestionSingleChoice,
		TimeLimitSec: 20,
		SingleChoice: &model.SingleChoicePayload{Answers: []string{"a", "b", "c"}, CorrectIndex: 1},
	}
	r := NewRegistry()
	h, _ := r.Handler(q.Type)

	if err := h.ValidateAnswer(q, model.AnswerValue{OptionIndex: intp(5)}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected invalid-answer error, got %v", err)
	}
	if !h.IsCorrect(q, model.AnswerValue{OptionIndex: intp(1)}) {
		t.Fatal("expected correct")
	}
	// 15s remaining of 20s limit: 100 + round(0.75*900) = 775.
	if got := h.CalculateScore(q, model.AnswerValue{OptionIndex: intp(1)}, 15); got != 775 {
		t.Fatalf("expected 775, got %d", got)
	}
	if got := h.CalculateScore(q, model.AnswerValue{OptionIndex: intp(0)}, 15); got != 0 {
		t.Fatalf("wrong answer must score 0, got %d", got)
	}
}

func TestMultipleChoiceProportional(t *testing.T) {
	q := &model.Question{
		Type:         model.QuestionMultipleChoice,
		TimeLimitSec: 20,
		MultipleChoice: &model.MultipleChoicePayload{
			Answers:        []string{"a", "b", "c", "d"},
			CorrectIndices: []int{0, 1, 2},
		},
	}
	r := NewRegistry()
	h, _ := r.Handler(q.Type)

	// 2 of 3 correct, 0 wrong, 10s of 20s: round(500*2/3) + 250 = 583.
	if got := h.CalculateScore(q, model.AnswerValue{OptionIndices: []int{0, 1}}, 10); got != 583 {
		t.Fatalf("expected 583, got %d", got)
	}
	if h.IsCorrect(q, model.AnswerValue{OptionIndices: []int{0, 1}}) {
		t.Fatal("partial selection must not be fully correct")
	}
	if !h.IsCorrect(q, model.AnswerValue{OptionIndices: []int{2, 1, 0}}) {
		t.Fatal("full selection in any order must be correct")
	}
	if err := h.ValidateAnswer(q, model.AnswerValue{OptionIndices: []int{1, 1}}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("duplicates must be rejected, got %v", err)
	}
}

func TestSliderHandler(t *testing.T) {
	q := &model.Question{
		Type:         model.QuestionSlider,
		TimeLimitSec: 20,
		Slider:       &model.SliderPayload{Min: 0, Max: 100, CorrectValue: 50},
	}
	r := NewRegistry()
	h, _ := r.Handler(q.Type)

	// Guess 60 at full time: accuracy (1-0.1)^2 = 0.81, scores 905, but
	// misses the default 5% tolerance so it is not correct.
	if got := h.CalculateScore(q, model.AnswerValue{SliderValue: floatp(60)}, 20); got != 905 {
		t.Fatalf("expected 905, got %d", got)
	}
	if h.IsCorrect(q, model.AnswerValue{SliderValue: floatp(60)}) {
		t.Fatal("distance 10 must be incorrect at default threshold")
	}
	if !h.IsCorrect(q, model.AnswerValue{SliderValue: floatp(50)}) {
		t.Fatal("exact value must be correct")
	}
	if err := h.ValidateAnswer(q, model.AnswerValue{SliderValue: floatp(200)}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("out-of-range value must be rejected, got %v", err)
	}

	if got := h.DefaultAnswer(q); got.SliderValue == nil || *got.SliderValue != 0 {
		t.Fatalf("default answer must be the range minimum, got %+v", got)
	}
	// A question missing its payload must not panic.
	if got := h.DefaultAnswer(&model.Question{Type: model.QuestionSlider}); got.SliderValue != nil {
		t.Fatalf("payload-less question must yield an empty default, got %+v", got)
	}
}

func TestFreeResponseMatching(t *testing.T) {
	q := &model.Question{
		Type:         model.QuestionFreeResponse,
		TimeLimitSec: 20,
		FreeResponse: &model.FreeResponsePayload{
			CorrectAnswer: "Helsinki",
			Alternatives:  []string{"Helsingfors"},
			FuzzyMatch:    true,
		},
	}
	r := NewRegistry()
	h, _ := r.Handler(q.Type)

	cases := []struct {
		answer  string
		correct bool
	}{
		{"helsinki", true},    // case-insensitive by default
		{"Helsinkki", true},   // one typo within fuzzy tolerance
		{"Helsingfors", true}, // accepted alternative
		{"Stockholm", false},
	}
	for _, tc := range cases {
		if got := h.IsCorrect(q, model.AnswerValue{Text: strp(tc.answer)}); got != tc.correct {
			t.Fatalf("answer %q: expected correct=%v", tc.answer, tc.correct)
		}
	}

	q.FreeResponse.CaseSensitive = true
	if h.IsCorrect(q, model.AnswerValue{Text: strp("hELSINKI")}) {
		t.Fatal("case-sensitive match must reject different casing")
	}
}

func TestPollsAndSlidesNeverScore(t *testing.T) {
	r := NewRegistry()
	polls := []*model.Question{
		{Type: model.QuestionPollSingle, Poll: &model.PollPayload{Answers: []string{"x", "y"}}},
		{Type: model.QuestionPollMultiple, Poll: &model.PollPayload{Answers: []string{"x", "y"}}},
		{Type: model.QuestionSlide},
	}
	for _, q := range polls {
		h, err := r.Handler(q.Type)
		if err != nil {
			t.Fatalf("handler for %q: %v", q.Type, err)
		}
		if h.HasCorrectAnswer() {
			t.Fatalf("%q must not have a correct answer", q.Type)
		}
		if h.CorrectAnswers(q) != nil {
			t.Fatalf("%q must return nil correct answers", q.Type)
		}
		if got := h.CalculateScore(q, model.AnswerValue{OptionIndex: intp(0)}, 20); got != 0 {
			t.Fatalf("%q must score 0, got %d", q.Type, got)
		}
	}
}

func TestValidateRejectsMismatchedPayload(t *testing.T) {
	q := &model.Question{
		Type:   model.QuestionSingleChoice,
		Prompt: "pick one",
		Poll:   &model.PollPayload{Answers: []string{"a", "b"}},
	}
	if err := Validate(q); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected payload mismatch rejection, got %v", err)
	}
}

func TestValidateRejectsNoCorrectIndices(t *testing.T) {
	q := &model.Question{
		Type:   model.QuestionMultipleChoice,
		Prompt: "pick some",
		MultipleChoice: &model.MultipleChoicePayload{
			Answers: []string{"a", "b", "c"},
		},
	}
	if err := Validate(q); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected rejection of zero correct indices, got %v", err)
	}
}
