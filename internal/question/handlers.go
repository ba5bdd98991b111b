package question

import (
	"fmt"
	"strings"

	"quizdeck/internal/domain"
	"quizdeck/internal/model"
	"quizdeck/internal/scoring"
)

func defaultScoring() scoring.Config { return scoring.DefaultConfig() }

func limitSeconds(q *model.Question) float64 { return float64(q.TimeLimitSec) }

// single-choice

type singleChoiceHandler struct {
	cfg scoring.Config
}

func (h *singleChoiceHandler) Type() model.QuestionType { return model.QuestionSingleChoice }

func (h *singleChoiceHandler) ValidateAnswer(q *model.Question, a model.AnswerValue) error {
	if q.SingleChoice == nil || a.OptionIndex == nil {
		return domain.ErrInvalidAnswer
	}
	if *a.OptionIndex < 0 || *a.OptionIndex >= len(q.SingleChoice.Answers) {
		return fmt.Errorf("%w: option index %d out of range", domain.ErrInvalidAnswer, *a.OptionIndex)
	}
	return nil
}

func (h *singleChoiceHandler) CalculateScore(q *model.Question, a model.AnswerValue, timeRemaining float64) int {
	return scoring.TimeBased(h.IsCorrect(q, a), timeRemaining, limitSeconds(q), h.cfg)
}

func (h *singleChoiceHandler) DefaultAnswer(*model.Question) model.AnswerValue {
	none := -1
	return model.AnswerValue{OptionIndex: &none}
}

func (h *singleChoiceHandler) HasCorrectAnswer() bool { return true }

func (h *singleChoiceHandler) CorrectAnswers(q *model.Question) *model.AnswerValue {
	if q.SingleChoice == nil {
		return nil
	}
	idx := q.SingleChoice.CorrectIndex
	return &model.AnswerValue{OptionIndex: &idx}
}

func (h *singleChoiceHandler) IsCorrect(q *model.Question, a model.AnswerValue) bool {
	return q.SingleChoice != nil && a.OptionIndex != nil && *a.OptionIndex == q.SingleChoice.CorrectIndex
}

// multiple-choice

type multipleChoiceHandler struct{}

func (h *multipleChoiceHandler) Type() model.QuestionType { return model.QuestionMultipleChoice }

func (h *multipleChoiceHandler) ValidateAnswer(q *model.Question, a model.AnswerValue) error {
	if q.MultipleChoice == nil || a.OptionIndices == nil {
		return domain.ErrInvalidAnswer
	}
	seen := make(map[int]bool, len(a.OptionIndices))
	for _, idx := range a.OptionIndices {
		if idx < 0 || idx >= len(q.MultipleChoice.Answers) {
			return fmt.Errorf("%w: option index %d out of range", domain.ErrInvalidAnswer, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: duplicate option index %d", domain.ErrInvalidAnswer, idx)
		}
		seen[idx] = true
	}
	return nil
}

func (h *multipleChoiceHandler) CalculateScore(q *model.Question, a model.AnswerValue, timeRemaining float64) int {
	correct, wrong := h.tally(q, a)
	return scoring.Proportional(correct, wrong, len(q.MultipleChoice.CorrectIndices), timeRemaining, limitSeconds(q))
}

func (h *multipleChoiceHandler) DefaultAnswer(*model.Question) model.AnswerValue {
	return model.AnswerValue{OptionIndices: []int{}}
}

func (h *multipleChoiceHandler) HasCorrectAnswer() bool { return true }

func (h *multipleChoiceHandler) CorrectAnswers(q *model.Question) *model.AnswerValue {
	if q.MultipleChoice == nil {
		return nil
	}
	return &model.AnswerValue{OptionIndices: append([]int(nil), q.MultipleChoice.CorrectIndices...)}
}

func (h *multipleChoiceHandler) IsCorrect(q *model.Question, a model.AnswerValue) bool {
	if q.MultipleChoice == nil {
		return false
	}
	correct, wrong := h.tally(q, a)
	return wrong == 0 && correct == len(q.MultipleChoice.CorrectIndices)
}

func (h *multipleChoiceHandler) tally(q *model.Question, a model.AnswerValue) (correct, wrong int) {
	want := make(map[int]bool, len(q.MultipleChoice.CorrectIndices))
	for _, idx := range q.MultipleChoice.CorrectIndices {
		want[idx] = true
	}
	for _, idx := range a.OptionIndices {
		if want[idx] {
			correct++
		} else {
			wrong++
		}
	}
	return correct, wrong
}

// slider

type sliderHandler struct{}

func (h *sliderHandler) Type() model.QuestionType { return model.QuestionSlider }

func (h *sliderHandler) ValidateAnswer(q *model.Question, a model.AnswerValue) error {
	if q.Slider == nil || a.SliderValue == nil {
		return domain.ErrInvalidAnswer
	}
	if *a.SliderValue < q.Slider.Min || *a.SliderValue > q.Slider.Max {
		return fmt.Errorf("%w: value %v outside [%v,%v]", domain.ErrInvalidAnswer, *a.SliderValue, q.Slider.Min, q.Slider.Max)
	}
	return nil
}

func (h *sliderHandler) CalculateScore(q *model.Question, a model.AnswerValue, timeRemaining float64) int {
	if a.SliderValue == nil {
		return 0
	}
	p := q.Slider
	return scoring.Slider(*a.SliderValue, p.CorrectValue, p.Min, p.Max, timeRemaining, limitSeconds(q), p.AcceptableError).Score
}

func (h *sliderHandler) DefaultAnswer(q *model.Question) model.AnswerValue {
	if q.Slider == nil {
		return model.AnswerValue{}
	}
	v := q.Slider.Min
	return model.AnswerValue{SliderValue: &v}
}

func (h *sliderHandler) HasCorrectAnswer() bool { return true }

func (h *sliderHandler) CorrectAnswers(q *model.Question) *model.AnswerValue {
	if q.Slider == nil {
		return nil
	}
	v := q.Slider.CorrectValue
	return &model.AnswerValue{SliderValue: &v}
}

func (h *sliderHandler) IsCorrect(q *model.Question, a model.AnswerValue) bool {
	if q.Slider == nil || a.SliderValue == nil {
		return false
	}
	p := q.Slider
	return scoring.Slider(*a.SliderValue, p.CorrectValue, p.Min, p.Max, 0, limitSeconds(q), p.AcceptableError).Correct
}

// free-response

type freeResponseHandler struct {
	cfg scoring.Config
}

func (h *freeResponseHandler) Type() model.QuestionType { return model.QuestionFreeResponse }

func (h *freeResponseHandler) ValidateAnswer(q *model.Question, a model.AnswerValue) error {
	if q.FreeResponse == nil || a.Text == nil {
		return domain.ErrInvalidAnswer
	}
	if strings.TrimSpace(*a.Text) == "" {
		return fmt.Errorf("%w: empty response", domain.ErrInvalidAnswer)
	}
	return nil
}

func (h *freeResponseHandler) CalculateScore(q *model.Question, a model.AnswerValue, timeRemaining float64) int {
	return scoring.TimeBased(h.IsCorrect(q, a), timeRemaining, limitSeconds(q), h.cfg)
}

func (h *freeResponseHandler) DefaultAnswer(*model.Question) model.AnswerValue {
	empty := ""
	return model.AnswerValue{Text: &empty}
}

func (h *freeResponseHandler) HasCorrectAnswer() bool { return true }

func (h *freeResponseHandler) CorrectAnswers(q *model.Question) *model.AnswerValue {
	if q.FreeResponse == nil {
		return nil
	}
	text := q.FreeResponse.CorrectAnswer
	return &model.AnswerValue{Text: &text}
}

func (h *freeResponseHandler) IsCorrect(q *model.Question, a model.AnswerValue) bool {
	if q.FreeResponse == nil || a.Text == nil {
		return false
	}
	p := q.FreeResponse
	given := strings.TrimSpace(*a.Text)
	accepted := append([]string{p.CorrectAnswer}, p.Alternatives...)
	for _, want := range accepted {
		if matches(given, want, p.CaseSensitive, p.FuzzyMatch) {
			return true
		}
	}
	return false
}

func matches(given, want string, caseSensitive, fuzzy bool) bool {
	if !caseSensitive {
		given = strings.ToLower(given)
		want = strings.ToLower(want)
	}
	if given == want {
		return true
	}
	if !fuzzy {
		return false
	}
	return levenshtein(given, want) <= fuzzyTolerance(want)
}

// fuzzyTolerance allows one typo for short answers and two for longer ones.
func fuzzyTolerance(want string) int {
	if len(want) < 6 {
		return 1
	}
	return 2
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = minInt(cur[j-1]+1, minInt(prev[j]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// polls (single and multiple select) share one handler; they never carry a
// correct answer and always score 0.

type pollHandler struct {
	tag model.QuestionType
}

func (h *pollHandler) Type() model.QuestionType { return h.tag }

func (h *pollHandler) ValidateAnswer(q *model.Question, a model.AnswerValue) error {
	if q.Poll == nil {
		return domain.ErrInvalidAnswer
	}
	if h.tag == model.QuestionPollSingle {
		if a.OptionIndex == nil || *a.OptionIndex < 0 || *a.OptionIndex >= len(q.Poll.Answers) {
			return domain.ErrInvalidAnswer
		}
		return nil
	}
	if a.OptionIndices == nil {
		return domain.ErrInvalidAnswer
	}
	for _, idx := range a.OptionIndices {
		if idx < 0 || idx >= len(q.Poll.Answers) {
			return fmt.Errorf("%w: option index %d out of range", domain.ErrInvalidAnswer, idx)
		}
	}
	return nil
}

func (h *pollHandler) CalculateScore(*model.Question, model.AnswerValue, float64) int { return 0 }

func (h *pollHandler) DefaultAnswer(*model.Question) model.AnswerValue {
	if h.tag == model.QuestionPollSingle {
		none := -1
		return model.AnswerValue{OptionIndex: &none}
	}
	return model.AnswerValue{OptionIndices: []int{}}
}

func (h *pollHandler) HasCorrectAnswer() bool { return false }

func (h *pollHandler) CorrectAnswers(*model.Question) *model.AnswerValue { return nil }

func (h *pollHandler) IsCorrect(*model.Question, model.AnswerValue) bool { return false }

// slide

type slideHandler struct{}

func (h *slideHandler) Type() model.QuestionType { return model.QuestionSlide }

func (h *slideHandler) ValidateAnswer(*model.Question, model.AnswerValue) error {
	// Slides are informational; nothing to submit.
	return nil
}

func (h *slideHandler) CalculateScore(*model.Question, model.AnswerValue, float64) int { return 0 }

func (h *slideHandler) DefaultAnswer(*model.Question) model.AnswerValue {
	return model.AnswerValue{}
}

func (h *slideHandler) HasCorrectAnswer() bool { return false }

func (h *slideHandler) CorrectAnswers(*model.Question) *model.AnswerValue { return nil }

func (h *slideHandler) IsCorrect(*model.Question, model.AnswerValue) bool { return false }
