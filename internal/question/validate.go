package question

import (
	"fmt"

	"quizdeck/internal/domain"
	"quizdeck/internal/model"
)

// Validate checks an authored question before it is persisted: the prompt
// is present, exactly one per-type payload matches the type tag, and the
// payload itself is coherent. Malformed questions never reach the store.
func Validate(q *model.Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("%w: missing prompt", domain.ErrInvalidAnswer)
	}
	if err := validatePayloadShape(q); err != nil {
		return err
	}
	switch q.Type {
	case model.QuestionSingleChoice:
		p := q.SingleChoice
		if len(p.Answers) < 2 {
			return fmt.Errorf("%w: single-choice needs at least 2 answers", domain.ErrInvalidAnswer)
		}
		if p.CorrectIndex < 0 || p.CorrectIndex >= len(p.Answers) {
			return fmt.Errorf("%w: correct index out of range", domain.ErrInvalidAnswer)
		}
	case model.QuestionMultipleChoice:
		p := q.MultipleChoice
		if len(p.Answers) < 2 {
			return fmt.Errorf("%w: multiple-choice needs at least 2 answers", domain.ErrInvalidAnswer)
		}
		// Rejected rather than silently repaired: an author removing every
		// correct answer is an authoring mistake, not something to patch
		// with injected indices.
		if len(p.CorrectIndices) == 0 {
			return fmt.Errorf("%w: multiple-choice needs at least 1 correct index", domain.ErrInvalidAnswer)
		}
		for _, idx := range p.CorrectIndices {
			if idx < 0 || idx >= len(p.Answers) {
				return fmt.Errorf("%w: correct index %d out of range", domain.ErrInvalidAnswer, idx)
			}
		}
	case model.QuestionSlider:
		p := q.Slider
		if p.Min >= p.Max {
			return fmt.Errorf("%w: slider range is empty", domain.ErrInvalidAnswer)
		}
		if p.CorrectValue < p.Min || p.CorrectValue > p.Max {
			return fmt.Errorf("%w: correct value outside range", domain.ErrInvalidAnswer)
		}
		if p.AcceptableError != nil && *p.AcceptableError < 0 {
			return fmt.Errorf("%w: negative acceptable error", domain.ErrInvalidAnswer)
		}
	case model.QuestionFreeResponse:
		if q.FreeResponse.CorrectAnswer == "" {
			return fmt.Errorf("%w: free-response needs a correct answer", domain.ErrInvalidAnswer)
		}
	case model.QuestionPollSingle, model.QuestionPollMultiple:
		if len(q.Poll.Answers) < 2 {
			return fmt.Errorf("%w: poll needs at least 2 answers", domain.ErrInvalidAnswer)
		}
	case model.QuestionSlide:
		// prompt only
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedQuestionType, q.Type)
	}
	return nil
}

// validatePayloadShape enforces the union invariant: exactly one payload,
// and it must be the one the tag names.
func validatePayloadShape(q *model.Question) error {
	set := 0
	if q.SingleChoice != nil {
		set++
	}
	if q.MultipleChoice != nil {
		set++
	}
	if q.Slider != nil {
		set++
	}
	if q.FreeResponse != nil {
		set++
	}
	if q.Poll != nil {
		set++
	}

	var want bool
	switch q.Type {
	case model.QuestionSingleChoice:
		want = q.SingleChoice != nil
	case model.QuestionMultipleChoice:
		want = q.MultipleChoice != nil
	case model.QuestionSlider:
		want = q.Slider != nil
	case model.QuestionFreeResponse:
		want = q.FreeResponse != nil
	case model.QuestionPollSingle, model.QuestionPollMultiple:
		want = q.Poll != nil
	case model.QuestionSlide:
		if set != 0 {
			return fmt.Errorf("%w: slide carries an answer payload", domain.ErrInvalidAnswer)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedQuestionType, q.Type)
	}
	if !want || set != 1 {
		return fmt.Errorf("%w: payload does not match type %q", domain.ErrInvalidAnswer, q.Type)
	}
	return nil
}
