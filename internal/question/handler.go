// Package question implements per-type answer handling. Adding a question
// variant means adding one handler and one registry entry; call sites
// dispatch through the registry and never switch on the type tag.
package question

import (
	"fmt"

	"quizdeck/internal/domain"
	"quizdeck/internal/model"
)

// Handler is the strategy for one question type tag.
type Handler interface {
	Type() model.QuestionType
	// ValidateAnswer rejects payloads that do not match the question shape.
	ValidateAnswer(q *model.Question, a model.AnswerValue) error
	// CalculateScore computes points for the answer given seconds remaining.
	CalculateScore(q *model.Question, a model.AnswerValue, timeRemaining float64) int
	// DefaultAnswer is recorded when a player times out without answering.
	DefaultAnswer(q *model.Question) model.AnswerValue
	HasCorrectAnswer() bool
	// CorrectAnswers returns the expected answer, or nil for polls/slides.
	CorrectAnswers(q *model.Question) *model.AnswerValue
	IsCorrect(q *model.Question, a model.AnswerValue) bool
}

// Registry resolves a question's runtime type tag to its handler.
type Registry struct {
	handlers map[model.QuestionType]Handler
}

// NewRegistry builds a registry covering every declared question type.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[model.QuestionType]Handler)}
	cfg := defaultScoring()
	r.register(&singleChoiceHandler{cfg: cfg})
	r.register(&multipleChoiceHandler{})
	r.register(&sliderHandler{})
	r.register(&freeResponseHandler{cfg: cfg})
	r.register(&pollHandler{tag: model.QuestionPollSingle})
	r.register(&pollHandler{tag: model.QuestionPollMultiple})
	r.register(&slideHandler{})
	return r
}

func (r *Registry) register(h Handler) {
	r.handlers[h.Type()] = h
}

// Handler returns the handler for tag, or a classified unsupported-type
// error for unknown tags. Never a silent no-op.
func (r *Registry) Handler(tag model.QuestionType) (Handler, error) {
	h, ok := r.handlers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedQuestionType, tag)
	}
	return h, nil
}
