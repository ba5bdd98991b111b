package model

// QuestionType tags the question union.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single-choice"
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionSlider         QuestionType = "slider"
	QuestionFreeResponse   QuestionType = "free-response"
	QuestionPollSingle     QuestionType = "poll-single"
	QuestionPollMultiple   QuestionType = "poll-multiple"
	QuestionSlide          QuestionType = "slide"
)

// AllQuestionTypes lists every declared type tag. Handler registration is
// checked against this list so a new variant cannot silently fall through.
var AllQuestionTypes = []QuestionType{
	QuestionSingleChoice,
	QuestionMultipleChoice,
	QuestionSlider,
	QuestionFreeResponse,
	QuestionPollSingle,
	QuestionPollMultiple,
	QuestionSlide,
}

// Question is a tagged union: exactly one per-type payload is set,
// matching Type.
type Question struct {
	ID           string       `json:"id" bson:"id"`
	Type         QuestionType `json:"type" bson:"type"`
	Prompt       string       `json:"prompt" bson:"prompt"`
	TimeLimitSec int          `json:"timeLimitSec,omitempty" bson:"timeLimitSec,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`

	SingleChoice   *SingleChoicePayload   `json:"singleChoice,omitempty" bson:"singleChoice,omitempty"`
	MultipleChoice *MultipleChoicePayload `json:"multipleChoice,omitempty" bson:"multipleChoice,omitempty"`
	Slider         *SliderPayload         `json:"slider,omitempty" bson:"slider,omitempty"`
	FreeResponse   *FreeResponsePayload   `json:"freeResponse,omitempty" bson:"freeResponse,omitempty"`
	Poll           *PollPayload           `json:"poll,omitempty" bson:"poll,omitempty"`
}

// SingleChoicePayload has an ordered answer list with one correct index.
type SingleChoicePayload struct {
	Answers      []string `json:"answers" bson:"answers"`
	CorrectIndex int      `json:"correctIndex" bson:"correctIndex"`
}

// MultipleChoicePayload has a set of correct indices.
type MultipleChoicePayload struct {
	Answers        []string `json:"answers" bson:"answers"`
	CorrectIndices []int    `json:"correctIndices" bson:"correctIndices"`
	RevealCount    bool     `json:"revealCount,omitempty" bson:"revealCount,omitempty"`
}

// SliderPayload is a numeric range question.
type SliderPayload struct {
	Min             float64  `json:"min" bson:"min"`
	Max             float64  `json:"max" bson:"max"`
	CorrectValue    float64  `json:"correctValue" bson:"correctValue"`
	Step            float64  `json:"step,omitempty" bson:"step,omitempty"`
	Unit            string   `json:"unit,omitempty" bson:"unit,omitempty"`
	AcceptableError *float64 `json:"acceptableError,omitempty" bson:"acceptableError,omitempty"`
}

// FreeResponsePayload matches typed answers against accepted strings.
type FreeResponsePayload struct {
	CorrectAnswer string   `json:"correctAnswer" bson:"correctAnswer"`
	Alternatives  []string `json:"alternatives,omitempty" bson:"alternatives,omitempty"`
	CaseSensitive bool     `json:"caseSensitive,omitempty" bson:"caseSensitive,omitempty"`
	FuzzyMatch    bool     `json:"fuzzyMatch,omitempty" bson:"fuzzyMatch,omitempty"`
}

// PollPayload is shared by poll-single and poll-multiple; no correctness.
type PollPayload struct {
	Answers []string `json:"answers" bson:"answers"`
}

// HasCorrectAnswer reports whether the type carries a correct answer.
// Polls and slides never do.
func (q *Question) HasCorrectAnswer() bool {
	switch q.Type {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionSlider, QuestionFreeResponse:
		return true
	default:
		return false
	}
}

// AnswerValue is the per-type answer payload submitted by a player.
// Exactly the fields matching the question type are set.
type AnswerValue struct {
	OptionIndex   *int     `json:"optionIndex,omitempty" bson:"optionIndex,omitempty"`
	OptionIndices []int    `json:"optionIndices,omitempty" bson:"optionIndices,omitempty"`
	SliderValue   *float64 `json:"sliderValue,omitempty" bson:"sliderValue,omitempty"`
	Text          *string  `json:"text,omitempty" bson:"text,omitempty"`
}

// AnswerRecord is one scored answer inside a player document. Written only
// by the authoritative scoring path.
type AnswerRecord struct {
	QuestionIndex int          `json:"questionIndex" bson:"questionIndex"`
	QuestionType  QuestionType `json:"questionType" bson:"questionType"`
	Answer        AnswerValue  `json:"answer" bson:"answer"`
	Points        int          `json:"points" bson:"points"`
	Correct       bool         `json:"correct" bson:"correct"`
	TimedOut      bool         `json:"timedOut,omitempty" bson:"timedOut,omitempty"`
	AnsweredAtMS  int64        `json:"answeredAtMs" bson:"answeredAtMs"`
}
