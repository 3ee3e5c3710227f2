package grading

import (
	"context"
	"errors"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	return t == MultipleChoice || t == ShortAnswer || t == Essay
}

// FreeText reports whether answers of this type need a human grader.
func (t QuestionType) FreeText() bool { return t == ShortAnswer || t == Essay }

// Choice is the part of a quiz option grading needs.
type Choice struct {
	ID        int64
	IsCorrect bool
}

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type          QuestionType
	Choices       []Choice
	ReferenceText string
}

// Response is what the student handed in for one question.
type Response struct {
	SelectedOptionID *int64
	Text             string
	ImageURL         string
}

// Result is the outcome of grading a single question response. Score is nil
// while the answer waits for manual grading.
type Result struct {
	Score       *int
	NeedsManual bool
	Feedback    []string
}

var ErrUnknownOption = errors.New("selected option does not belong to the question")

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, r Response) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, r Response) (Result, error)
}

type defaultGrader struct {
	strategies map[QuestionType]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, r Response) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{NeedsManual: true, Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, q, r)
}

// Engine options

type Option func(*config)

type config struct {
	MaxEditDistance int // tolerance for reference hints on short answers
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{MaxEditDistance: 1}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		strategies: map[QuestionType]Strategy{
			MultipleChoice: multipleChoiceStrategy{},
			ShortAnswer:    manualStrategy{hintEdit: cfg.MaxEditDistance},
			Essay:          manualStrategy{hintEdit: -1},
		},
	}
}

// --- Strategies ---

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(_ context.Context, q Q, r Response) (Result, error) {
	zero := 0
	if r.SelectedOptionID == nil {
		return Result{Score: &zero}, nil
	}
	for _, o := range q.Choices {
		if o.ID != *r.SelectedOptionID {
			continue
		}
		if o.IsCorrect {
			one := 1
			return Result{Score: &one}, nil
		}
		return Result{Score: &zero}, nil
	}
	return Result{}, ErrUnknownOption
}

// manualStrategy leaves the score empty. For short answers it notes when the
// text is close to the reference answer, as a hint for the grader.
type manualStrategy struct{ hintEdit int }

func (s manualStrategy) Grade(_ context.Context, q Q, r Response) (Result, error) {
	res := Result{NeedsManual: true, Feedback: []string{"manual grading required"}}
	if s.hintEdit >= 0 && q.ReferenceText != "" && r.Text != "" &&
		MatchesReference(r.Text, q.ReferenceText, s.hintEdit) {
		res.Feedback = append(res.Feedback, "close to reference answer")
	}
	return res, nil
}
