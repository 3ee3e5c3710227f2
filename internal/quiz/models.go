// Package quiz assembles quizzes, accepts submissions, runs the per-answer
// grading state machine and gates result publication.
package quiz

import (
	"strings"
	"time"

	"github.com/mind-engage/mindengage-learn/internal/grading"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

type Type string

const (
	TypeDaily    Type = "daily"
	TypeMonthly  Type = "monthly"
	TypeSemester Type = "semester"
)

func (t Type) Valid() bool { return t == TypeDaily || t == TypeMonthly || t == TypeSemester }

type Quiz struct {
	ID                  int64     `json:"id"`
	SubjectID           int64     `json:"subject_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Type                Type      `json:"type"`
	DayNumber           *int      `json:"day_number,omitempty"`
	ModelAnswerText     *string   `json:"model_answer_text,omitempty"`
	ModelAnswerImageURL *string   `json:"model_answer_image_url,omitempty"`
	ResultsPublished    bool      `json:"results_published"`
	CreatedBy           int64     `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type Question struct {
	ID                      int64                `json:"id"`
	QuizID                  int64                `json:"quiz_id"`
	Question                string               `json:"question"`
	Type                    grading.QuestionType `json:"question_type"`
	Order                   int                  `json:"order"`
	ReferenceAnswerText     *string              `json:"reference_answer_text,omitempty"`
	ReferenceAnswerImageURL *string              `json:"reference_answer_image_url,omitempty"`
	Options                 []Option             `json:"options"`
}

// Option is a multiple-choice option. IsCorrect is nil in student views.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  *bool  `json:"is_correct,omitempty"`
	Order      int    `json:"order"`
}

func (o Option) Correct() bool { return o.IsCorrect != nil && *o.IsCorrect }

// FullQuiz is a quiz with its ordered questions and options.
type FullQuiz struct {
	Quiz
	Questions []Question `json:"questions"`
}

// StudentView strips everything that would reveal answers.
func (f FullQuiz) StudentView() FullQuiz {
	out := f
	out.ModelAnswerText, out.ModelAnswerImageURL = nil, nil
	out.Questions = make([]Question, len(f.Questions))
	for i, q := range f.Questions {
		q.ReferenceAnswerText, q.ReferenceAnswerImageURL = nil, nil
		opts := make([]Option, len(q.Options))
		for j, o := range q.Options {
			o.IsCorrect = nil
			opts[j] = o
		}
		q.Options = opts
		out.Questions[i] = q
	}
	return out
}

// AllMultipleChoice reports whether every question is auto-gradable.
func (f FullQuiz) AllMultipleChoice() bool {
	for _, q := range f.Questions {
		if q.Type != grading.MultipleChoice {
			return false
		}
	}
	return len(f.Questions) > 0
}

func (f FullQuiz) question(id int64) (Question, bool) {
	for _, q := range f.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Summary is a quiz listing row.
type Summary struct {
	Quiz
	QuestionCount int            `json:"question_count"`
	Attempted     bool           `json:"attempted"`
	AttemptStatus *AttemptStatus `json:"attempt_status,omitempty"`
}

type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptGraded  AttemptStatus = "graded"
)

// Attempt is one student's single submission of a quiz.
type Attempt struct {
	ID          int64         `json:"id"`
	QuizID      int64         `json:"quiz_id"`
	StudentID   int64         `json:"student_id"`
	Status      AttemptStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// Answer moves from ungraded (Score nil) to graded exactly once per
// grading action; regrading overwrites.
type Answer struct {
	ID               int64      `json:"id"`
	AttemptID        int64      `json:"attempt_id"`
	QuizID           int64      `json:"quiz_id"`
	StudentID        int64      `json:"student_id"`
	QuestionID       int64      `json:"question_id"`
	SelectedOptionID *int64     `json:"selected_option_id,omitempty"`
	TextAnswer       *string    `json:"text_answer,omitempty"`
	ImageURL         *string    `json:"image_url,omitempty"`
	Score            *int       `json:"score"`
	Feedback         *string    `json:"feedback,omitempty"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	GradedAt         *time.Time `json:"graded_at,omitempty"`
	GradedBy         *int64     `json:"graded_by,omitempty"`
}

func (a Answer) Graded() bool { return a.Score != nil }

// ---- inputs ----

type NewQuiz struct {
	SubjectID           int64         `json:"subject_id" validate:"required,gt=0"`
	Title               string        `json:"title" validate:"notblank,max=200"`
	Description         string        `json:"description" validate:"max=2000"`
	Type                Type          `json:"type" validate:"required,oneof=daily monthly semester"`
	DayNumber           *int          `json:"day_number" validate:"omitempty,min=1"`
	ModelAnswerText     *string       `json:"model_answer_text"`
	ModelAnswerImageURL *string       `json:"model_answer_image_url" validate:"omitempty,url"`
	Questions           []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

type NewQuestion struct {
	Question                string               `json:"question" validate:"notblank"`
	Type                    grading.QuestionType `json:"question_type" validate:"required,oneof=multiple_choice short_answer essay"`
	Order                   int                  `json:"order" validate:"omitempty,min=1"`
	ReferenceAnswerText     *string              `json:"reference_answer_text"`
	ReferenceAnswerImageURL *string              `json:"reference_answer_image_url" validate:"omitempty,url"`
	Options                 []NewOption          `json:"options" validate:"dive"`
}

type NewOption struct {
	Text      string `json:"text" validate:"notblank"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" validate:"omitempty,min=1"`
}

type SubmitInput struct {
	StartedAt *time.Time    `json:"started_at"`
	Answers   []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// AnswerInput carries at most one image: either an already durable
// ImageURL or inline Image bytes to upload.
type AnswerInput struct {
	QuestionID       int64                `json:"question_id" validate:"required,gt=0"`
	SelectedOptionID *int64               `json:"selected_option_id"`
	TextAnswer       *string              `json:"text_answer"`
	ImageURL         string               `json:"image_url"`
	Image            *storage.ImageUpload `json:"image"`
}

func (a AnswerInput) hasText() bool { return a.TextAnswer != nil && strings.TrimSpace(*a.TextAnswer) != "" }
func (a AnswerInput) hasImage() bool {
	return a.ImageURL != "" || (a.Image != nil && a.Image.Data != "")
}

type GradeInput struct {
	Score    *int    `json:"score" validate:"required"`
	Feedback *string `json:"feedback"`
}

type ModelAnswerInput struct {
	Text     *string `json:"model_answer_text"`
	ImageURL *string `json:"model_answer_image_url" validate:"omitempty,url"`
}

// ---- outputs ----

const (
	StatusGraded               = "graded"
	StatusPendingManualGrading = "pending_manual_grading"
	StatusNotPublished         = "not_published"
	StatusPublished            = "published"
)

// Warning reports an image that could not be stored. The rest of the
// answer was still submitted.
type Warning struct {
	QuestionID    int64  `json:"question_id"`
	Error         string `json:"error"`
	HasTextAnswer bool   `json:"has_text_answer"`
}

type SubmissionResult struct {
	Status         string    `json:"status"`
	AttemptID      int64     `json:"attempt_id"`
	Score          *int      `json:"score,omitempty"`
	TotalQuestions *int      `json:"total_questions,omitempty"`
	CorrectAnswers *int      `json:"correct_answers,omitempty"`
	Warnings       []Warning `json:"warnings"`
	Message        string    `json:"message"`
}

// Results is what a student sees for a quiz. Published is nil while the
// results are withheld.
type Results struct {
	Status string `json:"status"`
	*Published
}

type Published struct {
	QuizID              int64          `json:"quiz_id"`
	AttemptID           *int64         `json:"attempt_id"`
	Answers             []ResultAnswer `json:"answers"`
	ModelAnswerText     *string        `json:"model_answer_text"`
	ModelAnswerImageURL *string        `json:"model_answer_image_url"`
	Score               *int           `json:"score"`
	GradedCount         int            `json:"graded_count"`
	PendingCount        int            `json:"pending_count"`
}

type ResultAnswer struct {
	Answer
	Question        string               `json:"question"`
	QuestionType    grading.QuestionType `json:"question_type"`
	CorrectOptionID *int64               `json:"correct_option_id,omitempty"`
}

// SubmissionSummary is one row of the admin grading queue.
type SubmissionSummary struct {
	AttemptID    int64         `json:"attempt_id"`
	StudentID    int64         `json:"student_id"`
	StudentName  string        `json:"student_name"`
	StudentEmail string        `json:"student_email"`
	Status       AttemptStatus `json:"status"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	GradedCount  int           `json:"graded_count"`
	PendingCount int           `json:"pending_count"`
	ScoreSum     int           `json:"-"`
	Score        *int          `json:"score"`
}

type SubmissionDetail struct {
	Attempt Attempt        `json:"attempt"`
	Quiz    Quiz           `json:"quiz"`
	Answers []AnswerDetail `json:"answers"`
	Score   *int           `json:"score"`
}

type AnswerDetail struct {
	Answer
	Question            string               `json:"question"`
	QuestionType        grading.QuestionType `json:"question_type"`
	Options             []Option             `json:"options"`
	ReferenceAnswerText *string              `json:"reference_answer_text,omitempty"`
	Hints               []string             `json:"hints,omitempty"`
}
