package quiz

import (
	"context"
	"time"
)

// Store is the data access the quiz service needs. Implementations must
// make SaveSubmission and GradeAnswer atomic.
type Store interface {
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
	GetFullQuiz(ctx context.Context, id int64) (FullQuiz, error)
	ListQuizzes(ctx context.Context, subjectID int64, typ Type, studentID int64) ([]Summary, error)
	InsertQuiz(ctx context.Context, q FullQuiz) (FullQuiz, error)
	DeleteQuiz(ctx context.Context, id int64) error

	SetModelAnswer(ctx context.Context, quizID int64, text, imageURL *string, at time.Time) error
	// Publish reports whether the flag changed; publishing twice is a no-op.
	Publish(ctx context.Context, quizID int64, at time.Time) (bool, error)

	// SaveSubmission writes the attempt and all answers or nothing. A second
	// attempt for the same (student, quiz) fails with a Conflict.
	SaveSubmission(ctx context.Context, a Attempt, answers []Answer) (Attempt, []Answer, error)
	GetAttempt(ctx context.Context, quizID, studentID int64) (Attempt, bool, error)
	ListAttempts(ctx context.Context, quizID int64) ([]SubmissionSummary, error)
	ListAnswers(ctx context.Context, attemptID int64) ([]Answer, error)

	// GradeAnswer overwrites the grade of one answer and recomputes the
	// status of its attempt.
	GradeAnswer(ctx context.Context, answerID int64, score int, feedback *string, by int64, at time.Time) (Answer, AttemptStatus, error)
}
