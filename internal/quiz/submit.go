package quiz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/grading"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/storage"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

var errUnsupportedImageRef = errors.New("unsupported image reference")

// Submit validates the whole answer set, uploads inline images, scores
// multiple-choice answers and stores the attempt with all answers in one
// transaction.
func (s *Service) Submit(ctx context.Context, p rbac.Principal, quizID int64, in SubmitInput) (SubmissionResult, error) {
	const op = "quiz.submit"
	if err := rbac.Authorize(p, "quiz:submit"); err != nil {
		return SubmissionResult{}, err
	}
	full, err := s.loadPlayable(ctx, quizID)
	if err != nil {
		return SubmissionResult{}, err
	}
	if err := s.authorizeSubject(ctx, p, full.SubjectID); err != nil {
		return SubmissionResult{}, err
	}
	if err := validate.Struct(op, in); err != nil {
		return SubmissionResult{}, err
	}
	if fields := checkAnswers(full, in.Answers); len(fields) > 0 {
		return SubmissionResult{}, apperr.Validation(op, "invalid answers", fields...)
	}
	// fail fast before uploading anything; SaveSubmission re-checks atomically
	if _, exists, err := s.store.GetAttempt(ctx, quizID, p.UserID); err != nil {
		return SubmissionResult{}, err
	} else if exists {
		return SubmissionResult{}, apperr.Conflict(op, "quiz %d has already been submitted", quizID)
	}

	images, warnings, err := s.resolveImages(ctx, full, in.Answers)
	if err != nil {
		return SubmissionResult{}, err
	}

	now := s.clock()
	started := now
	if in.StartedAt != nil && !in.StartedAt.IsZero() && in.StartedAt.Before(now) {
		started = in.StartedAt.UTC().Truncate(time.Second)
	}
	answers := make([]Answer, 0, len(in.Answers))
	correct, pending := 0, 0
	for i, ai := range in.Answers {
		q, _ := full.question(ai.QuestionID)
		res, err := s.grader.Grade(ctx, toGradingQ(q), grading.Response{
			SelectedOptionID: ai.SelectedOptionID,
			Text:             deref(ai.TextAnswer),
			ImageURL:         images[i],
		})
		if err != nil {
			return SubmissionResult{}, apperr.Validation(op, "invalid answers", apperr.FieldError{
				Field: fmt.Sprintf("answers[%d].selected_option_id", i), Error: err.Error(),
			})
		}
		a := Answer{
			QuizID:      quizID,
			StudentID:   p.UserID,
			QuestionID:  q.ID,
			Score:       res.Score,
			SubmittedAt: now,
		}
		if q.Type == grading.MultipleChoice {
			a.SelectedOptionID = ai.SelectedOptionID
		} else if ai.hasText() {
			a.TextAnswer = ai.TextAnswer
		}
		if images[i] != "" && q.Type != grading.MultipleChoice {
			a.ImageURL = &images[i]
		}
		if res.Score != nil {
			a.GradedAt = &now
			correct += *res.Score
		} else {
			pending++
		}
		answers = append(answers, a)
	}

	status := AttemptGraded
	if pending > 0 {
		status = AttemptPending
	}
	attempt, _, err := s.store.SaveSubmission(ctx, Attempt{
		QuizID:      quizID,
		StudentID:   p.UserID,
		Status:      status,
		StartedAt:   started,
		SubmittedAt: now,
	}, answers)
	if err != nil {
		return SubmissionResult{}, err
	}

	out := SubmissionResult{Status: StatusPendingManualGrading, AttemptID: attempt.ID, Warnings: warnings}
	if full.Type == TypeDaily && full.AllMultipleChoice() {
		total := len(full.Questions)
		score := grading.Percent(correct, total)
		out.Status = StatusGraded
		out.Score, out.TotalQuestions, out.CorrectAnswers = &score, &total, &correct
	}
	out.Message = submitMessage(out)

	s.log.WithFields(logrus.Fields{
		"quiz_id":    quizID,
		"student_id": p.UserID,
		"attempt_id": attempt.ID,
		"status":     out.Status,
		"answers":    len(answers),
		"warnings":   len(warnings),
	}).Info("quiz submitted")
	return out, nil
}

// checkAnswers rejects the whole submission when any answer does not fit
// this quiz.
func checkAnswers(full FullQuiz, answers []AnswerInput) []apperr.FieldError {
	var fields []apperr.FieldError
	seen := make(map[int64]bool, len(answers))
	for i, a := range answers {
		at := "answers[" + strconv.Itoa(i) + "]"
		q, ok := full.question(a.QuestionID)
		if !ok {
			fields = append(fields, apperr.FieldError{Field: at + ".question_id", Error: fmt.Sprintf("question %d is not part of this quiz", a.QuestionID)})
			continue
		}
		if seen[a.QuestionID] {
			fields = append(fields, apperr.FieldError{Field: at + ".question_id", Error: fmt.Sprintf("question %d is answered more than once", a.QuestionID)})
			continue
		}
		seen[a.QuestionID] = true

		switch q.Type {
		case grading.MultipleChoice:
			if a.SelectedOptionID != nil && !hasOption(q, *a.SelectedOptionID) {
				fields = append(fields, apperr.FieldError{Field: at + ".selected_option_id", Error: fmt.Sprintf("option %d does not belong to question %d", *a.SelectedOptionID, q.ID)})
			}
		default:
			if !a.hasText() && !a.hasImage() {
				fields = append(fields, apperr.FieldError{Field: at + ".text_answer", Error: "a text answer or an image is required"})
			}
		}
	}
	return fields
}

func hasOption(q Question, id int64) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// resolveImages returns a durable URL per answer index ("" for none) and a
// warning for every image that could not be stored. Upload failures never
// fail the submission.
func (s *Service) resolveImages(ctx context.Context, full FullQuiz, answers []AnswerInput) ([]string, []Warning, error) {
	urls := make([]string, len(answers))
	errs := make([]error, len(answers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.uploadWorkers, 1))
	for i, a := range answers {
		i, a := i, a
		q, _ := full.question(a.QuestionID)
		if q.Type == grading.MultipleChoice || !a.hasImage() {
			continue
		}
		switch {
		case a.Image != nil && a.Image.Data != "":
			g.Go(func() error {
				urls[i], errs[i] = s.upload(gctx, *a.Image)
				return nil
			})
		case storage.IsRemoteURL(a.ImageURL):
			urls[i] = a.ImageURL
		case storage.IsLocalPath(a.ImageURL):
			errs[i] = apperr.Upload("quiz.upload_image", storage.ErrLocalPath)
		default:
			errs[i] = apperr.Upload("quiz.upload_image", errUnsupportedImageRef)
		}
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, apperr.Transient("quiz.upload_image", err)
	}

	warnings := []Warning{}
	for i, err := range errs {
		if err == nil {
			continue
		}
		s.log.WithFields(logrus.Fields{"quiz_id": full.ID, "question_id": answers[i].QuestionID}).
			WithError(err).Warn("answer image dropped")
		warnings = append(warnings, Warning{
			QuestionID:    answers[i].QuestionID,
			Error:         uploadReason(err),
			HasTextAnswer: answers[i].hasText(),
		})
	}
	return urls, warnings, nil
}

func (s *Service) upload(ctx context.Context, img storage.ImageUpload) (string, error) {
	data, contentType, err := img.Decode(s.maxImageBytes)
	if err != nil {
		return "", apperr.Upload("quiz.upload_image", err)
	}
	url, err := s.blobs.Put(ctx, data, contentType)
	if err != nil {
		return "", apperr.Upload("quiz.upload_image", err)
	}
	return url, nil
}

func uploadReason(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Err != nil {
		return ae.Err.Error()
	}
	return err.Error()
}

func submitMessage(r SubmissionResult) string {
	var b strings.Builder
	switch r.Status {
	case StatusGraded:
		fmt.Fprintf(&b, "Quiz graded: %d of %d correct (%d%%).", *r.CorrectAnswers, *r.TotalQuestions, *r.Score)
	default:
		b.WriteString("Quiz submitted. Results will be available once grading is complete.")
	}
	if n := len(r.Warnings); n > 0 {
		ids := make([]string, 0, n)
		for _, w := range r.Warnings {
			ids = append(ids, strconv.FormatInt(w.QuestionID, 10))
		}
		fmt.Fprintf(&b, " %d image(s) could not be uploaded (questions %s); your text answers were still submitted.",
			n, strings.Join(ids, ", "))
	}
	return b.String()
}

func toGradingQ(q Question) grading.Q {
	gq := grading.Q{Type: q.Type, ReferenceText: deref(q.ReferenceAnswerText)}
	for _, o := range q.Options {
		gq.Choices = append(gq.Choices, grading.Choice{ID: o.ID, IsCorrect: o.Correct()})
	}
	return gq
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
