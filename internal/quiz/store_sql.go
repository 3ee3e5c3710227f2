package quiz

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/grading"
)

type SQLStore struct{ DB *sql.DB }

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{DB: d} }

type rowScanner interface{ Scan(dest ...any) error }

const quizCols = `q.id, q.subject_id, q.title, q.description, q.type, q.day_number, q.model_answer_text,
  q.model_answer_image_url, q.results_published, q.created_by, q.created_at, q.updated_at`

// scanQuiz reads quizCols followed by any extra destinations.
func scanQuiz(r rowScanner, extra ...any) (Quiz, error) {
	var (
		q                Quiz
		typ              string
		day              sql.NullInt64
		mText, mImage    sql.NullString
		created, updated int64
	)
	dest := append([]any{&q.ID, &q.SubjectID, &q.Title, &q.Description, &typ, &day, &mText, &mImage,
		&q.ResultsPublished, &q.CreatedBy, &created, &updated}, extra...)
	if err := r.Scan(dest...); err != nil {
		return Quiz{}, err
	}
	q.Type = Type(typ)
	q.DayNumber = db.IntPtr(day)
	q.ModelAnswerText = db.StringPtr(mText)
	q.ModelAnswerImageURL = db.StringPtr(mImage)
	q.CreatedAt, q.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return q, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	q, err := scanQuiz(s.DB.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes q WHERE q.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, apperr.NotFound("quiz.get", "quiz %d not found", id)
	}
	if err != nil {
		return Quiz{}, db.Wrap("quiz.get", err)
	}
	return q, nil
}

// GetFullQuiz loads questions and options ordered by their authored order,
// ties broken by id.
func (s *SQLStore) GetFullQuiz(ctx context.Context, id int64) (FullQuiz, error) {
	const op = "quiz.get_full"
	q, err := s.GetQuiz(ctx, id)
	if err != nil {
		return FullQuiz{}, err
	}
	full := FullQuiz{Quiz: q, Questions: []Question{}}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, quiz_id, question, question_type, sort_order, reference_answer_text, reference_answer_image_url
		 FROM quiz_questions WHERE quiz_id=$1 ORDER BY sort_order, id`, id)
	if err != nil {
		return FullQuiz{}, db.Wrap(op, err)
	}
	index := map[int64]int{}
	for rows.Next() {
		var (
			qq          Question
			typ         string
			rText, rImg sql.NullString
		)
		if err := rows.Scan(&qq.ID, &qq.QuizID, &qq.Question, &typ, &qq.Order, &rText, &rImg); err != nil {
			rows.Close()
			return FullQuiz{}, db.Wrap(op, err)
		}
		qq.Type = grading.QuestionType(typ)
		qq.ReferenceAnswerText = db.StringPtr(rText)
		qq.ReferenceAnswerImageURL = db.StringPtr(rImg)
		qq.Options = []Option{}
		index[qq.ID] = len(full.Questions)
		full.Questions = append(full.Questions, qq)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return FullQuiz{}, db.Wrap(op, err)
	}
	rows.Close()

	orows, err := s.DB.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.text, o.is_correct, o.sort_order
		 FROM quiz_options o JOIN quiz_questions qq ON qq.id = o.question_id
		 WHERE qq.quiz_id=$1 ORDER BY o.sort_order, o.id`, id)
	if err != nil {
		return FullQuiz{}, db.Wrap(op, err)
	}
	defer orows.Close()
	for orows.Next() {
		var (
			o       Option
			correct bool
		)
		if err := orows.Scan(&o.ID, &o.QuestionID, &o.Text, &correct, &o.Order); err != nil {
			return FullQuiz{}, db.Wrap(op, err)
		}
		o.IsCorrect = &correct
		if i, ok := index[o.QuestionID]; ok {
			full.Questions[i].Options = append(full.Questions[i].Options, o)
		}
	}
	return full, db.Wrap(op, orows.Err())
}

func (s *SQLStore) ListQuizzes(ctx context.Context, subjectID int64, typ Type, studentID int64) ([]Summary, error) {
	q := `SELECT ` + quizCols + `,
  (SELECT COUNT(*) FROM quiz_questions qq WHERE qq.quiz_id = q.id),
  a.status
FROM quizzes q
LEFT JOIN quiz_attempts a ON a.quiz_id = q.id AND a.student_id = $2
WHERE q.subject_id = $1`
	args := []any{subjectID, studentID}
	if typ != "" {
		q += ` AND q.type = $3`
		args = append(args, string(typ))
	}
	rows, err := s.DB.QueryContext(ctx, q+` ORDER BY COALESCE(q.day_number, 0), q.id`, args...)
	if err != nil {
		return nil, db.Wrap("quiz.list", err)
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var (
			sum    Summary
			status sql.NullString
		)
		qz, err := scanQuiz(rows, &sum.QuestionCount, &status)
		if err != nil {
			return nil, db.Wrap("quiz.list", err)
		}
		sum.Quiz = qz
		if status.Valid {
			st := AttemptStatus(status.String)
			sum.Attempted, sum.AttemptStatus = true, &st
		}
		out = append(out, sum)
	}
	return out, db.Wrap("quiz.list", rows.Err())
}

func (s *SQLStore) InsertQuiz(ctx context.Context, f FullQuiz) (FullQuiz, error) {
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO quizzes (subject_id, title, description, type, day_number, model_answer_text, model_answer_image_url,
			   results_published, created_by, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
			f.SubjectID, f.Title, f.Description, string(f.Type), db.NullInt(f.DayNumber),
			db.NullString(f.ModelAnswerText), db.NullString(f.ModelAnswerImageURL), false,
			f.CreatedBy, db.Unix(f.CreatedAt), db.Unix(f.UpdatedAt)).Scan(&f.ID); err != nil {
			return err
		}
		for i := range f.Questions {
			qq := &f.Questions[i]
			qq.QuizID = f.ID
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO quiz_questions (quiz_id, question, question_type, sort_order, reference_answer_text, reference_answer_image_url)
				 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
				f.ID, qq.Question, string(qq.Type), qq.Order,
				db.NullString(qq.ReferenceAnswerText), db.NullString(qq.ReferenceAnswerImageURL)).Scan(&qq.ID); err != nil {
				return err
			}
			for j := range qq.Options {
				o := &qq.Options[j]
				o.QuestionID = qq.ID
				if err := tx.QueryRowContext(ctx,
					`INSERT INTO quiz_options (question_id, text, is_correct, sort_order) VALUES ($1,$2,$3,$4) RETURNING id`,
					qq.ID, o.Text, o.Correct(), o.Order).Scan(&o.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return FullQuiz{}, db.Wrap("quiz.insert", err)
	}
	return f, nil
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return db.Wrap("quiz.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("quiz.delete", "quiz %d not found", id)
	}
	return nil
}

func (s *SQLStore) SetModelAnswer(ctx context.Context, quizID int64, text, imageURL *string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE quizzes SET model_answer_text=$1, model_answer_image_url=$2, updated_at=$3 WHERE id=$4`,
		db.NullString(text), db.NullString(imageURL), db.Unix(at), quizID)
	if err != nil {
		return db.Wrap("quiz.set_model_answer", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("quiz.set_model_answer", "quiz %d not found", quizID)
	}
	return nil
}

func (s *SQLStore) Publish(ctx context.Context, quizID int64, at time.Time) (bool, error) {
	const op = "quiz.publish"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE quizzes SET results_published=$1, updated_at=$2 WHERE id=$3 AND results_published=$4`,
		true, db.Unix(at), quizID, false)
	if err != nil {
		return false, db.Wrap(op, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	var one int
	err = s.DB.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperr.NotFound(op, "quiz %d not found", quizID)
	}
	return false, db.Wrap(op, err)
}

// ---- attempts & answers ----

func (s *SQLStore) SaveSubmission(ctx context.Context, a Attempt, answers []Answer) (Attempt, []Answer, error) {
	const op = "quiz.save_submission"
	conflict := func() error {
		return apperr.Conflict(op, "quiz %d has already been submitted", a.QuizID)
	}
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM quiz_attempts WHERE student_id=$1 AND quiz_id=$2`, a.StudentID, a.QuizID).Scan(&existing)
		if err == nil {
			return conflict()
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO quiz_attempts (quiz_id, student_id, status, started_at, submitted_at)
			 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			a.QuizID, a.StudentID, string(a.Status), db.Unix(a.StartedAt), db.Unix(a.SubmittedAt)).Scan(&a.ID); err != nil {
			if db.IsUniqueViolation(err) {
				return conflict()
			}
			return err
		}
		for i := range answers {
			ans := &answers[i]
			ans.AttemptID = a.ID
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO student_answers (attempt_id, quiz_id, student_id, question_id, selected_option_id, text_answer,
				   image_url, score, feedback, submitted_at, graded_at, graded_by)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
				a.ID, ans.QuizID, ans.StudentID, ans.QuestionID, db.NullInt64(ans.SelectedOptionID),
				db.NullString(ans.TextAnswer), db.NullString(ans.ImageURL), db.NullInt(ans.Score),
				db.NullString(ans.Feedback), db.Unix(ans.SubmittedAt), db.NullUnix(ans.GradedAt),
				db.NullInt64(ans.GradedBy)).Scan(&ans.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Attempt{}, nil, db.Wrap(op, err)
	}
	return a, answers, nil
}

const attemptCols = `id, quiz_id, student_id, status, started_at, submitted_at`

func (s *SQLStore) GetAttempt(ctx context.Context, quizID, studentID int64) (Attempt, bool, error) {
	var (
		a                  Attempt
		status             string
		started, submitted int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM quiz_attempts WHERE quiz_id=$1 AND student_id=$2`, quizID, studentID).
		Scan(&a.ID, &a.QuizID, &a.StudentID, &status, &started, &submitted)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, false, nil
	}
	if err != nil {
		return Attempt{}, false, db.Wrap("quiz.get_attempt", err)
	}
	a.Status = AttemptStatus(status)
	a.StartedAt, a.SubmittedAt = db.FromUnix(started), db.FromUnix(submitted)
	return a, true, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, quizID int64) ([]SubmissionSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT a.id, a.student_id, COALESCE(u.name, ''), COALESCE(u.email, ''), a.status, a.submitted_at,
  COALESCE(SUM(CASE WHEN sa.score IS NOT NULL THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN sa.score IS NULL AND sa.id IS NOT NULL THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(sa.score), 0)
FROM quiz_attempts a
LEFT JOIN users u ON u.id = a.student_id
LEFT JOIN student_answers sa ON sa.attempt_id = a.id
WHERE a.quiz_id = $1
GROUP BY a.id, a.student_id, u.name, u.email, a.status, a.submitted_at
ORDER BY a.submitted_at, a.id`, quizID)
	if err != nil {
		return nil, db.Wrap("quiz.list_attempts", err)
	}
	defer rows.Close()
	out := []SubmissionSummary{}
	for rows.Next() {
		var (
			sum       SubmissionSummary
			status    string
			submitted int64
		)
		if err := rows.Scan(&sum.AttemptID, &sum.StudentID, &sum.StudentName, &sum.StudentEmail, &status, &submitted,
			&sum.GradedCount, &sum.PendingCount, &sum.ScoreSum); err != nil {
			return nil, db.Wrap("quiz.list_attempts", err)
		}
		sum.Status = AttemptStatus(status)
		sum.SubmittedAt = db.FromUnix(submitted)
		out = append(out, sum)
	}
	return out, db.Wrap("quiz.list_attempts", rows.Err())
}

const answerCols = `id, attempt_id, quiz_id, student_id, question_id, selected_option_id, text_answer, image_url,
  score, feedback, submitted_at, graded_at, graded_by`

func scanAnswer(r rowScanner) (Answer, error) {
	var (
		a              Answer
		sel, score, by sql.NullInt64
		text, img, fb  sql.NullString
		submitted      int64
		graded         sql.NullInt64
	)
	if err := r.Scan(&a.ID, &a.AttemptID, &a.QuizID, &a.StudentID, &a.QuestionID, &sel, &text, &img,
		&score, &fb, &submitted, &graded, &by); err != nil {
		return Answer{}, err
	}
	a.SelectedOptionID = db.Int64Ptr(sel)
	a.TextAnswer, a.ImageURL, a.Feedback = db.StringPtr(text), db.StringPtr(img), db.StringPtr(fb)
	a.Score = db.IntPtr(score)
	a.SubmittedAt = db.FromUnix(submitted)
	a.GradedAt = db.TimePtr(graded)
	a.GradedBy = db.Int64Ptr(by)
	return a, nil
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID int64) ([]Answer, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+answerCols+` FROM student_answers WHERE attempt_id=$1 ORDER BY id`, attemptID)
	if err != nil {
		return nil, db.Wrap("quiz.list_answers", err)
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, db.Wrap("quiz.list_answers", err)
		}
		out = append(out, a)
	}
	return out, db.Wrap("quiz.list_answers", rows.Err())
}

func (s *SQLStore) GradeAnswer(ctx context.Context, answerID int64, score int, feedback *string, by int64, at time.Time) (Answer, AttemptStatus, error) {
	const op = "quiz.grade_answer"
	var (
		out    Answer
		status AttemptStatus
	)
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var attemptID int64
		err := tx.QueryRowContext(ctx, `SELECT attempt_id FROM student_answers WHERE id=$1`, answerID).Scan(&attemptID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(op, "answer %d not found", answerID)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE student_answers SET score=$1, feedback=$2, graded_at=$3, graded_by=$4 WHERE id=$5`,
			score, db.NullString(feedback), db.Unix(at), by, answerID); err != nil {
			return err
		}
		var pending int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM student_answers WHERE attempt_id=$1 AND score IS NULL`, attemptID).Scan(&pending); err != nil {
			return err
		}
		status = AttemptPending
		if pending == 0 {
			status = AttemptGraded
		}
		if _, err := tx.ExecContext(ctx, `UPDATE quiz_attempts SET status=$1 WHERE id=$2`, string(status), attemptID); err != nil {
			return err
		}
		out, err = scanAnswer(tx.QueryRowContext(ctx, `SELECT `+answerCols+` FROM student_answers WHERE id=$1`, answerID))
		return err
	})
	if err != nil {
		return Answer{}, "", db.Wrap(op, err)
	}
	return out, status, nil
}
