package course

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/db"
)

type Store interface {
	InsertSubject(ctx context.Context, s Subject) (Subject, error)
	UpdateSubject(ctx context.Context, s Subject) error
	DeleteSubject(ctx context.Context, id int64) error
	GetSubject(ctx context.Context, id int64) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)

	InsertLesson(ctx context.Context, l Lesson) (Lesson, error)
	UpdateLesson(ctx context.Context, l Lesson) error
	DeleteLesson(ctx context.Context, id int64) error
	GetLesson(ctx context.Context, id int64) (Lesson, error)
	ListLessons(ctx context.Context, subjectID int64) ([]Lesson, error)

	MarkComplete(ctx context.Context, studentID, subjectID, lessonID, at int64) error
	CompletedLessons(ctx context.Context, studentID, subjectID int64) ([]int64, error)
}

type SQLStore struct{ DB *sql.DB }

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{DB: d} }

const subjectCols = `id, name, description, curriculum, curriculum_url, number_of_days, created_by, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanSubject(r rowScanner) (Subject, error) {
	var (
		s                Subject
		created, updated int64
	)
	err := r.Scan(&s.ID, &s.Name, &s.Description, &s.Curriculum, &s.CurriculumURL, &s.NumberOfDays, &s.CreatedBy, &created, &updated)
	s.CreatedAt, s.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return s, err
}

func (st *SQLStore) InsertSubject(ctx context.Context, s Subject) (Subject, error) {
	err := st.DB.QueryRowContext(ctx,
		`INSERT INTO subjects (name, description, curriculum, curriculum_url, number_of_days, created_by, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		s.Name, s.Description, s.Curriculum, s.CurriculumURL, s.NumberOfDays, s.CreatedBy,
		db.Unix(s.CreatedAt), db.Unix(s.UpdatedAt)).Scan(&s.ID)
	if err != nil {
		return Subject{}, db.Wrap("course.insert_subject", err)
	}
	return s, nil
}

func (st *SQLStore) UpdateSubject(ctx context.Context, s Subject) error {
	res, err := st.DB.ExecContext(ctx,
		`UPDATE subjects SET name=$1, description=$2, curriculum=$3, curriculum_url=$4, number_of_days=$5, updated_at=$6 WHERE id=$7`,
		s.Name, s.Description, s.Curriculum, s.CurriculumURL, s.NumberOfDays, db.Unix(s.UpdatedAt), s.ID)
	return affected("course.update_subject", res, err, "subject", s.ID)
}

// DeleteSubject removes the subject; lessons, quizzes, attempts, answers and
// permissions go with it through ON DELETE CASCADE.
func (st *SQLStore) DeleteSubject(ctx context.Context, id int64) error {
	res, err := st.DB.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id)
	return affected("course.delete_subject", res, err, "subject", id)
}

func (st *SQLStore) GetSubject(ctx context.Context, id int64) (Subject, error) {
	s, err := scanSubject(st.DB.QueryRowContext(ctx, `SELECT `+subjectCols+` FROM subjects WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, apperr.NotFound("course.get_subject", "subject %d not found", id)
	}
	if err != nil {
		return Subject{}, db.Wrap("course.get_subject", err)
	}
	return s, nil
}

func (st *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := st.DB.QueryContext(ctx, `SELECT `+subjectCols+` FROM subjects ORDER BY name, id`)
	if err != nil {
		return nil, db.Wrap("course.list_subjects", err)
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, db.Wrap("course.list_subjects", err)
		}
		out = append(out, s)
	}
	return out, db.Wrap("course.list_subjects", rows.Err())
}

const lessonCols = `id, subject_id, title, content, day_number, sort_order, created_by, created_at, updated_at`

func scanLesson(r rowScanner) (Lesson, error) {
	var (
		l                Lesson
		created, updated int64
	)
	err := r.Scan(&l.ID, &l.SubjectID, &l.Title, &l.Content, &l.DayNumber, &l.Order, &l.CreatedBy, &created, &updated)
	l.CreatedAt, l.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return l, err
}

func (st *SQLStore) InsertLesson(ctx context.Context, l Lesson) (Lesson, error) {
	err := st.DB.QueryRowContext(ctx,
		`INSERT INTO lessons (subject_id, title, content, day_number, sort_order, created_by, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		l.SubjectID, l.Title, l.Content, l.DayNumber, l.Order, l.CreatedBy, db.Unix(l.CreatedAt), db.Unix(l.UpdatedAt)).Scan(&l.ID)
	if err != nil {
		return Lesson{}, db.Wrap("course.insert_lesson", err)
	}
	return l, nil
}

func (st *SQLStore) UpdateLesson(ctx context.Context, l Lesson) error {
	res, err := st.DB.ExecContext(ctx,
		`UPDATE lessons SET title=$1, content=$2, day_number=$3, sort_order=$4, updated_at=$5 WHERE id=$6`,
		l.Title, l.Content, l.DayNumber, l.Order, db.Unix(l.UpdatedAt), l.ID)
	return affected("course.update_lesson", res, err, "lesson", l.ID)
}

func (st *SQLStore) DeleteLesson(ctx context.Context, id int64) error {
	res, err := st.DB.ExecContext(ctx, `DELETE FROM lessons WHERE id=$1`, id)
	return affected("course.delete_lesson", res, err, "lesson", id)
}

func (st *SQLStore) GetLesson(ctx context.Context, id int64) (Lesson, error) {
	l, err := scanLesson(st.DB.QueryRowContext(ctx, `SELECT `+lessonCols+` FROM lessons WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Lesson{}, apperr.NotFound("course.get_lesson", "lesson %d not found", id)
	}
	if err != nil {
		return Lesson{}, db.Wrap("course.get_lesson", err)
	}
	return l, nil
}

func (st *SQLStore) ListLessons(ctx context.Context, subjectID int64) ([]Lesson, error) {
	rows, err := st.DB.QueryContext(ctx,
		`SELECT `+lessonCols+` FROM lessons WHERE subject_id=$1 ORDER BY day_number, sort_order, id`, subjectID)
	if err != nil {
		return nil, db.Wrap("course.list_lessons", err)
	}
	defer rows.Close()
	out := []Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, db.Wrap("course.list_lessons", err)
		}
		out = append(out, l)
	}
	return out, db.Wrap("course.list_lessons", rows.Err())
}

func (st *SQLStore) MarkComplete(ctx context.Context, studentID, subjectID, lessonID, at int64) error {
	_, err := st.DB.ExecContext(ctx,
		`INSERT INTO student_progress (student_id, subject_id, lesson_id, completed_at) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (student_id, lesson_id) DO NOTHING`,
		studentID, subjectID, lessonID, at)
	return db.Wrap("course.mark_complete", err)
}

func (st *SQLStore) CompletedLessons(ctx context.Context, studentID, subjectID int64) ([]int64, error) {
	rows, err := st.DB.QueryContext(ctx,
		`SELECT lesson_id FROM student_progress WHERE student_id=$1 AND subject_id=$2 ORDER BY lesson_id`, studentID, subjectID)
	if err != nil {
		return nil, db.Wrap("course.completed_lessons", err)
	}
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, db.Wrap("course.completed_lessons", err)
		}
		out = append(out, id)
	}
	return out, db.Wrap("course.completed_lessons", rows.Err())
}

func affected(op string, res sql.Result, err error, what string, id int64) error {
	if err != nil {
		return db.Wrap(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound(op, "%s %d not found", what, id)
	}
	return nil
}
