package chat

import (
	"context"
	"database/sql"

	"github.com/mind-engage/mindengage-learn/internal/db"
)

type Store interface {
	Insert(ctx context.Context, m Message) (Message, error)
	List(ctx context.Context, studentID, subjectID int64) ([]Message, error)
}

type SQLStore struct{ DB *sql.DB }

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{DB: d} }

func (s *SQLStore) Insert(ctx context.Context, m Message) (Message, error) {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO chat_history (student_id, subject_id, question, answer, created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		m.StudentID, m.SubjectID, m.Question, m.Answer, db.Unix(m.CreatedAt)).Scan(&m.ID)
	if err != nil {
		return Message{}, db.Wrap("chat.insert", err)
	}
	return m, nil
}

func (s *SQLStore) List(ctx context.Context, studentID, subjectID int64) ([]Message, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, student_id, subject_id, question, answer, created_at
		 FROM chat_history WHERE student_id=$1 AND subject_id=$2
		 ORDER BY created_at, id`, studentID, subjectID)
	if err != nil {
		return nil, db.Wrap("chat.list", err)
	}
	defer rows.Close()
	out := []Message{}
	for rows.Next() {
		var (
			m  Message
			at int64
		)
		if err := rows.Scan(&m.ID, &m.StudentID, &m.SubjectID, &m.Question, &m.Answer, &at); err != nil {
			return nil, db.Wrap("chat.list", err)
		}
		m.CreatedAt = db.FromUnix(at)
		out = append(out, m)
	}
	return out, db.Wrap("chat.list", rows.Err())
}
