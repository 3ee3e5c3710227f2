package access

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/mindengage-learn/internal/db"
)

type SQLStore struct{ DB *sql.DB }

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{DB: d} }

const permCols = `id, student_id, subject_id, has_access, start_date, end_date, created_by, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanPermission(r rowScanner) (Permission, error) {
	var (
		p              Permission
		start, end     sql.NullInt64
		created, updated int64
	)
	if err := r.Scan(&p.ID, &p.StudentID, &p.SubjectID, &p.HasAccess, &start, &end, &p.CreatedBy, &created, &updated); err != nil {
		return Permission{}, err
	}
	p.StartDate = db.TimePtr(start)
	p.EndDate = db.TimePtr(end)
	p.CreatedAt = db.FromUnix(created)
	p.UpdatedAt = db.FromUnix(updated)
	return p, nil
}

func (s *SQLStore) Get(ctx context.Context, studentID, subjectID int64) (Permission, bool, error) {
	p, err := scanPermission(s.DB.QueryRowContext(ctx,
		`SELECT `+permCols+` FROM access_permissions WHERE student_id=$1 AND subject_id=$2`, studentID, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return Permission{}, false, nil
	}
	if err != nil {
		return Permission{}, false, db.Wrap("access.get", err)
	}
	return p, true, nil
}

func (s *SQLStore) Upsert(ctx context.Context, p Permission) (Permission, error) {
	row := s.DB.QueryRowContext(ctx, `
INSERT INTO access_permissions (student_id, subject_id, has_access, start_date, end_date, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (student_id, subject_id) DO UPDATE SET
  has_access = excluded.has_access,
  start_date = excluded.start_date,
  end_date   = excluded.end_date,
  updated_at = excluded.updated_at
RETURNING `+permCols,
		p.StudentID, p.SubjectID, p.HasAccess, db.NullUnix(p.StartDate), db.NullUnix(p.EndDate),
		p.CreatedBy, db.Unix(p.CreatedAt), db.Unix(p.UpdatedAt))
	out, err := scanPermission(row)
	if err != nil {
		return Permission{}, db.Wrap("access.upsert", err)
	}
	return out, nil
}

func (s *SQLStore) Delete(ctx context.Context, studentID, subjectID int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM access_permissions WHERE student_id=$1 AND subject_id=$2`, studentID, subjectID)
	if err != nil {
		return false, db.Wrap("access.delete", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) List(ctx context.Context, studentID int64) ([]Permission, error) {
	q := `SELECT ` + permCols + ` FROM access_permissions`
	var args []any
	if studentID > 0 {
		q += ` WHERE student_id=$1`
		args = append(args, studentID)
	}
	rows, err := s.DB.QueryContext(ctx, q+` ORDER BY student_id, subject_id`, args...)
	if err != nil {
		return nil, db.Wrap("access.list", err)
	}
	defer rows.Close()
	out := []Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, db.Wrap("access.list", err)
		}
		out = append(out, p)
	}
	return out, db.Wrap("access.list", rows.Err())
}
