// Package notify stores in-app notifications for students and admins.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/db"
)

type Type string

const (
	TypeLesson  Type = "lesson"
	TypeQuiz    Type = "quiz"
	TypeGrade   Type = "grade"
	TypeGeneral Type = "general"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	RelatedID *int64    `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepo(d *sql.DB) *Repo { return &Repo{db: d, now: time.Now} }

// Create appends a notification for n.UserID.
func (r *Repo) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.Type == "" {
		n.Type = TypeGeneral
	}
	n.CreatedAt = db.FromUnix(r.now().Unix())
	n.IsRead = false
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, title, message, type, related_id, is_read, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		n.UserID, n.Title, n.Message, string(n.Type), db.NullInt64(n.RelatedID), false, db.Unix(n.CreatedAt)).Scan(&n.ID)
	if err != nil {
		return Notification{}, db.Wrap("notify.create", err)
	}
	return n, nil
}

// ListForUser returns the newest notifications first.
func (r *Repo) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	q := `SELECT id, user_id, title, message, type, related_id, is_read, created_at FROM notifications WHERE user_id=$1`
	if unreadOnly {
		q += ` AND is_read = $2`
	}
	args := []any{userID}
	if unreadOnly {
		args = append(args, false)
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, db.Wrap("notify.list", err)
	}
	defer rows.Close()
	out := []Notification{}
	for rows.Next() {
		var (
			n   Notification
			typ string
			rel sql.NullInt64
			ts  int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &rel, &n.IsRead, &ts); err != nil {
			return nil, db.Wrap("notify.list", err)
		}
		n.Type = Type(typ)
		n.RelatedID = db.Int64Ptr(rel)
		n.CreatedAt = db.FromUnix(ts)
		out = append(out, n)
	}
	return out, db.Wrap("notify.list", rows.Err())
}

// MarkRead flags one notification as read. Only the owner may do so.
func (r *Repo) MarkRead(ctx context.Context, userID, id int64) error {
	const op = "notify.mark_read"
	var owner int64
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM notifications WHERE id=$1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, "notification %d not found", id)
	}
	if err != nil {
		return db.Wrap(op, err)
	}
	if owner != userID {
		return apperr.Denied(op, "notification %d belongs to another user", id)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE notifications SET is_read=$1 WHERE id=$2`, true, id)
	return db.Wrap(op, err)
}
