// Package access decides whether a student may use a subject's content.
package access

import (
	"context"
	"time"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

// Permission grants one student access to one subject, optionally bounded
// in time. Both bounds are inclusive.
type Permission struct {
	ID        int64      `json:"id"`
	StudentID int64      `json:"student_id"`
	SubjectID int64      `json:"subject_id"`
	HasAccess bool       `json:"has_access"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether p currently grants access.
func (p Permission) Active(now time.Time) bool {
	if !p.HasAccess {
		return false
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	return true
}

type GrantInput struct {
	StudentID int64      `json:"student_id" validate:"required,gt=0"`
	SubjectID int64      `json:"subject_id" validate:"required,gt=0"`
	HasAccess bool       `json:"has_access"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

type Store interface {
	Get(ctx context.Context, studentID, subjectID int64) (Permission, bool, error)
	Upsert(ctx context.Context, p Permission) (Permission, error)
	Delete(ctx context.Context, studentID, subjectID int64) (bool, error)
	List(ctx context.Context, studentID int64) ([]Permission, error)
}

type Gate struct {
	store Store
	now   func() time.Time
}

type Option func(*Gate)

// WithClock overrides the time source used for date bounds.
func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

func NewGate(s Store, opts ...Option) *Gate {
	g := &Gate{store: s, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// CanAccess is read-only. A missing permission row means no access.
func (g *Gate) CanAccess(ctx context.Context, studentID, subjectID int64) (bool, error) {
	p, ok, err := g.store.Get(ctx, studentID, subjectID)
	if err != nil || !ok {
		return false, err
	}
	return p.Active(g.now()), nil
}

// Grant creates or replaces the permission for (student, subject).
func (g *Gate) Grant(ctx context.Context, in GrantInput, by int64) (Permission, error) {
	const op = "access.grant"
	if err := validate.Struct(op, in); err != nil {
		return Permission{}, err
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return Permission{}, apperr.Validation(op, "invalid input",
			apperr.FieldError{Field: "end_date", Error: "end_date must not be before start_date"})
	}
	now := g.now().UTC()
	return g.store.Upsert(ctx, Permission{
		StudentID: in.StudentID,
		SubjectID: in.SubjectID,
		HasAccess: in.HasAccess,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		CreatedBy: by,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (g *Gate) Revoke(ctx context.Context, studentID, subjectID int64) error {
	ok, err := g.store.Delete(ctx, studentID, subjectID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("access.revoke", "no permission for student %d on subject %d", studentID, subjectID)
	}
	return nil
}

func (g *Gate) Get(ctx context.Context, studentID, subjectID int64) (Permission, error) {
	p, ok, err := g.store.Get(ctx, studentID, subjectID)
	if err != nil {
		return Permission{}, err
	}
	if !ok {
		return Permission{}, apperr.NotFound("access.get", "no permission for student %d on subject %d", studentID, subjectID)
	}
	return p, nil
}

// List returns all permissions, or those of one student when studentID > 0.
func (g *Gate) List(ctx context.Context, studentID int64) ([]Permission, error) {
	return g.store.List(ctx, studentID)
}
