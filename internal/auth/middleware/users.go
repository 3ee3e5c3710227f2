package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const bcryptCost = 12

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"notblank,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=student admin"`
}

type UserStore struct {
	db   *sql.DB
	cost int
	now  func() time.Time
}

func NewUserStore(d *sql.DB) *UserStore {
	return &UserStore{db: d, cost: bcryptCost, now: time.Now}
}

func (s *UserStore) Create(ctx context.Context, in NewUser) (User, error) {
	const op = "users.create"
	if err := validate.Struct(op, in); err != nil {
		return User{}, err
	}
	role := rbac.Role(in.Role)
	if role == "" {
		role = rbac.RoleStudent
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}
	return s.insert(ctx, op, strings.ToLower(strings.TrimSpace(in.Email)), strings.TrimSpace(in.Name), role, string(hash))
}

func (s *UserStore) insert(ctx context.Context, op, email, name string, role rbac.Role, hash string) (User, error) {
	now := s.now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, role, password_hash, created_at) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		email, name, string(role), hash, db.Unix(now)).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.Conflict(op, "email %s is already registered", email)
		}
		return User{}, db.Wrap(op, err)
	}
	return User{ID: id, Email: email, Name: name, Role: role, CreatedAt: db.FromUnix(db.Unix(now))}, nil
}

func (s *UserStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	var (
		u    User
		role string
		hash string
		ts   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users WHERE email=$1`,
		strings.ToLower(strings.TrimSpace(email))).Scan(&u.ID, &u.Email, &u.Name, &role, &hash, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, db.Wrap("users.authenticate", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	u.Role = rbac.Role(role)
	u.CreatedAt = db.FromUnix(ts)
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, id int64) (User, error) {
	var (
		u    User
		role string
		ts   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &role, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.NotFound("users.get", "user %d not found", id)
	}
	if err != nil {
		return User{}, db.Wrap("users.get", err)
	}
	u.Role = rbac.Role(role)
	u.CreatedAt = db.FromUnix(ts)
	return u, nil
}

// FindOrCreateStudent returns the user registered under email, creating a
// student without a usable password when there is none. Existing roles are kept.
func (s *UserStore) FindOrCreateStudent(ctx context.Context, email, name string) (User, error) {
	const op = "users.find_or_create"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, apperr.Validation(op, "email is required")
	}
	var (
		u    User
		role string
		ts   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, created_at FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &role, &ts)
	switch {
	case err == nil:
		u.Role = rbac.Role(role)
		u.CreatedAt = db.FromUnix(ts)
		return u, nil
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, db.Wrap(op, err)
	}
	if name = strings.TrimSpace(name); name == "" {
		name = email
	}
	// "!" is never a valid bcrypt hash, so password login stays closed
	return s.insert(ctx, op, email, name, rbac.RoleStudent, "!")
}

// List returns users ordered by email, optionally filtered by role.
func (s *UserStore) List(ctx context.Context, role rbac.Role) ([]User, error) {
	q := `SELECT id, email, name, role, created_at FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, string(role))
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY email`, args...)
	if err != nil {
		return nil, db.Wrap("users.list", err)
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var (
			u  User
			r  string
			ts int64
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &r, &ts); err != nil {
			return nil, db.Wrap("users.list", err)
		}
		u.Role = rbac.Role(r)
		u.CreatedAt = db.FromUnix(ts)
		out = append(out, u)
	}
	return out, db.Wrap("users.list", rows.Err())
}

// EnsureAdmin creates the bootstrap admin from a pre-computed bcrypt hash
// unless a user with that email already exists.
func (s *UserStore) EnsureAdmin(ctx context.Context, email, passHash string) (created bool, err error) {
	const op = "users.ensure_admin"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passHash == "" {
		return false, nil
	}
	if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
		return false, apperr.Validation(op, "ADMIN_PASS_HASH is not a bcrypt hash")
	}
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1`, email).Scan(&one)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, db.Wrap(op, err)
	}
	if _, err := s.insert(ctx, op, email, "Administrator", rbac.RoleAdmin, passHash); err != nil {
		return false, err
	}
	return true, nil
}
