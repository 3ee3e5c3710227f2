package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestOpenMemoryCreatesSchema(t *testing.T) {
	ctx := context.Background()
	d, err := OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"users", "subjects", "quizzes", "quiz_attempts", "student_answers", "access_permissions"} {
		var n int
		if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	d, err := OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	boom := errors.New("boom")
	err = WithTx(ctx, d, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (email,name,role,password_hash,created_at) VALUES ($1,$2,$3,$4,$5)`,
			"a@test", "A", "student", "x", time.Now().Unix()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var n int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d users", n)
	}
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	ctx := context.Background()
	d, err := OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	ins := `INSERT INTO users (email,name,role,password_hash,created_at) VALUES ($1,'','student','x',0)`
	if _, err := d.ExecContext(ctx, ins, "dup@test"); err != nil {
		t.Fatal(err)
	}
	_, err = d.ExecContext(ctx, ins, "dup@test")
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestParseDriver(t *testing.T) {
	tests := map[string]Driver{"": DriverSQLite, "sqlite3": DriverSQLite, "pgx": DriverPostgres, "Postgres": DriverPostgres}
	for in, want := range tests {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Errorf("ParseDriver(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDriver("oracle"); err == nil {
		t.Errorf("expected error for unsupported driver")
	}
}
