package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsChain(t *testing.T) {
	base := NotFound("quiz.Get", "quiz %d not found", 7)
	wrapped := fmt.Errorf("loading: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("KindOf = %v, want %v", got, KindNotFound)
	}
	if got := Message(wrapped); got != "quiz 7 not found" {
		t.Fatalf("Message = %q", got)
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain error should be unknown kind")
	}
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("quiz.Submit", "invalid answers", FieldError{Field: "answers", Error: "required"})
	if !Is(err, KindValidation) {
		t.Fatalf("expected validation kind")
	}
	fields := FieldsOf(err)
	if len(fields) != 1 || fields[0].Field != "answers" {
		t.Fatalf("fields = %+v", fields)
	}
	if err.Error() != "quiz.Submit: invalid answers" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestTransientKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Transient("db.Ping", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if Message(err) != "storage backend unavailable" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}
