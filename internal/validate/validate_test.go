package validate

import (
	"testing"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
)

type sample struct {
	Title string  `json:"title" validate:"notblank"`
	Note  *string `json:"note,omitempty" validate:"omitempty,notblank"`
	Items []item  `json:"items" validate:"required,min=1,dive"`
}

type item struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func TestStruct(t *testing.T) {
	blank := "   "
	tests := []struct {
		name       string
		in         sample
		wantFields []string
	}{
		{name: "valid", in: sample{Title: "Quiz", Items: []item{{ID: 1}}}},
		{name: "blank title", in: sample{Title: "  ", Items: []item{{ID: 1}}}, wantFields: []string{"title"}},
		{name: "blank note", in: sample{Title: "Quiz", Note: &blank, Items: []item{{ID: 1}}}, wantFields: []string{"note"}},
		{name: "no items", in: sample{Title: "Quiz"}, wantFields: []string{"items"}},
		{name: "bad nested id", in: sample{Title: "Quiz", Items: []item{{ID: 0}}}, wantFields: []string{"items[0].id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct("test", tt.in)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			fields := apperr.FieldsOf(err)
			if len(fields) != len(tt.wantFields) {
				t.Fatalf("fields = %+v, want %v", fields, tt.wantFields)
			}
			for i, f := range tt.wantFields {
				if fields[i].Field != f {
					t.Errorf("field[%d] = %q, want %q", i, fields[i].Field, f)
				}
				if fields[i].Error == "" {
					t.Errorf("field[%d] has empty message", i)
				}
			}
		})
	}
}
