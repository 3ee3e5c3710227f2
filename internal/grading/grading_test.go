package grading

import (
	"context"
	"errors"
	"testing"
)

func ip(v int) *int { return &v }
func i64(v int64) *int64 { return &v }

func TestMultipleChoice(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: MultipleChoice, Choices: []Choice{{ID: 10}, {ID: 11, IsCorrect: true}, {ID: 12}}}

	tests := []struct {
		name string
		sel  *int64
		want int
	}{
		{"correct", i64(11), 1},
		{"wrong", i64(10), 0},
		{"no selection", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Grade(context.Background(), q, Response{SelectedOptionID: tt.sel})
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if res.NeedsManual || res.Score == nil || *res.Score != tt.want {
				t.Fatalf("got %+v, want score %d", res, tt.want)
			}
		})
	}

	if _, err := g.Grade(context.Background(), q, Response{SelectedOptionID: i64(99)}); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
}

func TestFreeTextNeedsManual(t *testing.T) {
	g := NewDefaultGrader()
	for _, typ := range []QuestionType{ShortAnswer, Essay} {
		res, err := g.Grade(context.Background(), Q{Type: typ, ReferenceText: "Paris"}, Response{Text: "paris"})
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if !res.NeedsManual || res.Score != nil {
			t.Fatalf("%s: expected manual with nil score, got %+v", typ, res)
		}
	}
}

func TestShortAnswerReferenceHint(t *testing.T) {
	g := NewDefaultGrader()
	res, _ := g.Grade(context.Background(), Q{Type: ShortAnswer, ReferenceText: "Photosynthesis"}, Response{Text: "photosynthesys!"})
	if len(res.Feedback) != 2 {
		t.Fatalf("expected reference hint, got %v", res.Feedback)
	}
	res, _ = g.Grade(context.Background(), Q{Type: ShortAnswer, ReferenceText: "Photosynthesis"}, Response{Text: "respiration"})
	if len(res.Feedback) != 1 {
		t.Fatalf("unexpected hint: %v", res.Feedback)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		scores []*int
		want   *int
	}{
		{"nothing graded", []*int{nil, nil}, nil},
		{"empty", nil, nil},
		{"partial ignores pending", []*int{ip(1), ip(0), nil}, ip(50)},
		{"all correct", []*int{ip(1), ip(1)}, ip(100)},
		{"rounds", []*int{ip(1), ip(1), ip(0)}, ip(67)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.scores)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil || *got != *tt.want:
				t.Fatalf("Aggregate = %v, want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func TestPercentAndCounts(t *testing.T) {
	if got := Percent(3, 4); got != 75 {
		t.Fatalf("Percent(3,4) = %d", got)
	}
	if got := Percent(1, 0); got != 0 {
		t.Fatalf("Percent(1,0) = %d", got)
	}
	g, p := Counts([]*int{ip(1), nil, ip(0), nil})
	if g != 2 || p != 2 {
		t.Fatalf("Counts = %d, %d", g, p)
	}
	if ValidScore(2) || !ValidScore(0) || !ValidScore(1) {
		t.Fatalf("ValidScore mismatch")
	}
}

func TestNormalizeAndLevenshtein(t *testing.T) {
	if got := normalize("  Hello,   World! "); got != "hello world" {
		t.Fatalf("normalize = %q", got)
	}
	if d := levenshtein("kitten", "sitting"); d != 3 {
		t.Fatalf("levenshtein = %d", d)
	}
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
