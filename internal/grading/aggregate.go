package grading

import "math"

// ValidScore reports whether s is an allowed per-answer score.
func ValidScore(s int) bool { return s == 0 || s == 1 }

// Percent is round(correct/total*100); zero when total is zero.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Aggregate averages graded scores only, as a percentage. Ungraded (nil)
// scores are ignored; nil is returned when nothing is graded yet.
func Aggregate(scores []*int) *int {
	sum, n := 0, 0
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		n++
	}
	if n == 0 {
		return nil
	}
	p := Percent(sum, n)
	return &p
}

// Counts splits scores into graded and pending totals.
func Counts(scores []*int) (graded, pending int) {
	for _, s := range scores {
		if s == nil {
			pending++
		} else {
			graded++
		}
	}
	return graded, pending
}
