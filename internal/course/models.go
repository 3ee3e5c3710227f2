// Package course manages subjects, their day-by-day lessons and lesson
// progress.
package course

import "time"

type Subject struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Curriculum    string    `json:"curriculum,omitempty"`
	CurriculumURL string    `json:"curriculum_url,omitempty"`
	NumberOfDays  int       `json:"number_of_days"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SubjectInput struct {
	Name          string `json:"name" validate:"notblank,max=200"`
	Description   string `json:"description" validate:"max=2000"`
	Curriculum    string `json:"curriculum"`
	CurriculumURL string `json:"curriculum_url" validate:"omitempty,url"`
	NumberOfDays  int    `json:"number_of_days" validate:"omitempty,min=1,max=366"`
}

type Lesson struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subject_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	DayNumber int       `json:"day_number"`
	Order     int       `json:"order"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LessonInput struct {
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"notblank,max=200"`
	Content   string `json:"content" validate:"notblank"`
	DayNumber int    `json:"day_number" validate:"required,min=1"`
	Order     int    `json:"order" validate:"omitempty,min=1"`
}

type Progress struct {
	SubjectID        int64   `json:"subject_id"`
	CompletedLessons []int64 `json:"completed_lessons"`
	Completed        int     `json:"completed"`
	TotalLessons     int     `json:"total_lessons"`
	Percent          int     `json:"percent"`
}
