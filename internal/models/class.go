package models

import "time"

// Class is a teacher-owned course section. Session times live in
// class_schedules, one row per weekday.
type Class struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Name      string    `db:"name" json:"name"`
	UnitCode  *string   `db:"unit_code" json:"unit_code,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail bundles a class with its weekly schedule, ordered Sunday
// first.
type ClassDetail struct {
	Class
	Schedule      []ClassSchedule `json:"schedule"`
	EnrolledCount int             `json:"enrolled_count"`
}
