package models

import "time"

// Enrollment links a student to a class. Many-to-many with a uniqueness
// constraint on (class_id, student_id).
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
