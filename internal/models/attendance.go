package models

import "time"

// AttendanceStatus classifies a student's standing for a class date.
// Absent is never persisted: it is synthesized in reports for scheduled
// dates lacking a record.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusLate    AttendanceStatus = "Late"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one immutable scan result. At most one row exists per
// (student_id, class_id, attendance_date), enforced by a storage uniqueness
// constraint.
type AttendanceRecord struct {
	ID             string           `db:"id" json:"id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	AttendanceDate time.Time        `db:"attendance_date" json:"attendance_date"`
	AttendanceTime string           `db:"attendance_time" json:"attendance_time"`
	Status         AttendanceStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceRecordDetail extends a record with student identity for exports
// and history views.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentIDNum string `db:"student_id_num" json:"student_id_num"`
	LastName     string `db:"last_name" json:"last_name"`
	FirstName    string `db:"first_name" json:"first_name"`
}

// ScanResult is what a scan event returns to the client. AlreadyRecorded is
// informational: repeated scans of the same code on the same day succeed
// and echo the originally recorded status.
type ScanResult struct {
	StudentID       string           `json:"student_id"`
	StudentName     string           `json:"student_name"`
	Status          AttendanceStatus `json:"status"`
	AlreadyRecorded bool             `json:"already_recorded"`
	RecordedAt      string           `json:"recorded_at"`
}
