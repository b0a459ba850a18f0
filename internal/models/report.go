package models

// ReportRow is one student's line in the attendance matrix. Statuses is
// dense: every valid class date appears as a key, with Absent synthesized
// where no record exists.
type ReportRow struct {
	StudentID    string                      `json:"student_id"`
	StudentIDNum string                      `json:"student_id_num"`
	DisplayName  string                      `json:"display_name"`
	Statuses     map[string]AttendanceStatus `json:"statuses"`
	PresentCount int                         `json:"present_count"`
	Summary      string                      `json:"summary"`
}

// AttendanceReport is the dense date x student grid for a class and range.
// Dates are YYYY-MM-DD strings in chronological order; rows are ordered by
// student last name then first name.
type AttendanceReport struct {
	ClassID   string      `json:"class_id"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Dates     []string    `json:"dates"`
	Students  []ReportRow `json:"students"`
}
