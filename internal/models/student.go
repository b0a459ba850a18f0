package models

import "time"

// StudentStatus is the denormalized global status on a student record. A
// successful first-time attendance mark always sets it to green.
type StudentStatus string

const (
	StudentStatusGreen StudentStatus = "Green"
	StudentStatusRed   StudentStatus = "Red"
)

// Student is a global record identified by a scannable ID number. Students
// are not owned by a teacher; classes reference them through enrollments.
type Student struct {
	ID           string        `db:"id" json:"id"`
	StudentIDNum string        `db:"student_id_num" json:"student_id_num"`
	LastName     string        `db:"last_name" json:"last_name"`
	FirstName    string        `db:"first_name" json:"first_name"`
	Phone        *string       `db:"phone" json:"phone,omitempty"`
	Status       StudentStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// DisplayName renders "Last, First" for rosters and reports.
func (s Student) DisplayName() string {
	return s.LastName + ", " + s.FirstName
}

// StudentFilter scopes student listing queries.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}
