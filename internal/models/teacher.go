package models

import "time"

// Teacher is an authenticated account owning classes. Teachers only ever see
// their own classes; every class-scoped query carries the teacher id.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TeacherInfo describes a teacher in responses.
type TeacherInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
