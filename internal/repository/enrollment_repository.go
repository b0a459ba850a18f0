package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rollcall-dev/rollcall-api/internal/models"
)

// EnrollmentRepository manages the class/student pairing table.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByClass returns the roster for a class ordered by last then first
// name. The ordering is the deterministic row order of report matrices.
func (r *EnrollmentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.student_id_num, s.last_name, s.first_name, s.phone, s.status, s.created_at, s.updated_at
FROM students s
JOIN class_enrollment ce ON ce.student_id = s.id
WHERE ce.class_id = $1
ORDER BY s.last_name, s.first_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return students, nil
}

// ListUnenrolled returns students not yet enrolled in a class, for the
// enroll picker.
func (r *EnrollmentRepository) ListUnenrolled(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.student_id_num, s.last_name, s.first_name, s.phone, s.status, s.created_at, s.updated_at
FROM students s
WHERE s.id NOT IN (SELECT student_id FROM class_enrollment WHERE class_id = $1)
ORDER BY s.last_name, s.first_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list unenrolled: %w", err)
	}
	return students, nil
}

// Exists reports whether a student is enrolled in a class.
func (r *EnrollmentRepository) Exists(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_enrollment WHERE class_id = $1 AND student_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, studentID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// Enroll links a student to a class. The uniqueness constraint on
// (class_id, student_id) makes re-enrollment a no-op signalled by
// sql.ErrNoRows from the RETURNING clause.
func (r *EnrollmentRepository) Enroll(ctx context.Context, classID, studentID string) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{
		ID:         uuid.NewString(),
		ClassID:    classID,
		StudentID:  studentID,
		EnrolledAt: time.Now().UTC(),
	}
	const query = `INSERT INTO class_enrollment (id, class_id, student_id, enrolled_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (class_id, student_id) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query, enrollment.ID, enrollment.ClassID, enrollment.StudentID, enrollment.EnrolledAt).Scan(&insertedID)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("enroll student: %w", err)
	}
	return enrollment, nil
}

// Unenroll removes a student from a class roster.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, classID, studentID string) error {
	const query = `DELETE FROM class_enrollment WHERE class_id = $1 AND student_id = $2`
	res, err := r.db.ExecContext(ctx, query, classID, studentID)
	if err != nil {
		return fmt.Errorf("unenroll student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unenroll student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
