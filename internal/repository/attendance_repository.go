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

// AttendanceRepository persists immutable attendance records. Records are
// created exactly once per accepted scan and never updated or deleted here.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, class_id, student_id, attendance_date, attendance_time, status, created_at`

// FindByStudentClassDate loads the record for one student, class and day.
// Callers treat sql.ErrNoRows as "nothing recorded yet".
func (r *AttendanceRepository) FindByStudentClassDate(ctx context.Context, studentID, classID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE student_id = $1 AND class_id = $2 AND attendance_date = $3`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, classID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateWithStudentStatus inserts the record and flips the student's
// denormalized status to Green in a single transaction; either both writes
// land or neither does. The uniqueness constraint on (student_id, class_id,
// attendance_date) is the authoritative duplicate guard: when it fires, the
// already-stored record is returned with duplicate=true and nothing is
// written.
func (r *AttendanceRepository) CreateWithStudentStatus(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin attendance insert: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const insert = `INSERT INTO attendance_records (id, class_id, student_id, attendance_date, attendance_time, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, class_id, attendance_date) DO NOTHING
RETURNING id`
	var insertedID string
	err = tx.QueryRowxContext(ctx, insert, record.ID, record.ClassID, record.StudentID, record.AttendanceDate, record.AttendanceTime, record.Status, record.CreatedAt).Scan(&insertedID)
	if err == sql.ErrNoRows {
		// Lost the race (or a concurrent scan beat us): surface the
		// stored row instead of failing.
		tx.Rollback()
		existing, ferr := r.FindByStudentClassDate(ctx, record.StudentID, record.ClassID, record.AttendanceDate)
		if ferr != nil {
			return nil, false, fmt.Errorf("load existing attendance: %w", ferr)
		}
		return existing, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert attendance: %w", err)
	}

	const updateStatus = `UPDATE students SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, updateStatus, models.StudentStatusGreen, time.Now().UTC(), record.StudentID); err != nil {
		return nil, false, fmt.Errorf("update student status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit attendance insert: %w", err)
	}
	committed = true
	return record, false, nil
}

// ListByClassBetween returns all records for a class within an inclusive
// date range, the sparse input of the report matrix.
func (r *AttendanceRepository) ListByClassBetween(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE class_id = $1 AND attendance_date BETWEEN $2 AND $3
ORDER BY attendance_date`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance range: %w", err)
	}
	return records, nil
}

// ListDetailByClassBetween joins student identity for raw CSV export,
// ordered by date then student name.
func (r *AttendanceRepository) ListDetailByClassBetween(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecordDetail, error) {
	const query = `SELECT ar.id, ar.class_id, ar.student_id, ar.attendance_date, ar.attendance_time, ar.status, ar.created_at,
s.student_id_num, s.last_name, s.first_name
FROM attendance_records ar
JOIN students s ON s.id = ar.student_id
WHERE ar.class_id = $1 AND ar.attendance_date BETWEEN $2 AND $3
ORDER BY ar.attendance_date, s.last_name, s.first_name`
	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance detail: %w", err)
	}
	return rows, nil
}

// HistoryByStudentClass returns one student's records in a class, most
// recent first.
func (r *AttendanceRepository) HistoryByStudentClass(ctx context.Context, studentID, classID string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE student_id = $1 AND class_id = $2
ORDER BY attendance_date DESC, attendance_time DESC`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, classID); err != nil {
		return nil, fmt.Errorf("list attendance history: %w", err)
	}
	return records, nil
}
