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

// StudentRepository handles persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_id_num, last_name, first_name, phone, status, created_at, updated_at`

// List returns students ordered by last then first name, with optional
// search over names and ID number.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := `FROM students WHERE 1=1`
	args := []interface{}{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (last_name ILIKE $%d OR first_name ILIKE $%d OR student_id_num ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY last_name, first_name LIMIT %d OFFSET %d", studentColumns, base, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID loads a student by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDNum resolves a scanned identifier to a student record. Callers
// treat sql.ErrNoRows as "student not found".
func (r *StudentRepository) FindByIDNum(ctx context.Context, idNum string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE student_id_num = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, idNum); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByIDNum reports whether a student ID number is taken.
func (r *StudentRepository) ExistsByIDNum(ctx context.Context, idNum, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM students WHERE student_id_num = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, idNum, excludeID); err != nil {
		return false, fmt.Errorf("check student id number: %w", err)
	}
	return exists, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student)
	const query = `INSERT INTO students (id, student_id_num, last_name, first_name, phone, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, student.ID, student.StudentIDNum, student.LastName, student.FirstName, student.Phone, student.Status, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// CreateAndEnroll inserts a student and enrolls them into a class in one
// transaction; both succeed or neither does.
func (r *StudentRepository) CreateAndEnroll(ctx context.Context, student *models.Student, classID string) error {
	prepareStudent(student)
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create and enroll: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const insertStudent = `INSERT INTO students (id, student_id_num, last_name, first_name, phone, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, insertStudent, student.ID, student.StudentIDNum, student.LastName, student.FirstName, student.Phone, student.Status, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	const enroll = `INSERT INTO class_enrollment (id, class_id, student_id, enrolled_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, enroll, uuid.NewString(), classID, student.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("enroll new student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create and enroll: %w", err)
	}
	committed = true
	return nil
}

// Update modifies a student's identity fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_id_num = $1, last_name = $2, first_name = $3, phone = $4, updated_at = $5
WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, student.StudentIDNum, student.LastName, student.FirstName, student.Phone, student.UpdatedAt, student.ID)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student, explicitly cascading to enrollments and
// attendance records in one transaction.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	steps := []string{
		`DELETE FROM attendance_records WHERE student_id = $1`,
		`DELETE FROM class_enrollment WHERE student_id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	committed = true
	return nil
}

// RosterImportResult summarises a CSV roster import.
type RosterImportResult struct {
	Created  int `json:"created"`
	Enrolled int `json:"enrolled"`
}

// ImportRoster finds-or-creates each student by ID number and enrolls them
// into the class. The whole batch runs in one transaction: any failure
// rolls everything back.
func (r *StudentRepository) ImportRoster(ctx context.Context, classID string, students []models.Student) (*RosterImportResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin roster import: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	result := &RosterImportResult{}
	const find = `SELECT id FROM students WHERE student_id_num = $1`
	const insertStudent = `INSERT INTO students (id, student_id_num, last_name, first_name, phone, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	const enroll = `INSERT INTO class_enrollment (id, class_id, student_id, enrolled_at)
VALUES ($1, $2, $3, $4) ON CONFLICT (class_id, student_id) DO NOTHING`

	for i := range students {
		student := &students[i]
		var studentID string
		err := tx.GetContext(ctx, &studentID, find, student.StudentIDNum)
		switch {
		case err == sql.ErrNoRows:
			prepareStudent(student)
			if _, err := tx.ExecContext(ctx, insertStudent, student.ID, student.StudentIDNum, student.LastName, student.FirstName, student.Phone, student.Status, student.CreatedAt, student.UpdatedAt); err != nil {
				return nil, fmt.Errorf("import student %s: %w", student.StudentIDNum, err)
			}
			studentID = student.ID
			result.Created++
		case err != nil:
			return nil, fmt.Errorf("find student %s: %w", student.StudentIDNum, err)
		}

		res, err := tx.ExecContext(ctx, enroll, uuid.NewString(), classID, studentID, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("enroll student %s: %w", student.StudentIDNum, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			result.Enrolled++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit roster import: %w", err)
	}
	committed = true
	return result, nil
}

func prepareStudent(student *models.Student) {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusRed
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}
