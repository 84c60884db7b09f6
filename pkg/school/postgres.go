package school

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/edushield/edushield/pkg/auth"
)

// NewPostgresRepositories creates Postgres-backed repositories over one pool
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Users:       &PostgresUserRepo{db: db},
		Students:    &PostgresStudentRepo{db: db},
		Faculty:     &PostgresFacultyRepo{db: db},
		Fees:        &PostgresFeeRepo{db: db},
		Performance: &PostgresPerformanceRepo{db: db},
	}
}

// PostgresUserRepo implements UserRepository
type PostgresUserRepo struct {
	db *sql.DB
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresUserRepo) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	return r.getBy(ctx, "external_id", externalID)
}

func (r *PostgresUserRepo) getBy(ctx context.Context, column, value string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT id, external_id, display_name, email, role, active, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, column)

	user := &User{}
	var role string
	var externalID sql.NullString

	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&externalID,
		&user.DisplayName,
		&user.Email,
		&role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.ExternalID = externalID.String
	user.Role = auth.Role(role)
	return user, nil
}

func (r *PostgresUserRepo) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, external_id, display_name, email, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (external_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    email = EXCLUDED.email,
		    updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.ExternalID,
		user.DisplayName,
		user.Email,
		string(user.Role),
		user.Active,
		now,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	user.UpdatedAt = now
	return nil
}

func (r *PostgresUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update user active flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresStudentRepo implements StudentRepository
type PostgresStudentRepo struct {
	db *sql.DB
}

const studentColumns = "id, user_id, first_name, last_name, grade, enrolled_at"

func scanStudent(row interface{ Scan(...interface{}) error }) (*Student, error) {
	student := &Student{}
	err := row.Scan(
		&student.ID,
		&student.UserID,
		&student.FirstName,
		&student.LastName,
		&student.Grade,
		&student.EnrolledAt,
	)
	if err != nil {
		return nil, err
	}
	return student, nil
}

func (r *PostgresStudentRepo) GetByID(ctx context.Context, id string) (*Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	student, err := scanStudent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}

func (r *PostgresStudentRepo) List(ctx context.Context) ([]*Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

func (r *PostgresStudentRepo) Create(ctx context.Context, student *Student) error {
	query := `
		INSERT INTO students (id, user_id, first_name, last_name, grade, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		student.ID, student.UserID, student.FirstName, student.LastName,
		student.Grade, student.EnrolledAt)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepo) Update(ctx context.Context, student *Student) error {
	query := `
		UPDATE students
		SET first_name = $1, last_name = $2, grade = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		student.FirstName, student.LastName, student.Grade, student.ID)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return checkAffected(result)
}

func (r *PostgresStudentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return checkAffected(result)
}

// PostgresFacultyRepo implements FacultyRepository
type PostgresFacultyRepo struct {
	db *sql.DB
}

const facultyColumns = "id, user_id, first_name, last_name, department, hired_at"

func scanFaculty(row interface{ Scan(...interface{}) error }) (*Faculty, error) {
	f := &Faculty{}
	err := row.Scan(&f.ID, &f.UserID, &f.FirstName, &f.LastName, &f.Department, &f.HiredAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresFacultyRepo) GetByID(ctx context.Context, id string) (*Faculty, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty WHERE id = $1`
	f, err := scanFaculty(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get faculty member: %w", err)
	}
	return f, nil
}

func (r *PostgresFacultyRepo) List(ctx context.Context) ([]*Faculty, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list faculty: %w", err)
	}
	defer rows.Close()

	var members []*Faculty
	for rows.Next() {
		f, err := scanFaculty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faculty member: %w", err)
		}
		members = append(members, f)
	}
	return members, rows.Err()
}

func (r *PostgresFacultyRepo) Create(ctx context.Context, faculty *Faculty) error {
	query := `
		INSERT INTO faculty (id, user_id, first_name, last_name, department, hired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		faculty.ID, faculty.UserID, faculty.FirstName, faculty.LastName,
		faculty.Department, faculty.HiredAt)
	if err != nil {
		return fmt.Errorf("failed to create faculty member: %w", err)
	}
	return nil
}

func (r *PostgresFacultyRepo) Update(ctx context.Context, faculty *Faculty) error {
	query := `
		UPDATE faculty
		SET first_name = $1, last_name = $2, department = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		faculty.FirstName, faculty.LastName, faculty.Department, faculty.ID)
	if err != nil {
		return fmt.Errorf("failed to update faculty member: %w", err)
	}
	return checkAffected(result)
}

func (r *PostgresFacultyRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM faculty WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete faculty member: %w", err)
	}
	return checkAffected(result)
}

// PostgresFeeRepo implements FeeRepository
type PostgresFeeRepo struct {
	db *sql.DB
}

const feeSelect = `
	SELECT f.id, f.student_id, f.amount_cents, f.description, f.due_date, f.paid, f.paid_at,
	       s.id, s.user_id, s.first_name, s.last_name, s.grade, s.enrolled_at
	FROM fees f
	JOIN students s ON s.id = f.student_id
`

func scanFee(row interface{ Scan(...interface{}) error }) (*Fee, error) {
	fee := &Fee{Student: &Student{}}
	var paidAt sql.NullTime
	err := row.Scan(
		&fee.ID, &fee.StudentID, &fee.AmountCents, &fee.Description,
		&fee.DueDate, &fee.Paid, &paidAt,
		&fee.Student.ID, &fee.Student.UserID, &fee.Student.FirstName,
		&fee.Student.LastName, &fee.Student.Grade, &fee.Student.EnrolledAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		fee.PaidAt = &paidAt.Time
	}
	return fee, nil
}

func (r *PostgresFeeRepo) GetByID(ctx context.Context, id string) (*Fee, error) {
	fee, err := scanFee(r.db.QueryRowContext(ctx, feeSelect+` WHERE f.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fee: %w", err)
	}
	return fee, nil
}

func (r *PostgresFeeRepo) ListByStudent(ctx context.Context, studentID string) ([]*Fee, error) {
	rows, err := r.db.QueryContext(ctx, feeSelect+` WHERE f.student_id = $1 ORDER BY f.due_date`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fees: %w", err)
	}
	defer rows.Close()

	var fees []*Fee
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee: %w", err)
		}
		fees = append(fees, fee)
	}
	return fees, rows.Err()
}

func (r *PostgresFeeRepo) Create(ctx context.Context, fee *Fee) error {
	query := `
		INSERT INTO fees (id, student_id, amount_cents, description, due_date, paid, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		fee.ID, fee.StudentID, fee.AmountCents, fee.Description,
		fee.DueDate, fee.Paid, fee.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to create fee: %w", err)
	}
	return nil
}

func (r *PostgresFeeRepo) Update(ctx context.Context, fee *Fee) error {
	query := `
		UPDATE fees
		SET amount_cents = $1, description = $2, due_date = $3, paid = $4, paid_at = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		fee.AmountCents, fee.Description, fee.DueDate, fee.Paid, fee.PaidAt, fee.ID)
	if err != nil {
		return fmt.Errorf("failed to update fee: %w", err)
	}
	return checkAffected(result)
}

func (r *PostgresFeeRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fee: %w", err)
	}
	return checkAffected(result)
}

// PostgresPerformanceRepo implements PerformanceRepository
type PostgresPerformanceRepo struct {
	db *sql.DB
}

const performanceSelect = `
	SELECT p.id, p.student_id, p.subject, p.term, p.score, p.comments, p.recorded_at,
	       s.id, s.user_id, s.first_name, s.last_name, s.grade, s.enrolled_at
	FROM performance_records p
	JOIN students s ON s.id = p.student_id
`

func scanPerformance(row interface{ Scan(...interface{}) error }) (*PerformanceRecord, error) {
	rec := &PerformanceRecord{Student: &Student{}}
	var comments sql.NullString
	err := row.Scan(
		&rec.ID, &rec.StudentID, &rec.Subject, &rec.Term, &rec.Score,
		&comments, &rec.RecordedAt,
		&rec.Student.ID, &rec.Student.UserID, &rec.Student.FirstName,
		&rec.Student.LastName, &rec.Student.Grade, &rec.Student.EnrolledAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Comments = comments.String
	return rec, nil
}

func (r *PostgresPerformanceRepo) GetByID(ctx context.Context, id string) (*PerformanceRecord, error) {
	rec, err := scanPerformance(r.db.QueryRowContext(ctx, performanceSelect+` WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get performance record: %w", err)
	}
	return rec, nil
}

func (r *PostgresPerformanceRepo) ListByStudent(ctx context.Context, studentID string) ([]*PerformanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, performanceSelect+` WHERE p.student_id = $1 ORDER BY p.recorded_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance records: %w", err)
	}
	defer rows.Close()

	var records []*PerformanceRecord
	for rows.Next() {
		rec, err := scanPerformance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresPerformanceRepo) Create(ctx context.Context, record *PerformanceRecord) error {
	query := `
		INSERT INTO performance_records (id, student_id, subject, term, score, comments, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.StudentID, record.Subject, record.Term,
		record.Score, record.Comments, record.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to create performance record: %w", err)
	}
	return nil
}

func (r *PostgresPerformanceRepo) Update(ctx context.Context, record *PerformanceRecord) error {
	query := `
		UPDATE performance_records
		SET subject = $1, term = $2, score = $3, comments = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		record.Subject, record.Term, record.Score, record.Comments, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update performance record: %w", err)
	}
	return checkAffected(result)
}

func (r *PostgresPerformanceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM performance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete performance record: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
