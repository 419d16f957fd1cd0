package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/account-academy/backoffice-api/internal/models"
)

const studentColumns = `u.id, u.email, u.password_hash, u.role, u.name, u.phone_number, u.country, u.region, u.avatar, u.is_active, u.is_deleted, u.last_visit, u.created_by, u.created_at, u.updated_at,
	s.coaching_trajectory, s.assigned_coach_id, s.version`

// StudentRepository manages persistence for students, their coach back-link
// and their courses roadmap.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter plus the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s JOIN users u ON u.id = s.id WHERE u.is_deleted = FALSE"
	var args []interface{}

	if filter.CoachingTrajectory != nil {
		base += fmt.Sprintf(" AND s.coaching_trajectory = $%d", len(args)+1)
		args = append(args, *filter.CoachingTrajectory)
	}
	if filter.AssignedCoach != "" {
		base += fmt.Sprintf(" AND s.assigned_coach_id = $%d", len(args)+1)
		args = append(args, filter.AssignedCoach)
	}
	if filter.WithoutCoach {
		base += " AND s.assigned_coach_id IS NULL"
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND u.is_active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(u.name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	_, size, offset := clampPage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY u.created_at DESC LIMIT %d OFFSET %d", studentColumns, base, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student with its ordered courses roadmap.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s JOIN users u ON u.id = s.id WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	roadmap, err := r.roadmap(ctx, id)
	if err != nil {
		return nil, err
	}
	student.CoursesRoadmap = roadmap
	return &student, nil
}

// FindByIDs fetches the students with the given ids. Missing ids are simply
// absent from the result.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM students s JOIN users u ON u.id = s.id WHERE s.id = ANY($1)", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	return students, nil
}

// Create inserts the base user row, the student payload and the initial
// roadmap in one transaction.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareUser(&student.User)
	student.Role = models.RoleStudent
	student.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer tx.Rollback()

	const insertUser = `INSERT INTO users (id, email, password_hash, role, name, phone_number, country, region, avatar, is_active, is_deleted, last_visit, created_by, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :role, :name, :phone_number, :country, :region, :avatar, :is_active, :is_deleted, :last_visit, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertUser, student.User); err != nil {
		return fmt.Errorf("create student user: %w", err)
	}

	const insertStudent = `INSERT INTO students (id, coaching_trajectory, assigned_coach_id, version)
		VALUES (:id, :coaching_trajectory, :assigned_coach_id, :version)`
	if _, err := tx.NamedExecContext(ctx, insertStudent, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if student.AssignedCoach != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO coach_assignments (id, coach_id, student_id, assigned_at) VALUES ($1, $2, $3, $4)`, uuid.NewString(), *student.AssignedCoach, student.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("assign created student: %w", err)
		}
	}

	if err := replaceRoadmapTx(ctx, tx, student.ID, student.CoursesRoadmap); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// ClearCoach drops the student's assignment row and the back-link, if any.
func (r *StudentRepository) ClearCoach(ctx context.Context, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear coach: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM coach_assignments WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("clear coach assignment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE students SET assigned_coach_id = NULL WHERE id = $1`, studentID); err != nil {
		return fmt.Errorf("clear coach back-link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear coach: %w", err)
	}
	return nil
}

// Update modifies the student payload, base fields and roadmap, guarded by
// the version token.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update student: %w", err)
	}
	defer tx.Rollback()

	const updateStudent = `UPDATE students SET coaching_trajectory = :coaching_trajectory, version = version + 1
		WHERE id = :id AND version = :version`
	res, err := tx.NamedExecContext(ctx, updateStudent, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	const updateUser = `UPDATE users SET name = :name, phone_number = :phone_number, country = :country, region = :region, avatar = :avatar, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateUser, student.User); err != nil {
		return fmt.Errorf("update student user: %w", err)
	}

	if err := replaceRoadmapTx(ctx, tx, student.ID, student.CoursesRoadmap); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update student: %w", err)
	}
	student.Version++
	return nil
}

// Delete removes the student and all records hanging off it, then soft
// deletes the base account.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer tx.Rollback()

	cascades := []string{
		`DELETE FROM coach_assignments WHERE student_id = $1`,
		`DELETE FROM course_enrollments WHERE student_id = $1`,
		`DELETE FROM mcq_answers WHERE student_id = $1`,
		`DELETE FROM lecture_completions WHERE student_id = $1`,
		`DELETE FROM student_roadmap WHERE student_id = $1`,
		`DELETE FROM students WHERE id = $1`,
	}
	for _, query := range cascades {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_deleted = TRUE, is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete student user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	return nil
}

// ReplaceRoadmap swaps the student's ordered roadmap for courseIDs.
func (r *StudentRepository) ReplaceRoadmap(ctx context.Context, studentID string, courseIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace roadmap: %w", err)
	}
	defer tx.Rollback()

	if err := replaceRoadmapTx(ctx, tx, studentID, courseIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace roadmap: %w", err)
	}
	return nil
}

// AppendRoadmapCourse adds the course at the end of the student's roadmap
// unless it is already present.
func (r *StudentRepository) AppendRoadmapCourse(ctx context.Context, studentID, courseID string) error {
	const query = `INSERT INTO student_roadmap (id, student_id, course_id, position)
		SELECT $1, $2, $3, COALESCE(MAX(position), 0) + 1 FROM student_roadmap WHERE student_id = $2
		ON CONFLICT (student_id, course_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), studentID, courseID); err != nil {
		return fmt.Errorf("append roadmap course: %w", err)
	}
	return nil
}

// RemoveRoadmapCourse drops the course from the student's roadmap.
func (r *StudentRepository) RemoveRoadmapCourse(ctx context.Context, studentID, courseID string) error {
	const query = `DELETE FROM student_roadmap WHERE student_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID); err != nil {
		return fmt.Errorf("remove roadmap course: %w", err)
	}
	return nil
}

func (r *StudentRepository) roadmap(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT course_id FROM student_roadmap WHERE student_id = $1 ORDER BY position`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("load roadmap: %w", err)
	}
	return ids, nil
}

func replaceRoadmapTx(ctx context.Context, tx *sqlx.Tx, studentID string, courseIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_roadmap WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("clear roadmap: %w", err)
	}
	for i, courseID := range courseIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO student_roadmap (id, student_id, course_id, position) VALUES ($1, $2, $3, $4)`, uuid.NewString(), studentID, courseID, i); err != nil {
			return fmt.Errorf("insert roadmap entry: %w", err)
		}
	}
	return nil
}
