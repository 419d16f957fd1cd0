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

const courseColumns = `id, title, subtitle, category, description, thumbnail, trailer, module_manager_id, status, is_published, is_archived, version, created_at, updated_at`

// CourseRepository manages persistence for courses, their lecture ordering
// and the enrollment edge to students.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the filter plus the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var args []interface{}

	if filter.PublishedOnly {
		base += " AND is_published = TRUE"
	}
	if filter.Archived != nil {
		base += fmt.Sprintf(" AND is_archived = $%d", len(args)+1)
		args = append(args, *filter.Archived)
	}
	if filter.ManagerID != "" {
		base += fmt.Sprintf(" AND module_manager_id = $%d", len(args)+1)
		args = append(args, filter.ManagerID)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(title) LIKE $%d OR LOWER(category) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	_, size, offset := clampPage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", courseColumns, base, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course with its ordered lecture ids and enrolled
// student ids.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	lectures, err := r.ListLectureIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	enrolled, err := r.ListEnrolledStudentIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Lectures = lectures
	course.EnrolledStudents = enrolled
	return &course, nil
}

// FindByIDs fetches the courses with the given ids. Missing ids are simply
// absent from the result.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = ANY($1)", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}
	return courses, nil
}

// Create inserts a new course in Draft state.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.Status = models.CourseStatusDraft
	course.IsPublished = false
	course.IsArchived = false
	course.Version = 1
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, title, subtitle, category, description, thumbnail, trailer, module_manager_id, status, is_published, is_archived, version, created_at, updated_at)
		VALUES (:id, :title, :subtitle, :category, :description, :thumbnail, :trailer, :module_manager_id, :status, :is_published, :is_archived, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies the editable course fields, guarded by the version token.
// Lifecycle flags are never touched here.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, subtitle = :subtitle, category = :category, description = :description,
		thumbnail = :thumbnail, trailer = :trailer, module_manager_id = :module_manager_id, version = version + 1, updated_at = :updated_at
		WHERE id = :id AND version = :version`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	course.Version++
	return nil
}

// Publish flips the course to Published. Returns false when the course was
// already published, making the operation idempotent for the caller.
func (r *CourseRepository) Publish(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE courses SET status = $2, is_published = TRUE, updated_at = $3 WHERE id = $1 AND is_published = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, models.CourseStatusPublished, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("publish course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("publish course: %w", err)
	}
	return affected > 0, nil
}

// Archive marks the course archived. The published flag is left untouched so
// unarchiving restores the previous lifecycle state.
func (r *CourseRepository) Archive(ctx context.Context, id string) error {
	const query = `UPDATE courses SET status = $2, is_archived = TRUE, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.CourseStatusArchived, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive course: %w", err)
	}
	return nil
}

// Unarchive clears the archived flag and restores the status derived from
// the published flag.
func (r *CourseRepository) Unarchive(ctx context.Context, id string) error {
	const query = `UPDATE courses SET is_archived = FALSE, status = CASE WHEN is_published THEN $2::text ELSE $3::text END, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.CourseStatusPublished, models.CourseStatusDraft, time.Now().UTC()); err != nil {
		return fmt.Errorf("unarchive course: %w", err)
	}
	return nil
}

// Delete removes the course and everything hanging off it.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course: %w", err)
	}
	defer tx.Rollback()

	cascades := []string{
		`DELETE FROM mcq_answers WHERE mcq_id IN (SELECT m.id FROM mcqs m JOIN lectures l ON l.id = m.lecture_id WHERE l.course_id = $1)`,
		`DELETE FROM mcqs WHERE lecture_id IN (SELECT id FROM lectures WHERE course_id = $1)`,
		`DELETE FROM lecture_completions WHERE lecture_id IN (SELECT id FROM lectures WHERE course_id = $1)`,
		`DELETE FROM lectures WHERE course_id = $1`,
		`DELETE FROM course_enrollments WHERE course_id = $1`,
		`DELETE FROM student_roadmap WHERE course_id = $1`,
		`DELETE FROM courses WHERE id = $1`,
	}
	for _, query := range cascades {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	return nil
}

// ListLectureIDs returns the course's lecture ids in position order.
func (r *CourseRepository) ListLectureIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT id FROM lectures WHERE course_id = $1 ORDER BY position`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list course lectures: %w", err)
	}
	return ids, nil
}

// ListEnrolledStudentIDs returns the ids of students enrolled in the course.
func (r *CourseRepository) ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT student_id FROM course_enrollments WHERE course_id = $1 ORDER BY enrolled_at`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return ids, nil
}

// ListCourseIDsByStudent returns the ids of courses the student is enrolled
// in.
func (r *CourseRepository) ListCourseIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT course_id FROM course_enrollments WHERE student_id = $1 ORDER BY enrolled_at`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return ids, nil
}

// AddEnrollments links the students to the course, skipping pairs that
// already exist.
func (r *CourseRepository) AddEnrollments(ctx context.Context, courseID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, studentID := range studentIDs {
		const query = `INSERT INTO course_enrollments (id, course_id, student_id, enrolled_at) VALUES ($1, $2, $3, $4) ON CONFLICT (course_id, student_id) DO NOTHING`
		if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), courseID, studentID, now); err != nil {
			return fmt.Errorf("add enrollment: %w", err)
		}
	}
	return nil
}

// RemoveEnrollments unlinks the students from the course.
func (r *CourseRepository) RemoveEnrollments(ctx context.Context, courseID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM course_enrollments WHERE course_id = $1 AND student_id = ANY($2)`
	if _, err := r.db.ExecContext(ctx, query, courseID, pq.Array(studentIDs)); err != nil {
		return fmt.Errorf("remove enrollments: %w", err)
	}
	return nil
}

// Count returns the number of courses, optionally published only.
func (r *CourseRepository) Count(ctx context.Context, publishedOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM courses"
	if publishedOnly {
		query += " WHERE is_published = TRUE"
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}
