package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/account-academy/backoffice-api/internal/models"
)

const coachColumns = `u.id, u.email, u.password_hash, u.role, u.name, u.phone_number, u.country, u.region, u.avatar, u.is_active, u.is_deleted, u.last_visit, u.created_by, u.created_at, u.updated_at,
	c.coach_type, c.high_ticket_student_spots, c.low_ticket_student_spots, c.bio, c.version`

// CoachRepository manages persistence for coaches and their student
// assignments. The assignment set is owned by the coach; the students table
// carries a back-link kept in sync by ReplaceAssignments.
type CoachRepository struct {
	db *sqlx.DB
}

// NewCoachRepository constructs a CoachRepository.
func NewCoachRepository(db *sqlx.DB) *CoachRepository {
	return &CoachRepository{db: db}
}

// List returns coaches matching the filter plus the total count.
func (r *CoachRepository) List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, int, error) {
	base := "FROM coaches c JOIN users u ON u.id = c.id WHERE u.is_deleted = FALSE"
	var args []interface{}

	if filter.CoachType != nil {
		base += fmt.Sprintf(" AND c.coach_type = $%d", len(args)+1)
		args = append(args, *filter.CoachType)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY u.created_at DESC LIMIT %d OFFSET %d", coachColumns, base, size, offset)
	var coaches []models.Coach
	if err := r.db.SelectContext(ctx, &coaches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list coaches: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count coaches: %w", err)
	}
	return coaches, total, nil
}

// FindByID fetches a coach with its assigned student ids.
func (r *CoachRepository) FindByID(ctx context.Context, id string) (*models.Coach, error) {
	query := fmt.Sprintf("SELECT %s FROM coaches c JOIN users u ON u.id = c.id WHERE c.id = $1", coachColumns)
	var coach models.Coach
	if err := r.db.GetContext(ctx, &coach, query, id); err != nil {
		return nil, err
	}
	assigned, err := r.ListAssignedStudentIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	coach.AssignedStudents = assigned
	return &coach, nil
}

// Create inserts the base user row and the coach payload in one transaction.
func (r *CoachRepository) Create(ctx context.Context, coach *models.Coach) error {
	prepareUser(&coach.User)
	coach.Role = models.RoleCoach
	coach.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create coach: %w", err)
	}
	defer tx.Rollback()

	const insertUser = `INSERT INTO users (id, email, password_hash, role, name, phone_number, country, region, avatar, is_active, is_deleted, last_visit, created_by, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :role, :name, :phone_number, :country, :region, :avatar, :is_active, :is_deleted, :last_visit, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertUser, coach.User); err != nil {
		return fmt.Errorf("create coach user: %w", err)
	}

	const insertCoach = `INSERT INTO coaches (id, coach_type, high_ticket_student_spots, low_ticket_student_spots, bio, version)
		VALUES (:id, :coach_type, :high_ticket_student_spots, :low_ticket_student_spots, :bio, :version)`
	if _, err := tx.NamedExecContext(ctx, insertCoach, coach); err != nil {
		return fmt.Errorf("create coach: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create coach: %w", err)
	}
	return nil
}

// Update modifies the coach payload and base fields, guarded by the version
// token. Returns ErrVersionConflict when the token is stale.
func (r *CoachRepository) Update(ctx context.Context, coach *models.Coach) error {
	coach.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update coach: %w", err)
	}
	defer tx.Rollback()

	const updateCoach = `UPDATE coaches SET coach_type = :coach_type, high_ticket_student_spots = :high_ticket_student_spots,
		low_ticket_student_spots = :low_ticket_student_spots, bio = :bio, version = version + 1
		WHERE id = :id AND version = :version`
	res, err := tx.NamedExecContext(ctx, updateCoach, coach)
	if err != nil {
		return fmt.Errorf("update coach: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update coach: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	const updateUser = `UPDATE users SET name = :name, phone_number = :phone_number, country = :country, region = :region, avatar = :avatar, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateUser, coach.User); err != nil {
		return fmt.Errorf("update coach user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update coach: %w", err)
	}
	coach.Version++
	return nil
}

// Delete removes the coach payload and soft deletes the base account. The
// caller must first verify the coach has no assigned students.
func (r *CoachRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete coach: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM coach_assignments WHERE coach_id = $1`, id); err != nil {
		return fmt.Errorf("delete coach assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM coaches WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete coach: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_deleted = TRUE, is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete coach user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete coach: %w", err)
	}
	return nil
}

// CountAssigned returns the number of students currently assigned to the
// coach.
func (r *CoachRepository) CountAssigned(ctx context.Context, coachID string) (int, error) {
	const query = `SELECT COUNT(*) FROM coach_assignments WHERE coach_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, coachID); err != nil {
		return 0, fmt.Errorf("count assigned students: %w", err)
	}
	return total, nil
}

// ListAssignedStudentIDs returns the ids of the coach's assigned students in
// assignment order.
func (r *CoachRepository) ListAssignedStudentIDs(ctx context.Context, coachID string) ([]string, error) {
	const query = `SELECT student_id FROM coach_assignments WHERE coach_id = $1 ORDER BY assigned_at`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, coachID); err != nil {
		return nil, fmt.Errorf("list assigned students: %w", err)
	}
	return ids, nil
}

// FindAssignedElsewhere returns the subset of studentIDs already assigned to
// a different coach.
func (r *CoachRepository) FindAssignedElsewhere(ctx context.Context, coachID string, studentIDs []string) ([]string, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT student_id FROM coach_assignments WHERE student_id = ANY($1) AND coach_id <> $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(studentIDs), coachID); err != nil {
		return nil, fmt.Errorf("find assigned elsewhere: %w", err)
	}
	return ids, nil
}

// ReplaceAssignments swaps the coach's assignment set for studentIDs in one
// transaction, keeping the student back-links in sync. Students dropped from
// the set get their back-link cleared; students added get it set. The unique
// constraint on coach_assignments.student_id surfaces concurrent claims as a
// unique violation.
func (r *CoachRepository) ReplaceAssignments(ctx context.Context, coachID string, studentIDs []string, version int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE coaches SET version = version + 1 WHERE id = $1 AND version = $2`, coachID, version)
	if err != nil {
		return fmt.Errorf("bump coach version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump coach version: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `UPDATE students SET assigned_coach_id = NULL WHERE assigned_coach_id = $1 AND NOT (id = ANY($2))`, coachID, pq.Array(studentIDs)); err != nil {
		return fmt.Errorf("clear dropped back-links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM coach_assignments WHERE coach_id = $1 AND NOT (student_id = ANY($2))`, coachID, pq.Array(studentIDs)); err != nil {
		return fmt.Errorf("delete dropped assignments: %w", err)
	}

	var kept []string
	if err := tx.SelectContext(ctx, &kept, `SELECT student_id FROM coach_assignments WHERE coach_id = $1`, coachID); err != nil {
		return fmt.Errorf("load kept assignments: %w", err)
	}
	existing := make(map[string]bool, len(kept))
	for _, id := range kept {
		existing[id] = true
	}

	// Plain inserts so a concurrent claim by another coach trips the unique
	// constraint on student_id instead of being silently absorbed.
	now := time.Now().UTC()
	for _, studentID := range studentIDs {
		if !existing[studentID] {
			if _, err := tx.ExecContext(ctx, `INSERT INTO coach_assignments (id, coach_id, student_id, assigned_at) VALUES ($1, $2, $3, $4)`, uuid.NewString(), coachID, studentID, now); err != nil {
				return fmt.Errorf("insert assignment: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE students SET assigned_coach_id = $1 WHERE id = $2`, coachID, studentID); err != nil {
			return fmt.Errorf("set student back-link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}

// FindByStudent returns the coach a student is assigned to, or nil when
// unassigned.
func (r *CoachRepository) FindByStudent(ctx context.Context, studentID string) (*models.Coach, error) {
	query := fmt.Sprintf(`SELECT %s FROM coach_assignments a JOIN coaches c ON c.id = a.coach_id JOIN users u ON u.id = c.id WHERE a.student_id = $1`, coachColumns)
	var coach models.Coach
	if err := r.db.GetContext(ctx, &coach, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find coach by student: %w", err)
	}
	return &coach, nil
}
