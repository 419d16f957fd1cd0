package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/repository"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type coachRepository interface {
	List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, int, error)
	FindByID(ctx context.Context, id string) (*models.Coach, error)
	Create(ctx context.Context, coach *models.Coach) error
	Update(ctx context.Context, coach *models.Coach) error
	Delete(ctx context.Context, id string) error
	CountAssigned(ctx context.Context, coachID string) (int, error)
	ListAssignedStudentIDs(ctx context.Context, coachID string) ([]string, error)
	FindAssignedElsewhere(ctx context.Context, coachID string, studentIDs []string) ([]string, error)
	ReplaceAssignments(ctx context.Context, coachID string, studentIDs []string, version int) error
	FindByStudent(ctx context.Context, studentID string) (*models.Coach, error)
}

type studentFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type emailChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type passwordNotifier interface {
	EnqueuePasswordEmail(recipient, name, password string)
}

// CreateCoachRequest holds payload for registering coaches.
type CreateCoachRequest struct {
	Email                  string           `json:"email" validate:"required,email"`
	Name                   string           `json:"name" validate:"required"`
	PhoneNumber            string           `json:"phone_number"`
	Country                string           `json:"country"`
	Region                 string           `json:"region"`
	Avatar                 string           `json:"avatar"`
	CoachType              models.CoachType `json:"coach_type" validate:"required,oneof=HIGH_TICKET LOW_TICKET"`
	HighTicketStudentSpots int              `json:"high_ticket_student_spots" validate:"min=0"`
	LowTicketStudentSpots  int              `json:"low_ticket_student_spots" validate:"min=0"`
	Bio                    string           `json:"bio"`
	AssignedStudents       []string         `json:"assigned_students"`
	CreatedBy              string           `json:"-"`
}

// UpdateCoachRequest holds payload for updating coaches. The email is
// immutable once the account exists.
type UpdateCoachRequest struct {
	Email                  string           `json:"email"`
	Name                   string           `json:"name" validate:"required"`
	PhoneNumber            string           `json:"phone_number"`
	Country                string           `json:"country"`
	Region                 string           `json:"region"`
	Avatar                 string           `json:"avatar"`
	CoachType              models.CoachType `json:"coach_type" validate:"required,oneof=HIGH_TICKET LOW_TICKET"`
	HighTicketStudentSpots int              `json:"high_ticket_student_spots" validate:"min=0"`
	LowTicketStudentSpots  int              `json:"low_ticket_student_spots" validate:"min=0"`
	Bio                    string           `json:"bio"`
	Active                 bool             `json:"active"`
	AssignedStudents       *[]string        `json:"assigned_students,omitempty"`
}

// AssignStudentsRequest replaces a coach's assignment set.
type AssignStudentsRequest struct {
	StudentIDs []string `json:"student_ids"`
}

// CoachService handles coach use-cases, chiefly keeping the coach-student
// assignment links mutually consistent.
type CoachService struct {
	repo      coachRepository
	students  studentFinder
	users     emailChecker
	notifier  passwordNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCoachService constructs the coach service.
func NewCoachService(repo coachRepository, students studentFinder, users emailChecker, notifier passwordNotifier, validate *validator.Validate, logger *zap.Logger) *CoachService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoachService{repo: repo, students: students, users: users, notifier: notifier, validator: validate, logger: logger}
}

// List returns coaches and pagination metadata.
func (s *CoachService) List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, *models.Pagination, error) {
	coaches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list coaches")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return coaches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a coach with its assigned students.
func (s *CoachService) Get(ctx context.Context, id string) (*models.Coach, error) {
	coach, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "coach not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coach")
	}
	return coach, nil
}

// Create registers a new coach, optionally with an initial assignment set,
// and mails the generated password to the new account.
func (s *CoachService) Create(ctx context.Context, req CreateCoachRequest) (*models.Coach, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid coach payload")
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Email already exists")
	}

	coach := &models.Coach{
		User: models.User{
			Email:       req.Email,
			Role:        models.RoleCoach,
			Name:        req.Name,
			PhoneNumber: req.PhoneNumber,
			Country:     req.Country,
			Region:      req.Region,
			Avatar:      req.Avatar,
			IsActive:    true,
		},
		CoachType:              req.CoachType,
		HighTicketStudentSpots: req.HighTicketStudentSpots,
		LowTicketStudentSpots:  req.LowTicketStudentSpots,
		Bio:                    req.Bio,
	}
	if req.CreatedBy != "" {
		coach.CreatedBy = &req.CreatedBy
	}
	zeroInactiveSpots(coach)

	if len(req.AssignedStudents) > 0 {
		if err := s.validateAssignments(ctx, coach, "", req.AssignedStudents); err != nil {
			return nil, err
		}
	}

	password, err := generatePassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	coach.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, coach); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create coach")
	}

	if len(req.AssignedStudents) > 0 {
		if err := s.replaceAssignments(ctx, coach, req.AssignedStudents); err != nil {
			return nil, err
		}
		coach.AssignedStudents = req.AssignedStudents
	}

	if s.notifier != nil {
		s.notifier.EnqueuePasswordEmail(coach.Email, coach.Name, password)
	}
	s.logger.Info("coach created", zap.String("coach_id", coach.ID))
	return coach, nil
}

// Update modifies a coach. The request's assignment list replaces the
// current one, so leaving it out unassigns every student. Shrinking spots
// below the submitted assignment count is rejected, and the email can
// never change.
func (s *CoachService) Update(ctx context.Context, id string, req UpdateCoachRequest) (*models.Coach, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid coach payload")
	}

	coach, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != "" && req.Email != coach.Email {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Email cannot be updated")
	}

	coach.Name = req.Name
	coach.PhoneNumber = req.PhoneNumber
	coach.Country = req.Country
	coach.Region = req.Region
	coach.Avatar = req.Avatar
	coach.IsActive = req.Active
	coach.CoachType = req.CoachType
	coach.HighTicketStudentSpots = req.HighTicketStudentSpots
	coach.LowTicketStudentSpots = req.LowTicketStudentSpots
	coach.Bio = req.Bio
	zeroInactiveSpots(coach)

	// An omitted or empty assignment list clears every current assignment.
	var assigned []string
	if req.AssignedStudents != nil {
		assigned = *req.AssignedStudents
	}
	if err := s.validateAssignments(ctx, coach, id, assigned); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, coach); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "coach was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update coach")
	}

	if err := s.replaceAssignments(ctx, coach, assigned); err != nil {
		return nil, err
	}
	coach.AssignedStudents = assigned
	return coach, nil
}

// AssignStudents replaces the coach's assignment set after running the full
// consistency checks.
func (s *CoachService) AssignStudents(ctx context.Context, coachID string, req AssignStudentsRequest) (*models.Coach, error) {
	coach, err := s.Get(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if err := s.validateAssignments(ctx, coach, coachID, req.StudentIDs); err != nil {
		return nil, err
	}
	if err := s.replaceAssignments(ctx, coach, req.StudentIDs); err != nil {
		return nil, err
	}
	coach.AssignedStudents = req.StudentIDs
	return coach, nil
}

// FindByStudent returns the coach a student is assigned to, or nil when
// the student is unassigned.
func (s *CoachService) FindByStudent(ctx context.Context, studentID string) (*models.Coach, error) {
	coach, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coach")
	}
	return coach, nil
}

// Delete removes a coach. A coach still holding students cannot be deleted.
func (s *CoachService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	assigned, err := s.repo.CountAssigned(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assigned students")
	}
	if assigned > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "Cannot delete coach with assigned students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete coach")
	}
	s.logger.Info("coach deleted", zap.String("coach_id", id))
	return nil
}

// validateAssignments runs the consistency checks over a candidate
// assignment set: every student must exist, must not belong to another
// coach, must ride the coach's trajectory and must fit within the tier's
// spots.
func (s *CoachService) validateAssignments(ctx context.Context, coach *models.Coach, coachID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}

	students, err := s.students.FindByIDs(ctx, studentIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) != len(uniqueIDs(studentIDs)) {
		return appErrors.Clone(appErrors.ErrNotFound, "Some students were not found")
	}

	taken, err := s.repo.FindAssignedElsewhere(ctx, coachID, studentIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignments")
	}
	if len(taken) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "Some students are already assigned to another coach")
	}

	for i := range students {
		if students[i].CoachingTrajectory != coach.CoachType {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Assigned students should match the coach type (%s)", coach.CoachType.Label()))
		}
	}

	if len(uniqueIDs(studentIDs)) > coach.Spots() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Assigned students exceed %s Student Spots", coach.CoachType.Label()))
	}
	return nil
}

func (s *CoachService) replaceAssignments(ctx context.Context, coach *models.Coach, studentIDs []string) error {
	err := s.repo.ReplaceAssignments(ctx, coach.ID, uniqueIDs(studentIDs), coach.Version)
	if err == nil {
		coach.Version++
		return nil
	}
	if err == repository.ErrVersionConflict {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "coach was modified concurrently")
	}
	if repository.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "Some students are already assigned to another coach")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign students")
}

// zeroInactiveSpots clears the spot count of the tier the coach does not
// serve, so a type switch cannot leave a stale capacity behind.
func zeroInactiveSpots(coach *models.Coach) {
	switch coach.CoachType {
	case models.CoachTypeHighTicket:
		coach.LowTicketStudentSpots = 0
	case models.CoachTypeLowTicket:
		coach.HighTicketStudentSpots = 0
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
