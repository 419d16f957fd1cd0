package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/repository"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	ReplaceRoadmap(ctx context.Context, studentID string, courseIDs []string) error
	ClearCoach(ctx context.Context, studentID string) error
}

type enrollmentCourses interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	AddEnrollments(ctx context.Context, courseID string, studentIDs []string) error
	RemoveEnrollments(ctx context.Context, courseID string, studentIDs []string) error
	ListCourseIDsByStudent(ctx context.Context, studentID string) ([]string, error)
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	Email              string           `json:"email" validate:"required,email"`
	Name               string           `json:"name" validate:"required"`
	PhoneNumber        string           `json:"phone_number"`
	Country            string           `json:"country"`
	Region             string           `json:"region"`
	Avatar             string           `json:"avatar"`
	CoachingTrajectory models.CoachType `json:"coaching_trajectory" validate:"required,oneof=HIGH_TICKET LOW_TICKET"`
	CoursesRoadmap     []string         `json:"courses_roadmap"`
	CreatedBy          string           `json:"-"`
	AssignedCoach      string           `json:"-"`
}

// UpdateStudentRequest holds payload for updating students. The email is
// immutable once the account exists.
type UpdateStudentRequest struct {
	Email              string           `json:"email"`
	Name               string           `json:"name" validate:"required"`
	PhoneNumber        string           `json:"phone_number"`
	Country            string           `json:"country"`
	Region             string           `json:"region"`
	Avatar             string           `json:"avatar"`
	CoachingTrajectory models.CoachType `json:"coaching_trajectory" validate:"required,oneof=HIGH_TICKET LOW_TICKET"`
	Active             bool             `json:"active"`
	CoursesRoadmap     *[]string        `json:"courses_roadmap,omitempty"`
}

// StudentService handles student use-cases, including keeping the roadmap
// and the course enrollment edge in lockstep.
type StudentService struct {
	repo      studentRepository
	courses   enrollmentCourses
	users     emailChecker
	notifier  passwordNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, courses enrollmentCourses, users emailChecker, notifier passwordNotifier, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, courses: courses, users: users, notifier: notifier, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student with its roadmap.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student, enrolls it in the roadmap courses and
// mails the generated password.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Email already exists")
	}

	roadmap := uniqueIDs(req.CoursesRoadmap)
	if err := s.validateRoadmap(ctx, roadmap); err != nil {
		return nil, err
	}

	password, err := generatePassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		User: models.User{
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         models.RoleStudent,
			Name:         req.Name,
			PhoneNumber:  req.PhoneNumber,
			Country:      req.Country,
			Region:       req.Region,
			Avatar:       req.Avatar,
			IsActive:     true,
		},
		CoachingTrajectory: req.CoachingTrajectory,
		CoursesRoadmap:     roadmap,
	}
	if req.CreatedBy != "" {
		student.CreatedBy = &req.CreatedBy
	}
	if req.AssignedCoach != "" {
		student.AssignedCoach = &req.AssignedCoach
	}

	if err := s.repo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if err := s.syncEnrollments(ctx, student.ID, nil, roadmap); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.EnqueuePasswordEmail(student.Email, student.Name, password)
	}
	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// Update modifies a student. A changed roadmap re-syncs the enrollment edge
// on both sides.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != "" && req.Email != student.Email {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Email cannot be updated")
	}

	trajectoryChanged := req.CoachingTrajectory != student.CoachingTrajectory

	previous := student.CoursesRoadmap
	roadmap := previous
	if trajectoryChanged {
		// Changing track invalidates prior coach and course commitments:
		// the roadmap resets unless the request supplies a new one.
		roadmap = nil
	}
	if req.CoursesRoadmap != nil {
		roadmap = uniqueIDs(*req.CoursesRoadmap)
		if err := s.validateRoadmap(ctx, roadmap); err != nil {
			return nil, err
		}
	}

	if trajectoryChanged && student.AssignedCoach != nil {
		if err := s.repo.ClearCoach(ctx, id); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign coach")
		}
		student.AssignedCoach = nil
	}

	student.Name = req.Name
	student.PhoneNumber = req.PhoneNumber
	student.Country = req.Country
	student.Region = req.Region
	student.Avatar = req.Avatar
	student.IsActive = req.Active
	student.CoachingTrajectory = req.CoachingTrajectory
	student.CoursesRoadmap = roadmap

	if err := s.repo.Update(ctx, student); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	if trajectoryChanged || req.CoursesRoadmap != nil {
		if err := s.syncEnrollments(ctx, id, previous, roadmap); err != nil {
			return nil, err
		}
	}
	return student, nil
}

// Delete removes the student together with its assignments, enrollments and
// quiz history.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// validateRoadmap checks that every course exists and none of them is still
// an unpublished draft. Archived courses stay eligible once published.
func (s *StudentService) validateRoadmap(ctx context.Context, courseIDs []string) error {
	if len(courseIDs) == 0 {
		return nil
	}
	courses, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	if len(courses) != len(courseIDs) {
		return appErrors.Clone(appErrors.ErrNotFound, "Some courses were not found")
	}
	for i := range courses {
		if !courses[i].IsPublished {
			return appErrors.Clone(appErrors.ErrValidation, "Draft courses cannot be assigned to students")
		}
	}
	return nil
}

// syncEnrollments reconciles the course side of the roadmap: courses added
// to the roadmap gain the student, dropped ones lose it.
func (s *StudentService) syncEnrollments(ctx context.Context, studentID string, previous, next []string) error {
	prevSet := make(map[string]bool, len(previous))
	for _, id := range previous {
		prevSet[id] = true
	}
	nextSet := make(map[string]bool, len(next))
	for _, id := range next {
		nextSet[id] = true
	}

	for _, courseID := range next {
		if prevSet[courseID] {
			continue
		}
		if err := s.courses.AddEnrollments(ctx, courseID, []string{studentID}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
		}
	}
	for _, courseID := range previous {
		if nextSet[courseID] {
			continue
		}
		if err := s.courses.RemoveEnrollments(ctx, courseID, []string{studentID}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
		}
	}
	return nil
}
