package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/repository"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Publish(ctx context.Context, id string) (bool, error)
	Archive(ctx context.Context, id string) error
	Unarchive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	AddEnrollments(ctx context.Context, courseID string, studentIDs []string) error
	RemoveEnrollments(ctx context.Context, courseID string, studentIDs []string) error
	ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error)
}

type roadmapWriter interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	AppendRoadmapCourse(ctx context.Context, studentID, courseID string) error
	RemoveRoadmapCourse(ctx context.Context, studentID, courseID string) error
}

type lectureProgressLister interface {
	ListProgress(ctx context.Context, courseID, studentID string) ([]models.LectureProgress, error)
}

type progressCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateCourseProgress(ctx context.Context, courseID string) error
}

// CreateCourseRequest holds payload for creating courses. New courses always
// start as drafts.
type CreateCourseRequest struct {
	Title           string `json:"title" validate:"required"`
	Subtitle        string `json:"subtitle"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	Thumbnail       string `json:"thumbnail"`
	Trailer         string `json:"trailer"`
	ModuleManagerID string `json:"module_manager" validate:"required"`
}

// UpdateCourseRequest holds payload for updating course content. Lifecycle
// transitions go through Publish, Archive and Unarchive.
type UpdateCourseRequest struct {
	Title           string `json:"title" validate:"required"`
	Subtitle        string `json:"subtitle"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	Thumbnail       string `json:"thumbnail"`
	Trailer         string `json:"trailer"`
	ModuleManagerID string `json:"module_manager" validate:"required"`
}

// EnrollStudentsRequest links students to a published course.
type EnrollStudentsRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
}

// CourseService handles course lifecycle, enrollment from the course side
// and the per-student progress rollup.
type CourseService struct {
	repo      courseRepository
	students  roadmapWriter
	lectures  lectureProgressLister
	cache     progressCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, students roadmapWriter, lectures lectureProgressLister, cache progressCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CourseService{repo: repo, students: students, lectures: lectures, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns courses and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a course with its lectures and enrolled students.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new draft course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Title:           req.Title,
		Subtitle:        req.Subtitle,
		Category:        req.Category,
		Description:     req.Description,
		Thumbnail:       req.Thumbnail,
		Trailer:         req.Trailer,
		ModuleManagerID: req.ModuleManagerID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID))
	return course, nil
}

// Update modifies course content.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Title = req.Title
	course.Subtitle = req.Subtitle
	course.Category = req.Category
	course.Description = req.Description
	course.Thumbnail = req.Thumbnail
	course.Trailer = req.Trailer
	course.ModuleManagerID = req.ModuleManagerID

	if err := s.repo.Update(ctx, course); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Publish flips an unpublished course to published. Archiving is a separate
// axis, so archived courses publish too. Publishing twice is harmless: the
// second call reports alreadyPublished without touching the row.
func (s *CourseService) Publish(ctx context.Context, id string) (course *models.Course, alreadyPublished bool, err error) {
	course, err = s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	flipped, err := s.repo.Publish(ctx, id)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish course")
	}
	if flipped {
		course.IsPublished = true
		course.Status = models.CourseStatusPublished
	}
	return course, !flipped, nil
}

// Archive hides the course from active listings without reverting the
// published state.
func (s *CourseService) Archive(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive course")
	}
	course.IsArchived = true
	course.Status = models.CourseStatusArchived
	return course, nil
}

// Unarchive restores the course to the state its published flag implies.
func (s *CourseService) Unarchive(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Unarchive(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unarchive course")
	}
	course.IsArchived = false
	if course.IsPublished {
		course.Status = models.CourseStatusPublished
	} else {
		course.Status = models.CourseStatusDraft
	}
	return course, nil
}

// Delete removes the course and all its content.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	if s.cache != nil {
		if err := s.cache.InvalidateCourseProgress(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate progress cache", zap.Error(err))
		}
	}
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// EnrollStudents links students to the course and mirrors the link into
// each student's roadmap. Draft courses never accept students.
func (s *CourseService) EnrollStudents(ctx context.Context, courseID string, req EnrollStudentsRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Draft courses cannot be assigned to students")
	}

	studentIDs := uniqueIDs(req.StudentIDs)
	students, err := s.students.FindByIDs(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) != len(studentIDs) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Some students were not found")
	}

	if err := s.repo.AddEnrollments(ctx, courseID, studentIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll students")
	}
	for _, studentID := range studentIDs {
		if err := s.students.AppendRoadmapCourse(ctx, studentID, courseID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update roadmap")
		}
	}
	return s.Get(ctx, courseID)
}

// UnenrollStudents removes the course-student links and the roadmap mirror.
func (s *CourseService) UnenrollStudents(ctx context.Context, courseID string, req EnrollStudentsRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	studentIDs := uniqueIDs(req.StudentIDs)
	if err := s.repo.RemoveEnrollments(ctx, courseID, studentIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll students")
	}
	for _, studentID := range studentIDs {
		if err := s.students.RemoveRoadmapCourse(ctx, studentID, courseID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update roadmap")
		}
	}
	return s.Get(ctx, courseID)
}

// StudentProgress computes the per-lecture rollup for one student across the
// course. The result is cached; writes to completions, answers or lectures
// invalidate the course's cache entries.
func (s *CourseService) StudentProgress(ctx context.Context, courseID, studentID string) (*models.CourseProgress, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	students, err := s.students.FindByIDs(ctx, []string{studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	key := repository.ProgressKey(courseID, studentID)
	if s.cache != nil {
		var cached models.CourseProgress
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.HasCode(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("progress cache read failed", zap.Error(err))
		}
	}

	rows, err := s.lectures.ListProgress(ctx, courseID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute progress")
	}

	progress := &models.CourseProgress{
		CourseID:  courseID,
		StudentID: studentID,
		Lectures:  rows,
	}
	for _, row := range rows {
		progress.TotalLectures++
		if row.IsCompleted {
			progress.CompletedLectures++
		}
		progress.TotalQuestions += row.QuestionCount
		progress.AnsweredQuestions += row.AnsweredCount
	}
	// Empty denominators mean zero progress, not a division error.
	if progress.TotalLectures > 0 {
		progress.LectureCompletionPercentage = float64(progress.CompletedLectures) / float64(progress.TotalLectures) * 100
	}
	if progress.TotalQuestions > 0 {
		progress.QuizCompletionPercentage = float64(progress.AnsweredQuestions) / float64(progress.TotalQuestions) * 100
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, progress, s.cacheTTL); err != nil {
			s.logger.Warn("progress cache write failed", zap.Error(err))
		}
	}
	return progress, nil
}
