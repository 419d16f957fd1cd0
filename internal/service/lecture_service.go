package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/internal/integration"
	"github.com/account-academy/backoffice-api/internal/models"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type lectureRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error)
	FindByID(ctx context.Context, id string) (*models.Lecture, error)
	FindWithQuiz(ctx context.Context, id string) (*models.Lecture, error)
	Create(ctx context.Context, lecture *models.Lecture) error
	Update(ctx context.Context, lecture *models.Lecture) error
	ReplaceQuiz(ctx context.Context, lectureID string, mcqs []models.MCQ) error
	Delete(ctx context.Context, id string) error
	UpsertAnswer(ctx context.Context, mcqID, studentID, answer string, result bool) error
	AddCompletion(ctx context.Context, lectureID, studentID string) (bool, error)
	RemoveCompletion(ctx context.Context, lectureID, studentID string) error
}

type courseChecker interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type completionCache interface {
	InvalidateCourseProgress(ctx context.Context, courseID string) error
}

// passThreshold is the minimum share of correct answers that marks a quiz
// as passed.
const passThreshold = 0.5

// MCQInput is one question in a lecture create or quiz replace payload.
type MCQInput struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
}

// CreateLectureRequest holds payload for adding a lecture to a course.
type CreateLectureRequest struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	File        string     `json:"file"`
	VideoLink   string     `json:"video_link"`
	MCQs        []MCQInput `json:"mcqs" validate:"dive"`
}

// UpdateLectureRequest holds payload for updating lecture content. A nil
// MCQs field leaves the quiz untouched; a non-nil one replaces it.
type UpdateLectureRequest struct {
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description"`
	File        string      `json:"file"`
	VideoLink   string      `json:"video_link"`
	MCQs        *[]MCQInput `json:"mcqs,omitempty" validate:"omitempty,dive"`
}

// SubmitQuizRequest carries a student's answers for grading.
type SubmitQuizRequest struct {
	Answers []models.QuizSubmission `json:"answers" validate:"required,min=1,dive"`
}

// LectureService handles lecture content, quiz grading and the completion
// state machine.
type LectureService struct {
	repo      lectureRepository
	courses   courseChecker
	video     integration.VideoProvider
	cache     completionCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLectureService constructs the lecture service.
func NewLectureService(repo lectureRepository, courses courseChecker, video integration.VideoProvider, cache completionCache, validate *validator.Validate, logger *zap.Logger) *LectureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if video == nil {
		video = integration.NopVideo{}
	}
	return &LectureService{repo: repo, courses: courses, video: video, cache: cache, validator: validate, logger: logger}
}

// ListByCourse returns the course's lectures with question banks.
func (s *LectureService) ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error) {
	lectures, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lectures")
	}
	return lectures, nil
}

// Get returns a lecture with its quiz, answer history and completions.
func (s *LectureService) Get(ctx context.Context, id string) (*models.Lecture, error) {
	lecture, err := s.repo.FindWithQuiz(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	return lecture, nil
}

// Create adds a lecture at the end of the course. When a video link is
// provided the host metadata is fetched and stored alongside.
func (s *LectureService) Create(ctx context.Context, courseID string, req CreateLectureRequest) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	lecture := &models.Lecture{
		CourseID:    courseID,
		Name:        req.Name,
		Description: req.Description,
		File:        req.File,
		VideoLink:   req.VideoLink,
		Quiz:        models.Quiz{MCQs: mcqsFromInput(req.MCQs)},
	}
	if req.VideoLink != "" {
		meta, err := s.video.FetchMetadata(ctx, req.VideoLink)
		if err != nil {
			s.logger.Warn("video metadata lookup failed", zap.String("video_link", req.VideoLink), zap.Error(err))
		} else {
			lecture.VideoMeta = meta
		}
	}

	if err := s.repo.Create(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lecture")
	}
	s.invalidateProgress(ctx, courseID)
	s.logger.Info("lecture created", zap.String("lecture_id", lecture.ID), zap.String("course_id", courseID))
	return lecture, nil
}

// Update modifies lecture content and optionally replaces the quiz.
func (s *LectureService) Update(ctx context.Context, id string, req UpdateLectureRequest) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	lecture, err := s.findLecture(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.VideoLink != "" && req.VideoLink != lecture.VideoLink {
		meta, err := s.video.FetchMetadata(ctx, req.VideoLink)
		if err != nil {
			s.logger.Warn("video metadata lookup failed", zap.String("video_link", req.VideoLink), zap.Error(err))
			lecture.VideoMeta = nil
		} else {
			lecture.VideoMeta = meta
		}
	}
	lecture.Name = req.Name
	lecture.Description = req.Description
	lecture.File = req.File
	lecture.VideoLink = req.VideoLink

	if err := s.repo.Update(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lecture")
	}
	if req.MCQs != nil {
		if err := s.repo.ReplaceQuiz(ctx, id, mcqsFromInput(*req.MCQs)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace quiz")
		}
	}
	s.invalidateProgress(ctx, lecture.CourseID)
	return s.Get(ctx, id)
}

// Delete removes the lecture with its quiz and completion marks.
func (s *LectureService) Delete(ctx context.Context, id string) error {
	lecture, err := s.findLecture(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lecture")
	}
	s.invalidateProgress(ctx, lecture.CourseID)
	s.logger.Info("lecture deleted", zap.String("lecture_id", id))
	return nil
}

// SubmitQuiz grades the student's answers against the lecture's question
// bank. Resubmitting replaces earlier answers, so grading is idempotent for
// identical payloads. Unanswered questions count as wrong, answers to
// unknown question ids are ignored, and a score of at least half the
// questions passes the quiz and marks the lecture completed. A failing
// score clears any completion earned by an earlier attempt.
func (s *LectureService) SubmitQuiz(ctx context.Context, lectureID, studentID string, req SubmitQuizRequest) (*models.QuizResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}
	lecture, err := s.Get(ctx, lectureID)
	if err != nil {
		return nil, err
	}
	if !lecture.HasQuiz() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecture has no quiz")
	}

	answered := make(map[string]string, len(req.Answers))
	for _, submission := range req.Answers {
		answered[submission.QuestionID] = submission.Answer
	}

	correct := 0
	for i := range lecture.Quiz.MCQs {
		mcq := &lecture.Quiz.MCQs[i]
		answer, ok := answered[mcq.ID]
		if !ok {
			continue
		}
		result := answer == mcq.CorrectAnswer
		if result {
			correct++
		}
		if err := s.repo.UpsertAnswer(ctx, mcq.ID, studentID, answer, result); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record answer")
		}
	}

	total := len(lecture.Quiz.MCQs)
	score := float64(correct) / float64(total) * 100
	pass := float64(correct)/float64(total) >= passThreshold
	if pass {
		if _, err := s.repo.AddCompletion(ctx, lectureID, studentID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark completion")
		}
	} else {
		// A failing resubmission revokes an earlier pass.
		if err := s.repo.RemoveCompletion(ctx, lectureID, studentID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear completion")
		}
	}
	s.invalidateProgress(ctx, lecture.CourseID)

	updated, err := s.Get(ctx, lectureID)
	if err != nil {
		return nil, err
	}
	return &models.QuizResult{Lecture: updated, Pass: pass, Score: score}, nil
}

// MarkCompleted records a completion mark for a lecture. Marking twice is an
// error surfaced the same way as a missing lecture.
func (s *LectureService) MarkCompleted(ctx context.Context, lectureID, studentID string) (*models.Lecture, error) {
	lecture, err := s.findLecture(ctx, lectureID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Lecture not found or student already marked as completed")
		}
		return nil, err
	}
	inserted, err := s.repo.AddCompletion(ctx, lectureID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark completion")
	}
	if !inserted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Lecture not found or student already marked as completed")
	}
	s.invalidateProgress(ctx, lecture.CourseID)
	return s.Get(ctx, lectureID)
}

// UnmarkCompleted clears a completion mark.
func (s *LectureService) UnmarkCompleted(ctx context.Context, lectureID, studentID string) error {
	lecture, err := s.findLecture(ctx, lectureID)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveCompletion(ctx, lectureID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unmark completion")
	}
	s.invalidateProgress(ctx, lecture.CourseID)
	return nil
}

func (s *LectureService) findLecture(ctx context.Context, id string) (*models.Lecture, error) {
	lecture, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	return lecture, nil
}

func (s *LectureService) invalidateProgress(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCourseProgress(ctx, courseID); err != nil {
		s.logger.Warn("failed to invalidate progress cache", zap.String("course_id", courseID), zap.Error(err))
	}
}

func mcqsFromInput(inputs []MCQInput) []models.MCQ {
	mcqs := make([]models.MCQ, 0, len(inputs))
	for _, input := range inputs {
		mcqs = append(mcqs, models.MCQ{
			Question:      input.Question,
			Options:       input.Options,
			CorrectAnswer: input.CorrectAnswer,
		})
	}
	return mcqs
}
