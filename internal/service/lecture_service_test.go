package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/account-academy/backoffice-api/internal/models"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type answerKey struct {
	mcqID     string
	studentID string
}

type recordedAnswer struct {
	answer string
	result bool
}

type mockLectureRepo struct {
	lectures    map[string]models.Lecture
	answers     map[answerKey]recordedAnswer
	completions map[string]map[string]bool
	deleted     []string
}

func (m *mockLectureRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error) {
	var out []models.Lecture
	for _, l := range m.lectures {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLectureRepo) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	if l, ok := m.lectures[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLectureRepo) FindWithQuiz(ctx context.Context, id string) (*models.Lecture, error) {
	l, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for studentID := range m.completions[id] {
		l.CompletedBy = append(l.CompletedBy, studentID)
	}
	return l, nil
}

func (m *mockLectureRepo) Create(ctx context.Context, lecture *models.Lecture) error {
	if m.lectures == nil {
		m.lectures = make(map[string]models.Lecture)
	}
	if lecture.ID == "" {
		lecture.ID = "new-lecture"
	}
	lecture.Position = len(m.lectures) + 1
	for i := range lecture.Quiz.MCQs {
		lecture.Quiz.MCQs[i].ID = fmt.Sprintf("%s-mcq-%d", lecture.ID, i+1)
	}
	m.lectures[lecture.ID] = *lecture
	return nil
}

func (m *mockLectureRepo) Update(ctx context.Context, lecture *models.Lecture) error {
	m.lectures[lecture.ID] = *lecture
	return nil
}

func (m *mockLectureRepo) ReplaceQuiz(ctx context.Context, lectureID string, mcqs []models.MCQ) error {
	l := m.lectures[lectureID]
	for i := range mcqs {
		mcqs[i].ID = fmt.Sprintf("%s-mcq-%d", lectureID, i+1)
	}
	l.Quiz.MCQs = mcqs
	m.lectures[lectureID] = l
	return nil
}

func (m *mockLectureRepo) Delete(ctx context.Context, id string) error {
	delete(m.lectures, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockLectureRepo) UpsertAnswer(ctx context.Context, mcqID, studentID, answer string, result bool) error {
	if m.answers == nil {
		m.answers = make(map[answerKey]recordedAnswer)
	}
	m.answers[answerKey{mcqID, studentID}] = recordedAnswer{answer: answer, result: result}
	return nil
}

func (m *mockLectureRepo) AddCompletion(ctx context.Context, lectureID, studentID string) (bool, error) {
	if m.completions == nil {
		m.completions = make(map[string]map[string]bool)
	}
	if m.completions[lectureID] == nil {
		m.completions[lectureID] = make(map[string]bool)
	}
	if m.completions[lectureID][studentID] {
		return false, nil
	}
	m.completions[lectureID][studentID] = true
	return true, nil
}

func (m *mockLectureRepo) RemoveCompletion(ctx context.Context, lectureID, studentID string) error {
	delete(m.completions[lectureID], studentID)
	return nil
}

type mockCourseChecker struct {
	courses map[string]models.Course
}

func (m *mockCourseChecker) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockCompletionCache struct {
	invalidated []string
}

func (m *mockCompletionCache) InvalidateCourseProgress(ctx context.Context, courseID string) error {
	m.invalidated = append(m.invalidated, courseID)
	return nil
}

func quizLecture() models.Lecture {
	return models.Lecture{
		ID:       "lec-1",
		CourseID: "course-1",
		Name:     "Facebook Ads",
		Quiz: models.Quiz{MCQs: []models.MCQ{
			{ID: "q-1", Question: "Q1", CorrectAnswer: "A"},
			{ID: "q-2", Question: "Q2", CorrectAnswer: "B"},
			{ID: "q-3", Question: "Q3", CorrectAnswer: "C"},
			{ID: "q-4", Question: "Q4", CorrectAnswer: "D"},
		}},
	}
}

func newLectureServiceForTest(repo *mockLectureRepo, courses *mockCourseChecker, cache *mockCompletionCache) *LectureService {
	return NewLectureService(repo, courses, nil, cache, nil, nil)
}

func TestLectureServiceSubmitQuizPass(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	cache := &mockCompletionCache{}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, cache)

	result, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", SubmitQuizRequest{Answers: []models.QuizSubmission{
		{QuestionID: "q-1", Answer: "A"},
		{QuestionID: "q-2", Answer: "B"},
		{QuestionID: "q-3", Answer: "wrong"},
	}})
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.InDelta(t, 50.0, result.Score, 0.001)
	assert.Contains(t, result.Lecture.CompletedBy, "stu-1")
	assert.True(t, repo.answers[answerKey{"q-1", "stu-1"}].result)
	assert.False(t, repo.answers[answerKey{"q-3", "stu-1"}].result)
	assert.Contains(t, cache.invalidated, "course-1")
}

func TestLectureServiceSubmitQuizFailBelowThreshold(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, &mockCompletionCache{})

	result, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", SubmitQuizRequest{Answers: []models.QuizSubmission{
		{QuestionID: "q-1", Answer: "A"},
	}})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.InDelta(t, 25.0, result.Score, 0.001)
	assert.NotContains(t, result.Lecture.CompletedBy, "stu-1")
}

func TestLectureServiceSubmitQuizFailRevokesEarlierPass(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, &mockCompletionCache{})

	passed, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", SubmitQuizRequest{Answers: []models.QuizSubmission{
		{QuestionID: "q-1", Answer: "A"},
		{QuestionID: "q-2", Answer: "B"},
	}})
	require.NoError(t, err)
	require.True(t, passed.Pass)
	require.Contains(t, passed.Lecture.CompletedBy, "stu-1")

	failed, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", SubmitQuizRequest{Answers: []models.QuizSubmission{
		{QuestionID: "q-1", Answer: "A"},
	}})
	require.NoError(t, err)
	assert.False(t, failed.Pass)
	assert.NotContains(t, failed.Lecture.CompletedBy, "stu-1")
	assert.Empty(t, repo.completions["lec-1"])
}

func TestLectureServiceSubmitQuizIgnoresUnknownQuestions(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, &mockCompletionCache{})

	result, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", SubmitQuizRequest{Answers: []models.QuizSubmission{
		{QuestionID: "q-1", Answer: "A"},
		{QuestionID: "ghost", Answer: "A"},
	}})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, result.Score, 0.001)
	_, recorded := repo.answers[answerKey{"ghost", "stu-1"}]
	assert.False(t, recorded)
}

func TestLectureServiceSubmitQuizResubmitReplacesAnswers(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, &mockCompletionCache{})

	answers := SubmitQuizRequest{Answers: []models.QuizSubmission{
		{QuestionID: "q-1", Answer: "A"},
		{QuestionID: "q-2", Answer: "B"},
	}}
	first, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", answers)
	require.NoError(t, err)
	second, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", answers)
	require.NoError(t, err)

	assert.Equal(t, first.Pass, second.Pass)
	assert.Equal(t, first.Score, second.Score)
	assert.Len(t, repo.completions["lec-1"], 1)
}

func TestLectureServiceSubmitQuizNoQuiz(t *testing.T) {
	bare := quizLecture()
	bare.Quiz = models.Quiz{}
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": bare}}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, &mockCompletionCache{})

	_, err := svc.SubmitQuiz(context.Background(), "lec-1", "stu-1", SubmitQuizRequest{Answers: []models.QuizSubmission{
		{QuestionID: "q-1", Answer: "A"},
	}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "lecture has no quiz")
}

func TestLectureServiceMarkCompleted(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	cache := &mockCompletionCache{}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, cache)

	lecture, err := svc.MarkCompleted(context.Background(), "lec-1", "stu-1")
	require.NoError(t, err)
	assert.Contains(t, lecture.CompletedBy, "stu-1")
	assert.Contains(t, cache.invalidated, "course-1")
}

func TestLectureServiceMarkCompletedTwice(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, &mockCompletionCache{})

	_, err := svc.MarkCompleted(context.Background(), "lec-1", "stu-1")
	require.NoError(t, err)
	_, err = svc.MarkCompleted(context.Background(), "lec-1", "stu-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.Contains(t, err.Error(), "Lecture not found or student already marked as completed")
}

func TestLectureServiceMarkCompletedMissingLecture(t *testing.T) {
	svc := newLectureServiceForTest(&mockLectureRepo{}, &mockCourseChecker{}, &mockCompletionCache{})

	_, err := svc.MarkCompleted(context.Background(), "ghost", "stu-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lecture not found or student already marked as completed")
}

func TestLectureServiceUnmarkCompleted(t *testing.T) {
	repo := &mockLectureRepo{lectures: map[string]models.Lecture{"lec-1": quizLecture()}}
	svc := newLectureServiceForTest(repo, &mockCourseChecker{}, &mockCompletionCache{})

	_, err := svc.MarkCompleted(context.Background(), "lec-1", "stu-1")
	require.NoError(t, err)
	require.NoError(t, svc.UnmarkCompleted(context.Background(), "lec-1", "stu-1"))
	assert.Empty(t, repo.completions["lec-1"])
}

func TestLectureServiceCreateUnknownCourse(t *testing.T) {
	svc := newLectureServiceForTest(&mockLectureRepo{}, &mockCourseChecker{}, &mockCompletionCache{})

	_, err := svc.Create(context.Background(), "ghost", CreateLectureRequest{Name: "Intro"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestLectureServiceCreateAppendsQuiz(t *testing.T) {
	repo := &mockLectureRepo{}
	courses := &mockCourseChecker{courses: map[string]models.Course{"course-1": {ID: "course-1"}}}
	svc := newLectureServiceForTest(repo, courses, &mockCompletionCache{})

	lecture, err := svc.Create(context.Background(), "course-1", CreateLectureRequest{
		Name: "Intro",
		MCQs: []MCQInput{{Question: "Q1", Options: []string{"A", "B"}, CorrectAnswer: "A"}},
	})
	require.NoError(t, err)
	require.Len(t, lecture.Quiz.MCQs, 1)
	assert.Equal(t, "A", lecture.Quiz.MCQs[0].CorrectAnswer)
	assert.Equal(t, 1, lecture.Position)
}
