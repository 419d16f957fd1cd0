package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/repository"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type mockCourseRepo struct {
	courses    map[string]models.Course
	enrolled   map[string][]string
	unenrolled map[string][]string
	deleted    []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		c.EnrolledStudents = m.enrolled[id]
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	var out []models.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Publish(ctx context.Context, id string) (bool, error) {
	c := m.courses[id]
	if c.IsPublished {
		return false, nil
	}
	c.IsPublished = true
	c.Status = models.CourseStatusPublished
	m.courses[id] = c
	return true, nil
}

func (m *mockCourseRepo) Archive(ctx context.Context, id string) error {
	c := m.courses[id]
	c.IsArchived = true
	c.Status = models.CourseStatusArchived
	m.courses[id] = c
	return nil
}

func (m *mockCourseRepo) Unarchive(ctx context.Context, id string) error {
	c := m.courses[id]
	c.IsArchived = false
	if c.IsPublished {
		c.Status = models.CourseStatusPublished
	} else {
		c.Status = models.CourseStatusDraft
	}
	m.courses[id] = c
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCourseRepo) AddEnrollments(ctx context.Context, courseID string, studentIDs []string) error {
	if m.enrolled == nil {
		m.enrolled = make(map[string][]string)
	}
	m.enrolled[courseID] = append(m.enrolled[courseID], studentIDs...)
	return nil
}

func (m *mockCourseRepo) RemoveEnrollments(ctx context.Context, courseID string, studentIDs []string) error {
	if m.unenrolled == nil {
		m.unenrolled = make(map[string][]string)
	}
	m.unenrolled[courseID] = append(m.unenrolled[courseID], studentIDs...)
	drop := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		drop[id] = true
	}
	var kept []string
	for _, id := range m.enrolled[courseID] {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	if m.enrolled != nil {
		m.enrolled[courseID] = kept
	}
	return nil
}

func (m *mockCourseRepo) ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	return m.enrolled[courseID], nil
}

type mockRoadmapWriter struct {
	students map[string]models.Student
	appended map[string][]string
	removed  map[string][]string
}

func (m *mockRoadmapWriter) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRoadmapWriter) AppendRoadmapCourse(ctx context.Context, studentID, courseID string) error {
	if m.appended == nil {
		m.appended = make(map[string][]string)
	}
	m.appended[studentID] = append(m.appended[studentID], courseID)
	return nil
}

func (m *mockRoadmapWriter) RemoveRoadmapCourse(ctx context.Context, studentID, courseID string) error {
	if m.removed == nil {
		m.removed = make(map[string][]string)
	}
	m.removed[studentID] = append(m.removed[studentID], courseID)
	return nil
}

type mockProgressLister struct {
	rows []models.LectureProgress
	hits int
}

func (m *mockProgressLister) ListProgress(ctx context.Context, courseID, studentID string) ([]models.LectureProgress, error) {
	m.hits++
	return m.rows, nil
}

type mockProgressCache struct {
	entries     map[string][]byte
	invalidated []string
}

func (m *mockProgressCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockProgressCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockProgressCache) InvalidateCourseProgress(ctx context.Context, courseID string) error {
	m.invalidated = append(m.invalidated, courseID)
	return nil
}

func newCourseServiceForTest(repo *mockCourseRepo, students *mockRoadmapWriter, lectures *mockProgressLister, cache *mockProgressCache) *CourseService {
	return NewCourseService(repo, students, lectures, cache, time.Minute, nil, nil)
}

func TestCourseServicePublish(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Title: "Dropshipping 101", Status: models.CourseStatusDraft},
	}}
	svc := newCourseServiceForTest(repo, &mockRoadmapWriter{}, &mockProgressLister{}, &mockProgressCache{})

	course, already, err := svc.Publish(context.Background(), "course-1")
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, course.IsPublished)
	assert.Equal(t, models.CourseStatusPublished, course.Status)

	_, already, err = svc.Publish(context.Background(), "course-1")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestCourseServicePublishArchivedDraft(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusArchived, IsArchived: true},
	}}
	svc := newCourseServiceForTest(repo, &mockRoadmapWriter{}, &mockProgressLister{}, &mockProgressCache{})

	course, already, err := svc.Publish(context.Background(), "course-1")
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, course.IsPublished)
	assert.True(t, course.IsArchived)
	assert.Equal(t, models.CourseStatusPublished, course.Status)
}

func TestCourseServiceUnarchiveRestoresStatus(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"pub":   {ID: "pub", Status: models.CourseStatusArchived, IsArchived: true, IsPublished: true},
		"draft": {ID: "draft", Status: models.CourseStatusArchived, IsArchived: true},
	}}
	svc := newCourseServiceForTest(repo, &mockRoadmapWriter{}, &mockProgressLister{}, &mockProgressCache{})

	course, err := svc.Unarchive(context.Background(), "pub")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPublished, course.Status)

	course, err = svc.Unarchive(context.Background(), "draft")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
}

func TestCourseServiceEnrollStudents(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusPublished, IsPublished: true},
	}}
	students := &mockRoadmapWriter{students: map[string]models.Student{
		"stu-1": {User: models.User{ID: "stu-1"}},
		"stu-2": {User: models.User{ID: "stu-2"}},
	}}
	svc := newCourseServiceForTest(repo, students, &mockProgressLister{}, &mockProgressCache{})

	course, err := svc.EnrollStudents(context.Background(), "course-1", EnrollStudentsRequest{StudentIDs: []string{"stu-1", "stu-2"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stu-1", "stu-2"}, course.EnrolledStudents)
	assert.Equal(t, []string{"course-1"}, students.appended["stu-1"])
	assert.Equal(t, []string{"course-1"}, students.appended["stu-2"])
}

func TestCourseServiceEnrollStudentsDraftCourse(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusDraft},
	}}
	svc := newCourseServiceForTest(repo, &mockRoadmapWriter{}, &mockProgressLister{}, &mockProgressCache{})

	_, err := svc.EnrollStudents(context.Background(), "course-1", EnrollStudentsRequest{StudentIDs: []string{"stu-1"}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "Draft courses cannot be assigned to students")
	assert.Empty(t, repo.enrolled)
}

func TestCourseServiceEnrollStudentsUnknownStudent(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusPublished, IsPublished: true},
	}}
	svc := newCourseServiceForTest(repo, &mockRoadmapWriter{}, &mockProgressLister{}, &mockProgressCache{})

	_, err := svc.EnrollStudents(context.Background(), "course-1", EnrollStudentsRequest{StudentIDs: []string{"ghost"}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.Contains(t, err.Error(), "Some students were not found")
}

func TestCourseServiceUnenrollStudents(t *testing.T) {
	repo := &mockCourseRepo{
		courses:  map[string]models.Course{"course-1": {ID: "course-1", Status: models.CourseStatusPublished, IsPublished: true}},
		enrolled: map[string][]string{"course-1": {"stu-1", "stu-2"}},
	}
	students := &mockRoadmapWriter{}
	svc := newCourseServiceForTest(repo, students, &mockProgressLister{}, &mockProgressCache{})

	course, err := svc.UnenrollStudents(context.Background(), "course-1", EnrollStudentsRequest{StudentIDs: []string{"stu-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-2"}, course.EnrolledStudents)
	assert.Equal(t, []string{"course-1"}, students.removed["stu-1"])
}

func TestCourseServiceStudentProgressRollup(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusPublished, IsPublished: true},
	}}
	students := &mockRoadmapWriter{students: map[string]models.Student{"stu-1": {User: models.User{ID: "stu-1"}}}}
	lectures := &mockProgressLister{rows: []models.LectureProgress{
		{LectureID: "lec-1", LectureTitle: "Intro", IsCompleted: true, QuestionCount: 4, AnsweredCount: 4},
		{LectureID: "lec-2", LectureTitle: "Scaling", IsCompleted: false, QuestionCount: 4, AnsweredCount: 2},
		{LectureID: "lec-3", LectureTitle: "Outro", IsCompleted: false, QuestionCount: 0, AnsweredCount: 0},
	}}
	cache := &mockProgressCache{}
	svc := newCourseServiceForTest(repo, students, lectures, cache)

	progress, err := svc.StudentProgress(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalLectures)
	assert.Equal(t, 1, progress.CompletedLectures)
	assert.Equal(t, 8, progress.TotalQuestions)
	assert.Equal(t, 6, progress.AnsweredQuestions)
	assert.InDelta(t, 100.0/3.0, progress.LectureCompletionPercentage, 0.001)
	assert.InDelta(t, 75.0, progress.QuizCompletionPercentage, 0.001)
	assert.Contains(t, cache.entries, repository.ProgressKey("course-1", "stu-1"))

	// A second read is served from the cache.
	again, err := svc.StudentProgress(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, progress.AnsweredQuestions, again.AnsweredQuestions)
	assert.Equal(t, 1, lectures.hits)
}

func TestCourseServiceStudentProgressEmptyCourse(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusPublished, IsPublished: true},
	}}
	students := &mockRoadmapWriter{students: map[string]models.Student{"stu-1": {User: models.User{ID: "stu-1"}}}}
	svc := newCourseServiceForTest(repo, students, &mockProgressLister{}, &mockProgressCache{})

	progress, err := svc.StudentProgress(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Zero(t, progress.LectureCompletionPercentage)
	assert.Zero(t, progress.QuizCompletionPercentage)
}

func TestCourseServiceDeleteInvalidatesCache(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusDraft},
	}}
	cache := &mockProgressCache{}
	svc := newCourseServiceForTest(repo, &mockRoadmapWriter{}, &mockProgressLister{}, cache)

	require.NoError(t, svc.Delete(context.Background(), "course-1"))
	assert.Equal(t, []string{"course-1"}, repo.deleted)
	assert.Equal(t, []string{"course-1"}, cache.invalidated)
}
