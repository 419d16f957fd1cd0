package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/account-academy/backoffice-api/internal/models"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type mockCoachRepo struct {
	coaches           map[string]models.Coach
	assignments       map[string][]string
	assignedElsewhere []string
	created           *models.Coach
	replaced          [][]string
	deleted           []string
}

func (m *mockCoachRepo) List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, int, error) {
	return nil, 0, nil
}

func (m *mockCoachRepo) FindByID(ctx context.Context, id string) (*models.Coach, error) {
	if c, ok := m.coaches[id]; ok {
		c.AssignedStudents = m.assignments[id]
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCoachRepo) Create(ctx context.Context, coach *models.Coach) error {
	if m.coaches == nil {
		m.coaches = make(map[string]models.Coach)
	}
	if coach.ID == "" {
		coach.ID = "new-coach"
	}
	coach.Version = 1
	m.coaches[coach.ID] = *coach
	m.created = coach
	return nil
}

func (m *mockCoachRepo) Update(ctx context.Context, coach *models.Coach) error {
	m.coaches[coach.ID] = *coach
	coach.Version++
	return nil
}

func (m *mockCoachRepo) Delete(ctx context.Context, id string) error {
	delete(m.coaches, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCoachRepo) CountAssigned(ctx context.Context, coachID string) (int, error) {
	return len(m.assignments[coachID]), nil
}

func (m *mockCoachRepo) ListAssignedStudentIDs(ctx context.Context, coachID string) ([]string, error) {
	return m.assignments[coachID], nil
}

func (m *mockCoachRepo) FindAssignedElsewhere(ctx context.Context, coachID string, studentIDs []string) ([]string, error) {
	return m.assignedElsewhere, nil
}

func (m *mockCoachRepo) FindByStudent(ctx context.Context, studentID string) (*models.Coach, error) {
	for coachID, students := range m.assignments {
		for _, id := range students {
			if id == studentID {
				c := m.coaches[coachID]
				return &c, nil
			}
		}
	}
	return nil, nil
}

func (m *mockCoachRepo) ReplaceAssignments(ctx context.Context, coachID string, studentIDs []string, version int) error {
	if m.assignments == nil {
		m.assignments = make(map[string][]string)
	}
	m.assignments[coachID] = studentIDs
	m.replaced = append(m.replaced, studentIDs)
	return nil
}

type mockStudentFinder struct {
	students map[string]models.Student
}

func (m *mockStudentFinder) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockEmailChecker struct {
	taken map[string]bool
}

func (m *mockEmailChecker) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.taken[email], nil
}

type mockNotifier struct {
	recipients []string
	passwords  []string
}

func (m *mockNotifier) EnqueuePasswordEmail(recipient, name, password string) {
	m.recipients = append(m.recipients, recipient)
	m.passwords = append(m.passwords, password)
}

func highTicketCoach(id string, spots int) models.Coach {
	return models.Coach{
		User:                   models.User{ID: id, Email: id + "@academy.test", Role: models.RoleCoach, Name: "Coach", IsActive: true},
		CoachType:              models.CoachTypeHighTicket,
		HighTicketStudentSpots: spots,
		LowTicketStudentSpots:  10,
		Version:                1,
	}
}

func highTicketStudent(id string) models.Student {
	return models.Student{
		User:               models.User{ID: id, Email: id + "@academy.test", Role: models.RoleStudent, IsActive: true},
		CoachingTrajectory: models.CoachTypeHighTicket,
	}
}

func newCoachServiceForTest(repo *mockCoachRepo, students *mockStudentFinder, users *mockEmailChecker, notifier *mockNotifier) *CoachService {
	return NewCoachService(repo, students, users, notifier, nil, nil)
}

func TestCoachServiceAssignStudents(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)}}
	students := &mockStudentFinder{students: map[string]models.Student{
		"stu-1": highTicketStudent("stu-1"),
		"stu-2": highTicketStudent("stu-2"),
	}}
	svc := newCoachServiceForTest(repo, students, &mockEmailChecker{}, &mockNotifier{})

	coach, err := svc.AssignStudents(context.Background(), "coach-1", AssignStudentsRequest{StudentIDs: []string{"stu-1", "stu-2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1", "stu-2"}, coach.AssignedStudents)
	require.Len(t, repo.replaced, 1)
}

func TestCoachServiceAssignStudentsAlreadyTaken(t *testing.T) {
	repo := &mockCoachRepo{
		coaches:           map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)},
		assignedElsewhere: []string{"stu-1"},
	}
	students := &mockStudentFinder{students: map[string]models.Student{"stu-1": highTicketStudent("stu-1")}}
	svc := newCoachServiceForTest(repo, students, &mockEmailChecker{}, &mockNotifier{})

	_, err := svc.AssignStudents(context.Background(), "coach-1", AssignStudentsRequest{StudentIDs: []string{"stu-1"}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), "Some students are already assigned to another coach")
	assert.Empty(t, repo.replaced)
}

func TestCoachServiceAssignStudentsTrajectoryMismatch(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)}}
	lowTicket := highTicketStudent("stu-1")
	lowTicket.CoachingTrajectory = models.CoachTypeLowTicket
	students := &mockStudentFinder{students: map[string]models.Student{"stu-1": lowTicket}}
	svc := newCoachServiceForTest(repo, students, &mockEmailChecker{}, &mockNotifier{})

	_, err := svc.AssignStudents(context.Background(), "coach-1", AssignStudentsRequest{StudentIDs: []string{"stu-1"}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "Assigned students should match the coach type (High Ticket)")
}

func TestCoachServiceAssignStudentsExceedsSpots(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 1)}}
	students := &mockStudentFinder{students: map[string]models.Student{
		"stu-1": highTicketStudent("stu-1"),
		"stu-2": highTicketStudent("stu-2"),
	}}
	svc := newCoachServiceForTest(repo, students, &mockEmailChecker{}, &mockNotifier{})

	_, err := svc.AssignStudents(context.Background(), "coach-1", AssignStudentsRequest{StudentIDs: []string{"stu-1", "stu-2"}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "Assigned students exceed High Ticket Student Spots")
}

func TestCoachServiceAssignStudentsUnknownStudent(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)}}
	students := &mockStudentFinder{students: map[string]models.Student{}}
	svc := newCoachServiceForTest(repo, students, &mockEmailChecker{}, &mockNotifier{})

	_, err := svc.AssignStudents(context.Background(), "coach-1", AssignStudentsRequest{StudentIDs: []string{"ghost"}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestCoachServiceAssignStudentsClearSet(t *testing.T) {
	repo := &mockCoachRepo{
		coaches:     map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)},
		assignments: map[string][]string{"coach-1": {"stu-1"}},
	}
	svc := newCoachServiceForTest(repo, &mockStudentFinder{}, &mockEmailChecker{}, &mockNotifier{})

	coach, err := svc.AssignStudents(context.Background(), "coach-1", AssignStudentsRequest{StudentIDs: nil})
	require.NoError(t, err)
	assert.Empty(t, coach.AssignedStudents)
	require.Len(t, repo.replaced, 1)
	assert.Empty(t, repo.replaced[0])
}

func TestCoachServiceCreateSendsPassword(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{}}
	notifier := &mockNotifier{}
	svc := newCoachServiceForTest(repo, &mockStudentFinder{}, &mockEmailChecker{}, notifier)

	coach, err := svc.Create(context.Background(), CreateCoachRequest{
		Email:                  "new@academy.test",
		Name:                   "New Coach",
		CoachType:              models.CoachTypeHighTicket,
		HighTicketStudentSpots: 5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, coach.PasswordHash)
	require.Len(t, notifier.recipients, 1)
	assert.Equal(t, "new@academy.test", notifier.recipients[0])
	assert.NotEmpty(t, notifier.passwords[0])
}

func TestCoachServiceCreateEmailTaken(t *testing.T) {
	svc := newCoachServiceForTest(&mockCoachRepo{}, &mockStudentFinder{}, &mockEmailChecker{taken: map[string]bool{"dup@academy.test": true}}, &mockNotifier{})

	_, err := svc.Create(context.Background(), CreateCoachRequest{
		Email:     "dup@academy.test",
		Name:      "Dup",
		CoachType: models.CoachTypeLowTicket,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), "Email already exists")
}

func TestCoachServiceUpdateRejectsEmailChange(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)}}
	svc := newCoachServiceForTest(repo, &mockStudentFinder{}, &mockEmailChecker{}, &mockNotifier{})

	_, err := svc.Update(context.Background(), "coach-1", UpdateCoachRequest{
		Email:     "other@academy.test",
		Name:      "Coach",
		CoachType: models.CoachTypeHighTicket,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email cannot be updated")
}

func TestCoachServiceAssignmentLifecycle(t *testing.T) {
	repo := &mockCoachRepo{}
	students := &mockStudentFinder{students: map[string]models.Student{
		"stu-1": highTicketStudent("stu-1"),
		"stu-2": highTicketStudent("stu-2"),
	}}
	svc := newCoachServiceForTest(repo, students, &mockEmailChecker{}, &mockNotifier{})

	coach, err := svc.Create(context.Background(), CreateCoachRequest{
		Email:                  "lifecycle@academy.test",
		Name:                   "Coach",
		CoachType:              models.CoachTypeHighTicket,
		HighTicketStudentSpots: 1,
	})
	require.NoError(t, err)

	_, err = svc.AssignStudents(context.Background(), coach.ID, AssignStudentsRequest{StudentIDs: []string{"stu-1", "stu-2"}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "exceed High Ticket Student Spots")
	assert.Empty(t, repo.assignments[coach.ID])

	assigned, err := svc.AssignStudents(context.Background(), coach.ID, AssignStudentsRequest{StudentIDs: []string{"stu-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1"}, assigned.AssignedStudents)

	matched, err := svc.FindByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, coach.ID, matched.ID)

	err = svc.Delete(context.Background(), coach.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot delete coach with assigned students")
	assert.Empty(t, repo.deleted)
}

func TestCoachServiceUpdateWithoutAssignmentsClearsThem(t *testing.T) {
	repo := &mockCoachRepo{
		coaches:     map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)},
		assignments: map[string][]string{"coach-1": {"stu-1", "stu-2"}},
	}
	svc := newCoachServiceForTest(repo, &mockStudentFinder{}, &mockEmailChecker{}, &mockNotifier{})

	coach, err := svc.Update(context.Background(), "coach-1", UpdateCoachRequest{
		Name:                   "Coach",
		Active:                 true,
		CoachType:              models.CoachTypeHighTicket,
		HighTicketStudentSpots: 3,
	})
	require.NoError(t, err)
	assert.Empty(t, coach.AssignedStudents)
	assert.Empty(t, repo.assignments["coach-1"])
}

func TestCoachServiceUpdateTypeSwitchZeroesInactiveSpots(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)}}
	svc := newCoachServiceForTest(repo, &mockStudentFinder{}, &mockEmailChecker{}, &mockNotifier{})

	coach, err := svc.Update(context.Background(), "coach-1", UpdateCoachRequest{
		Name:                   "Coach",
		Active:                 true,
		CoachType:              models.CoachTypeLowTicket,
		HighTicketStudentSpots: 3,
		LowTicketStudentSpots:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CoachTypeLowTicket, coach.CoachType)
	assert.Equal(t, 5, coach.LowTicketStudentSpots)
	assert.Zero(t, coach.HighTicketStudentSpots)
}

func TestCoachServiceDeleteWithAssignedStudents(t *testing.T) {
	repo := &mockCoachRepo{
		coaches:     map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)},
		assignments: map[string][]string{"coach-1": {"stu-1"}},
	}
	svc := newCoachServiceForTest(repo, &mockStudentFinder{}, &mockEmailChecker{}, &mockNotifier{})

	err := svc.Delete(context.Background(), "coach-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), "Cannot delete coach with assigned students")
	assert.Empty(t, repo.deleted)
}

func TestCoachServiceDeleteUnassigned(t *testing.T) {
	repo := &mockCoachRepo{coaches: map[string]models.Coach{"coach-1": highTicketCoach("coach-1", 3)}}
	svc := newCoachServiceForTest(repo, &mockStudentFinder{}, &mockEmailChecker{}, &mockNotifier{})

	require.NoError(t, svc.Delete(context.Background(), "coach-1"))
	assert.Equal(t, []string{"coach-1"}, repo.deleted)
}
