package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/account-academy/backoffice-api/internal/models"
)

func draftCourse() *models.Course {
	return &models.Course{
		ID:      "course-1",
		Title:   "Dropshipping Basics",
		Status:  models.CourseStatusDraft,
		Version: 2,
	}
}

func TestCourseRepositoryPublishFlipsDraft(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET status = $2, is_published = TRUE, updated_at = $3 WHERE id = $1 AND is_published = FALSE")).
		WithArgs("course-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	published, err := repo.Publish(context.Background(), "course-1")
	require.NoError(t, err)
	require.True(t, published)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryPublishAlreadyPublished(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET status = $2, is_published = TRUE, updated_at = $3 WHERE id = $1 AND is_published = FALSE")).
		WithArgs("course-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	published, err := repo.Publish(context.Background(), "course-1")
	require.NoError(t, err)
	require.False(t, published)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAddEnrollmentsSkipsExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	insert := regexp.QuoteMeta("INSERT INTO course_enrollments (id, course_id, student_id, enrolled_at) VALUES ($1, $2, $3, $4) ON CONFLICT (course_id, student_id) DO NOTHING")
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "course-1", "stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "course-1", "stu-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AddEnrollments(context.Background(), "course-1", []string{"stu-1", "stu-2"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryRemoveEnrollments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_enrollments WHERE course_id = $1 AND student_id = ANY($2)")).
		WithArgs("course-1", pq.Array([]string{"stu-1"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RemoveEnrollments(context.Background(), "course-1", []string{"stu-1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateVersionConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET title =").
		WillReturnResult(sqlmock.NewResult(0, 0))

	course := draftCourse()
	err := repo.Update(context.Background(), course)
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUnarchiveRestoresStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET is_archived = FALSE, status = CASE WHEN is_published THEN $2::text ELSE $3::text END, updated_at = $4 WHERE id = $1")).
		WithArgs("course-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Unarchive(context.Background(), "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
