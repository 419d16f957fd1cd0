package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCoachRepositoryCountAssigned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM coach_assignments WHERE coach_id = $1")).
		WithArgs("coach-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.CountAssigned(context.Background(), "coach-1")
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoachRepositoryFindAssignedElsewhere(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM coach_assignments WHERE student_id = ANY($1) AND coach_id <> $2")).
		WithArgs(pq.Array([]string{"stu-1", "stu-2"}), "coach-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-2"))

	ids, err := repo.FindAssignedElsewhere(context.Background(), "coach-1", []string{"stu-1", "stu-2"})
	require.NoError(t, err)
	require.Equal(t, []string{"stu-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoachRepositoryFindAssignedElsewhereEmptyInput(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	ids, err := repo.FindAssignedElsewhere(context.Background(), "coach-1", nil)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoachRepositoryReplaceAssignmentsVersionConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coaches SET version = version + 1 WHERE id = $1 AND version = $2")).
		WithArgs("coach-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReplaceAssignments(context.Background(), "coach-1", []string{"stu-1"}, 4)
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoachRepositoryReplaceAssignments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coaches SET version = version + 1 WHERE id = $1 AND version = $2")).
		WithArgs("coach-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET assigned_coach_id = NULL WHERE assigned_coach_id = $1 AND NOT (id = ANY($2))")).
		WithArgs("coach-1", pq.Array([]string{"stu-1", "stu-2"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM coach_assignments WHERE coach_id = $1 AND NOT (student_id = ANY($2))")).
		WithArgs("coach-1", pq.Array([]string{"stu-1", "stu-2"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM coach_assignments WHERE coach_id = $1")).
		WithArgs("coach-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1"))
	// stu-1 is already assigned, only stu-2 gets a fresh row.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET assigned_coach_id = $1 WHERE id = $2")).
		WithArgs("coach-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO coach_assignments (id, coach_id, student_id, assigned_at) VALUES ($1, $2, $3, $4)")).
		WithArgs(sqlmock.AnyArg(), "coach-1", "stu-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET assigned_coach_id = $1 WHERE id = $2")).
		WithArgs("coach-1", "stu-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAssignments(context.Background(), "coach-1", []string{"stu-1", "stu-2"}, 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoachRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM coach_assignments WHERE coach_id = $1")).
		WithArgs("coach-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM coaches WHERE id = $1")).
		WithArgs("coach-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_deleted = TRUE, is_active = FALSE, updated_at = $2 WHERE id = $1")).
		WithArgs("coach-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "coach-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoachRepositoryListAssignedStudentIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	rows := sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM coach_assignments WHERE coach_id = $1 ORDER BY assigned_at")).
		WithArgs("coach-1").
		WillReturnRows(rows)

	ids, err := repo.ListAssignedStudentIDs(context.Background(), "coach-1")
	require.NoError(t, err)
	require.Equal(t, []string{"stu-1", "stu-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
