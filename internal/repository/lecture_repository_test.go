package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestLectureRepositoryUpsertAnswer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectExec("INSERT INTO mcq_answers").
		WithArgs(sqlmock.AnyArg(), "mcq-1", "stu-1", "B", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertAnswer(context.Background(), "mcq-1", "stu-1", "B", true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryAddCompletionFirstTime(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectExec("INSERT INTO lecture_completions").
		WithArgs(sqlmock.AnyArg(), "lec-1", "stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.AddCompletion(context.Background(), "lec-1", "stu-1")
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryAddCompletionAlreadyMarked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectExec("INSERT INTO lecture_completions").
		WithArgs(sqlmock.AnyArg(), "lec-1", "stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.AddCompletion(context.Background(), "lec-1", "stu-1")
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryListProgress(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	rows := sqlmock.NewRows([]string{"lecture_id", "lecture_title", "question_count", "answered_count", "is_completed"}).
		AddRow("lec-1", "Intro", 3, 2, true).
		AddRow("lec-2", "Product Research", 0, 0, false)
	mock.ExpectQuery("SELECT l.id AS lecture_id").
		WithArgs("course-1", "stu-1").
		WillReturnRows(rows)

	progress, err := repo.ListProgress(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Len(t, progress, 2)
	require.True(t, progress[0].IsCompleted)
	require.Equal(t, 3, progress[0].QuestionCount)
	require.Zero(t, progress[1].QuestionCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mcq_answers WHERE mcq_id IN (SELECT id FROM mcqs WHERE lecture_id = $1)")).
		WithArgs("lec-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mcqs WHERE lecture_id = $1")).
		WithArgs("lec-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lecture_completions WHERE lecture_id = $1")).
		WithArgs("lec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lectures WHERE id = $1")).
		WithArgs("lec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "lec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
