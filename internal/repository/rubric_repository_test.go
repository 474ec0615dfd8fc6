package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRubricRepositoryList(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	rows := sqlmock.NewRows([]string{"question_type", "question_id", "total_points"}).
		AddRow("essay", "q1", 20.0).
		AddRow("listening", "l2", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grading_rubrics")).WillReturnRows(rows)

	rubrics, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rubrics, 2)
	require.Equal(t, 20.0, *rubrics[0].TotalPoints)
	require.Nil(t, rubrics[1].TotalPoints)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepositoryListError(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grading_rubrics")).WillReturnError(errors.New("timeout"))

	_, err := repo.List(context.Background())
	require.ErrorContains(t, err, "list rubrics")
}
