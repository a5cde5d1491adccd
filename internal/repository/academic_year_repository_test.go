package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
)

func TestAcademicYearRepositoryCreateCurrentClearsOthers(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO academic_years")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	year := &models.AcademicYear{
		Name:      "2024-25",
		StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		IsCurrent: true,
	}
	require.NoError(t, repo.CreateYear(context.Background(), year))
	require.NotEmpty(t, year.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryCreateNotCurrentSkipsClear(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO academic_years")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	year := &models.AcademicYear{
		Name:      "2023-24",
		StartDate: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateYear(context.Background(), year))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryUpdateCurrentExcludesSelf(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2")).
		WithArgs(sqlmock.AnyArg(), "year-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET name")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	year := &models.AcademicYear{
		ID:        "year-1",
		Name:      "2024-25",
		StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		IsCurrent: true,
	}
	require.NoError(t, repo.UpdateYear(context.Background(), year))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryCreateSemesterCurrent(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE semesters SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO semesters")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	semester := &models.Semester{
		AcademicYearID: "year-1",
		Name:           "First Semester",
		StartDate:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		IsCurrent:      true,
	}
	require.NoError(t, repo.CreateSemester(context.Background(), semester))
	require.NotEmpty(t, semester.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryListYears(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "is_current", "created_at", "updated_at"}).
		AddRow("year-2", "2024-25", time.Now(), time.Now(), true, time.Now(), time.Now()).
		AddRow("year-1", "2023-24", time.Now(), time.Now(), false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, start_date, end_date, is_current")).
		WillReturnRows(rows)

	years, err := repo.ListYears(context.Background())
	require.NoError(t, err)
	require.Len(t, years, 2)
	require.True(t, years[0].IsCurrent)
	require.NoError(t, mock.ExpectationsWereMet())
}
