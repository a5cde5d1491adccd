package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
)

func newResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestResultRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.Result{
		StudentID:     "student-1",
		ExamID:        "exam-1",
		MarksObtained: 85,
		Grade:         models.GradeA,
		Status:        models.StatusDraft,
		PublishedBy:   "teacher-1",
	}
	require.NoError(t, repo.Create(context.Background(), result))
	require.NotEmpty(t, result.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Result{
		StudentID: "student-1",
		ExamID:    "exam-1",
	})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	require.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	require.False(t, IsUniqueViolation(errors.New("boom")))
	require.False(t, IsUniqueViolation(nil))
}

func TestResultRepositoryUpdateDraftNoRows(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET marks_obtained")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDraft(context.Background(), &models.Result{ID: "res-1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryPublishDrafts(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET status = 'pending_approval'")).
		WithArgs("exam-1", "teacher-1", now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.PublishDrafts(context.Background(), "exam-1", "teacher-1", now)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryPublishDraftsEmpty(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET status = 'pending_approval'")).
		WithArgs("exam-1", "teacher-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := repo.PublishDrafts(context.Background(), "exam-1", "teacher-1", now)
	require.NoError(t, err)
	require.Zero(t, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryReviewPendingApprove(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET status = 'approved', approved_by = $2, approved_at = $3, approval_remarks = $4, updated_at = $5 WHERE exam_id = $1 AND status = 'pending_approval'")).
		WithArgs("exam-1", "admin-1", now, "looks good", now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.ReviewPending(context.Background(), ReviewParams{
		ExamID:     "exam-1",
		Approve:    true,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
		Remarks:    "looks good",
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryReviewPendingReject(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET status = 'rejected', approval_remarks = $2, updated_at = $3 WHERE exam_id = $1 AND status = 'pending_approval'")).
		WithArgs("exam-1", "incomplete marksheet", now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	count, err := repo.ReviewPending(context.Background(), ReviewParams{
		ExamID:     "exam-1",
		Approve:    false,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
		Remarks:    "incomplete marksheet",
	})
	require.NoError(t, err)
	require.EqualValues(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryReviewPendingClassScope(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("AND student_id IN (SELECT id FROM students WHERE current_class = $6)")).
		WithArgs("exam-1", "admin-1", now, "", now, "10A").
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := repo.ReviewPending(context.Background(), ReviewParams{
		ExamID:     "exam-1",
		Class:      "10A",
		Approve:    true,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "exam_id", "marks_obtained", "grade", "remarks", "status",
		"published_by", "approved_by", "approval_remarks", "published_at", "approved_at", "created_at", "updated_at",
		"student_name", "student_number", "exam_name",
	}).AddRow(
		"res-1", "student-1", "exam-1", 85, "A", "", "approved",
		"teacher-1", "admin-1", "ok", time.Now(), time.Now(), time.Now(), time.Now(),
		"Asha Rai", "S-001", "Final Term",
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id, r.exam_id")).
		WithArgs("exam-1", "approved").
		WillReturnRows(rows)

	results, err := repo.List(context.Background(), models.ResultFilter{
		ExamID: "exam-1",
		Status: models.StatusApproved,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Asha Rai", results[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
