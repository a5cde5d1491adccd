package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
	"github.com/Aayushstha1/school-mgmt-api/internal/repository"
	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
	"github.com/Aayushstha1/school-mgmt-api/pkg/export"
)

type resultRepoStub struct {
	results      map[string]*models.Result
	createErr    error
	publishCount int64
	reviewCount  int64
	lastFilter   models.ResultFilter
	lastReview   repository.ReviewParams
	listResults  []models.Result
}

func newResultRepoStub() *resultRepoStub {
	return &resultRepoStub{results: make(map[string]*models.Result)}
}

func (r *resultRepoStub) Create(ctx context.Context, result *models.Result) error {
	if r.createErr != nil {
		return r.createErr
	}
	if result.ID == "" {
		result.ID = "res-" + result.StudentID
	}
	copied := *result
	r.results[result.ID] = &copied
	return nil
}

func (r *resultRepoStub) UpdateDraft(ctx context.Context, result *models.Result) error {
	stored, ok := r.results[result.ID]
	if !ok || stored.Status != models.StatusDraft {
		return sql.ErrNoRows
	}
	copied := *result
	r.results[result.ID] = &copied
	return nil
}

func (r *resultRepoStub) FindByID(ctx context.Context, id string) (*models.Result, error) {
	if result, ok := r.results[id]; ok {
		copied := *result
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *resultRepoStub) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, error) {
	r.lastFilter = filter
	return r.listResults, nil
}

func (r *resultRepoStub) PublishDrafts(ctx context.Context, examID, teacherID string, publishedAt time.Time) (int64, error) {
	return r.publishCount, nil
}

func (r *resultRepoStub) ReviewPending(ctx context.Context, params repository.ReviewParams) (int64, error) {
	r.lastReview = params
	return r.reviewCount, nil
}

type examReaderStub struct {
	exams map[string]*models.Exam
}

func (e *examReaderStub) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := e.exams[id]; ok {
		return exam, nil
	}
	return nil, sql.ErrNoRows
}

type studentReaderStub struct {
	students map[string]*models.Student
}

func (s *studentReaderStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type auditWriterStub struct {
	entries []*models.AuditLog
}

func (a *auditWriterStub) SaveAuditLog(ctx context.Context, entry *models.AuditLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

func newTestResultService() (*ResultService, *resultRepoStub, *examReaderStub, *auditWriterStub) {
	repo := newResultRepoStub()
	exams := &examReaderStub{exams: map[string]*models.Exam{
		"exam-1": {ID: "exam-1", Name: "Final Term", TotalMarks: 100, PassingMarks: 40},
	}}
	students := &studentReaderStub{students: map[string]*models.Student{
		"student-1": {ID: "student-1", UserID: "user-student-1", FullName: "Asha Rai"},
	}}
	audits := &auditWriterStub{}
	svc := NewResultService(repo, exams, students, nil, audits, nil, nil, ResultCacheConfig{})
	return svc, repo, exams, audits
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, code, appErr.Code)
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func adminClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdmin}
}

func TestResultServiceCreateDraftDerivesGrade(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	result, err := svc.CreateDraft(context.Background(), "teacher-1", CreateResultRequest{
		StudentID:     "student-1",
		ExamID:        "exam-1",
		MarksObtained: 85,
	})
	require.NoError(t, err)
	require.Equal(t, models.GradeA, result.Grade)
	require.Equal(t, models.StatusDraft, result.Status)
	require.Equal(t, "teacher-1", result.PublishedBy)
}

func TestResultServiceCreateDraftDuplicate(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.createErr = &pq.Error{Code: "23505"}

	_, err := svc.CreateDraft(context.Background(), "teacher-1", CreateResultRequest{
		StudentID:     "student-1",
		ExamID:        "exam-1",
		MarksObtained: 85,
	})
	requireErrCode(t, err, appErrors.ErrDuplicateResult.Code)
}

func TestResultServiceCreateDraftMarksAboveTotal(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	_, err := svc.CreateDraft(context.Background(), "teacher-1", CreateResultRequest{
		StudentID:     "student-1",
		ExamID:        "exam-1",
		MarksObtained: 120,
	})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestResultServiceCreateDraftInvalidExamConfig(t *testing.T) {
	svc, _, exams, _ := newTestResultService()
	exams.exams["exam-bad"] = &models.Exam{ID: "exam-bad", TotalMarks: 0, PassingMarks: 0}

	_, err := svc.CreateDraft(context.Background(), "teacher-1", CreateResultRequest{
		StudentID:     "student-1",
		ExamID:        "exam-bad",
		MarksObtained: 0,
	})
	requireErrCode(t, err, appErrors.ErrInvalidExamConfig.Code)
}

func TestResultServiceUpdateDraftForeignTeacherForbidden(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.results["res-1"] = &models.Result{
		ID:          "res-1",
		ExamID:      "exam-1",
		PublishedBy: "teacher-b",
		Status:      models.StatusDraft,
	}

	_, err := svc.UpdateDraft(context.Background(), "teacher-a", "res-1", UpdateResultRequest{MarksObtained: 50})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestResultServiceUpdateDraftNonDraftForbidden(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.results["res-1"] = &models.Result{
		ID:          "res-1",
		ExamID:      "exam-1",
		PublishedBy: "teacher-1",
		Status:      models.StatusPendingApproval,
	}

	_, err := svc.UpdateDraft(context.Background(), "teacher-1", "res-1", UpdateResultRequest{MarksObtained: 50})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestResultServiceUpdateDraftRecomputesGrade(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.results["res-1"] = &models.Result{
		ID:            "res-1",
		ExamID:        "exam-1",
		MarksObtained: 85,
		Grade:         models.GradeA,
		PublishedBy:   "teacher-1",
		Status:        models.StatusDraft,
	}

	result, err := svc.UpdateDraft(context.Background(), "teacher-1", "res-1", UpdateResultRequest{MarksObtained: 95})
	require.NoError(t, err)
	require.Equal(t, models.GradeAPlus, result.Grade)
	require.Equal(t, 95, result.MarksObtained)
}

func TestResultServicePublishNothingToPublish(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.publishCount = 0

	_, err := svc.Publish(context.Background(), teacherClaims("teacher-1"), PublishResultsRequest{ExamID: "exam-1"})
	requireErrCode(t, err, appErrors.ErrNothingToPublish.Code)
}

func TestResultServicePublishReturnsCount(t *testing.T) {
	svc, repo, _, audits := newTestResultService()
	repo.publishCount = 12

	outcome, err := svc.Publish(context.Background(), teacherClaims("teacher-1"), PublishResultsRequest{ExamID: "exam-1"})
	require.NoError(t, err)
	require.EqualValues(t, 12, outcome.Count)
	require.Len(t, audits.entries, 1)
	require.Equal(t, models.AuditActionResultPublish, audits.entries[0].Action)
}

func TestResultServiceReviewInvalidAction(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	_, err := svc.Review(context.Background(), adminClaims("admin-1"), ReviewResultsRequest{
		ExamID: "exam-1",
		Action: "escalate",
	})
	requireErrCode(t, err, appErrors.ErrInvalidAction.Code)
}

func TestResultServiceReviewNothingPending(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.reviewCount = 0

	_, err := svc.Review(context.Background(), adminClaims("admin-1"), ReviewResultsRequest{
		ExamID: "exam-1",
		Action: "approve",
	})
	requireErrCode(t, err, appErrors.ErrNothingPending.Code)
}

func TestResultServiceReviewReject(t *testing.T) {
	svc, repo, _, audits := newTestResultService()
	repo.reviewCount = 4

	outcome, err := svc.Review(context.Background(), adminClaims("admin-1"), ReviewResultsRequest{
		ExamID:  "exam-1",
		Action:  "reject",
		Remarks: "incomplete marksheet",
	})
	require.NoError(t, err)
	require.EqualValues(t, 4, outcome.Count)
	require.False(t, repo.lastReview.Approve)
	require.Equal(t, "incomplete marksheet", repo.lastReview.Remarks)
	require.Equal(t, "admin-1", repo.lastReview.ReviewedBy)
	require.Len(t, audits.entries, 1)
	require.Equal(t, models.AuditActionResultReview, audits.entries[0].Action)
}

func TestResultServiceListVisibilityStudent(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	viewer := &models.JWTClaims{UserID: "user-student-1", Role: models.RoleStudent}

	_, err := svc.List(context.Background(), viewer, models.ResultFilter{ExamID: "exam-1"})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, repo.lastFilter.Status)
	require.Equal(t, "user-student-1", repo.lastFilter.StudentUserID)
	require.Empty(t, repo.lastFilter.PublishedBy)
}

func TestResultServiceListVisibilityTeacher(t *testing.T) {
	svc, repo, _, _ := newTestResultService()

	_, err := svc.List(context.Background(), teacherClaims("teacher-1"), models.ResultFilter{})
	require.NoError(t, err)
	require.Equal(t, "teacher-1", repo.lastFilter.PublishedBy)
	require.Equal(t, models.StatusDraft, repo.lastFilter.StatusNot)
}

func TestResultServiceListVisibilityAdmin(t *testing.T) {
	svc, repo, _, _ := newTestResultService()

	_, err := svc.List(context.Background(), adminClaims("admin-1"), models.ResultFilter{})
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, repo.lastFilter.StatusNot)
	require.Empty(t, repo.lastFilter.PublishedBy)
}

func TestResultServiceGetHidesUnapprovedFromStudent(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.results["res-1"] = &models.Result{
		ID:        "res-1",
		StudentID: "student-1",
		Status:    models.StatusPendingApproval,
	}
	viewer := &models.JWTClaims{UserID: "user-student-1", Role: models.RoleStudent}

	_, err := svc.Get(context.Background(), viewer, "res-1")
	requireErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestResultServiceGetApprovedVisibleToStudent(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.results["res-1"] = &models.Result{
		ID:        "res-1",
		StudentID: "student-1",
		Status:    models.StatusApproved,
	}
	viewer := &models.JWTClaims{UserID: "user-student-1", Role: models.RoleStudent}

	result, err := svc.Get(context.Background(), viewer, "res-1")
	require.NoError(t, err)
	require.Equal(t, "res-1", result.ID)
}

func TestResultServiceExportCSV(t *testing.T) {
	svc, repo, _, _ := newTestResultService()
	repo.listResults = []models.Result{
		{StudentNumber: "S-001", StudentName: "Asha Rai", MarksObtained: 85, Grade: models.GradeA, Status: models.StatusApproved},
	}

	file, err := svc.Export(context.Background(), adminClaims("admin-1"), ExportRequest{ExamID: "exam-1"}, export.NewCSVExporter(), export.NewPDFExporter())
	require.NoError(t, err)
	require.Equal(t, "text/csv", file.ContentType)
	require.True(t, strings.Contains(string(file.Data), "Asha Rai"))
	require.Equal(t, models.StatusApproved, repo.lastFilter.Status)
}
