package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
	"github.com/Aayushstha1/school-mgmt-api/internal/repository"
	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
	"github.com/Aayushstha1/school-mgmt-api/pkg/export"
)

type resultRepo interface {
	Create(ctx context.Context, result *models.Result) error
	UpdateDraft(ctx context.Context, result *models.Result) error
	FindByID(ctx context.Context, id string) (*models.Result, error)
	List(ctx context.Context, filter models.ResultFilter) ([]models.Result, error)
	PublishDrafts(ctx context.Context, examID, teacherID string, publishedAt time.Time) (int64, error)
	ReviewPending(ctx context.Context, params repository.ReviewParams) (int64, error)
}

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type resultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type auditWriter interface {
	SaveAuditLog(ctx context.Context, entry *models.AuditLog) error
}

type workflowMetrics interface {
	ObserveTransition(transition string, count int64)
	ObserveCacheHit()
	ObserveCacheMiss()
}

// CreateResultRequest is the teacher payload for a new draft result.
type CreateResultRequest struct {
	StudentID     string `json:"student_id" validate:"required"`
	ExamID        string `json:"exam_id" validate:"required"`
	MarksObtained int    `json:"marks_obtained" validate:"min=0"`
	Remarks       string `json:"remarks"`
}

// UpdateResultRequest amends marks or remarks on an existing draft.
type UpdateResultRequest struct {
	MarksObtained int    `json:"marks_obtained" validate:"min=0"`
	Remarks       string `json:"remarks"`
}

// PublishResultsRequest moves a teacher's drafts for one exam into review.
type PublishResultsRequest struct {
	ExamID string `json:"exam_id" validate:"required"`
}

// ReviewResultsRequest carries the admin decision over a pending batch.
type ReviewResultsRequest struct {
	ExamID  string `json:"exam_id" validate:"required"`
	Class   string `json:"class"`
	Action  string `json:"action" validate:"required"`
	Remarks string `json:"remarks"`
}

// BulkTransitionResult reports how many records a workflow sweep touched.
type BulkTransitionResult struct {
	Count int64 `json:"count"`
}

// ResultCacheConfig tunes the result list cache.
type ResultCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ResultService owns result entry, the approval workflow and filtered reads.
type ResultService struct {
	results   resultRepo
	exams     examReader
	students  studentReader
	cache     resultCache
	audits    auditWriter
	metrics   workflowMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cacheCfg  ResultCacheConfig
	now       func() time.Time
}

// NewResultService constructs a ResultService.
func NewResultService(results resultRepo, exams examReader, students studentReader, cache resultCache, audits auditWriter, validate *validator.Validate, logger *zap.Logger, cacheCfg ResultCacheConfig) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:   results,
		exams:     exams,
		students:  students,
		cache:     cache,
		audits:    audits,
		validator: validate,
		logger:    logger,
		cacheCfg:  cacheCfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics attaches workflow instrumentation.
func (s *ResultService) WithMetrics(m workflowMetrics) *ResultService {
	s.metrics = m
	return s
}

// CreateDraft records a teacher's marks for a student and derives the grade.
func (s *ResultService) CreateDraft(ctx context.Context, teacherID string, req CreateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if req.MarksObtained > exam.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("marks obtained cannot exceed total marks (%d)", exam.TotalMarks))
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	grade, err := models.ComputeGrade(req.MarksObtained, exam.TotalMarks, exam.PassingMarks)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		StudentID:     req.StudentID,
		ExamID:        req.ExamID,
		MarksObtained: req.MarksObtained,
		Grade:         grade,
		Remarks:       req.Remarks,
		Status:        models.StatusDraft,
		PublishedBy:   teacherID,
	}
	if err := s.results.Create(ctx, result); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateResult, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create result")
	}

	s.invalidateCache(ctx)
	return result, nil
}

// UpdateDraft rewrites marks and remarks on a draft owned by the caller. The
// grade is recomputed from the exam on every write.
func (s *ResultService) UpdateDraft(ctx context.Context, teacherID, resultID string, req UpdateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if result.PublishedBy != teacherID || result.Status != models.StatusDraft {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher may edit a draft result")
	}

	exam, err := s.exams.FindByID(ctx, result.ExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if req.MarksObtained > exam.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("marks obtained cannot exceed total marks (%d)", exam.TotalMarks))
	}

	grade, err := models.ComputeGrade(req.MarksObtained, exam.TotalMarks, exam.PassingMarks)
	if err != nil {
		return nil, err
	}

	result.MarksObtained = req.MarksObtained
	result.Grade = grade
	result.Remarks = req.Remarks
	if err := s.results.UpdateDraft(ctx, result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher may edit a draft result")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update result")
	}

	s.invalidateCache(ctx)
	return result, nil
}

// visibilityFilter narrows a base filter to what the viewer's role may read.
// Students see only their own approved results, teachers their own non-draft
// results, and every other authenticated role all non-draft results.
func visibilityFilter(viewer *models.JWTClaims, base models.ResultFilter) models.ResultFilter {
	switch viewer.Role {
	case models.RoleStudent:
		base.Status = models.StatusApproved
		base.StudentUserID = viewer.UserID
		base.StudentID = ""
		base.PublishedBy = ""
		base.StatusNot = ""
	case models.RoleTeacher:
		base.PublishedBy = viewer.UserID
		base.StatusNot = models.StatusDraft
	default:
		base.StatusNot = models.StatusDraft
	}
	return base
}

// List returns results visible to the viewer, optionally narrowed by exam,
// student or class.
func (s *ResultService) List(ctx context.Context, viewer *models.JWTClaims, filter models.ResultFilter) ([]models.Result, error) {
	filter = visibilityFilter(viewer, filter)

	key := s.cacheKey(viewer, filter)
	if s.cacheEnabled() {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var cached []models.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				if s.metrics != nil {
					s.metrics.ObserveCacheHit()
				}
				return cached, nil
			}
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("result cache read failed", zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.ObserveCacheMiss()
		}
	}

	results, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}

	if s.cacheEnabled() {
		if data, err := json.Marshal(results); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheCfg.TTL); err != nil {
				s.logger.Warn("result cache write failed", zap.Error(err))
			}
		}
	}
	return results, nil
}

// Get loads a single result, subject to the viewer's visibility rules.
func (s *ResultService) Get(ctx context.Context, viewer *models.JWTClaims, id string) (*models.Result, error) {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if !s.visibleTo(ctx, viewer, result) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
	}
	return result, nil
}

func (s *ResultService) visibleTo(ctx context.Context, viewer *models.JWTClaims, result *models.Result) bool {
	switch viewer.Role {
	case models.RoleStudent:
		if result.Status != models.StatusApproved {
			return false
		}
		student, err := s.students.FindByID(ctx, result.StudentID)
		if err != nil {
			return false
		}
		return student.UserID == viewer.UserID
	case models.RoleTeacher:
		return result.PublishedBy == viewer.UserID && result.Status != models.StatusDraft
	default:
		return result.Status != models.StatusDraft
	}
}

// Publish transitions every draft the teacher owns for the exam into
// pending_approval as one atomic sweep.
func (s *ResultService) Publish(ctx context.Context, viewer *models.JWTClaims, req PublishResultsRequest) (*BulkTransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish payload")
	}

	count, err := s.results.PublishDrafts(ctx, req.ExamID, viewer.UserID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish results")
	}
	if count == 0 {
		return nil, appErrors.Clone(appErrors.ErrNothingToPublish, "")
	}

	s.invalidateCache(ctx)
	s.recordAudit(ctx, viewer, models.AuditActionResultPublish, req.ExamID, map[string]interface{}{"count": count})
	if s.metrics != nil {
		s.metrics.ObserveTransition("publish", count)
	}
	return &BulkTransitionResult{Count: count}, nil
}

// Review applies the admin decision to every pending result for the exam,
// optionally scoped to one class.
func (s *ResultService) Review(ctx context.Context, viewer *models.JWTClaims, req ReviewResultsRequest) (*BulkTransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	action := models.ReviewAction(req.Action)
	if action != models.ActionApprove && action != models.ActionReject {
		return nil, appErrors.Clone(appErrors.ErrInvalidAction, "")
	}

	count, err := s.results.ReviewPending(ctx, repository.ReviewParams{
		ExamID:     req.ExamID,
		Class:      req.Class,
		Approve:    action == models.ActionApprove,
		ReviewedBy: viewer.UserID,
		ReviewedAt: s.now(),
		Remarks:    req.Remarks,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review results")
	}
	if count == 0 {
		return nil, appErrors.Clone(appErrors.ErrNothingPending, "")
	}

	s.invalidateCache(ctx)
	s.recordAudit(ctx, viewer, models.AuditActionResultReview, req.ExamID, map[string]interface{}{"action": req.Action, "count": count})
	if s.metrics != nil {
		s.metrics.ObserveTransition(req.Action, count)
	}
	return &BulkTransitionResult{Count: count}, nil
}

// ExportFormat selects the rendered export type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportRequest scopes a marksheet export.
type ExportRequest struct {
	ExamID string       `json:"exam_id" validate:"required"`
	Class  string       `json:"class"`
	Format ExportFormat `json:"format"`
}

// ExportFile is a rendered marksheet ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type sheetRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// Export renders the approved results of one exam as a CSV or PDF marksheet.
func (s *ResultService) Export(ctx context.Context, viewer *models.JWTClaims, req ExportRequest, csv, pdf sheetRenderer) (*ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	format := req.Format
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	results, err := s.results.List(ctx, models.ResultFilter{
		ExamID: req.ExamID,
		Class:  req.Class,
		Status: models.StatusApproved,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}

	sheet := export.Sheet{
		Title:   fmt.Sprintf("%s marksheet", exam.Name),
		Columns: []string{"Student Number", "Student Name", "Marks Obtained", "Total Marks", "Grade", "Status"},
	}
	for _, result := range results {
		sheet.Rows = append(sheet.Rows, []string{
			result.StudentNumber,
			result.StudentName,
			fmt.Sprintf("%d", result.MarksObtained),
			fmt.Sprintf("%d", exam.TotalMarks),
			string(result.Grade),
			string(result.Status),
		})
	}

	renderer := csv
	contentType := "text/csv"
	ext := "csv"
	if format == FormatPDF {
		renderer = pdf
		contentType = "application/pdf"
		ext = "pdf"
	}
	data, err := renderer.Render(sheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("results_%s_%s.%s", req.ExamID, s.now().Format("20060102T150405"), ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (s *ResultService) cacheEnabled() bool {
	return s.cacheCfg.Enabled && s.cache != nil
}

func (s *ResultService) cacheKey(viewer *models.JWTClaims, filter models.ResultFilter) string {
	return fmt.Sprintf("results:%s:%s:%s:%s:%s:%s:%s",
		viewer.Role, viewer.UserID, filter.ExamID, filter.StudentID, filter.Status, filter.StatusNot, filter.Class)
}

func (s *ResultService) invalidateCache(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "results:*"); err != nil {
		s.logger.Warn("result cache invalidation failed", zap.Error(err))
	}
}

func (s *ResultService) recordAudit(ctx context.Context, viewer *models.JWTClaims, action, resourceID string, values map[string]interface{}) {
	if s.audits == nil {
		return
	}
	payload, err := json.Marshal(values)
	if err != nil {
		payload = nil
	}
	entry := &models.AuditLog{
		UserID:     &viewer.UserID,
		Action:     action,
		Resource:   "results",
		ResourceID: &resourceID,
		NewValues:  payload,
	}
	if err := s.audits.SaveAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
