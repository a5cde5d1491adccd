package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
)

type examRepo interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

type subjectRepo interface {
	List(ctx context.Context) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CreateExamRequest defines the payload for registering an exam.
type CreateExamRequest struct {
	Name         string    `json:"name" validate:"required"`
	Type         string    `json:"type" validate:"required"`
	SubjectID    string    `json:"subject_id" validate:"required"`
	TotalMarks   int       `json:"total_marks" validate:"required,gt=0"`
	PassingMarks int       `json:"passing_marks" validate:"min=0"`
	ExamDate     time.Time `json:"exam_date" validate:"required"`
}

// UpdateExamRequest defines the payload for amending an exam.
type UpdateExamRequest struct {
	Name         string    `json:"name" validate:"required"`
	Type         string    `json:"type" validate:"required"`
	SubjectID    string    `json:"subject_id" validate:"required"`
	TotalMarks   int       `json:"total_marks" validate:"required,gt=0"`
	PassingMarks int       `json:"passing_marks" validate:"min=0"`
	ExamDate     time.Time `json:"exam_date" validate:"required"`
	IsActive     bool      `json:"is_active"`
}

// ExamService manages the exam registry.
type ExamService struct {
	exams     examRepo
	subjects  subjectRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(exams examRepo, subjects subjectRepo, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, subjects: subjects, validator: validate, logger: logger}
}

// List returns exams matching the filter with pagination metadata.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, *models.Pagination, error) {
	exams, total, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return exams, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one exam.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// Create registers a new exam after validating its subject and marks scheme.
func (s *ExamService) Create(ctx context.Context, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	examType := models.ExamType(req.Type)
	if !models.ValidExamType(examType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown exam type")
	}
	if req.PassingMarks > req.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passing marks cannot exceed total marks")
	}
	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	exam := &models.Exam{
		Name:         req.Name,
		Type:         examType,
		SubjectID:    subject.ID,
		SubjectName:  subject.Name,
		TotalMarks:   req.TotalMarks,
		PassingMarks: req.PassingMarks,
		ExamDate:     req.ExamDate,
		IsActive:     true,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Update amends an existing exam.
func (s *ExamService) Update(ctx context.Context, id string, req UpdateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	examType := models.ExamType(req.Type)
	if !models.ValidExamType(examType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown exam type")
	}
	if req.PassingMarks > req.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passing marks cannot exceed total marks")
	}

	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	exam.Name = req.Name
	exam.Type = examType
	exam.SubjectID = subject.ID
	exam.SubjectName = subject.Name
	exam.TotalMarks = req.TotalMarks
	exam.PassingMarks = req.PassingMarks
	exam.ExamDate = req.ExamDate
	exam.IsActive = req.IsActive
	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam; referencing results are removed by the database.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if _, err := s.exams.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if err := s.exams.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

// ListSubjects returns the subject catalogue.
func (s *ExamService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	list, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return list, nil
}
