package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
)

type examRepoStub struct {
	exams map[string]*models.Exam
}

func newExamRepoStub() *examRepoStub {
	return &examRepoStub{exams: make(map[string]*models.Exam)}
}

func (r *examRepoStub) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	out := make([]models.Exam, 0, len(r.exams))
	for _, e := range r.exams {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (r *examRepoStub) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if e, ok := r.exams[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *examRepoStub) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = "exam-" + exam.Name
	}
	copied := *exam
	r.exams[exam.ID] = &copied
	return nil
}

func (r *examRepoStub) Update(ctx context.Context, exam *models.Exam) error {
	copied := *exam
	r.exams[exam.ID] = &copied
	return nil
}

func (r *examRepoStub) Delete(ctx context.Context, id string) error {
	delete(r.exams, id)
	return nil
}

type subjectRepoStub struct {
	subjects map[string]*models.Subject
}

func (r *subjectRepoStub) List(ctx context.Context) ([]models.Subject, error) {
	out := make([]models.Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		out = append(out, *s)
	}
	return out, nil
}

func (r *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := r.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newTestExamService() (*ExamService, *examRepoStub) {
	repo := newExamRepoStub()
	subjects := &subjectRepoStub{subjects: map[string]*models.Subject{
		"subject-1": {ID: "subject-1", Code: "MATH", Name: "Mathematics"},
	}}
	return NewExamService(repo, subjects, nil, nil), repo
}

func TestExamServiceCreate(t *testing.T) {
	svc, _ := newTestExamService()

	exam, err := svc.Create(context.Background(), CreateExamRequest{
		Name:         "Final Term",
		Type:         "final",
		SubjectID:    "subject-1",
		TotalMarks:   100,
		PassingMarks: 40,
		ExamDate:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, exam.IsActive)
	require.Equal(t, "Mathematics", exam.SubjectName)
}

func TestExamServiceCreateUnknownType(t *testing.T) {
	svc, _ := newTestExamService()

	_, err := svc.Create(context.Background(), CreateExamRequest{
		Name:       "Pop Quiz",
		Type:       "pop_quiz",
		SubjectID:  "subject-1",
		TotalMarks: 20,
		ExamDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestExamServiceCreatePassingAboveTotal(t *testing.T) {
	svc, _ := newTestExamService()

	_, err := svc.Create(context.Background(), CreateExamRequest{
		Name:         "Final Term",
		Type:         "final",
		SubjectID:    "subject-1",
		TotalMarks:   50,
		PassingMarks: 60,
		ExamDate:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestExamServiceCreateUnknownSubject(t *testing.T) {
	svc, _ := newTestExamService()

	_, err := svc.Create(context.Background(), CreateExamRequest{
		Name:       "Final Term",
		Type:       "final",
		SubjectID:  "missing",
		TotalMarks: 100,
		ExamDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	requireErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestExamServiceGetNotFound(t *testing.T) {
	svc, _ := newTestExamService()

	_, err := svc.Get(context.Background(), "missing")
	requireErrCode(t, err, appErrors.ErrNotFound.Code)
}
