package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
)

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

const resultColumns = `r.id, r.student_id, r.exam_id, r.marks_obtained, r.grade, r.remarks, r.status,
        r.published_by, r.approved_by, r.approval_remarks, r.published_at, r.approved_at, r.created_at, r.updated_at,
        s.full_name AS student_name, s.student_number, e.name AS exam_name`

// ResultRepository persists exam results and drives their bulk transitions.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create inserts a draft result. The (student_id, exam_id) unique constraint
// resolves concurrent duplicate inserts; callers detect the loser via
// IsUniqueViolation.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	const query = `INSERT INTO results (id, student_id, exam_id, marks_obtained, grade, remarks, status, published_by, created_at, updated_at)
        VALUES (:id, :student_id, :exam_id, :marks_obtained, :grade, :remarks, :status, :published_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// UpdateDraft overwrites marks, grade and remarks. The status predicate keeps
// the write a no-op when the result left draft between read and write.
func (r *ResultRepository) UpdateDraft(ctx context.Context, result *models.Result) error {
	result.UpdatedAt = time.Now().UTC()
	const query = `UPDATE results SET marks_obtained = :marks_obtained, grade = :grade, remarks = :remarks, updated_at = :updated_at
        WHERE id = :id AND status = 'draft'`
	res, err := r.db.NamedExecContext(ctx, query, result)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update result rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads a single result with student and exam context.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results r
        JOIN students s ON s.id = r.student_id
        JOIN exams e ON e.id = r.exam_id
        WHERE r.id = $1`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns results matching the filter, newest first.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results r
        JOIN students s ON s.id = r.student_id
        JOIN exams e ON e.id = r.exam_id
        WHERE 1=1`, resultColumns)
	var args []interface{}
	if filter.ExamID != "" {
		query += fmt.Sprintf(" AND r.exam_id = $%d", len(args)+1)
		args = append(args, filter.ExamID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND r.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.StudentUserID != "" {
		query += fmt.Sprintf(" AND s.user_id = $%d", len(args)+1)
		args = append(args, filter.StudentUserID)
	}
	if filter.PublishedBy != "" {
		query += fmt.Sprintf(" AND r.published_by = $%d", len(args)+1)
		args = append(args, filter.PublishedBy)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND r.status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.StatusNot != "" {
		query += fmt.Sprintf(" AND r.status <> $%d", len(args)+1)
		args = append(args, filter.StatusNot)
	}
	if filter.Class != "" {
		query += fmt.Sprintf(" AND s.current_class = $%d", len(args)+1)
		args = append(args, filter.Class)
	}
	query += " ORDER BY r.created_at DESC"

	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// PublishDrafts moves every draft result a teacher owns for the exam into
// pending_approval. The single set-based update keeps the sweep atomic: the
// whole selection transitions or none of it does.
func (r *ResultRepository) PublishDrafts(ctx context.Context, examID, teacherID string, publishedAt time.Time) (int64, error) {
	const query = `UPDATE results SET status = 'pending_approval', published_at = $3, updated_at = $3
        WHERE exam_id = $1 AND published_by = $2 AND status = 'draft'`
	res, err := r.db.ExecContext(ctx, query, examID, teacherID, publishedAt)
	if err != nil {
		return 0, fmt.Errorf("publish drafts: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("publish drafts rows: %w", err)
	}
	return count, nil
}

// ReviewParams scopes an admin approval sweep over a pending batch.
type ReviewParams struct {
	ExamID     string
	Class      string
	Approve    bool
	ReviewedBy string
	ReviewedAt time.Time
	Remarks    string
}

// ReviewPending approves or rejects every pending result for the exam,
// optionally narrowed to one class. Rejection records only the remarks; the
// reviewer and timestamp stay unset.
func (r *ResultRepository) ReviewPending(ctx context.Context, params ReviewParams) (int64, error) {
	var sets []string
	args := []interface{}{params.ExamID}
	if params.Approve {
		sets = append(sets,
			"status = 'approved'",
			fmt.Sprintf("approved_by = $%d", len(args)+1),
		)
		args = append(args, params.ReviewedBy)
		sets = append(sets, fmt.Sprintf("approved_at = $%d", len(args)+1))
		args = append(args, params.ReviewedAt)
	} else {
		sets = append(sets, "status = 'rejected'")
	}
	sets = append(sets, fmt.Sprintf("approval_remarks = $%d", len(args)+1))
	args = append(args, params.Remarks)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, params.ReviewedAt)

	query := fmt.Sprintf(`UPDATE results SET %s WHERE exam_id = $1 AND status = 'pending_approval'`, strings.Join(sets, ", "))
	if params.Class != "" {
		query += fmt.Sprintf(" AND student_id IN (SELECT id FROM students WHERE current_class = $%d)", len(args)+1)
		args = append(args, params.Class)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("review pending results: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("review pending rows: %w", err)
	}
	return count, nil
}
