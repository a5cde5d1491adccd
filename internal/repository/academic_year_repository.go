package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
)

// AcademicYearRepository persists academic years and semesters.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository creates a new academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// ListYears returns all academic years, most recent first.
func (r *AcademicYearRepository) ListYears(ctx context.Context) ([]models.AcademicYear, error) {
	const query = `SELECT id, name, start_date, end_date, is_current, created_at, updated_at FROM academic_years ORDER BY start_date DESC`
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindYearByID loads an academic year by identifier.
func (r *AcademicYearRepository) FindYearByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	const query = `SELECT id, name, start_date, end_date, is_current, created_at, updated_at FROM academic_years WHERE id = $1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// CreateYear inserts an academic year. When the year is flagged current, every
// other year is cleared inside the same transaction.
func (r *AcademicYearRepository) CreateYear(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create year tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if year.IsCurrent {
		if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE`, now); err != nil {
			return fmt.Errorf("clear current years: %w", err)
		}
	}

	const query = `INSERT INTO academic_years (id, name, start_date, end_date, is_current, created_at, updated_at)
        VALUES (:id, :name, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create year tx: %w", err)
	}
	return nil
}

// UpdateYear modifies an academic year, preserving the single-current invariant.
func (r *AcademicYearRepository) UpdateYear(ctx context.Context, year *models.AcademicYear) error {
	now := time.Now().UTC()
	year.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update year tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if year.IsCurrent {
		if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2`, now, year.ID); err != nil {
			return fmt.Errorf("clear current years: %w", err)
		}
	}

	const query = `UPDATE academic_years SET name = :name, start_date = :start_date, end_date = :end_date, is_current = :is_current, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update year tx: %w", err)
	}
	return nil
}

// DeleteYear removes an academic year permanently.
func (r *AcademicYearRepository) DeleteYear(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}

const semesterColumns = `se.id, se.academic_year_id, se.name, se.start_date, se.end_date, se.is_current, se.created_at, se.updated_at, ay.name AS academic_year_name`

// ListSemesters returns all semesters ordered by year then name.
func (r *AcademicYearRepository) ListSemesters(ctx context.Context) ([]models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters se JOIN academic_years ay ON ay.id = se.academic_year_id ORDER BY ay.start_date DESC, se.name`, semesterColumns)
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// FindSemesterByID loads a semester by identifier.
func (r *AcademicYearRepository) FindSemesterByID(ctx context.Context, id string) (*models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters se JOIN academic_years ay ON ay.id = se.academic_year_id WHERE se.id = $1`, semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// CreateSemester inserts a semester, clearing other current semesters when the
// new one is flagged current. The current flag is exclusive table-wide.
func (r *AcademicYearRepository) CreateSemester(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if semester.CreatedAt.IsZero() {
		semester.CreatedAt = now
	}
	semester.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create semester tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if semester.IsCurrent {
		if _, err = tx.ExecContext(ctx, `UPDATE semesters SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE`, now); err != nil {
			return fmt.Errorf("clear current semesters: %w", err)
		}
	}

	const query = `INSERT INTO semesters (id, academic_year_id, name, start_date, end_date, is_current, created_at, updated_at)
        VALUES (:id, :academic_year_id, :name, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create semester tx: %w", err)
	}
	return nil
}

// UpdateSemester modifies a semester, preserving the single-current invariant.
func (r *AcademicYearRepository) UpdateSemester(ctx context.Context, semester *models.Semester) error {
	now := time.Now().UTC()
	semester.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update semester tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if semester.IsCurrent {
		if _, err = tx.ExecContext(ctx, `UPDATE semesters SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2`, now, semester.ID); err != nil {
			return fmt.Errorf("clear current semesters: %w", err)
		}
	}

	const query = `UPDATE semesters SET academic_year_id = :academic_year_id, name = :name, start_date = :start_date, end_date = :end_date, is_current = :is_current, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update semester tx: %w", err)
	}
	return nil
}

// DeleteSemester removes a semester permanently.
func (r *AcademicYearRepository) DeleteSemester(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM semesters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete semester: %w", err)
	}
	return nil
}
