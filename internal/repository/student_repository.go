package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
)

// StudentRepository reads student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, student_number, full_name, current_class, current_section, roll_number, active, created_at, updated_at`

// FindByID loads a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID loads the student profile attached to a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE user_id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByClass returns active students in a class ordered by roll number.
func (r *StudentRepository) ListByClass(ctx context.Context, class string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE current_class = $1 AND active = TRUE ORDER BY roll_number`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, class); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}
