package models

import "time"

// AcademicYear time-boxes an academic session. At most one year is current
// across the whole table.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Semester subdivides an academic year. The current flag is exclusive across
// all semesters, not per year.
type Semester struct {
	ID               string    `db:"id" json:"id"`
	AcademicYearID   string    `db:"academic_year_id" json:"academic_year_id"`
	AcademicYearName string    `db:"academic_year_name" json:"academic_year_name,omitempty"`
	Name             string    `db:"name" json:"name"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	IsCurrent        bool      `db:"is_current" json:"is_current"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
