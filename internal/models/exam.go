package models

import "time"

// ExamType classifies an assessable event.
type ExamType string

const (
	ExamTypeUnitTest   ExamType = "unit_test"
	ExamTypeMidTerm    ExamType = "mid_term"
	ExamTypeFinal      ExamType = "final"
	ExamTypePractical  ExamType = "practical"
	ExamTypeAssignment ExamType = "assignment"
	ExamTypeProject    ExamType = "project"
)

// ValidExamType reports whether t is a known exam type.
func ValidExamType(t ExamType) bool {
	switch t {
	case ExamTypeUnitTest, ExamTypeMidTerm, ExamTypeFinal, ExamTypePractical, ExamTypeAssignment, ExamTypeProject:
		return true
	}
	return false
}

// Exam identifies an assessable event for a subject.
type Exam struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Type         ExamType  `db:"type" json:"type"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	SubjectName  string    `db:"subject_name" json:"subject_name,omitempty"`
	TotalMarks   int       `db:"total_marks" json:"total_marks"`
	PassingMarks int       `db:"passing_marks" json:"passing_marks"`
	ExamDate     time.Time `db:"exam_date" json:"exam_date"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ExamFilter defines filters supported by exam list endpoints.
type ExamFilter struct {
	SubjectID string
	Type      ExamType
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
