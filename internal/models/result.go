package models

import (
	"time"

	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
)

// Grade is the letter grade derived from marks.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeCPlus Grade = "C+"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// ResultStatus tracks a result through the approval workflow.
type ResultStatus string

const (
	StatusDraft           ResultStatus = "draft"
	StatusPendingApproval ResultStatus = "pending_approval"
	StatusApproved        ResultStatus = "approved"
	StatusRejected        ResultStatus = "rejected"
	// StatusPublished is reserved; no workflow transition currently produces it.
	StatusPublished ResultStatus = "published"
)

// ReviewAction is the admin decision over a pending batch.
type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
)

// Result stores one student's marks for one exam, unique per (student, exam).
type Result struct {
	ID              string       `db:"id" json:"id"`
	StudentID       string       `db:"student_id" json:"student_id"`
	ExamID          string       `db:"exam_id" json:"exam_id"`
	MarksObtained   int          `db:"marks_obtained" json:"marks_obtained"`
	Grade           Grade        `db:"grade" json:"grade"`
	Remarks         string       `db:"remarks" json:"remarks,omitempty"`
	Status          ResultStatus `db:"status" json:"status"`
	PublishedBy     string       `db:"published_by" json:"published_by"`
	ApprovedBy      *string      `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalRemarks *string      `db:"approval_remarks" json:"approval_remarks,omitempty"`
	PublishedAt     *time.Time   `db:"published_at" json:"published_at,omitempty"`
	ApprovedAt      *time.Time   `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`

	StudentName   string `db:"student_name" json:"student_name,omitempty"`
	StudentNumber string `db:"student_number" json:"student_number,omitempty"`
	ExamName      string `db:"exam_name" json:"exam_name,omitempty"`
}

// ResultFilter captures the predicates applied when listing results.
type ResultFilter struct {
	ExamID        string
	StudentID     string
	StudentUserID string
	PublishedBy   string
	Status        ResultStatus
	StatusNot     ResultStatus
	Class         string
}

// ComputeGrade maps obtained marks to a letter grade using fixed percentage
// bands evaluated highest-first; ties go to the higher band. The passing band
// compares the percentage value against the raw passing mark.
func ComputeGrade(marksObtained, totalMarks, passingMarks int) (Grade, error) {
	if totalMarks <= 0 {
		return "", appErrors.Clone(appErrors.ErrInvalidExamConfig, "")
	}
	percentage := float64(marksObtained) / float64(totalMarks) * 100

	switch {
	case percentage >= 90:
		return GradeAPlus, nil
	case percentage >= 80:
		return GradeA, nil
	case percentage >= 70:
		return GradeBPlus, nil
	case percentage >= 60:
		return GradeB, nil
	case percentage >= 50:
		return GradeCPlus, nil
	case percentage >= 40:
		return GradeC, nil
	case percentage >= float64(passingMarks):
		return GradeD, nil
	default:
		return GradeF, nil
	}
}
