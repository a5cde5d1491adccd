package models

import "time"

// Student represents a learner profile linked to a user account.
type Student struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	StudentNumber  string    `db:"student_number" json:"student_number"`
	FullName       string    `db:"full_name" json:"full_name"`
	CurrentClass   string    `db:"current_class" json:"current_class"`
	CurrentSection string    `db:"current_section" json:"current_section"`
	RollNumber     string    `db:"roll_number" json:"roll_number"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
