package models

import "time"

// CandidateProfile is the candidate-side identity record. Only the columns
// the messaging service reads are mapped; profile CRUD lives elsewhere.
type CandidateProfile struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// RecruiterProfile is the recruiter-side identity record.
type RecruiterProfile struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
