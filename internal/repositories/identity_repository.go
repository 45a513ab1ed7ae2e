package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository resolves raw ids against the role-typed profile
// registries owned by the platform's CRUD side. The same numeric id may
// exist in both registries, so callers always name the role they mean; raw
// ids are never compared across roles.
type IdentityRepository interface {
	ResolveCandidate(ctx context.Context, userID int64) (models.CandidateProfile, error)
	ResolveRecruiter(ctx context.Context, userID int64) (models.RecruiterProfile, error)
}

// IdentityRepo is a sqlx implementation of IdentityRepository.
type IdentityRepo struct {
	db *sqlx.DB
}

// NewIdentityRepo constructs an IdentityRepo.
func NewIdentityRepo(db *sqlx.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

// ResolveCandidate looks up a candidate-side identity.
func (r *IdentityRepo) ResolveCandidate(ctx context.Context, userID int64) (models.CandidateProfile, error) {
	var profile models.CandidateProfile
	err := r.db.GetContext(ctx, &profile, `SELECT user_id, display_name, created_at
        FROM candidate_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CandidateProfile{}, ErrIdentityNotFound
	}
	return profile, err
}

// ResolveRecruiter looks up a recruiter-side identity.
func (r *IdentityRepo) ResolveRecruiter(ctx context.Context, userID int64) (models.RecruiterProfile, error) {
	var profile models.RecruiterProfile
	err := r.db.GetContext(ctx, &profile, `SELECT user_id, company_name, display_name, created_at
        FROM recruiter_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RecruiterProfile{}, ErrIdentityNotFound
	}
	return profile, err
}
