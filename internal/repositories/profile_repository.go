package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lifi-chat-service/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads and writes user display metadata.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (models.UserProfile, error)
	Bulk(ctx context.Context, userIDs []string) ([]models.UserProfile, error)
	Upsert(ctx context.Context, profile models.UserProfile) error
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Get fetches one profile.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.GetContext(ctx, &profile,
		`SELECT id, name, surname, profile_image_url FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrProfileNotFound
	}
	return profile, err
}

// Bulk fetches multiple profiles in one round trip. Missing ids are simply
// absent from the result.
func (r *ProfileRepo) Bulk(ctx context.Context, userIDs []string) ([]models.UserProfile, error) {
	if len(userIDs) == 0 {
		return []models.UserProfile{}, nil
	}
	var profiles []models.UserProfile
	err := r.db.SelectContext(ctx, &profiles,
		`SELECT id, name, surname, profile_image_url FROM users WHERE id = ANY($1)`, pq.Array(userIDs))
	return profiles, err
}

// Upsert creates or replaces a profile.
func (r *ProfileRepo) Upsert(ctx context.Context, profile models.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, surname, profile_image_url) VALUES ($1, $2, $3, $4)
         ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, surname=EXCLUDED.surname, profile_image_url=EXCLUDED.profile_image_url`,
		profile.UserID, profile.Name, profile.Surname, profile.ProfileImage)
	return err
}
