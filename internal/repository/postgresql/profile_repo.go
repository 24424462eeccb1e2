package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
)

type pgProfileRepository struct {
	db *sql.DB
}

func NewPgProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &pgProfileRepository{db: db}
}

func (r *pgProfileRepository) Create(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	query := `INSERT INTO profiles (email, full_name, password_hash, role, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	err := r.db.QueryRowContext(ctx, query, profile.Email, profile.FullName, profile.PasswordHash, profile.Role).
		Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "profiles_email_key" {
			return nil, fmt.Errorf("%w: email '%s' đã tồn tại", repository.ErrDuplicateEntry, profile.Email)
		}
		return nil, fmt.Errorf("ProfileRepository.Create: %w", err)
	}
	profile.CreatedAt = profile.CreatedAt.In(time.UTC)
	profile.UpdatedAt = profile.UpdatedAt.In(time.UTC)
	return profile, nil
}

func (r *pgProfileRepository) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `SELECT id, email, full_name, password_hash, role, created_at, updated_at FROM profiles WHERE email = $1`
	return r.findOne(ctx, "FindByEmail", query, strings.ToLower(strings.TrimSpace(email)))
}

func (r *pgProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT id, email, full_name, password_hash, role, created_at, updated_at FROM profiles WHERE id = $1`
	return r.findOne(ctx, "FindByID", query, id)
}

func (r *pgProfileRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var fullName, passwordHash sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&profile.ID, &profile.Email, &fullName, &passwordHash, &profile.Role, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ProfileRepository.%s: %w", op, err)
	}
	profile.FullName = fullName.String
	profile.PasswordHash = passwordHash.String
	profile.CreatedAt = profile.CreatedAt.In(time.UTC)
	profile.UpdatedAt = profile.UpdatedAt.In(time.UTC)
	return profile, nil
}
