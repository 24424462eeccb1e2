package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
)

type pgParkingSpaceRepository struct {
	db *sql.DB
}

func NewPgParkingSpaceRepository(db *sql.DB) repository.ParkingSpaceRepository {
	return &pgParkingSpaceRepository{db: db}
}

const spaceColumns = `id, space_number, section, address, category, daily_rate,
	is_occupied, occupied_since, vehicle_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(row rowScanner, space *domain.ParkingSpace) error {
	var section, address, category sql.NullString
	err := row.Scan(
		&space.ID, &space.SpaceNumber, &section, &address, &category, &space.DailyRate,
		&space.IsOccupied, &space.OccupiedSince, &space.VehicleID, &space.CreatedAt, &space.UpdatedAt,
	)
	if err != nil {
		return err
	}
	space.Section = section.String
	space.Address = address.String
	space.Category = category.String
	if space.OccupiedSince.Valid {
		space.OccupiedSince.Time = space.OccupiedSince.Time.In(time.UTC)
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingSpaceRepository) Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	query := `INSERT INTO parking_spaces (space_number, section, address, category, daily_rate, is_occupied, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, FALSE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		space.SpaceNumber,
		sql.NullString{String: space.Section, Valid: space.Section != ""},
		sql.NullString{String: space.Address, Valid: space.Address != ""},
		sql.NullString{String: space.Category, Valid: space.Category != ""},
		space.DailyRate,
	).Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "parking_spaces_space_number_key" {
			return nil, fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, space.SpaceNumber)
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.Create: %w", err)
	}
	space.IsOccupied = false
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByID(ctx context.Context, id string) (*domain.ParkingSpace, error) {
	space := &domain.ParkingSpace{}
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE id = $1`
	if err := scanSpace(r.db.QueryRowContext(ctx, query, id), space); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.FindByID: %w", err)
	}
	return space, nil
}

func (r *pgParkingSpaceRepository) FindAll(ctx context.Context) ([]domain.ParkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces ORDER BY space_number`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var spaces []domain.ParkingSpace
	for rows.Next() {
		var space domain.ParkingSpace
		if err := scanSpace(rows, &space); err != nil {
			return nil, fmt.Errorf("ParkingSpaceRepository.FindAll (scanning row): %w", err)
		}
		spaces = append(spaces, space)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.FindAll (rows error): %w", err)
	}
	return spaces, nil
}

func (r *pgParkingSpaceRepository) SetOccupied(ctx context.Context, id string, vehicleID string, since time.Time) error {
	query := `UPDATE parking_spaces
	           SET is_occupied = TRUE, occupied_since = $1, vehicle_id = $2, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query,
		since.UTC(), sql.NullString{String: vehicleID, Valid: vehicleID != ""}, id)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.SetOccupied: %w", err)
	}
	return expectOneRow(result, "ParkingSpaceRepository.SetOccupied")
}

func (r *pgParkingSpaceRepository) ClearOccupancy(ctx context.Context, id string) error {
	query := `UPDATE parking_spaces
	           SET is_occupied = FALSE, occupied_since = NULL, vehicle_id = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.ClearOccupancy: %w", err)
	}
	return expectOneRow(result, "ParkingSpaceRepository.ClearOccupancy")
}

func (r *pgParkingSpaceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parking_spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Delete: %w", err)
	}
	return expectOneRow(result, "ParkingSpaceRepository.Delete")
}

func expectOneRow(result sql.Result, op string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s (checking rows affected): %w", op, err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
