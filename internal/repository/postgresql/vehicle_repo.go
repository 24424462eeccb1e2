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

type pgVehicleRepository struct {
	db *sql.DB
}

func NewPgVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &pgVehicleRepository{db: db}
}

const vehicleColumns = `id, owner_id, plate, make, model, vehicle_type, color, created_at`

func scanVehicle(row rowScanner, v *domain.Vehicle) error {
	var vmake, model, vehicleType, color sql.NullString
	if err := row.Scan(&v.ID, &v.OwnerID, &v.Plate, &vmake, &model, &vehicleType, &color, &v.CreatedAt); err != nil {
		return err
	}
	v.Make = vmake.String
	v.Model = model.String
	v.VehicleType = vehicleType.String
	v.Color = color.String
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	return nil
}

func (r *pgVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `INSERT INTO vehicles (owner_id, plate, make, model, vehicle_type, color, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`
	vehicle.Plate = strings.ToUpper(strings.TrimSpace(vehicle.Plate))
	err := r.db.QueryRowContext(ctx, query,
		vehicle.OwnerID, vehicle.Plate, vehicle.Make, vehicle.Model, vehicle.VehicleType, vehicle.Color,
	).Scan(&vehicle.ID, &vehicle.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "vehicles_plate_key" {
			return nil, fmt.Errorf("%w: biển số '%s' đã tồn tại", repository.ErrDuplicateEntry, vehicle.Plate)
		}
		return nil, fmt.Errorf("VehicleRepository.Create: %w", err)
	}
	vehicle.CreatedAt = vehicle.CreatedAt.In(time.UTC)
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	if err := scanVehicle(r.db.QueryRowContext(ctx, query, id), vehicle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.FindByID: %w", err)
	}
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByOwner(ctx context.Context, ownerID string) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByOwner: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, fmt.Errorf("VehicleRepository.FindByOwner (scanning row): %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByOwner (rows error): %w", err)
	}
	return vehicles, nil
}
