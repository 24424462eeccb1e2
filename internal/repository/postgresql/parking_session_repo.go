package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"gopkg.in/guregu/null.v4"
)

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

const sessionColumns = `id, user_id, vehicle_id, space_id, start_time, end_time, status,
	total_amount, daily_rate_snapshot, days_booked, created_at, updated_at`

func scanSession(row rowScanner, session *domain.ParkingSession) error {
	err := row.Scan(
		&session.ID, &session.UserID, &session.VehicleID, &session.SpaceID, &session.StartTime,
		&session.EndTime, &session.Status, &session.TotalAmount, &session.DailyRateSnapshot,
		&session.DaysBooked, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return err
	}
	session.StartTime = session.StartTime.In(time.UTC)
	if session.EndTime.Valid {
		session.EndTime.Time = session.EndTime.Time.In(time.UTC)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions
	           (user_id, vehicle_id, space_id, start_time, end_time, status, total_amount, daily_rate_snapshot, days_booked, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`

	if session.Status == "" {
		session.Status = domain.SessionBooked
	}
	err := r.db.QueryRowContext(ctx, query,
		session.UserID, session.VehicleID, session.SpaceID, session.StartTime.UTC(), session.EndTime,
		session.Status, session.TotalAmount, session.DailyRateSnapshot, session.DaysBooked,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

func (r *pgParkingSessionRepository) FindByID(ctx context.Context, id string) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	if err := scanSession(r.db.QueryRowContext(ctx, query, id), session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindByID: %w", err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) FindBySpaceID(ctx context.Context, spaceID string) ([]domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE space_id = $1 ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindBySpaceID: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.FindBySpaceID (scanning row): %w", err)
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindBySpaceID (rows error): %w", err)
	}
	return sessions, nil
}

func (r *pgParkingSessionRepository) FindActiveBySpaceID(ctx context.Context, spaceID string) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE space_id = $1 AND status = $2
	           ORDER BY start_time DESC LIMIT 1`
	if err := scanSession(r.db.QueryRowContext(ctx, query, spaceID, domain.SessionCheckedIn), session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveSession
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindActiveBySpaceID: %w", err)
	}
	return session, nil
}

// SetStatus gọi admin_set_session_status; hàm trả về FALSE khi không có phiên nào khớp.
func (r *pgParkingSessionRepository) SetStatus(ctx context.Context, id string, status domain.SessionStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("ParkingSessionRepository.SetStatus: trạng thái không hợp lệ '%s'", status)
	}
	var updated bool
	err := r.db.QueryRowContext(ctx, `SELECT admin_set_session_status($1, $2)`, id, string(status)).Scan(&updated)
	if err != nil {
		return false, fmt.Errorf("ParkingSessionRepository.SetStatus: %w", err)
	}
	return updated, nil
}

// SetTimestamps gọi admin_set_session_times; tham số nil giữ nguyên giá trị cũ.
func (r *pgParkingSessionRepository) SetTimestamps(ctx context.Context, id string, start *time.Time, end *time.Time) (bool, error) {
	var updated bool
	err := r.db.QueryRowContext(ctx, `SELECT admin_set_session_times($1, $2, $3)`,
		id, utcOrNull(start), utcOrNull(end)).Scan(&updated)
	if err != nil {
		return false, fmt.Errorf("ParkingSessionRepository.SetTimestamps: %w", err)
	}
	return updated, nil
}

func (r *pgParkingSessionRepository) DetachSpace(ctx context.Context, sessionIDs []string) (int64, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`UPDATE parking_sessions SET space_id = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE id IN (%s)`, placeholders(1, len(sessionIDs)))
	args := make([]interface{}, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ParkingSessionRepository.DetachSpace: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ParkingSessionRepository.DetachSpace (checking rows affected): %w", err)
	}
	return rowsAffected, nil
}

func utcOrNull(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}
