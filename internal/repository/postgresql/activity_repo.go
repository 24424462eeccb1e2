package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/google/uuid"
)

// pgActivityRepository ghi/đọc một bảng log hoạt động (admin_activities hoặc user_activities).
// Hai bảng có cùng cấu trúc cột.
type pgActivityRepository struct {
	db    *sql.DB
	table string
	name  string
}

func NewPgAdminActivityRepository(db *sql.DB) repository.ActivityRepository {
	return &pgActivityRepository{db: db, table: domain.TableAdminActivities, name: "AdminActivityRepository"}
}

func NewPgUserActivityRepository(db *sql.DB) repository.ActivityRepository {
	return &pgActivityRepository{db: db, table: domain.TableUserActivities, name: "UserActivityRepository"}
}

const activityColumns = `id, activity_type, action, details, user_id, session_id, space_id, created_at`

func (r *pgActivityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, activity_type, action, details, user_id, session_id, space_id, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP) RETURNING created_at`, r.table)
	err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		sql.NullString{String: entry.ActivityType, Valid: entry.ActivityType != ""},
		entry.Action,
		sql.NullString{String: entry.Details, Valid: entry.Details != ""},
		entry.UserID, entry.SessionID, entry.SpaceID,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s.Create: %w", r.name, err)
	}
	entry.CreatedAt = entry.CreatedAt.In(time.UTC)
	return nil
}

func (r *pgActivityRepository) ListRecent(ctx context.Context, activityType string, limit int) ([]domain.ActivityLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, activityColumns, r.table)
	var args []interface{}
	if activityType != "" {
		query += ` WHERE activity_type = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, activityType, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}
	return r.query(ctx, "ListRecent", query, args...)
}

// FindBySpaceOrSessions trả về các dòng trỏ tới chỗ đỗ trực tiếp hoặc qua một trong các phiên.
func (r *pgActivityRepository) FindBySpaceOrSessions(ctx context.Context, spaceID string, sessionIDs []string) ([]domain.ActivityLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE space_id = $1`, activityColumns, r.table)
	args := []interface{}{spaceID}
	if len(sessionIDs) > 0 {
		query += fmt.Sprintf(` OR session_id IN (%s)`, placeholders(2, len(sessionIDs)))
		for _, id := range sessionIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY created_at DESC`
	return r.query(ctx, "FindBySpaceOrSessions", query, args...)
}

func (r *pgActivityRepository) UpdateDetails(ctx context.Context, id string, details string) error {
	query := fmt.Sprintf(`UPDATE %s SET details = $1 WHERE id = $2`, r.table)
	result, err := r.db.ExecContext(ctx, query, details, id)
	if err != nil {
		return fmt.Errorf("%s.UpdateDetails: %w", r.name, err)
	}
	return expectOneRow(result, r.name+".UpdateDetails")
}

func (r *pgActivityRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]domain.ActivityLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", r.name, op, err)
	}
	defer rows.Close()

	var logs []domain.ActivityLog
	for rows.Next() {
		var l domain.ActivityLog
		var activityType, details sql.NullString
		if err := rows.Scan(&l.ID, &activityType, &l.Action, &details, &l.UserID, &l.SessionID, &l.SpaceID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s.%s (scanning row): %w", r.name, op, err)
		}
		l.ActivityType = activityType.String
		l.Details = details.String
		l.CreatedAt = l.CreatedAt.In(time.UTC)
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s.%s (rows error): %w", r.name, op, err)
	}
	return logs, nil
}
