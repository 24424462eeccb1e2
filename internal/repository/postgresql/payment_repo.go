package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type pgPaymentRepository struct {
	db *sql.DB
}

func NewPgPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &pgPaymentRepository{db: db}
}

// Create chèn thanh toán. Chỉ mục payments_completed_once đảm bảo mỗi cặp
// (session_id, user_id) có tối đa một dòng completed; vi phạm trả về ErrDuplicateEntry.
func (r *pgPaymentRepository) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	query := `INSERT INTO payments (id, session_id, user_id, amount, payment_method, status, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
	           RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		payment.ID, payment.SessionID, payment.UserID, payment.Amount, payment.PaymentMethod, payment.Status,
	).Scan(&payment.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "payments_completed_once" {
			return nil, fmt.Errorf("%w: thanh toán cho phiên '%s' đã tồn tại", repository.ErrDuplicateEntry, payment.SessionID.String)
		}
		return nil, fmt.Errorf("PaymentRepository.Create: %w", err)
	}
	payment.CreatedAt = payment.CreatedAt.In(time.UTC)
	return payment, nil
}

func (r *pgPaymentRepository) ListRecent(ctx context.Context, limit int) ([]domain.Payment, error) {
	query := `SELECT id, session_id, user_id, amount, payment_method, status, created_at
	           FROM payments ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.ListRecent: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var method sql.NullString
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.Amount, &method, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("PaymentRepository.ListRecent (scanning row): %w", err)
		}
		p.PaymentMethod = method.String
		p.CreatedAt = p.CreatedAt.In(time.UTC)
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PaymentRepository.ListRecent (rows error): %w", err)
	}
	return payments, nil
}

func (r *pgPaymentRepository) ExistsCompleted(ctx context.Context, sessionID string, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE session_id = $1 AND user_id = $2 AND status = $3)`
	if err := r.db.QueryRowContext(ctx, query, sessionID, userID, domain.PaymentCompleted).Scan(&exists); err != nil {
		return false, fmt.Errorf("PaymentRepository.ExistsCompleted: %w", err)
	}
	return exists, nil
}

// SumCompleted cộng mọi thanh toán completed, kể cả khi phiên/chỗ đỗ đã bị xóa.
func (r *pgPaymentRepository) SumCompleted(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = $1`
	if err := r.db.QueryRowContext(ctx, query, domain.PaymentCompleted).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("PaymentRepository.SumCompleted: %w", err)
	}
	return total, nil
}

func (r *pgPaymentRepository) SumCompletedSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = $1 AND created_at >= $2`
	if err := r.db.QueryRowContext(ctx, query, domain.PaymentCompleted, since.UTC()).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("PaymentRepository.SumCompletedSince: %w", err)
	}
	return total, nil
}
