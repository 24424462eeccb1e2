package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type SessionStatus string

const (
	SessionBooked    SessionStatus = "booked"
	SessionCheckedIn SessionStatus = "checked_in"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionBooked, SessionCheckedIn, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

type ParkingSession struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	VehicleID         null.String     `json:"vehicle_id"`
	SpaceID           null.String     `json:"space_id"` // NULL sau khi chỗ đỗ bị xóa, lịch sử vẫn giữ
	StartTime         time.Time       `json:"start_time"`
	EndTime           null.Time       `json:"end_time"`
	Status            SessionStatus   `json:"status"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	DailyRateSnapshot decimal.Decimal `json:"daily_rate_snapshot"`
	DaysBooked        int             `json:"days_booked"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
