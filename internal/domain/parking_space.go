package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type ParkingSpace struct {
	ID            string          `json:"id"`
	SpaceNumber   string          `json:"space_number"`
	Section       string          `json:"section"`
	Address       string          `json:"address,omitempty"`
	Category      string          `json:"category,omitempty"`
	DailyRate     decimal.Decimal `json:"daily_rate"`
	IsOccupied    bool            `json:"is_occupied"`
	OccupiedSince null.Time       `json:"occupied_since"`
	VehicleID     null.String     `json:"vehicle_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Label trả về "A-12 (Tầng 1)" hoặc chỉ số chỗ nếu không có section.
func (s ParkingSpace) Label() string {
	if s.Section == "" {
		return s.SpaceNumber
	}
	return s.SpaceNumber + " (" + s.Section + ")"
}

type ParkingSpaceDTO struct {
	SpaceNumber string          `json:"space_number" binding:"required"`
	Section     string          `json:"section"`
	Address     string          `json:"address"`
	Category    string          `json:"category"`
	DailyRate   decimal.Decimal `json:"daily_rate"`
}
