package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

func TestFormatBooking(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("PHT", 8*3600))
	tests := []struct {
		name    string
		details string
		action  string
		want    string
	}{
		{"space with section", `{"space_number":"A-1","space_section":"North"}`, "booking", "New booking created for space A-1 (North)"},
		{"space without section", `{"space_number":"A-1"}`, "booking", "New booking created for space A-1"},
		{"freeform text", "Reserved by phone", "booking", "Reserved by phone"},
		{"structured without space falls back to raw details", `{"description":"Booked via app"}`, "booking", `{"description":"Booked via app"}`},
		{"empty object falls back to action", `{}`, "new_booking", "New booking"},
		{"empty details falls back to action", "  ", "new_booking", "New booking"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := FormatBooking(ActivityLog{ID: "b1", Action: tt.action, Details: tt.details, CreatedAt: at})
			if rec.Description != tt.want {
				t.Errorf("Description = %q, want %q", rec.Description, tt.want)
			}
			if rec.Type != ActivityBooking || rec.Icon != "calendar" {
				t.Errorf("Type/Icon = %v/%s", rec.Type, rec.Icon)
			}
			if rec.Time.Location() != time.UTC || !rec.Time.Equal(at) {
				t.Errorf("Time = %v, want %v in UTC", rec.Time, at)
			}
		})
	}
}

func TestFormatAdmin(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		details  string
		wantDesc string
		wantType ActivityType
	}{
		{"message key", ActionCheckIn, `{"message":"Sedan checked in to A-1","space_number":"A-1"}`, "Sedan checked in to A-1", ActivityParking},
		{"freeform", ActionRepairOccupancy, "Fixed space A-1", "Fixed space A-1", ActivityAdmin},
		{"humanized action", ActionDeleteSpace, `{"space_number":"A-1"}`, "Delete space", ActivityAdmin},
		{"check out is parking", ActionCheckOut, "", "Check out", ActivityParking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := FormatAdmin(ActivityLog{ID: "a1", Action: tt.action, Details: tt.details})
			if rec.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", rec.Description, tt.wantDesc)
			}
			if rec.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", rec.Type, tt.wantType)
			}
		})
	}
}

func TestFormatPayment(t *testing.T) {
	rec := FormatPayment(Payment{
		ID:            "p1",
		SessionID:     null.StringFrom("s1"),
		Amount:        decimal.RequireFromString("150.5"),
		PaymentMethod: "gcash",
		Status:        PaymentCompleted,
	})
	if rec.Description != "Payment of 150.50 received via gcash" {
		t.Errorf("Description = %q", rec.Description)
	}
	if v, _ := rec.Details.Get("session_id"); v != "s1" {
		t.Errorf("session_id detail = %q", v)
	}

	pending := FormatPayment(Payment{ID: "p2", Amount: decimal.NewFromInt(20), Status: PaymentPending})
	if pending.Description != "Payment of 20.00 via unknown method is pending" {
		t.Errorf("Description = %q", pending.Description)
	}
}

func TestComputeSpaceStats(t *testing.T) {
	prev := DashboardStats{DailyRevenue: decimal.NewFromInt(10), TotalRevenue: decimal.NewFromInt(99)}
	stats := ComputeSpaceStats([]ParkingSpace{{IsOccupied: true}, {}, {}}, prev)
	if stats.TotalSpaces != 3 || stats.OccupiedSpaces != 1 || stats.AvailableSpaces != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.TotalRevenue.Equal(prev.TotalRevenue) || !stats.DailyRevenue.Equal(prev.DailyRevenue) {
		t.Error("revenue must be carried over")
	}
}
