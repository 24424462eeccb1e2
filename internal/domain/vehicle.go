package domain

import (
	"strings"
	"time"
)

type Vehicle struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Plate       string    `json:"plate"`
	Make        string    `json:"make,omitempty"`
	Model       string    `json:"model,omitempty"`
	VehicleType string    `json:"vehicle_type,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Kind là tên loại xe dùng trong log, ví dụ "Sedan". Mặc định "Vehicle".
func (v *Vehicle) Kind() string {
	if v == nil {
		return "Vehicle"
	}
	kind := strings.TrimSpace(v.VehicleType)
	if kind == "" {
		kind = strings.TrimSpace(v.Make + " " + v.Model)
	}
	if kind == "" {
		return "Vehicle"
	}
	return Capitalize(kind)
}

// Capitalize viết hoa ký tự đầu tiên.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
