package domain

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

// ActivityLog là một dòng của admin_activities hoặc user_activities (append-only).
type ActivityLog struct {
	ID           string      `json:"id"`
	ActivityType string      `json:"activity_type"`
	Action       string      `json:"action"`
	Details      string      `json:"details"`
	UserID       null.String `json:"user_id"`
	SessionID    null.String `json:"session_id"`
	SpaceID      null.String `json:"space_id"`
	CreatedAt    time.Time   `json:"created_at"`
}

const (
	ActionCheckIn         = "check_in"
	ActionCheckOut        = "check_out"
	ActionRepairOccupancy = "repair_occupancy"
	ActionDeleteSpace     = "delete_space"
	ActionCreateSpace     = "create_space"
	ActionBooking         = "booking"
)

// Các key trong details JSON được dùng để giữ thông tin chỗ đỗ sau khi xóa.
const (
	DetailSpaceNumber  = "space_number"
	DetailSpaceSection = "space_section"
	DetailSection      = "section"
	DetailMessage      = "message"
	DetailDescription  = "description"
)

type ActivityType int

const (
	ActivityParking ActivityType = iota
	ActivityBooking
	ActivityPayment
	ActivityAdmin
	ActivityUser
)

func (t ActivityType) String() string {
	switch t {
	case ActivityParking:
		return "parking"
	case ActivityBooking:
		return "booking"
	case ActivityPayment:
		return "payment"
	case ActivityAdmin:
		return "admin"
	case ActivityUser:
		return "user"
	}
	return "unknown"
}

// Icon là key icon mà frontend hiển thị.
func (t ActivityType) Icon() string {
	switch t {
	case ActivityParking:
		return "car"
	case ActivityBooking:
		return "calendar"
	case ActivityPayment:
		return "credit-card"
	case ActivityAdmin:
		return "shield"
	case ActivityUser:
		return "user"
	}
	return "info"
}

func (t ActivityType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ActivityRecord là bản ghi hiển thị, dựng lại mỗi lần refresh, không lưu DB.
type ActivityRecord struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Icon        string       `json:"icon"`
	Description string       `json:"description"`
	Time        time.Time    `json:"time"`
	Details     Details      `json:"details"`
}

// SpaceIdentity đọc số chỗ và section từ details (nhận cả "space_section" lẫn "section").
func SpaceIdentity(d Details) (number, section string, ok bool) {
	number, ok = d.NonEmpty(DetailSpaceNumber)
	if !ok {
		return "", "", false
	}
	if s, found := d.NonEmpty(DetailSpaceSection); found {
		section = s
	} else if s, found := d.NonEmpty(DetailSection); found {
		section = s
	}
	return number, section, true
}

// FormatBooking dựng bản ghi đặt chỗ từ user_activities.
func FormatBooking(l ActivityLog) ActivityRecord {
	details := ParseDetails(l.Details)
	desc := ""
	if number, section, ok := SpaceIdentity(details); ok {
		if section != "" {
			desc = fmt.Sprintf("New booking created for space %s (%s)", number, section)
		} else {
			desc = fmt.Sprintf("New booking created for space %s", number)
		}
	} else if text := strings.TrimSpace(l.Details); text != "" && !(details.IsStructured() && details.Empty()) {
		desc = text
	} else {
		desc = humanizeAction(l.Action)
	}
	return ActivityRecord{
		ID:          l.ID,
		Type:        ActivityBooking,
		Icon:        ActivityBooking.Icon(),
		Description: desc,
		Time:        l.CreatedAt.UTC(),
		Details:     details,
	}
}

// FormatAdmin dựng bản ghi thao tác admin.
func FormatAdmin(l ActivityLog) ActivityRecord {
	details := ParseDetails(l.Details)
	desc := humanizeAction(l.Action)
	if !details.IsStructured() && strings.TrimSpace(l.Details) != "" {
		desc = strings.TrimSpace(l.Details)
	} else if msg, ok := details.NonEmpty(DetailMessage); ok {
		desc = msg
	} else if msg, ok := details.NonEmpty(DetailDescription); ok {
		desc = msg
	}
	typ := ActivityAdmin
	if l.Action == ActionCheckIn || l.Action == ActionCheckOut {
		typ = ActivityParking
	}
	return ActivityRecord{
		ID:          l.ID,
		Type:        typ,
		Icon:        typ.Icon(),
		Description: desc,
		Time:        l.CreatedAt.UTC(),
		Details:     details,
	}
}

// FormatPayment dựng bản ghi thanh toán.
func FormatPayment(p Payment) ActivityRecord {
	method := p.PaymentMethod
	if method == "" {
		method = "unknown method"
	}
	desc := fmt.Sprintf("Payment of %s received via %s", p.Amount.StringFixed(2), method)
	if p.Status != PaymentCompleted {
		desc = fmt.Sprintf("Payment of %s via %s is %s", p.Amount.StringFixed(2), method, p.Status)
	}
	fields := map[string]string{
		"amount": p.Amount.StringFixed(2),
		"status": string(p.Status),
		"method": method,
	}
	if p.SessionID.Valid {
		fields["session_id"] = p.SessionID.String
	}
	return ActivityRecord{
		ID:          p.ID,
		Type:        ActivityPayment,
		Icon:        ActivityPayment.Icon(),
		Description: desc,
		Time:        p.CreatedAt.UTC(),
		Details:     Structured(fields),
	}
}

// WithPayer gắn tên người trả tiền vào bản ghi thanh toán.
func WithPayer(rec ActivityRecord, name string) ActivityRecord {
	rec.Details = rec.Details.With("user", name)
	rec.Description = fmt.Sprintf("%s from %s", rec.Description, name)
	return rec
}

func humanizeAction(action string) string {
	if action == "" {
		return "Activity"
	}
	return Capitalize(strings.ReplaceAll(action, "_", " "))
}
