package domain

import "encoding/json"

const (
	TableParkingSpaces   = "parking_spaces"
	TableParkingSessions = "parking_sessions"
	TablePayments        = "payments"
	TableAdminActivities = "admin_activities"
	TableUserActivities  = "user_activities"
)

// WatchedTables là các bảng mà dashboard theo dõi realtime.
var WatchedTables = []string{
	TableParkingSpaces,
	TableParkingSessions,
	TablePayments,
	TableAdminActivities,
	TableUserActivities,
}

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent là một thông báo thay đổi dòng từ DB (pg_notify).
type ChangeEvent struct {
	Table string          `json:"table"`
	Type  ChangeType      `json:"type"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}
