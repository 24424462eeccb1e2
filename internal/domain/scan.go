package domain

import (
	"encoding/json"
	"strings"
)

// ScanPayload là nội dung mã QR quét được ở cổng.
type ScanPayload struct {
	SessionID string
	VehicleID string
	SpaceID   string
	Raw       string
}

var sessionIDKeys = []string{"sid", "sessionId", "id", "session_id"}

// ParseScanPayload thử đọc JSON; nếu không được thì coi cả chuỗi là session id.
func ParseScanPayload(text string) ScanPayload {
	trimmed := strings.TrimSpace(text)
	payload := ScanPayload{Raw: text}
	if trimmed == "" {
		return payload
	}

	var obj map[string]json.RawMessage
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &obj) == nil && obj != nil {
		for _, key := range sessionIDKeys {
			if v := strings.TrimSpace(stringify(obj[key])); v != "" {
				payload.SessionID = v
				break
			}
		}
		payload.VehicleID = strings.TrimSpace(stringify(obj["vehicle_id"]))
		payload.SpaceID = strings.TrimSpace(stringify(obj["space_id"]))
		return payload
	}

	payload.SessionID = trimmed
	return payload
}
