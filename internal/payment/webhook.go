package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SignatureHeader = "Paymongo-Signature"
	EventPaid       = "checkout_session.payment.paid"
)

var ErrMissingSignature = errors.New("thiếu chữ ký webhook")
var ErrInvalidSignature = errors.New("chữ ký webhook không hợp lệ")
var ErrInvalidEvent = errors.New("payload webhook không hợp lệ")

// Sign tính chữ ký hex HMAC-SHA256 của body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeaderValue dựng header "t=<ts>,v1=<hex>".
func SignatureHeaderValue(secret string, timestamp int64, body []byte) string {
	return "t=" + strconv.FormatInt(timestamp, 10) + ",v1=" + Sign(secret, body)
}

// VerifySignature kiểm tra header "t=<ts>,v1=<hex>" với HMAC-SHA256 trên raw body.
func VerifySignature(secret, header string, body []byte) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		if key == "v1" && value != "" {
			candidates = append(candidates, value)
		}
	}
	if len(candidates) == 0 {
		return ErrMissingSignature
	}
	expected := []byte(Sign(secret, body))
	for _, candidate := range candidates {
		if hmac.Equal(expected, []byte(strings.ToLower(candidate))) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// WebhookEvent là phần của sự kiện webhook mà proxy cần.
type WebhookEvent struct {
	Type          string
	SessionID     string
	UserID        string
	Amount        decimal.Decimal
	PaymentMethod string
}

type checkoutAttributes struct {
	Metadata  map[string]any `json:"metadata"`
	LineItems []struct {
		Amount   int64 `json:"amount"`
		Quantity int64 `json:"quantity"`
	} `json:"line_items"`
	Payments []struct {
		Attributes struct {
			Amount int64 `json:"amount"`
			Source struct {
				Type string `json:"type"`
			} `json:"source"`
		} `json:"attributes"`
	} `json:"payments"`
	PaymentMethodUsed string `json:"payment_method_used"`
}

// ParseWebhookEvent đọc cả dạng lồng của PayMongo
// ({"data":{"attributes":{"type":..., "data":{"attributes":{...}}}}})
// lẫn dạng phẳng ({"type":..., "data":{"metadata":..., "amount":...}}).
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var envelope struct {
		Type string `json:"type"`
		Data struct {
			Attributes struct {
				Type string `json:"type"`
				Data struct {
					Attributes checkoutAttributes `json:"attributes"`
				} `json:"data"`
			} `json:"attributes"`
			Metadata      map[string]any `json:"metadata"`
			Amount        int64          `json:"amount"`
			PaymentMethod string         `json:"payment_method"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return WebhookEvent{}, ErrInvalidEvent
	}

	event := WebhookEvent{Type: envelope.Data.Attributes.Type}
	if event.Type == "" {
		event.Type = envelope.Type
		event.SessionID = metaString(envelope.Data.Metadata, "session_id")
		event.UserID = metaString(envelope.Data.Metadata, "user_id")
		event.Amount = FromMinorUnits(envelope.Data.Amount)
		event.PaymentMethod = envelope.Data.PaymentMethod
		if envelope.Data.Amount == 0 {
			event.Amount = metaAmount(envelope.Data.Metadata)
		}
	} else {
		attrs := envelope.Data.Attributes.Data.Attributes
		event.SessionID = metaString(attrs.Metadata, "session_id")
		event.UserID = metaString(attrs.Metadata, "user_id")
		event.PaymentMethod = attrs.PaymentMethodUsed
		var minor int64
		for _, p := range attrs.Payments {
			minor += p.Attributes.Amount
			if event.PaymentMethod == "" {
				event.PaymentMethod = p.Attributes.Source.Type
			}
		}
		if minor == 0 {
			for _, li := range attrs.LineItems {
				qty := li.Quantity
				if qty == 0 {
					qty = 1
				}
				minor += li.Amount * qty
			}
		}
		event.Amount = FromMinorUnits(minor)
		if minor == 0 {
			event.Amount = metaAmount(attrs.Metadata)
		}
	}
	if event.Type == "" {
		return WebhookEvent{}, ErrInvalidEvent
	}
	return event, nil
}

func metaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// metaAmount đọc metadata.amount (đơn vị tiền chính) khi payload không có số tiền.
func metaAmount(meta map[string]any) decimal.Decimal {
	raw := metaString(meta, "amount")
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
