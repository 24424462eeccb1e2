package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
)

var ErrMalformedScan = errors.New("message quét không hợp lệ")

const (
	ScanActionCheckIn  = "check_in"
	ScanActionCheckOut = "check_out"
)

// ScanMessage là message từ máy quét ở cổng gửi qua SQS.
type ScanMessage struct {
	Action  string          `json:"action"`
	SpaceID string          `json:"space_id"`
	Payload json.RawMessage `json:"payload"`
}

// PayloadText trả về nội dung QR: chuỗi JSON được bỏ ngoặc, object giữ nguyên dạng text.
func (m ScanMessage) PayloadText() string {
	if len(m.Payload) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(m.Payload, &text); err == nil {
		return text
	}
	return string(m.Payload)
}

// ScanService chuyển message quét tới Reconciler.
type ScanService struct {
	reconciler *Reconciler
}

func NewScanService(reconciler *Reconciler) *ScanService {
	return &ScanService{reconciler: reconciler}
}

// HandleScanMessage trả về ErrMalformedScan với message không thể xử lý (không nên gửi lại);
// các lỗi khác là lỗi tạm thời.
func (s *ScanService) HandleScanMessage(ctx context.Context, body string) error {
	var msg ScanMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedScan, err)
	}
	action := strings.ToLower(strings.TrimSpace(msg.Action))
	log.Printf("ScanService: Nhận lệnh '%s' cho chỗ đỗ '%s'", action, msg.SpaceID)

	var (
		result *ScanResult
		err    error
	)
	switch action {
	case ScanActionCheckIn:
		result, err = s.reconciler.CheckIn(ctx, msg.SpaceID, msg.PayloadText())
	case ScanActionCheckOut:
		result, err = s.reconciler.CheckOut(ctx, msg.SpaceID, msg.PayloadText())
	default:
		return fmt.Errorf("%w: action '%s' không được hỗ trợ", ErrMalformedScan, msg.Action)
	}
	if err != nil {
		if errors.Is(err, ErrSpaceRequired) || errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrMalformedScan, err)
		}
		return err
	}
	log.Printf("ScanService: %s", result.Message)
	return nil
}
