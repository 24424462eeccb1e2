package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"gopkg.in/guregu/null.v4"
)

var ErrMissingMetadata = errors.New("webhook thiếu metadata.session_id hoặc metadata.user_id")

type WebhookOutcome string

const (
	OutcomeRecorded  WebhookOutcome = "recorded"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
)

type Service struct {
	provider      CheckoutProvider
	payments      repository.PaymentRepository
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewService(provider CheckoutProvider, payments repository.PaymentRepository, webhookSecret, successURL, cancelURL string) *Service {
	return &Service{
		provider:      provider,
		payments:      payments,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	minor := ToMinorUnits(req.Amount)
	if minor <= 0 {
		return "", ErrInvalidAmount
	}
	if req.SuccessURL == "" {
		req.SuccessURL = s.successURL
	}
	if req.CancelURL == "" {
		req.CancelURL = s.cancelURL
	}
	url, err := s.provider.CreateCheckout(ctx, req, minor)
	if err != nil {
		return "", err
	}
	log.Printf("PaymentService: Đã tạo checkout %s qua %s (%d đơn vị nhỏ)", url, s.provider.Name(), minor)
	return url, nil
}

// HandleWebhook xác thực chữ ký và ghi thanh toán completed đúng một lần cho mỗi (session_id, user_id).
func (s *Service) HandleWebhook(ctx context.Context, signature string, body []byte) (WebhookOutcome, error) {
	if err := VerifySignature(s.webhookSecret, signature, body); err != nil {
		return "", err
	}
	event, err := ParseWebhookEvent(body)
	if err != nil {
		return "", err
	}
	if event.Type != EventPaid {
		log.Printf("PaymentService: Bỏ qua sự kiện webhook '%s'", event.Type)
		return OutcomeIgnored, nil
	}
	if event.SessionID == "" || event.UserID == "" {
		return "", ErrMissingMetadata
	}

	exists, err := s.payments.ExistsCompleted(ctx, event.SessionID, event.UserID)
	if err != nil {
		return "", fmt.Errorf("PaymentService.HandleWebhook: %w", err)
	}
	if exists {
		log.Printf("PaymentService: Thanh toán cho phiên %s đã được ghi trước đó", event.SessionID)
		return OutcomeDuplicate, nil
	}

	method := event.PaymentMethod
	if method == "" {
		method = s.provider.Name()
	}
	_, err = s.payments.Create(ctx, &domain.Payment{
		SessionID:     null.StringFrom(event.SessionID),
		UserID:        event.UserID,
		Amount:        event.Amount,
		PaymentMethod: method,
		Status:        domain.PaymentCompleted,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return OutcomeDuplicate, nil
		}
		return "", fmt.Errorf("PaymentService.HandleWebhook: %w", err)
	}
	log.Printf("PaymentService: Đã ghi thanh toán %s cho phiên %s", event.Amount.StringFixed(2), event.SessionID)
	return OutcomeRecorded, nil
}
