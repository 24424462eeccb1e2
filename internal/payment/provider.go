package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/config"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("số tiền phải lớn hơn 0")

// CheckoutRequest là yêu cầu tạo trang thanh toán; Amount tính theo đơn vị tiền chính (peso, đồng...).
type CheckoutRequest struct {
	Amount             decimal.Decimal   `json:"amount" binding:"required"`
	Description        string            `json:"description"`
	Email              string            `json:"email,omitempty"`
	Metadata           map[string]string `json:"metadata"`
	PaymentMethodTypes []string          `json:"payment_method_types,omitempty"`
	SuccessURL         string            `json:"success_url,omitempty"`
	CancelURL          string            `json:"cancel_url,omitempty"`
}

// CheckoutProvider tạo phiên thanh toán ở cổng thanh toán và trả về URL cho người dùng.
type CheckoutProvider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest, amountMinor int64) (string, error)
}

// ToMinorUnits đổi sang đơn vị nhỏ nhất (x100), làm tròn nửa lên.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits là phép ngược của ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// NewProvider chọn provider theo PAYMENT_PROVIDER.
func NewProvider(cfg *config.Config) (CheckoutProvider, error) {
	switch cfg.PaymentProvider {
	case "paymongo", "":
		return NewPayMongoProvider(cfg.PaymentAPIBaseURL, cfg.PaymentSecretKey, cfg.PaymentCurrency, nil), nil
	case "stripe":
		return NewStripeProvider(cfg.PaymentSecretKey, cfg.PaymentCurrency), nil
	}
	return nil, fmt.Errorf("payment provider '%s' không được hỗ trợ", cfg.PaymentProvider)
}
