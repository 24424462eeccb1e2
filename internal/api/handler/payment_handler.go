package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/payment"
	"github.com/gin-gonic/gin"
)

type PaymentProcessor interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (string, error)
	HandleWebhook(ctx context.Context, signature string, body []byte) (payment.WebhookOutcome, error)
}

type PaymentHandler struct {
	payments PaymentProcessor
}

func NewPaymentHandler(p PaymentProcessor) *PaymentHandler {
	return &PaymentHandler{payments: p}
}

// POST /checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req payment.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url, err := h.payments.CreateCheckout(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Không thể tạo phiên thanh toán", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout_url": url})
}

// POST /webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không đọc được body"})
		return
	}

	outcome, err := h.payments.HandleWebhook(c.Request.Context(), c.GetHeader(payment.SignatureHeader), body)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrMissingSignature), errors.Is(err, payment.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, payment.ErrInvalidEvent), errors.Is(err, payment.ErrMissingMetadata):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi xử lý webhook", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
