package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PayMongoProvider chuyển tiếp yêu cầu tới REST API checkout_sessions.
type PayMongoProvider struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
}

func NewPayMongoProvider(baseURL, secretKey, currency string, httpClient *http.Client) *PayMongoProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if currency == "" {
		currency = "PHP"
	}
	return &PayMongoProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		currency:   currency,
		httpClient: httpClient,
	}
}

func (p *PayMongoProvider) Name() string { return "paymongo" }

type payMongoLineItem struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type payMongoCheckoutAttributes struct {
	LineItems          []payMongoLineItem `json:"line_items"`
	PaymentMethodTypes []string           `json:"payment_method_types"`
	Description        string             `json:"description,omitempty"`
	SuccessURL         string             `json:"success_url,omitempty"`
	CancelURL          string             `json:"cancel_url,omitempty"`
	Metadata           map[string]string  `json:"metadata,omitempty"`
	Billing            *payMongoBilling   `json:"billing,omitempty"`
	SendEmailReceipt   bool               `json:"send_email_receipt"`
}

type payMongoBilling struct {
	Email string `json:"email"`
}

func (p *PayMongoProvider) CreateCheckout(ctx context.Context, req CheckoutRequest, amountMinor int64) (string, error) {
	methods := req.PaymentMethodTypes
	if len(methods) == 0 {
		methods = []string{"card", "gcash", "paymaya"}
	}
	name := req.Description
	if name == "" {
		name = "Parking fee"
	}
	attrs := payMongoCheckoutAttributes{
		LineItems:          []payMongoLineItem{{Amount: amountMinor, Currency: p.currency, Name: name, Quantity: 1}},
		PaymentMethodTypes: methods,
		Description:        req.Description,
		SuccessURL:         req.SuccessURL,
		CancelURL:          req.CancelURL,
		Metadata:           req.Metadata,
	}
	if req.Email != "" {
		attrs.Billing = &payMongoBilling{Email: req.Email}
		attrs.SendEmailReceipt = true
	}
	body, err := json.Marshal(map[string]any{"data": map[string]any{"attributes": attrs}})
	if err != nil {
		return "", fmt.Errorf("PayMongoProvider.CreateCheckout (marshal): %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/checkout_sessions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("PayMongoProvider.CreateCheckout: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(p.secretKey, "")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("PayMongoProvider.CreateCheckout: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("PayMongoProvider.CreateCheckout (read body): %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("PayMongoProvider.CreateCheckout: provider trả về %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out struct {
		Data struct {
			Attributes struct {
				CheckoutURL string `json:"checkout_url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("PayMongoProvider.CreateCheckout (decode): %w", err)
	}
	if out.Data.Attributes.CheckoutURL == "" {
		return "", fmt.Errorf("PayMongoProvider.CreateCheckout: phản hồi không có checkout_url")
	}
	return out.Data.Attributes.CheckoutURL, nil
}
