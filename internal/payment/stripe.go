package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
)

// StripeProvider tạo Stripe Checkout Session.
type StripeProvider struct {
	client   session.Client
	currency string
}

func NewStripeProvider(secretKey, currency string) *StripeProvider {
	if currency == "" {
		currency = "php"
	}
	return &StripeProvider{
		client:   session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		currency: strings.ToLower(currency),
	}
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest, amountMinor int64) (string, error) {
	methods := req.PaymentMethodTypes
	if len(methods) == 0 {
		methods = []string{"card"}
	}
	name := req.Description
	if name == "" {
		name = "Parking fee"
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice(methods),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
					UnitAmount: stripe.Int64(amountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.SuccessURL != "" {
		params.SuccessURL = stripe.String(req.SuccessURL)
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := p.client.New(params)
	if err != nil {
		return "", fmt.Errorf("StripeProvider.CreateCheckout: %w", err)
	}
	return s.URL, nil
}
