package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"fotolio/internal/config"
)

type CheckoutInput struct {
	Description string
	AmountMinor int64
	Currency    string
	Meta        SessionMeta
	ExpiresAt   int64 // unix seconds; zero for gateway default
}

// Client opens checkout sessions with the external card gateway.
type Client interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutInput) (sessionID string, checkoutURL string, err error)
	VerifyWebhook(payload []byte, signatureHeader string) (Event, error)
}

type stripeClient struct {
	api *client.API
	cfg config.StripeConfig
}

func NewStripeClient(cfg config.StripeConfig) (Client, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("missing stripe secret key")
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &stripeClient{api: api, cfg: cfg}, nil
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (string, string, error) {
	if input.AmountMinor <= 0 {
		return "", "", fmt.Errorf("checkout amount must be positive, got %d", input.AmountMinor)
	}

	metadata := input.Meta.Encode()
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(input.Currency),
				UnitAmount: stripe.Int64(input.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(input.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
		// Mirror metadata onto the payment intent so failed/canceled
		// events carry the transaction reference too.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if input.ExpiresAt > 0 {
		params.ExpiresAt = stripe.Int64(input.ExpiresAt)
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.ID, session.URL, nil
}

func (c *stripeClient) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, c.cfg.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	return DecodeStripeEvent(event)
}
