package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventCheckoutCompleted is the only Stripe event type acted upon.
const EventCheckoutCompleted = "checkout.session.completed"

// StripeConfig holds the Stripe credentials and redirect targets.
type StripeConfig struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Stripe creates Stripe checkout sessions.
type Stripe struct {
	api *client.API
	cfg StripeConfig
}

func NewStripe(cfg StripeConfig) *Stripe {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	var api *client.API
	if cfg.SecretKey != "" {
		api = &client.API{}
		api.Init(cfg.SecretKey, nil)
	}
	return &Stripe{api: api, cfg: cfg}
}

// CreateCheckout opens a payment-mode session carrying the appointment and
// payment ids as metadata for the webhook.
func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(req.TransactionID),
		SuccessURL:         stripe.String(s.cfg.SuccessURL),
		CancelURL:          stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(toMinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("appointmentId", req.AppointmentID)
	params.AddMetadata("paymentId", req.PaymentID)

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &Checkout{SessionID: session.ID, URL: session.URL}, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CheckoutCompleted is the part of a checkout.session.completed event the
// system acts on.
type CheckoutCompleted struct {
	SessionID     string
	AppointmentID string
	PaymentID     string
	Paid          bool
	Raw           json.RawMessage
}

// WebhookEvent is a verified Stripe event. Checkout is set only for
// checkout.session.completed.
type WebhookEvent struct {
	ID       string
	Type     string
	Checkout *CheckoutCompleted
}

// ParseWebhook verifies the Stripe-Signature header against secret and
// decodes the event. Any error means the payload must not be trusted.
func ParseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	if secret == "" {
		return nil, ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted || event.Data == nil {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.Checkout = &CheckoutCompleted{
		SessionID:     session.ID,
		AppointmentID: session.Metadata["appointmentId"],
		PaymentID:     session.Metadata["paymentId"],
		Paid:          session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Raw:           event.Data.Raw,
	}
	return out, nil
}
