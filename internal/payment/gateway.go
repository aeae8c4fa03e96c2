// Package payment talks to the external payment providers: Stripe checkout
// sessions and webhooks, and the SSLCommerz hosted payment page.
package payment

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a gateway has no credentials.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// CheckoutRequest describes a single appointment payment.
type CheckoutRequest struct {
	AppointmentID string
	PaymentID     string
	TransactionID string
	Amount        float64
	Description   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	CustomerAddr  string
}

// Checkout is the hosted page the customer is redirected to.
type Checkout struct {
	SessionID string
	URL       string
}

// Gateway creates hosted checkout sessions.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}
