package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medicare-server/internal/apperror"
	"medicare-server/internal/payment"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

const maxWebhookBody = 1 << 16

// PaymentHandler receives gateway callbacks and starts hosted checkouts.
type PaymentHandler struct {
	payments      *services.PaymentService
	webhookSecret string
	log           zerolog.Logger
}

func NewPaymentHandler(payments *services.PaymentService, webhookSecret string, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, webhookSecret: webhookSecret, log: log}
}

// Webhook verifies and applies a Stripe event. Unverified payloads are
// rejected with 400; event types other than a completed checkout are
// acknowledged and ignored.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.Abort(c, apperror.Wrap(http.StatusBadRequest, "Unable to read webhook body", err))
		return
	}

	evt, err := payment.ParseWebhook(body, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			h.log.Error().Msg("webhook received but WEBHOOK_SECRET is not set")
		}
		utils.Abort(c, apperror.Wrap(http.StatusBadRequest, "Webhook signature verification failed", err))
		return
	}

	if evt.Checkout == nil {
		h.log.Debug().Str("type", evt.Type).Str("id", evt.ID).Msg("webhook event ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.payments.HandleCheckoutCompleted(c.Request.Context(), evt.Checkout); err != nil {
		utils.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// InitPayment opens an SSLCommerz checkout for the caller's unpaid appointment.
func (h *PaymentHandler) InitPayment(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	url, err := h.payments.InitPayment(c.Request.Context(), a, c.Param("appointmentId"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Payment initiate successfully", gin.H{"paymentUrl": url})
}

// ValidatePayment handles the SSLCommerz instant payment notification.
func (h *PaymentHandler) ValidatePayment(c *gin.Context) {
	var in services.IPNInput
	if err := utils.BindQuery(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	msg, err := h.payments.HandleIPN(c.Request.Context(), in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Payment validate successfully", gin.H{"message": msg})
}
