package handler

import (
	"fmt"
	"net/http"

	"listing-service/internal/billing"
	"listing-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebhookHandler receives payment gateway notifications
type WebhookHandler struct {
	billing    billing.IBillingService
	secret     string
	production bool
}

// NewWebhookHandler creates a webhook handler. An empty secret accepts every delivery.
func NewWebhookHandler(b billing.IBillingService, secret string, production bool) *WebhookHandler {
	return &WebhookHandler{billing: b, secret: secret, production: production}
}

// Notification is the gateway webhook body
type Notification struct {
	Type string `json:"type"`
	Data struct {
		ID interface{} `json:"id"`
	} `json:"data"`
}

// PaymentWebhook verifies the delivery and applies approved payments
func (h *WebhookHandler) PaymentWebhook(c echo.Context) error {
	log := logger.FromContext(c)

	var n Notification
	if err := c.Bind(&n); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	req := c.Request()
	if !billing.AcceptWebhook(h.secret, req.Header.Get("X-Signature"), req.Header.Get("X-Request-ID"), h.production) {
		log.Warn("Webhook signature verification failed")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	if n.Type != "payment" || n.Data.ID == nil {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	paymentID := notificationID(n.Data.ID)
	outcome, err := h.billing.HandlePaymentNotification(req.Context(), paymentID)
	if err != nil {
		log.Error("Error processing webhook", zap.String("payment_id", paymentID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	log.Info("Webhook processed", zap.String("payment_id", paymentID), zap.String("outcome", string(outcome)))
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// notificationID accepts both numeric and string ids
func notificationID(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%.0f", t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
