package mercadopago

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StatusApproved is the payment status that grants boosts and subscriptions
const StatusApproved = "approved"

// Client represents a MercadoPago REST client authenticated with an access token
type Client struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Payment is the subset of the MercadoPago payment resource used by billing
type Payment struct {
	ID                int64                  `json:"id"`
	Status            string                 `json:"status"`
	ExternalReference string                 `json:"external_reference"`
	TransactionAmount float64                `json:"transaction_amount"`
	CurrencyID        string                 `json:"currency_id"`
	PaymentTypeID     string                 `json:"payment_type_id"`
	PaymentMethodID   string                 `json:"payment_method_id"`
	Description       string                 `json:"description"`
	Metadata          map[string]interface{} `json:"metadata"`
	TransactionDetail struct {
		TotalPaidAmount float64 `json:"total_paid_amount"`
	} `json:"transaction_details"`
}

// IDString returns the payment id in its decimal form
func (p *Payment) IDString() string {
	if p.ID == 0 {
		return ""
	}
	return fmt.Sprintf("%d", p.ID)
}

// Amount returns the transaction amount, falling back to the total paid amount
func (p *Payment) Amount() float64 {
	if p.TransactionAmount > 0 {
		return p.TransactionAmount
	}
	return p.TransactionDetail.TotalPaidAmount
}

// ErrorResponse represents a MercadoPago API error body
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// NewClient creates a new MercadoPago client instance
func NewClient(baseURL, accessToken string, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		Logger:      logger,
	}
}

// Configured reports whether the client has credentials to call the API
func (c *Client) Configured() bool {
	return c != nil && c.AccessToken != ""
}

// GetPayment fetches a payment by id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("mercadopago access token is not configured")
	}
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}

	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.BaseURL, url.PathEscape(paymentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.Logger.Error("Failed to create payment request", zap.Error(err))
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Payment request failed", zap.Error(err), zap.String("payment_id", paymentID))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Logger.Error("Failed to read payment response", zap.Error(err))
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Message == "" {
			c.Logger.Error("Payment lookup returned error status",
				zap.Int("status", resp.StatusCode),
				zap.String("response", string(body)))
			return nil, fmt.Errorf("payment lookup failed: %d %s", resp.StatusCode, string(body))
		}
		c.Logger.Error("Payment lookup failed",
			zap.Int("status", resp.StatusCode),
			zap.String("error", errorResp.Error),
			zap.String("message", errorResp.Message))
		return nil, fmt.Errorf("payment lookup failed: %s - %s", errorResp.Error, errorResp.Message)
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		c.Logger.Error("Failed to parse payment response", zap.Error(err))
		return nil, err
	}

	c.Logger.Info("Payment fetched",
		zap.String("payment_id", paymentID),
		zap.String("status", payment.Status))
	return &payment, nil
}
