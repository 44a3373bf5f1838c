package mercadopago

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 123,
			"status": "approved",
			"external_reference": "subscription_u1_pro",
			"transaction_amount": 0,
			"currency_id": "CLP",
			"metadata": {"plan_key": "pro"},
			"transaction_details": {"total_paid_amount": 9990}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "token", zap.NewNop())
	p, err := c.GetPayment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "123", p.IDString())
	assert.Equal(t, StatusApproved, p.Status)
	assert.Equal(t, "subscription_u1_pro", p.ExternalReference)
	assert.Equal(t, 9990.0, p.Amount())
	assert.Equal(t, "pro", p.Metadata["plan_key"])
}

func TestGetPayment_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Payment not found","error":"not_found","status":404}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", zap.NewNop())
	_, err := c.GetPayment(context.Background(), "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_found")
}

func TestGetPayment_RequiresToken(t *testing.T) {
	c := NewClient("http://unused", "", zap.NewNop())
	assert.False(t, c.Configured())
	_, err := c.GetPayment(context.Background(), "1")
	assert.Error(t, err)
}
