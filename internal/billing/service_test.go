package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"listing-service/pkg/mercadopago"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockTx struct {
	mock.Mock
}

func (m *mockTx) ResolveVerticalID(ctx context.Context, keys []string) (string, error) {
	args := m.Called(ctx, keys)
	return args.String(0), args.Error(1)
}

func (m *mockTx) FindListingOwner(ctx context.Context, listingID string) (string, bool, error) {
	args := m.Called(ctx, listingID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockTx) FindActiveBoost(ctx context.Context, listingID string) (*Boost, error) {
	args := m.Called(ctx, listingID)
	b, _ := args.Get(0).(*Boost)
	return b, args.Error(1)
}

func (m *mockTx) InsertBoost(ctx context.Context, b Boost) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}

func (m *mockTx) UpdateBoost(ctx context.Context, b Boost) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockTx) FindActivePlan(ctx context.Context, planKey, verticalID string) (*Plan, error) {
	args := m.Called(ctx, planKey, verticalID)
	p, _ := args.Get(0).(*Plan)
	return p, args.Error(1)
}

func (m *mockTx) FindActiveSubscriptionEnd(ctx context.Context, userID, verticalID string) (*time.Time, error) {
	args := m.Called(ctx, userID, verticalID)
	t, _ := args.Get(0).(*time.Time)
	return t, args.Error(1)
}

func (m *mockTx) UpsertSubscription(ctx context.Context, a Activation) (string, error) {
	args := m.Called(ctx, a)
	return args.String(0), args.Error(1)
}

func (m *mockTx) PaymentRecorded(ctx context.Context, externalID string) (bool, error) {
	args := m.Called(ctx, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTx) InsertPayment(ctx context.Context, p PaymentRecord) error {
	return m.Called(ctx, p).Error(0)
}

type txStore struct {
	tx *mockTx
}

func (s txStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return fn(s.tx)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*mercadopago.Payment)
	return p, args.Error(1)
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(tx *mockTx, gw PaymentGateway) *Service {
	s := NewService(txStore{tx: tx}, gw, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestProcessApprovedPayment_BoostFromLegacyReference(t *testing.T) {
	tx := new(mockTx)
	ctx := context.Background()
	tx.On("FindListingOwner", ctx, "L1").Return("owner-1", true, nil)
	tx.On("FindActiveBoost", ctx, "L1").Return(nil, nil)
	tx.On("InsertBoost", ctx, mock.MatchedBy(func(b Boost) bool {
		return b.ListingID == "L1" &&
			b.UserID == "owner-1" &&
			b.EndsAt != nil && b.EndsAt.Equal(fixedNow.AddDate(0, 0, 15)) &&
			b.Currency == "CLP" &&
			b.Metadata["slot_key"] == "home_top"
	})).Return("B1", nil)

	s := newTestService(tx, nil)
	out, err := s.ProcessApprovedPayment(ctx, &mercadopago.Payment{
		ID:                55,
		Status:            mercadopago.StatusApproved,
		ExternalReference: "boost_L1_home_top_15_dias_1700000000",
		TransactionAmount: 4990,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBoosted, out)
	tx.AssertExpectations(t)
}

func TestProcessApprovedPayment_BoostExtendsActive(t *testing.T) {
	tx := new(mockTx)
	ctx := context.Background()
	tx.On("FindListingOwner", ctx, "L2").Return("owner-2", true, nil)
	tx.On("FindActiveBoost", ctx, "L2").Return(&Boost{ID: "B9", ListingID: "L2"}, nil)
	tx.On("UpdateBoost", ctx, mock.MatchedBy(func(b Boost) bool {
		return b.ID == "B9" && b.EndsAt == nil && b.PaymentID == "77"
	})).Return(nil)

	s := newTestService(tx, nil)
	out, err := s.ProcessApprovedPayment(ctx, &mercadopago.Payment{
		ID:                77,
		Status:            mercadopago.StatusApproved,
		ExternalReference: "boost_whatever",
		Metadata:          map[string]interface{}{"listing_id": "L2", "duration": "indefinido"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBoosted, out)
	tx.AssertNotCalled(t, "InsertBoost", mock.Anything, mock.Anything)
}

func TestProcessApprovedPayment_BoostUnknownListing(t *testing.T) {
	tx := new(mockTx)
	ctx := context.Background()
	tx.On("FindListingOwner", ctx, "L3").Return("", false, nil)

	s := newTestService(tx, nil)
	out, err := s.ProcessApprovedPayment(ctx, &mercadopago.Payment{
		ID:                1,
		ExternalReference: "boost_L3_home_7_dias_1",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, out)
}

func TestProcessApprovedPayment_Subscription(t *testing.T) {
	tx := new(mockTx)
	ctx := context.Background()
	currentEnd := fixedNow.AddDate(0, 0, 10)

	tx.On("ResolveVerticalID", ctx, []string{"properties"}).Return("v-prop", nil)
	tx.On("FindActivePlan", ctx, "pro_plus", "v-prop").
		Return(&Plan{ID: "p1", Key: "pro_plus", Name: "Pro", Currency: "CLP", PriceMonthly: 9990}, nil)
	tx.On("FindActiveSubscriptionEnd", ctx, "user-1", "v-prop").Return(&currentEnd, nil)
	tx.On("UpsertSubscription", ctx, mock.MatchedBy(func(a Activation) bool {
		return a.PlanID == "p1" &&
			a.PeriodStart.Equal(currentEnd) &&
			a.PeriodEnd.Equal(currentEnd.AddDate(0, 1, 0)) &&
			a.Metadata["mercadopago_payment_id"] == "321"
	})).Return("sub-1", nil)
	tx.On("PaymentRecorded", ctx, "321").Return(false, nil)
	tx.On("InsertPayment", ctx, PaymentRecord{
		UserID:         "user-1",
		SubscriptionID: "sub-1",
		Amount:         9990,
		Currency:       "CLP",
		Status:         "approved",
		Method:         "credit_card",
		ExternalID:     "321",
		Description:    "Suscripción Pro",
	}).Return(nil)

	s := newTestService(tx, nil)
	p := &mercadopago.Payment{
		ID:                321,
		Status:            mercadopago.StatusApproved,
		ExternalReference: "subscription_user-1_pro_plus",
		PaymentTypeID:     "credit_card",
		Metadata:          map[string]interface{}{"vertical": "properties"},
	}
	p.TransactionDetail.TotalPaidAmount = 9990
	out, err := s.ProcessApprovedPayment(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubscribed, out)
	tx.AssertExpectations(t)
}

func TestProcessApprovedPayment_SubscriptionPaymentAlreadyRecorded(t *testing.T) {
	tx := new(mockTx)
	ctx := context.Background()
	tx.On("ResolveVerticalID", ctx, []string{"vehicles", "autos"}).Return("v-autos", nil)
	tx.On("FindActivePlan", ctx, "pro", "v-autos").Return(&Plan{ID: "p1", Name: "Pro"}, nil)
	tx.On("FindActiveSubscriptionEnd", ctx, "u", "v-autos").Return(nil, nil)
	tx.On("UpsertSubscription", ctx, mock.Anything).Return("sub", nil)
	tx.On("PaymentRecorded", ctx, "5").Return(true, nil)

	s := newTestService(tx, nil)
	out, err := s.ProcessApprovedPayment(ctx, &mercadopago.Payment{
		ID: 5, Status: "approved", ExternalReference: "subscription_u_pro", TransactionAmount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubscribed, out)
	tx.AssertNotCalled(t, "InsertPayment", mock.Anything, mock.Anything)
}

func TestProcessApprovedPayment_SubscriptionAmountMismatch(t *testing.T) {
	tx := new(mockTx)
	ctx := context.Background()
	tx.On("ResolveVerticalID", ctx, []string{"vehicles", "autos"}).Return("v-autos", nil)
	tx.On("FindActivePlan", ctx, "pro", "v-autos").Return(&Plan{ID: "p1", PriceMonthly: 9990}, nil)

	s := newTestService(tx, nil)
	out, err := s.ProcessApprovedPayment(ctx, &mercadopago.Payment{
		ID: 6, Status: "approved", ExternalReference: "subscription_u_pro", TransactionAmount: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, out)
	tx.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
}

func TestProcessApprovedPayment_StoreErrorPropagates(t *testing.T) {
	tx := new(mockTx)
	ctx := context.Background()
	tx.On("FindListingOwner", ctx, "L1").Return("", false, errors.New("db down"))

	s := newTestService(tx, nil)
	_, err := s.ProcessApprovedPayment(ctx, &mercadopago.Payment{ID: 1, ExternalReference: "boost_L1_x_7_dias_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestProcessApprovedPayment_UnknownReference(t *testing.T) {
	s := newTestService(new(mockTx), nil)
	out, err := s.ProcessApprovedPayment(context.Background(), &mercadopago.Payment{ExternalReference: "order_1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
}

func TestHandlePaymentNotification_NotApproved(t *testing.T) {
	gw := new(mockGateway)
	gw.On("GetPayment", mock.Anything, "10").Return(&mercadopago.Payment{ID: 10, Status: "pending"}, nil)

	s := newTestService(new(mockTx), gw)
	out, err := s.HandlePaymentNotification(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
	gw.AssertExpectations(t)
}

func TestHandlePaymentNotification_GatewayError(t *testing.T) {
	gw := new(mockGateway)
	gw.On("GetPayment", mock.Anything, "10").Return(nil, errors.New("timeout"))

	s := newTestService(new(mockTx), gw)
	_, err := s.HandlePaymentNotification(context.Background(), "10")
	assert.Error(t, err)
}
