package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"listing-service/internal/listing"
	"listing-service/pkg/mercadopago"
	"listing-service/prometheus"

	"go.uber.org/zap"
)

// Outcome describes what an approved payment did
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeRejected   Outcome = "rejected"
	OutcomeBoosted    Outcome = "boost_applied"
	OutcomeSubscribed Outcome = "subscription_activated"
)

// PaymentGateway fetches payments from the provider
type PaymentGateway interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// IBillingService defines the payment notification operations
type IBillingService interface {
	HandlePaymentNotification(ctx context.Context, paymentID string) (Outcome, error)
	ProcessApprovedPayment(ctx context.Context, p *mercadopago.Payment) (Outcome, error)
}

// Service applies approved gateway payments to boosts and subscriptions
type Service struct {
	store   Store
	gateway PaymentGateway
	log     *zap.Logger
	now     func() time.Time
}

// NewService creates a billing service
func NewService(store Store, gateway PaymentGateway, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		gateway: gateway,
		log:     log,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// rejection aborts the transaction for a payment that cannot be applied
type rejection struct{ reason string }

func (r *rejection) Error() string { return r.reason }

func reject(format string, args ...interface{}) error {
	return &rejection{reason: fmt.Sprintf(format, args...)}
}

// HandlePaymentNotification fetches the notified payment and applies it when approved
func (s *Service) HandlePaymentNotification(ctx context.Context, paymentID string) (Outcome, error) {
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return "", fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	if payment.Status != mercadopago.StatusApproved {
		s.log.Info("Payment not approved, skipping",
			zap.String("payment_id", paymentID),
			zap.String("status", payment.Status))
		prometheus.RecordWebhookOutcome(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}
	return s.ProcessApprovedPayment(ctx, payment)
}

// ProcessApprovedPayment dispatches on the external reference prefix
func (s *Service) ProcessApprovedPayment(ctx context.Context, p *mercadopago.Payment) (Outcome, error) {
	ref := strings.TrimSpace(p.ExternalReference)
	log := s.log.With(zap.String("external_reference", ref), zap.String("payment_id", p.IDString()))

	var (
		outcome Outcome
		err     error
	)
	switch {
	case strings.HasPrefix(ref, BoostReferencePrefix):
		outcome, err = OutcomeBoosted, s.applyBoost(ctx, ref, p)
	case strings.HasPrefix(ref, SubscriptionReferencePrefix):
		outcome, err = OutcomeSubscribed, s.activateSubscription(ctx, ref, p)
	default:
		outcome = OutcomeIgnored
	}

	var rej *rejection
	if errors.As(err, &rej) {
		log.Warn("Approved payment could not be applied", zap.String("reason", rej.reason))
		outcome, err = OutcomeRejected, nil
	}
	if err != nil {
		log.Error("Failed to apply approved payment", zap.Error(err))
		prometheus.RecordWebhookOutcome("error")
		return "", err
	}

	log.Info("Approved payment processed", zap.String("outcome", string(outcome)))
	prometheus.RecordWebhookOutcome(string(outcome))
	return outcome, nil
}

func (s *Service) applyBoost(ctx context.Context, ref string, p *mercadopago.Payment) error {
	legacy, _ := ParseBoostReference(ref)
	listingID := firstNonEmpty(metaString(p.Metadata, "listing_id"), legacy.ListingID)
	duration := firstNonEmpty(metaString(p.Metadata, "duration"), legacy.Duration)
	slotKey := firstNonEmpty(metaString(p.Metadata, "slot_key"), legacy.SlotKey)
	if listingID == "" {
		return reject("boost payment missing listing id")
	}

	now := s.now()
	boost := Boost{
		ListingID: listingID,
		UserID:    metaString(p.Metadata, "user_id"),
		StartsAt:  now,
		EndsAt:    BoostWindowEnd(now, duration),
		PaymentID: p.IDString(),
		Amount:    p.Amount(),
		Currency:  firstNonEmpty(p.CurrencyID, "CLP"),
		Metadata: map[string]interface{}{
			"source":             "mercadopago",
			"duration":           duration,
			"slot_key":           slotKey,
			"external_reference": ref,
			"payment_id":         p.IDString(),
		},
	}

	return s.store.WithinTx(ctx, func(tx Tx) error {
		owner, found, err := tx.FindListingOwner(ctx, listingID)
		if err != nil {
			return fmt.Errorf("load listing: %w", err)
		}
		if !found {
			return reject("listing %s not found for boost", listingID)
		}
		if boost.UserID == "" {
			boost.UserID = owner
		}

		existing, err := tx.FindActiveBoost(ctx, listingID)
		if err != nil {
			return fmt.Errorf("load boost: %w", err)
		}
		if existing == nil {
			if _, err := tx.InsertBoost(ctx, boost); err != nil {
				return fmt.Errorf("insert boost: %w", err)
			}
			return nil
		}
		boost.ID = existing.ID
		if err := tx.UpdateBoost(ctx, boost); err != nil {
			return fmt.Errorf("update boost: %w", err)
		}
		return nil
	})
}

func (s *Service) activateSubscription(ctx context.Context, ref string, p *mercadopago.Payment) error {
	parsed, _ := ParseSubscriptionReference(ref)
	userID := firstNonEmpty(metaString(p.Metadata, "user_id"), parsed.UserID)
	planKey := firstNonEmpty(metaString(p.Metadata, "plan_key"), parsed.PlanKey)
	if userID == "" || planKey == "" {
		return reject("subscription payment missing user or plan")
	}
	amount := p.Amount()
	if amount <= 0 {
		return reject("subscription payment without amount")
	}
	paymentID := p.IDString()
	if paymentID == "" {
		return reject("subscription payment without id")
	}

	vertical := listing.VerticalAutos
	if v, err := listing.ParseVertical(metaString(p.Metadata, "vertical")); err == nil {
		vertical = v
	}

	return s.store.WithinTx(ctx, func(tx Tx) error {
		verticalID, err := tx.ResolveVerticalID(ctx, vertical.StorageCandidates())
		if err != nil {
			return fmt.Errorf("resolve vertical: %w", err)
		}
		if verticalID == "" {
			return reject("vertical %s not registered", vertical)
		}

		plan, err := tx.FindActivePlan(ctx, planKey, verticalID)
		if err != nil {
			return fmt.Errorf("load plan: %w", err)
		}
		if plan == nil {
			return reject("plan %s not found", planKey)
		}
		if plan.PriceMonthly > 0 && math.Abs(plan.PriceMonthly-amount) > 0.009 {
			return reject("amount %.2f does not match plan price %.2f", amount, plan.PriceMonthly)
		}

		currentEnd, err := tx.FindActiveSubscriptionEnd(ctx, userID, verticalID)
		if err != nil {
			return fmt.Errorf("load subscription: %w", err)
		}
		start, end := SubscriptionPeriod(s.now(), currentEnd)

		subID, err := tx.UpsertSubscription(ctx, Activation{
			UserID:      userID,
			VerticalID:  verticalID,
			PlanID:      plan.ID,
			PeriodStart: start,
			PeriodEnd:   end,
			Metadata: map[string]interface{}{
				"provider":               "mercadopago",
				"plan_key":               planKey,
				"external_reference":     ref,
				"mercadopago_payment_id": paymentID,
			},
		})
		if err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}

		recorded, err := tx.PaymentRecorded(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if recorded {
			return nil
		}
		err = tx.InsertPayment(ctx, PaymentRecord{
			UserID:         userID,
			SubscriptionID: subID,
			Amount:         amount,
			Currency:       firstNonEmpty(p.CurrencyID, plan.Currency, "CLP"),
			Status:         p.Status,
			Method:         firstNonEmpty(p.PaymentTypeID, p.PaymentMethodID, "mercadopago"),
			ExternalID:     paymentID,
			Description:    firstNonEmpty(p.Description, "Suscripción "+plan.Name),
		})
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
}

func metaString(meta map[string]interface{}, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
