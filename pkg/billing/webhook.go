package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/pricing"
)

// HandleWebhook verifies and applies one Stripe webhook delivery. The raw
// request body must be passed untouched; any re-serialization breaks the
// signature. Replayed events are acknowledged without being applied again.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	logger := s.logger.WithField("event_id", event.ID).WithField("event_type", string(event.Type))

	processed, err := s.alreadyProcessed(ctx, event.ID)
	if err != nil {
		return err
	}
	if processed {
		logger.Info("skipping already processed webhook event")
		return nil
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	default:
		logger.Debug("ignoring unhandled webhook event type")
	}
	if err != nil {
		// Leave the event unmarked so Stripe's retry can succeed later
		return err
	}

	if err := s.markProcessed(ctx, event.ID, string(event.Type)); err != nil {
		return err
	}
	logger.Info("processed webhook event")
	return nil
}

func (s *Service) alreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM billing_events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return exists, nil
}

func (s *Service) markProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO billing_events (id, event_type, processed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}

	userID, err := strconv.ParseInt(sess.Metadata["user_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("checkout session %s has no usable user_id metadata", sess.ID)
	}
	tier, ok := pricing.TierFor(sess.Metadata["tier"])
	if !ok {
		return fmt.Errorf("checkout session %s has unknown tier %q", sess.ID, sess.Metadata["tier"])
	}

	var customerID, subscriptionID string
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		subscriptionID = sess.Subscription.ID
	}

	if err := s.users.ApplyCheckout(ctx, userID, tier, customerID, subscriptionID); err != nil {
		return fmt.Errorf("failed to apply checkout for user %d: %w", userID, err)
	}
	s.logger.WithField("user_id", userID).WithField("tier", string(tier)).Info("subscription activated")
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	sub, err := decodeSubscription(event)
	if err != nil {
		return err
	}

	var endsAt *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		endsAt = &t
	}

	err = s.users.UpdateSubscriptionByCustomer(ctx, sub.Customer.ID, string(sub.Status), endsAt, nil)
	if errors.Is(err, accounts.ErrNotFound) {
		// Events for customers we never issued can arrive when the same
		// Stripe account serves several environments
		s.logger.WithField("customer_id", sub.Customer.ID).Warn("subscription update for unknown customer")
		return nil
	}
	return err
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	sub, err := decodeSubscription(event)
	if err != nil {
		return err
	}

	var endsAt *time.Time
	if sub.EndedAt > 0 {
		t := time.Unix(sub.EndedAt, 0).UTC()
		endsAt = &t
	}

	free := pricing.TierFree
	err = s.users.UpdateSubscriptionByCustomer(ctx, sub.Customer.ID, "canceled", endsAt, &free)
	if errors.Is(err, accounts.ErrNotFound) {
		s.logger.WithField("customer_id", sub.Customer.ID).Warn("subscription deletion for unknown customer")
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.WithField("customer_id", sub.Customer.ID).Info("subscription canceled, reverted to free tier")
	return nil
}

func decodeSubscription(event stripe.Event) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode subscription: %w", err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return nil, fmt.Errorf("subscription event %s has no customer", event.ID)
	}
	return &sub, nil
}
