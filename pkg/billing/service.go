package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/observability"
	"github.com/mixmentor/mixmentor/pkg/pricing"
)

var (
	// ErrNotPurchasable is returned when checkout is requested for a tier
	// without a Stripe price (the free tier, or a misconfigured one)
	ErrNotPurchasable = errors.New("tier cannot be purchased")
	// ErrSignatureInvalid is returned when a webhook payload fails
	// signature verification
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
)

// Config holds the Stripe integration settings
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// stripeAPI is the slice of the Stripe client the service calls; tests swap
// it out.
type stripeAPI interface {
	CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type liveStripeAPI struct{}

func (liveStripeAPI) CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return customer.New(params)
}

func (liveStripeAPI) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

// Service creates checkout sessions and applies webhook events
type Service struct {
	db      *sql.DB
	users   accounts.Store
	catalog *pricing.Catalog
	config  Config
	api     stripeAPI
	logger  *observability.Logger
}

// NewService creates a billing service and sets the global Stripe API key
func NewService(db *sql.DB, users accounts.Store, catalog *pricing.Catalog, config Config, logger *observability.Logger) *Service {
	stripe.Key = config.SecretKey
	return &Service{
		db:      db,
		users:   users,
		catalog: catalog,
		config:  config,
		api:     liveStripeAPI{},
		logger:  logger,
	}
}

// CreateCheckoutSession returns the Stripe-hosted checkout URL for upgrading
// a user to a paid tier
func (s *Service) CreateCheckoutSession(ctx context.Context, userID int64, tier pricing.Tier) (string, error) {
	tierConfig := s.catalog.Config(tier)
	if tier == pricing.TierFree || tierConfig.StripePriceID == "" {
		return "", fmt.Errorf("%w: %s", ErrNotPurchasable, tier)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	// Metadata rides along to the webhook so checkout.session.completed
	// can be applied without a session lookup
	metadata := map[string]string{
		"user_id": fmt.Sprintf("%d", user.ID),
		"tier":    string(tier),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(tierConfig.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.config.SuccessURL),
		CancelURL:  stripe.String(s.config.CancelURL),
		Metadata:   metadata,
	}

	sess, err := s.api.CreateCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.WithField("user_id", user.ID).WithField("tier", string(tier)).Info("created checkout session")
	return sess.URL, nil
}

// ensureCustomer returns the user's Stripe customer ID, creating the customer
// on first checkout
func (s *Service) ensureCustomer(ctx context.Context, user *accounts.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			"user_id": fmt.Sprintf("%d", user.ID),
			"open_id": user.OpenID,
		},
	}
	if user.Email != "" {
		params.Email = stripe.String(user.Email)
	}

	cust, err := s.api.CreateCustomer(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}

	if err := s.users.SetStripeCustomer(ctx, user.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
