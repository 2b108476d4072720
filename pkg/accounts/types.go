// Package accounts manages user records, their subscription state, and the
// session and login plumbing around them.
//
// Users are identified by an external OpenID subject; the first callback from
// the identity provider creates the row and later logins refresh it. Sessions
// are opaque tokens stored in Redis with a TTL, carried in the
// "mixmentor_session" cookie.
package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/mixmentor/mixmentor/pkg/pricing"
)

// CookieName is the session cookie name
const CookieName = "mixmentor_session"

var (
	// ErrNotFound is returned when a user record does not exist
	ErrNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned for missing or expired session tokens
	ErrSessionNotFound = errors.New("session not found")
)

// User is an account with its subscription state
type User struct {
	ID                   int64        `json:"id"`
	OpenID               string       `json:"open_id"`
	Name                 string       `json:"name,omitempty"`
	Email                string       `json:"email,omitempty"`
	LoginMethod          string       `json:"login_method,omitempty"`
	Role                 string       `json:"role"`
	Tier                 pricing.Tier `json:"tier"`
	StripeCustomerID     string       `json:"-"`
	StripeSubscriptionID string       `json:"-"`
	SubscriptionStatus   string       `json:"subscription_status,omitempty"`
	SubscriptionEndsAt   *time.Time   `json:"subscription_ends_at,omitempty"`
	LastSignedIn         time.Time    `json:"last_signed_in"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// UpsertParams carries the identity claims applied on each login
type UpsertParams struct {
	OpenID       string
	Name         string
	Email        string
	LoginMethod  string
	LastSignedIn time.Time
}

// Store defines the interface for user persistence
type Store interface {
	// UpsertByOpenID creates the user on first login and refreshes
	// identity fields on later ones. Subscription fields are never
	// touched here.
	UpsertByOpenID(ctx context.Context, params UpsertParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByOpenID(ctx context.Context, openID string) (*User, error)
	// GetByStripeCustomer resolves the account a webhook event refers to
	GetByStripeCustomer(ctx context.Context, customerID string) (*User, error)
	// SetStripeCustomer records the Stripe customer ref before checkout
	SetStripeCustomer(ctx context.Context, userID int64, customerID string) error
	// ApplyCheckout activates a paid tier after checkout completes
	ApplyCheckout(ctx context.Context, userID int64, tier pricing.Tier, customerID, subscriptionID string) error
	// UpdateSubscriptionByCustomer applies a subscription lifecycle change
	// keyed by the Stripe customer ref. A nil tier leaves the tier alone.
	UpdateSubscriptionByCustomer(ctx context.Context, customerID, status string, endsAt *time.Time, tier *pricing.Tier) error
}
