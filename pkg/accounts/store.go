package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mixmentor/mixmentor/pkg/pricing"
)

const userColumns = `id, open_id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(login_method, ''),
	role, tier, COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''),
	COALESCE(subscription_status, ''), subscription_ends_at, last_signed_in, created_at, updated_at`

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db          *sql.DB
	ownerOpenID string
}

// NewPostgresStore creates a user store. The account matching ownerOpenID is
// promoted to admin on login.
func NewPostgresStore(db *sql.DB, ownerOpenID string) *PostgresStore {
	return &PostgresStore{db: db, ownerOpenID: ownerOpenID}
}

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var tier string
	err := row.Scan(
		&user.ID, &user.OpenID, &user.Name, &user.Email, &user.LoginMethod,
		&user.Role, &tier, &user.StripeCustomerID, &user.StripeSubscriptionID,
		&user.SubscriptionStatus, &user.SubscriptionEndsAt,
		&user.LastSignedIn, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.Tier = pricing.Tier(tier)
	return user, nil
}

// UpsertByOpenID creates or refreshes a user keyed on the external identity
func (s *PostgresStore) UpsertByOpenID(ctx context.Context, params UpsertParams) (*User, error) {
	if params.OpenID == "" {
		return nil, fmt.Errorf("open id is required")
	}

	role := "user"
	if s.ownerOpenID != "" && params.OpenID == s.ownerOpenID {
		role = "admin"
	}
	lastSignedIn := params.LastSignedIn
	if lastSignedIn.IsZero() {
		lastSignedIn = time.Now()
	}

	query := `
		INSERT INTO users (open_id, name, email, login_method, role, tier, last_signed_in, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'free', $6, NOW(), NOW())
		ON CONFLICT (open_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			login_method = EXCLUDED.login_method,
			role = EXCLUDED.role,
			last_signed_in = EXCLUDED.last_signed_in,
			updated_at = NOW()
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query,
		params.OpenID, params.Name, params.Email, params.LoginMethod, role, lastSignedIn)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// GetByID returns a user by primary key
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByOpenID returns a user by external identity
func (s *PostgresStore) GetByOpenID(ctx context.Context, openID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE open_id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, openID))
}

// GetByStripeCustomer returns the user holding a Stripe customer ref
func (s *PostgresStore) GetByStripeCustomer(ctx context.Context, customerID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, customerID))
}

// SetStripeCustomer records the Stripe customer ref on an account
func (s *PostgresStore) SetStripeCustomer(ctx context.Context, userID int64, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, customerID, userID)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer: %w", err)
	}
	return requireRow(result)
}

// ApplyCheckout activates a paid tier after checkout completes
func (s *PostgresStore) ApplyCheckout(ctx context.Context, userID int64, tier pricing.Tier, customerID, subscriptionID string) error {
	query := `
		UPDATE users
		SET tier = $1,
			subscription_status = 'active',
			stripe_customer_id = $2,
			stripe_subscription_id = $3,
			updated_at = NOW()
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, string(tier), customerID, subscriptionID, userID)
	if err != nil {
		return fmt.Errorf("failed to apply checkout: %w", err)
	}
	return requireRow(result)
}

// UpdateSubscriptionByCustomer applies a subscription lifecycle change
func (s *PostgresStore) UpdateSubscriptionByCustomer(ctx context.Context, customerID, status string, endsAt *time.Time, tier *pricing.Tier) error {
	var (
		result sql.Result
		err    error
	)
	if tier != nil {
		query := `
			UPDATE users
			SET subscription_status = $1, subscription_ends_at = $2, tier = $3, updated_at = NOW()
			WHERE stripe_customer_id = $4
		`
		result, err = s.db.ExecContext(ctx, query, status, endsAt, string(*tier), customerID)
	} else {
		query := `
			UPDATE users
			SET subscription_status = $1, subscription_ends_at = $2, updated_at = NOW()
			WHERE stripe_customer_id = $3
		`
		result, err = s.db.ExecContext(ctx, query, status, endsAt, customerID)
	}
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
