// Package usage records metered feature consumption in an append-only ledger
// and answers the counting queries the entitlement checks run against.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mixmentor/mixmentor/pkg/pricing"
)

// Entry is one recorded consumption of a metered feature
type Entry struct {
	UserID    int64             `json:"user_id"`
	Kind      pricing.UsageKind `json:"usage_type"`
	Month     string            `json:"month"`
	CostCents int               `json:"cost_cents"`
}

// Breakdown summarizes a user's consumption for one calendar month
type Breakdown struct {
	Month          string                    `json:"month"`
	Counts         map[pricing.UsageKind]int `json:"counts"`
	TotalCostCents int                       `json:"total_cost_cents"`
}

// Ledger defines the interface for usage accounting
type Ledger interface {
	// Record appends one entry. Rows are never updated or deleted.
	Record(ctx context.Context, entry Entry) error
	// Count returns how many entries a user has for a kind, scoped to the
	// current month unless lifetime is true.
	Count(ctx context.Context, userID int64, kind pricing.UsageKind, lifetime bool) (int, error)
	// MonthlyCost returns the summed cost in cents for the current month
	MonthlyCost(ctx context.Context, userID int64) (int, error)
	// MonthlyBreakdown returns per-kind counts and total cost for the current month
	MonthlyBreakdown(ctx context.Context, userID int64) (*Breakdown, error)
}

// MonthKey formats a time as the "YYYY-MM" bucket the ledger partitions on.
// Buckets use UTC so a user cannot reset their month by changing timezones.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PostgresLedger implements Ledger on PostgreSQL
type PostgresLedger struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresLedger creates a ledger backed by the given database handle
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db, now: time.Now}
}

// Record appends one usage row
func (l *PostgresLedger) Record(ctx context.Context, entry Entry) error {
	month := entry.Month
	if month == "" {
		month = MonthKey(l.now())
	}

	query := `
		INSERT INTO usage_tracking (user_id, usage_type, month, cost_cents, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	if _, err := l.db.ExecContext(ctx, query, entry.UserID, string(entry.Kind), month, entry.CostCents); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// Count returns the number of ledger entries for a user and kind
func (l *PostgresLedger) Count(ctx context.Context, userID int64, kind pricing.UsageKind, lifetime bool) (int, error) {
	var (
		count int
		err   error
	)

	if lifetime {
		query := `SELECT COUNT(*) FROM usage_tracking WHERE user_id = $1 AND usage_type = $2`
		err = l.db.QueryRowContext(ctx, query, userID, string(kind)).Scan(&count)
	} else {
		query := `SELECT COUNT(*) FROM usage_tracking WHERE user_id = $1 AND usage_type = $2 AND month = $3`
		err = l.db.QueryRowContext(ctx, query, userID, string(kind), MonthKey(l.now())).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}

// MonthlyCost returns the summed cost in cents for the current month
func (l *PostgresLedger) MonthlyCost(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COALESCE(SUM(cost_cents), 0) FROM usage_tracking WHERE user_id = $1 AND month = $2`

	var cents int
	if err := l.db.QueryRowContext(ctx, query, userID, MonthKey(l.now())).Scan(&cents); err != nil {
		return 0, fmt.Errorf("failed to sum usage cost: %w", err)
	}
	return cents, nil
}

// MonthlyBreakdown returns per-kind counts and total cost for the current month
func (l *PostgresLedger) MonthlyBreakdown(ctx context.Context, userID int64) (*Breakdown, error) {
	month := MonthKey(l.now())
	query := `
		SELECT usage_type, COUNT(*), COALESCE(SUM(cost_cents), 0)
		FROM usage_tracking
		WHERE user_id = $1 AND month = $2
		GROUP BY usage_type
	`

	rows, err := l.db.QueryContext(ctx, query, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := &Breakdown{
		Month:  month,
		Counts: make(map[pricing.UsageKind]int),
	}
	for rows.Next() {
		var (
			usageType string
			count     int
			cents     int
		)
		if err := rows.Scan(&usageType, &count, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan usage breakdown: %w", err)
		}
		kind, ok := pricing.KindFor(usageType)
		if !ok {
			// Rows written by retired feature kinds still count toward cost
			breakdown.TotalCostCents += cents
			continue
		}
		breakdown.Counts[kind] = count
		breakdown.TotalCostCents += cents
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage breakdown: %w", err)
	}
	return breakdown, nil
}
