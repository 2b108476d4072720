package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixmentor/mixmentor/pkg/pricing"
)

func newTestLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ledger := NewPostgresLedger(db)
	ledger.now = func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
	return ledger, mock
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-12", MonthKey(time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)))

	// 2024-03-01 04:30 UTC is still February in UTC-5, but the bucket is UTC
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2024-03", MonthKey(time.Date(2024, time.March, 1, 4, 30, 0, 0, est).In(est)))
}

func TestRecord(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectExec("INSERT INTO usage_tracking").
		WithArgs(int64(42), "audioAnalysis", "2024-03", 5).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ledger.Record(context.Background(), Entry{
		UserID:    42,
		Kind:      pricing.UsageAudioAnalysis,
		CostCents: 5,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordExplicitMonthPreserved(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectExec("INSERT INTO usage_tracking").
		WithArgs(int64(42), "stemSeparation", "2023-11", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ledger.Record(context.Background(), Entry{
		UserID: 42,
		Kind:   pricing.UsageStemSeparation,
		Month:  "2023-11",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordWriteFailureSurfaces(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectExec("INSERT INTO usage_tracking").
		WithArgs(int64(42), "audioAnalysis", "2024-03", 0).
		WillReturnError(errors.New("connection refused"))

	err := ledger.Record(context.Background(), Entry{UserID: 42, Kind: pricing.UsageAudioAnalysis})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record usage")
}

func TestCountMonthly(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM usage_tracking WHERE user_id = \\$1 AND usage_type = \\$2 AND month = \\$3").
		WithArgs(int64(42), "audioAnalysis", "2024-03").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := ledger.Count(context.Background(), 42, pricing.UsageAudioAnalysis, false)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountLifetimeIgnoresMonth(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM usage_tracking WHERE user_id = \\$1 AND usage_type = \\$2$").
		WithArgs(int64(42), "audioAnalysis").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := ledger.Count(context.Background(), 42, pricing.UsageAudioAnalysis, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyCost(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(cost_cents\\), 0\\) FROM usage_tracking").
		WithArgs(int64(42), "2024-03").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(125))

	cents, err := ledger.MonthlyCost(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 125, cents)
}

func TestMonthlyBreakdown(t *testing.T) {
	ledger, mock := newTestLedger(t)

	rows := sqlmock.NewRows([]string{"usage_type", "count", "sum"}).
		AddRow("audioAnalysis", 3, 15).
		AddRow("midiGeneration", 12, 0).
		AddRow("legacyExport", 2, 10)
	mock.ExpectQuery("SELECT usage_type, COUNT\\(\\*\\), COALESCE\\(SUM\\(cost_cents\\), 0\\)").
		WithArgs(int64(42), "2024-03").
		WillReturnRows(rows)

	breakdown, err := ledger.MonthlyBreakdown(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", breakdown.Month)
	assert.Equal(t, 3, breakdown.Counts[pricing.UsageAudioAnalysis])
	assert.Equal(t, 12, breakdown.Counts[pricing.UsageMIDIGeneration])
	assert.NotContains(t, breakdown.Counts, pricing.UsageStemSeparation)
	assert.Equal(t, 25, breakdown.TotalCostCents)
}

func TestMonthlyBreakdownEmpty(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT usage_type, COUNT\\(\\*\\), COALESCE\\(SUM\\(cost_cents\\), 0\\)").
		WithArgs(int64(42), "2024-03").
		WillReturnRows(sqlmock.NewRows([]string{"usage_type", "count", "sum"}))

	breakdown, err := ledger.MonthlyBreakdown(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, breakdown.Counts)
	assert.Zero(t, breakdown.TotalCostCents)
}
