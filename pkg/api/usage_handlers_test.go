package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/pricing"
	"github.com/mixmentor/mixmentor/pkg/usage"
)

func TestUsageForProUser(t *testing.T) {
	f := newFixture(t)
	f.ledger.breakdownFunc = func(ctx context.Context, userID int64) (*usage.Breakdown, error) {
		return &usage.Breakdown{
			Month: "2026-08",
			Counts: map[pricing.UsageKind]int{
				pricing.UsageAudioAnalysis:  4,
				pricing.UsageMIDIGeneration: 12,
			},
			TotalCostCents: 350,
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp usageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, pricing.TierPro, resp.Tier)
	assert.Equal(t, "2026-08", resp.Month)
	assert.Equal(t, 350, resp.TotalCostCents)

	analysis := resp.Usage[pricing.UsageAudioAnalysis]
	assert.Equal(t, 4, analysis.Used)
	assert.Equal(t, pricing.Finite(10), analysis.Limit)
	assert.Equal(t, pricing.Finite(6), analysis.Remaining)

	midi := resp.Usage[pricing.UsageMIDIGeneration]
	assert.Equal(t, 12, midi.Used)
	assert.Equal(t, pricing.Finite(38), midi.Remaining)

	// Paid tiers meter the month
	assert.Equal(t, 4, resp.SimplifiedUsed)
	assert.Equal(t, 10, resp.SimplifiedLimit)
}

func TestUsageForFreeUserCountsLifetime(t *testing.T) {
	f := newFixture(t)
	f.users.getByIDFunc = func(ctx context.Context, id int64) (*accounts.User, error) {
		return &accounts.User{ID: id, Role: "user", Tier: pricing.TierFree}, nil
	}
	// Nothing this month, one analysis ever
	f.ledger.countFunc = func(ctx context.Context, userID int64, kind pricing.UsageKind, lifetime bool) (int, error) {
		if lifetime {
			return 1, nil
		}
		return 0, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp usageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, pricing.TierFree, resp.Tier)
	assert.Equal(t, 1, resp.SimplifiedUsed)
	assert.Equal(t, 1, resp.SimplifiedLimit)
}

func TestUsageUnlimitedKindStaysUnlimited(t *testing.T) {
	f := newFixture(t)
	f.users.getByIDFunc = func(ctx context.Context, id int64) (*accounts.User, error) {
		return &accounts.User{ID: id, Role: "user", Tier: pricing.TierProPlus}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp usageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	midi := resp.Usage[pricing.UsageMIDIGeneration]
	assert.True(t, midi.Limit.IsUnlimited())
	assert.True(t, midi.Remaining.IsUnlimited())
}

func TestAdminUserUsage(t *testing.T) {
	f := newFixture(t)
	// User 1 is the admin making the call, user 7 the inspected account
	f.users.getByIDFunc = func(ctx context.Context, id int64) (*accounts.User, error) {
		if id == 1 {
			return &accounts.User{ID: 1, Role: "admin", Tier: pricing.TierProPlus}, nil
		}
		return &accounts.User{ID: id, Role: "user", Tier: pricing.TierPro}, nil
	}
	f.ledger.breakdownFunc = func(ctx context.Context, userID int64) (*usage.Breakdown, error) {
		assert.Equal(t, int64(7), userID)
		return &usage.Breakdown{
			Month:  "2026-08",
			Counts: map[pricing.UsageKind]int{pricing.UsageAudioAnalysis: 3},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/7/usage", nil)
	req.AddCookie(f.login(t, 1))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp usageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, pricing.TierPro, resp.Tier)
	assert.Equal(t, 3, resp.SimplifiedUsed)
}

func TestAdminUserUsageForbiddenForNonAdmins(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/7/usage", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminUserUsageUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.users.getByIDFunc = func(ctx context.Context, id int64) (*accounts.User, error) {
		if id == 1 {
			return &accounts.User{ID: 1, Role: "admin", Tier: pricing.TierProPlus}, nil
		}
		return nil, accounts.ErrNotFound
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/404/usage", nil)
	req.AddCookie(f.login(t, 1))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTiersIsPublic(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tiers", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tiers []pricing.TierConfig `json:"tiers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Tiers, 3)
	assert.Equal(t, pricing.TierFree, resp.Tiers[0].Name)
	assert.Equal(t, pricing.TierProPlus, resp.Tiers[2].Name)
}
