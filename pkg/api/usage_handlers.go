package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/httputil"
	"github.com/mixmentor/mixmentor/pkg/middleware"
	"github.com/mixmentor/mixmentor/pkg/pricing"
)

// kindSummary is the per-feature meter a client renders
type kindSummary struct {
	Used      int           `json:"used"`
	Limit     pricing.Limit `json:"limit"`
	Remaining pricing.Limit `json:"remaining"`
}

type usageResponse struct {
	Tier           pricing.Tier                      `json:"tier"`
	Month          string                            `json:"month"`
	Usage          map[pricing.UsageKind]kindSummary `json:"usage"`
	TotalCostCents int                               `json:"total_cost_cents"`
	// SimplifiedUsed/SimplifiedLimit back the single audio-analysis meter:
	// lifetime numbers for free accounts, monthly numbers for paid ones
	SimplifiedUsed  int `json:"simplified_used"`
	SimplifiedLimit int `json:"simplified_limit"`
}

// buildUsageResponse assembles the entitlement view-model for one user:
// per-kind consumption and remaining allowance for the current month.
func (s *Server) buildUsageResponse(ctx context.Context, user *accounts.User) (*usageResponse, error) {
	breakdown, err := s.deps.Ledger.MonthlyBreakdown(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	resp := &usageResponse{
		Tier:           user.Tier,
		Month:          breakdown.Month,
		Usage:          make(map[pricing.UsageKind]kindSummary, len(pricing.UsageKinds())),
		TotalCostCents: breakdown.TotalCostCents,
	}

	for _, kind := range pricing.UsageKinds() {
		used := breakdown.Counts[kind]
		resp.Usage[kind] = kindSummary{
			Used:      used,
			Limit:     s.deps.Catalog.LimitFor(user.Tier, kind),
			Remaining: s.deps.Catalog.RemainingUsage(user.Tier, kind, used),
		}
	}

	// Free accounts meter audio analysis over their lifetime, not the month
	simplifiedUsed := breakdown.Counts[pricing.UsageAudioAnalysis]
	if user.Tier == pricing.TierFree {
		lifetime, err := s.deps.Ledger.Count(ctx, user.ID, pricing.UsageAudioAnalysis, true)
		if err != nil {
			return nil, err
		}
		simplifiedUsed = lifetime
	}
	resp.SimplifiedUsed = simplifiedUsed
	resp.SimplifiedLimit = s.deps.Catalog.SimplifiedLimit(user.Tier)

	return resp, nil
}

// handleUsage returns the caller's own usage meters
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	resp, err := s.buildUsageResponse(r.Context(), user)
	if err != nil {
		s.deps.Logger.WithError(err).Error("failed to load usage breakdown")
		httputil.WriteInternalError(w, errors.New("failed to load usage"))
		return
	}
	httputil.WriteSuccess(w, resp)
}

// handleAdminUserUsage returns any user's usage meters; sits behind the
// admin guard so support staff can inspect an account's entitlements.
func (s *Server) handleAdminUserUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	target, err := s.deps.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		s.deps.Logger.WithError(err).Error("failed to load user for usage inspection")
		httputil.WriteInternalError(w, errors.New("failed to load usage"))
		return
	}

	resp, err := s.buildUsageResponse(r.Context(), target)
	if err != nil {
		s.deps.Logger.WithError(err).Error("failed to load usage breakdown")
		httputil.WriteInternalError(w, errors.New("failed to load usage"))
		return
	}
	httputil.WriteSuccess(w, resp)
}

// handleListTiers returns the tier table clients render on the pricing page
func (s *Server) handleListTiers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{
		"tiers": s.deps.Catalog.Tiers(),
	})
}
