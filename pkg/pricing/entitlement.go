package pricing

import "fmt"

// LimitReachedError reports that an account has exhausted its allowance for a
// metered feature
type LimitReachedError struct {
	Tier  Tier
	Kind  UsageKind
	Used  int
	Limit Limit
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("usage limit reached for %s on tier %s (%d of %s used)", e.Kind, e.Tier, e.Used, e.Limit)
}

// IsLimitReached checks if an error is a limit reached error
func IsLimitReached(err error) bool {
	_, ok := err.(*LimitReachedError)
	return ok
}

// HasReachedLimit reports whether an account on the given tier has exhausted
// its allowance for a usage kind.
//
// Free accounts carry a lifetime audio-analysis cap instead of a monthly one;
// callers pass lifetime=true together with a lifetime usage count for that
// check. A free tier with no lifetime cap configured grants nothing.
// Negative usage counts are treated as zero.
func (c *Catalog) HasReachedLimit(tier Tier, kind UsageKind, currentUsage int, lifetime bool) bool {
	if currentUsage < 0 {
		currentUsage = 0
	}

	if tier == TierFree && kind == UsageAudioAnalysis && lifetime {
		cfg := c.Config(tier)
		lifetimeCap := 0
		if cfg.LifetimeAudioAnalyses != nil {
			lifetimeCap = *cfg.LifetimeAudioAnalyses
		}
		return currentUsage >= lifetimeCap
	}

	limit := c.LimitFor(tier, kind)
	if limit.IsUnlimited() {
		return false
	}
	return currentUsage >= limit.Value()
}

// RemainingUsage returns how much allowance is left this month. The result
// never goes negative; unlimited stays unlimited.
func (c *Catalog) RemainingUsage(tier Tier, kind UsageKind, currentUsage int) Limit {
	limit := c.LimitFor(tier, kind)
	if limit.IsUnlimited() {
		return Unlimited()
	}
	remaining := limit.Value() - currentUsage
	if remaining < 0 {
		remaining = 0
	}
	return Finite(remaining)
}

// UpgradeMessage returns the message shown when a limit is hit: free accounts
// are pitched Pro, Pro accounts are pitched Pro Plus, and Pro Plus accounts
// are told to wait for the next billing cycle.
func (c *Catalog) UpgradeMessage(tier Tier, kind UsageKind) string {
	cfg := c.Config(tier)

	switch tier {
	case TierFree:
		lifetime := 1
		if cfg.LifetimeAudioAnalyses != nil {
			lifetime = *cfg.LifetimeAudioAnalyses
		}
		pro := c.Config(TierPro)
		return fmt.Sprintf(
			"Free tier limit reached. You've used your %d lifetime analysis. Upgrade to Pro for $%d/month to get %d analyses per month.",
			lifetime, pro.PriceUSD, pro.Limits[UsageAudioAnalysis].Value())
	case TierPro:
		proPlus := c.Config(TierProPlus)
		return fmt.Sprintf(
			"Pro tier limit reached. You've used all %d analyses this month. Upgrade to Pro Plus for $%d/month to get %d analyses per month.",
			cfg.Limits[UsageAudioAnalysis].Value(), proPlus.PriceUSD, proPlus.Limits[UsageAudioAnalysis].Value())
	}

	return "You've reached your monthly limit. Your limit will reset at the start of your next billing cycle."
}
