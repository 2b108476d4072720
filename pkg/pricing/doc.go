// Package pricing defines the subscription tiers, their usage limits, and the
// entitlement rules that decide whether an account may consume a gated feature.
//
// # Tiers
//
// Free ($0/month):
//   - 1 audio analysis, lifetime
//   - Unlimited chat (no audio)
//
// Pro ($19/month):
//   - 10 audio analyses per month
//   - 50 MIDI generations per month
//   - 5 stem separations per month
//
// Pro Plus ($39/month):
//   - 30 audio analyses per month
//   - Unlimited MIDI generations
//   - 30 stem separations per month
//
// # Usage Example
//
// Check an entitlement before performing an analysis:
//
//	catalog := pricing.NewCatalog()
//	if catalog.HasReachedLimit(tier, pricing.UsageAudioAnalysis, used, tier == pricing.TierFree) {
//		return &pricing.LimitReachedError{Tier: tier, Kind: pricing.UsageAudioAnalysis, Used: used}
//	}
//
// Render remaining usage:
//
//	remaining := catalog.RemainingUsage(tier, pricing.UsageAudioAnalysis, used)
//
// # Related Packages
//
//   - pkg/usage: append-only ledger the entitlement checks count against
//   - pkg/billing: Stripe checkout and subscription lifecycle
package pricing
