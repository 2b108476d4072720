package pricing

import (
	"encoding/json"
	"fmt"
)

// Tier represents a subscription tier
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierProPlus Tier = "pro_plus"
)

// TierFor parses a tier name from external input (API payloads, webhook
// metadata). The second return is false for unknown names.
func TierFor(name string) (Tier, bool) {
	switch Tier(name) {
	case TierFree, TierPro, TierProPlus:
		return Tier(name), true
	}
	return "", false
}

// UsageKind identifies a metered feature
type UsageKind string

const (
	UsageAudioAnalysis  UsageKind = "audioAnalysis"
	UsageMIDIGeneration UsageKind = "midiGeneration"
	UsageStemSeparation UsageKind = "stemSeparation"
)

// UsageKinds returns all metered feature kinds in display order
func UsageKinds() []UsageKind {
	return []UsageKind{UsageAudioAnalysis, UsageMIDIGeneration, UsageStemSeparation}
}

// KindFor parses a usage kind name from external input
func KindFor(name string) (UsageKind, bool) {
	switch UsageKind(name) {
	case UsageAudioAnalysis, UsageMIDIGeneration, UsageStemSeparation:
		return UsageKind(name), true
	}
	return "", false
}

// Limit is a usage cap that is either a finite count or unlimited.
// The zero value is a finite limit of 0 (nothing granted).
type Limit struct {
	n         int
	unlimited bool
}

// Finite returns a limit of n uses
func Finite(n int) Limit {
	return Limit{n: n}
}

// Unlimited returns a limit that is never reached
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether the limit can never be reached
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the finite cap; it is meaningless when IsUnlimited is true
func (l Limit) Value() int {
	return l.n
}

func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", l.n)
}

// MarshalJSON encodes a finite limit as a number and an unlimited one as the
// string "unlimited", matching what subscription-aware clients expect.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(l.n)
}

// UnmarshalJSON accepts either a number or the string "unlimited"
func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unlimited" {
			return fmt.Errorf("invalid limit %q", s)
		}
		*l = Unlimited()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid limit: %w", err)
	}
	*l = Finite(n)
	return nil
}

// TierConfig describes one subscription tier
type TierConfig struct {
	Name                  Tier                `json:"name"`
	DisplayName           string              `json:"display_name"`
	PriceUSD              int                 `json:"price_usd"`
	StripePriceID         string              `json:"stripe_price_id,omitempty"`
	Limits                map[UsageKind]Limit `json:"limits"`
	LifetimeAudioAnalyses *int                `json:"lifetime_audio_analyses,omitempty"`
	Features              []string            `json:"features"`
}

// Catalog holds the tier table. Construct one with NewCatalog and share it;
// handlers and services receive it as a dependency rather than reading a
// package-level singleton.
type Catalog struct {
	tiers map[Tier]TierConfig
}

// NewCatalog returns the catalog with the built-in tier table. Stripe price
// IDs default to placeholder values; override them from configuration with
// SetStripePriceID.
func NewCatalog() *Catalog {
	freeLifetime := 1
	return &Catalog{
		tiers: map[Tier]TierConfig{
			TierFree: {
				Name:        TierFree,
				DisplayName: "Free",
				PriceUSD:    0,
				Limits: map[UsageKind]Limit{
					UsageAudioAnalysis: Finite(0),
				},
				LifetimeAudioAnalyses: &freeLifetime,
				Features: []string{
					"1 audio analysis (lifetime)",
					"Unlimited chat (no audio)",
					"30-day history",
					"1 project",
				},
			},
			TierPro: {
				Name:          TierPro,
				DisplayName:   "Pro",
				PriceUSD:      19,
				StripePriceID: "price_pro_monthly",
				Limits: map[UsageKind]Limit{
					UsageAudioAnalysis:  Finite(10),
					UsageMIDIGeneration: Finite(50),
					UsageStemSeparation: Finite(5),
				},
				Features: []string{
					"10 audio analyses per month",
					"50 MIDI generations per month",
					"5 stem separations per month",
					"Unlimited chat & history",
					"10 projects",
					"PDF export",
					"Priority support",
				},
			},
			TierProPlus: {
				Name:          TierProPlus,
				DisplayName:   "Pro Plus",
				PriceUSD:      39,
				StripePriceID: "price_pro_plus_monthly",
				Limits: map[UsageKind]Limit{
					UsageAudioAnalysis:  Finite(30),
					UsageMIDIGeneration: Unlimited(),
					UsageStemSeparation: Finite(30),
				},
				Features: []string{
					"30 audio analyses per month",
					"Unlimited MIDI generations",
					"30 stem separations per month",
					"Unlimited projects",
					"5 collaborators per project",
					"100GB storage",
					"API access",
					"Priority chat support",
				},
			},
		},
	}
}

// SetStripePriceID overrides the Stripe price ID for a paid tier
func (c *Catalog) SetStripePriceID(tier Tier, priceID string) {
	cfg, ok := c.tiers[tier]
	if !ok || priceID == "" {
		return
	}
	cfg.StripePriceID = priceID
	c.tiers[tier] = cfg
}

// Config returns the configuration for a tier. Unknown tiers fall back to
// free so a corrupted tier column never grants paid limits.
func (c *Catalog) Config(tier Tier) TierConfig {
	if cfg, ok := c.tiers[tier]; ok {
		return cfg
	}
	return c.tiers[TierFree]
}

// Tiers returns all tier configurations ordered free, pro, pro_plus
func (c *Catalog) Tiers() []TierConfig {
	return []TierConfig{c.tiers[TierFree], c.tiers[TierPro], c.tiers[TierProPlus]}
}

// LimitFor returns the monthly limit for a usage kind on a tier. Kinds the
// tier does not grant at all get a finite limit of 0.
func (c *Catalog) LimitFor(tier Tier, kind UsageKind) Limit {
	cfg := c.Config(tier)
	if limit, ok := cfg.Limits[kind]; ok {
		return limit
	}
	return Finite(0)
}

// SimplifiedLimit returns the single audio-analysis cap a meter widget shows:
// the lifetime cap for free accounts and the monthly cap for paid ones.
func (c *Catalog) SimplifiedLimit(tier Tier) int {
	cfg := c.Config(tier)
	if tier == TierFree {
		if cfg.LifetimeAudioAnalyses != nil {
			return *cfg.LifetimeAudioAnalyses
		}
		return 1
	}
	return cfg.Limits[UsageAudioAnalysis].Value()
}
