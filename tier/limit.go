// Package tier gates features by subscription level. Limits are tagged
// values: a limit is either Limited(n) or Unlimited, never a magic
// number, so zero means "feature off" without ambiguity.
package tier

import "strconv"

// Tier is the subscription level. It mirrors the platform role today but
// is tracked independently so billing transitions cannot desync
// entitlements from access control.
type Tier string

const (
	TierBasic         Tier = "basic"
	TierPremiumPlayer Tier = "premium_player"
	TierClubAdmin     Tier = "club_admin"
	TierSystemAdmin   Tier = "system_admin"
)

// ParseTier maps a stored tier string onto the enumeration.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierBasic, TierPremiumPlayer, TierClubAdmin, TierSystemAdmin:
		return Tier(s), true
	default:
		return "", false
	}
}

// Feature names a gated capability with a per-tier limit.
type Feature string

const (
	FeatureFriends             Feature = "friends"
	FeatureTournamentCreations Feature = "tournament_creations"
	FeatureMarketplaceListings Feature = "marketplace_listings"
	FeatureSearchRadiusKM      Feature = "search_radius_km"
	FeatureAnalyticsDepth      Feature = "analytics_depth"
)

// Limit is a tagged cap: Limited(n) or Unlimited.
type Limit struct {
	unlimited bool
	n         int
}

// Limited constructs a bounded limit. Negative values clamp to zero.
func Limited(n int) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{n: n}
}

// Unlimited constructs the unbounded limit.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether the limit is unbounded.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the numeric cap; ok is false for Unlimited.
func (l Limit) Value() (int, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Allows reports whether one more unit of usage fits under the limit.
func (l Limit) Allows(currentUsage int) bool {
	if l.unlimited {
		return true
	}
	return currentUsage < l.n
}

// Enabled is the boolean-feature reading of a limit: anything other than
// Limited(0) counts as on.
func (l Limit) Enabled() bool {
	return l.unlimited || l.n != 0
}

func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(l.n)
}

var tierLimits = map[Tier]map[Feature]Limit{
	TierBasic: {
		FeatureFriends:             Limited(20),
		FeatureTournamentCreations: Limited(0),
		FeatureMarketplaceListings: Limited(0),
		FeatureSearchRadiusKM:      Limited(25),
		FeatureAnalyticsDepth:      Limited(0),
	},
	TierPremiumPlayer: {
		FeatureFriends:             Unlimited(),
		FeatureTournamentCreations: Limited(5),
		FeatureMarketplaceListings: Limited(50),
		FeatureSearchRadiusKM:      Limited(100),
		FeatureAnalyticsDepth:      Limited(3),
	},
	TierClubAdmin: {
		FeatureFriends:             Unlimited(),
		FeatureTournamentCreations: Limited(20),
		FeatureMarketplaceListings: Limited(50),
		FeatureSearchRadiusKM:      Limited(100),
		FeatureAnalyticsDepth:      Limited(5),
	},
	TierSystemAdmin: {
		FeatureFriends:             Unlimited(),
		FeatureTournamentCreations: Unlimited(),
		FeatureMarketplaceListings: Unlimited(),
		FeatureSearchRadiusKM:      Unlimited(),
		FeatureAnalyticsDepth:      Unlimited(),
	},
}

// LimitFor looks up a tier's limit for a feature.
func LimitFor(t Tier, f Feature) (Limit, bool) {
	limits, ok := tierLimits[t]
	if !ok {
		return Limit{}, false
	}
	l, ok := limits[f]
	return l, ok
}

// CanAccessFeature is the pure gate decision: unlimited always allows,
// bounded limits require currentUsage strictly below the cap, and an
// unknown tier or feature fails closed.
func CanAccessFeature(t Tier, f Feature, currentUsage int) bool {
	l, ok := LimitFor(t, f)
	if !ok {
		return false
	}
	return l.Allows(currentUsage)
}
