package tier

import (
	"context"
	"errors"
)

// UsageProvider supplies fresh usage counts for countable features. The
// gate never caches these; every check recomputes against live data.
type UsageProvider interface {
	FriendCount(ctx context.Context, userID string) (int, error)
	TournamentCreationsThisMonth(ctx context.Context, userID string) (int, error)
	ActiveListings(ctx context.Context, userID string) (int, error)
}

// TierResolver resolves a user's current tier from the identity store.
// Token-embedded tiers are a stale snapshot and must not be used here.
type TierResolver interface {
	TierFor(ctx context.Context, userID string) (Tier, error)
}

// LimitStatus pairs fresh usage with the tier's cap for one feature.
type LimitStatus struct {
	Current int
	Limit   Limit
}

// Gate evaluates usage against tier limits through live collaborator
// reads.
type Gate struct {
	usage    UsageProvider
	resolver TierResolver
}

// NewGate wires the usage and tier collaborators.
func NewGate(usage UsageProvider, resolver TierResolver) (*Gate, error) {
	if usage == nil || resolver == nil {
		return nil, errors.New("tier: usage provider and tier resolver are required")
	}
	return &Gate{usage: usage, resolver: resolver}, nil
}

// Allows re-resolves the user's tier and, for countable features, their
// fresh usage, then applies the limit. Boolean features reduce to the
// limit being non-zero.
func (g *Gate) Allows(ctx context.Context, userID string, feature Feature) (bool, error) {
	t, err := g.resolver.TierFor(ctx, userID)
	if err != nil {
		return false, err
	}

	l, ok := LimitFor(t, feature)
	if !ok {
		return false, nil
	}

	switch feature {
	case FeatureFriends, FeatureTournamentCreations, FeatureMarketplaceListings:
		current, err := g.usageFor(ctx, userID, feature)
		if err != nil {
			return false, err
		}
		return l.Allows(current), nil
	default:
		return l.Enabled(), nil
	}
}

// CheckLimits returns only the countable features at or over capacity for
// the user's current tier. Unlimited features never appear.
func (g *Gate) CheckLimits(ctx context.Context, userID string) (map[Feature]LimitStatus, error) {
	t, err := g.resolver.TierFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	countable := []Feature{FeatureFriends, FeatureTournamentCreations, FeatureMarketplaceListings}
	out := make(map[Feature]LimitStatus)

	for _, feature := range countable {
		l, ok := LimitFor(t, feature)
		if !ok || l.IsUnlimited() {
			continue
		}

		current, err := g.usageFor(ctx, userID, feature)
		if err != nil {
			return nil, err
		}

		if !l.Allows(current) {
			out[feature] = LimitStatus{Current: current, Limit: l}
		}
	}

	return out, nil
}

func (g *Gate) usageFor(ctx context.Context, userID string, feature Feature) (int, error) {
	switch feature {
	case FeatureFriends:
		return g.usage.FriendCount(ctx, userID)
	case FeatureTournamentCreations:
		return g.usage.TournamentCreationsThisMonth(ctx, userID)
	case FeatureMarketplaceListings:
		return g.usage.ActiveListings(ctx, userID)
	default:
		return 0, nil
	}
}
