package tier

import "testing"

func TestLimitSemantics(t *testing.T) {
	if !Unlimited().Allows(1 << 30) {
		t.Error("Unlimited denied usage")
	}
	if Limited(0).Allows(0) {
		t.Error("Limited(0) allowed usage")
	}
	if Limited(0).Enabled() {
		t.Error("Limited(0) reads as enabled")
	}
	if !Limited(1).Enabled() {
		t.Error("Limited(1) reads as disabled")
	}
	if !Unlimited().Enabled() {
		t.Error("Unlimited reads as disabled")
	}

	// Boundary: usage strictly below the cap passes, at the cap fails.
	if !Limited(50).Allows(49) {
		t.Error("usage 49 of 50 denied")
	}
	if Limited(50).Allows(50) {
		t.Error("usage 50 of 50 allowed")
	}

	if Limited(-3) != Limited(0) {
		t.Error("negative limit did not clamp to zero")
	}

	if got := Limited(5).String(); got != "5" {
		t.Errorf("String() = %q, want 5", got)
	}
	if got := Unlimited().String(); got != "unlimited" {
		t.Errorf("String() = %q, want unlimited", got)
	}
}

func TestLimitValue(t *testing.T) {
	if v, ok := Limited(7).Value(); !ok || v != 7 {
		t.Errorf("Limited(7).Value() = (%d, %v)", v, ok)
	}
	if _, ok := Unlimited().Value(); ok {
		t.Error("Unlimited().Value() reported a numeric cap")
	}
}

func TestCanAccessFeatureScenarios(t *testing.T) {
	cases := []struct {
		name    string
		tier    Tier
		feature Feature
		usage   int
		want    bool
	}{
		{"basic cannot list on marketplace", TierBasic, FeatureMarketplaceListings, 0, false},
		{"basic cannot create tournaments", TierBasic, FeatureTournamentCreations, 0, false},
		{"basic under friend cap", TierBasic, FeatureFriends, 19, true},
		{"basic at friend cap", TierBasic, FeatureFriends, 20, false},
		{"premium under listing cap", TierPremiumPlayer, FeatureMarketplaceListings, 49, true},
		{"premium at listing cap", TierPremiumPlayer, FeatureMarketplaceListings, 50, false},
		{"premium unlimited friends", TierPremiumPlayer, FeatureFriends, 100000, true},
		{"club admin creation headroom", TierClubAdmin, FeatureTournamentCreations, 19, true},
		{"system admin unlimited everywhere", TierSystemAdmin, FeatureMarketplaceListings, 1 << 20, true},
		{"unknown tier fails closed", Tier("gold"), FeatureFriends, 0, false},
		{"unknown feature fails closed", TierSystemAdmin, Feature("teleport"), 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccessFeature(tc.tier, tc.feature, tc.usage); got != tc.want {
				t.Errorf("CanAccessFeature(%s, %s, %d) = %v, want %v", tc.tier, tc.feature, tc.usage, got, tc.want)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	for _, s := range []string{"basic", "premium_player", "club_admin", "system_admin"} {
		if _, ok := ParseTier(s); !ok {
			t.Errorf("ParseTier(%q) rejected a valid tier", s)
		}
	}
	if _, ok := ParseTier("platinum"); ok {
		t.Error("ParseTier accepted an unknown tier")
	}
}
