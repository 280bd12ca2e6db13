// Package rbac evaluates role-based permissions and resource-ownership
// predicates. The role→permission table is fixed at package init and
// read-only afterwards; predicates combine a table lookup with a single
// consistent snapshot read from a resource collaborator.
package rbac

import "sort"

// Role is the enumerated platform role. Effective permissions are
// additive up the ladder: basic ⊂ premium_player ⊂ club_admin ⊂
// system_admin, except for role-exclusive administrative permissions.
type Role string

const (
	RoleBasic         Role = "basic"
	RolePremiumPlayer Role = "premium_player"
	RoleClubAdmin     Role = "club_admin"
	RoleSystemAdmin   Role = "system_admin"
)

// ParseRole maps a stored role string onto the enumeration. Unknown
// strings are rejected so a corrupted identity record cannot resolve to
// any permission set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleBasic, RolePremiumPlayer, RoleClubAdmin, RoleSystemAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Permission names a single grantable capability.
type Permission string

const (
	PermProfileRead        Permission = "profile.read"
	PermProfileEdit        Permission = "profile.edit"
	PermTournamentView     Permission = "tournament.view"
	PermTournamentRegister Permission = "tournament.register"
	PermClubView           Permission = "club.view"
	PermFriendAdd          Permission = "friend.add"
	PermSearchBasic        Permission = "search.basic"

	PermTournamentCreate    Permission = "tournament.create"
	PermMarketplaceList     Permission = "marketplace.list"
	PermMarketplacePurchase Permission = "marketplace.purchase"
	PermAnalyticsView       Permission = "analytics.view"
	PermSearchExtended      Permission = "search.extended"

	PermClubManage          Permission = "club.manage"
	PermClubMembersManage   Permission = "club.members.manage"
	PermTournamentManage    Permission = "tournament.manage"
	PermAnnouncementPublish Permission = "announcement.publish"

	// Role-exclusive: only system_admin, never inherited downwards.
	PermUserManage     Permission = "user.manage"
	PermPlatformManage Permission = "platform.manage"
)

// Each role lists only the permissions it adds over the role below it;
// the effective table is built as unions at init.
var (
	basicGrants = []Permission{
		PermProfileRead, PermProfileEdit,
		PermTournamentView, PermTournamentRegister,
		PermClubView, PermFriendAdd, PermSearchBasic,
	}
	premiumGrants = []Permission{
		PermTournamentCreate,
		PermMarketplaceList, PermMarketplacePurchase,
		PermAnalyticsView, PermSearchExtended,
	}
	clubAdminGrants = []Permission{
		PermClubManage, PermClubMembersManage,
		PermTournamentManage, PermAnnouncementPublish,
	}
	systemAdminGrants = []Permission{
		PermUserManage, PermPlatformManage,
	}
)

var rolePermissions map[Role]map[Permission]struct{}

func init() {
	basic := permSet(nil, basicGrants)
	premium := permSet(basic, premiumGrants)
	clubAdmin := permSet(premium, clubAdminGrants)
	systemAdmin := permSet(clubAdmin, systemAdminGrants)

	rolePermissions = map[Role]map[Permission]struct{}{
		RoleBasic:         basic,
		RolePremiumPlayer: premium,
		RoleClubAdmin:     clubAdmin,
		RoleSystemAdmin:   systemAdmin,
	}
}

func permSet(base map[Permission]struct{}, grants []Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(base)+len(grants))
	for p := range base {
		set[p] = struct{}{}
	}
	for _, p := range grants {
		set[p] = struct{}{}
	}
	return set
}

// HasPermission is a pure table lookup. Unknown roles hold no
// permissions.
func HasPermission(role Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// Permissions returns the role's effective permission set as a sorted
// string slice, the form embedded in access-token snapshots.
func Permissions(role Role) []string {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}
