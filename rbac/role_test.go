package rbac

import "testing"

func TestRoleHierarchyIsAdditive(t *testing.T) {
	ladder := []Role{RoleBasic, RolePremiumPlayer, RoleClubAdmin, RoleSystemAdmin}

	// Every permission held by a role must be held by every role above
	// it. This is the monotonicity guarantee the whole table rests on.
	for i := 0; i < len(ladder)-1; i++ {
		lower, higher := ladder[i], ladder[i+1]
		for _, perm := range Permissions(lower) {
			if !HasPermission(higher, Permission(perm)) {
				t.Errorf("%s holds %q but %s does not", lower, perm, higher)
			}
		}
	}
}

func TestExclusivePermissionsStayAtTheTop(t *testing.T) {
	for _, role := range []Role{RoleBasic, RolePremiumPlayer, RoleClubAdmin} {
		if HasPermission(role, PermUserManage) {
			t.Errorf("%s holds user.manage", role)
		}
		if HasPermission(role, PermPlatformManage) {
			t.Errorf("%s holds platform.manage", role)
		}
	}

	if !HasPermission(RoleSystemAdmin, PermUserManage) {
		t.Error("system_admin missing user.manage")
	}
	if !HasPermission(RoleSystemAdmin, PermPlatformManage) {
		t.Error("system_admin missing platform.manage")
	}
}

func TestPermissionTableSpotChecks(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleBasic, PermProfileRead, true},
		{RoleBasic, PermTournamentRegister, true},
		{RoleBasic, PermTournamentCreate, false},
		{RoleBasic, PermSearchExtended, false},
		{RolePremiumPlayer, PermTournamentCreate, true},
		{RolePremiumPlayer, PermMarketplacePurchase, true},
		{RolePremiumPlayer, PermClubManage, false},
		{RoleClubAdmin, PermClubManage, true},
		{RoleClubAdmin, PermAnnouncementPublish, true},
		{RoleClubAdmin, PermSearchBasic, true},
		{RoleSystemAdmin, PermFriendAdd, true},
	}

	for _, tc := range cases {
		if got := HasPermission(tc.role, tc.perm); got != tc.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestUnknownRoleHoldsNothing(t *testing.T) {
	if HasPermission(Role("superuser"), PermProfileRead) {
		t.Error("unknown role resolved to a permission")
	}
	if perms := Permissions(Role("superuser")); perms != nil {
		t.Errorf("unknown role has permission list %v", perms)
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"basic", "premium_player", "club_admin", "system_admin"} {
		if _, ok := ParseRole(s); !ok {
			t.Errorf("ParseRole(%q) rejected a valid role", s)
		}
	}
	for _, s := range []string{"", "admin", "BASIC", "premium"} {
		if role, ok := ParseRole(s); ok {
			t.Errorf("ParseRole(%q) = %q, want rejection", s, role)
		}
	}
}

func TestPermissionsAreSorted(t *testing.T) {
	perms := Permissions(RoleSystemAdmin)
	if len(perms) == 0 {
		t.Fatal("system_admin has no permissions")
	}
	for i := 1; i < len(perms); i++ {
		if perms[i-1] >= perms[i] {
			t.Fatalf("permission list not strictly sorted at %d: %q >= %q", i, perms[i-1], perms[i])
		}
	}
}
