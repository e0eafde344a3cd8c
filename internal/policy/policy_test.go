package policy

import "testing"

func TestCanPerform(t *testing.T) {
	t.Parallel()

	anonymous := Anonymous()
	user := Actor{ID: "user-1", Role: RoleUser}
	admin := Actor{ID: "admin-1", Role: RoleAdmin}
	super := Actor{ID: "root-1", Role: RoleSuperAdmin}

	own := &Target{OwnerID: "user-1"}
	other := &Target{OwnerID: "user-2"}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		target *Target
		want   bool
	}{
		{"anonymous cannot submit", anonymous, ActionSubmit, nil, false},
		{"anonymous cannot cancel", anonymous, ActionCancel, own, false},
		{"anonymous cannot view pending", anonymous, ActionViewPending, own, false},
		{"user submits", user, ActionSubmit, nil, true},
		{"user cannot approve own", user, ActionApprove, own, false},
		{"user cancels own", user, ActionCancel, own, true},
		{"user cannot cancel others", user, ActionCancel, other, false},
		{"user cancel without target", user, ActionCancel, nil, false},
		{"user edits own", user, ActionEdit, own, true},
		{"user cannot edit others", user, ActionEdit, other, false},
		{"admin edits any", admin, ActionEdit, other, true},
		{"user views own pending", user, ActionViewPending, own, true},
		{"user cannot view others pending", user, ActionViewPending, other, false},
		{"user cannot view all", user, ActionViewAll, nil, false},
		{"admin approves", admin, ActionApprove, other, true},
		{"admin cancels any", admin, ActionCancel, other, true},
		{"admin views all", admin, ActionViewAll, nil, true},
		{"super admin approves", super, ActionApprove, nil, true},
		{"super admin views pending", super, ActionViewPending, other, true},
		{"admin unknown action", admin, Action("delete"), nil, false},
		{"role without id is anonymous", Actor{Role: RoleAdmin}, ActionApprove, nil, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CanPerform(tc.actor, tc.action, tc.target); got != tc.want {
				t.Fatalf("CanPerform(%+v, %s) = %v, want %v", tc.actor, tc.action, got, tc.want)
			}
		})
	}
}

func TestCanView(t *testing.T) {
	t.Parallel()

	user := Actor{ID: "user-1", Role: RoleUser}
	admin := Actor{ID: "admin-1", Role: RoleAdmin}

	if !CanView(Anonymous(), "approved", "user-1") || !CanView(Anonymous(), "cancelled", "user-1") {
		t.Fatalf("approved and cancelled bookings must be public")
	}
	if CanView(Anonymous(), "pending", "user-1") {
		t.Fatalf("pending bookings must be hidden from anonymous viewers")
	}
	if !CanView(user, "pending", "user-1") {
		t.Fatalf("owners must see their own pending bookings")
	}
	if CanView(user, "pending", "user-2") {
		t.Fatalf("users must not see other pending bookings")
	}
	if !CanView(admin, "pending", "user-2") {
		t.Fatalf("administrators must see every pending booking")
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	cases := map[string]Role{
		"user":         RoleUser,
		" Admin ":      RoleAdmin,
		"SUPER_ADMIN":  RoleSuperAdmin,
		"":             RoleAnonymous,
		"collaborator": RoleAnonymous,
	}
	for input, want := range cases {
		if got := ParseRole(input); got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", input, got, want)
		}
	}
	if RoleAnonymous.Valid() {
		t.Fatalf("anonymous must not be a storable profile role")
	}
}

func TestCanManageCatalog(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		actor Actor
		want  bool
	}{
		"anonymous":   {Anonymous(), false},
		"user":        {Actor{ID: "u", Role: RoleUser}, false},
		"admin":       {Actor{ID: "a", Role: RoleAdmin}, true},
		"super admin": {Actor{ID: "s", Role: RoleSuperAdmin}, true},
		"admin no id": {Actor{Role: RoleAdmin}, false},
	}
	for name, tc := range cases {
		if got := CanManageCatalog(tc.actor); got != tc.want {
			t.Errorf("%s: CanManageCatalog = %v, want %v", name, got, tc.want)
		}
	}
}
