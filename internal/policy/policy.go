// Package policy decides which booking actions and views a principal may use.
//
// All role branching for bookings lives here so transport and service code ask
// one question, CanPerform or CanView, instead of inspecting roles themselves.
package policy

import "strings"

// Role is the access level carried by a principal.
type Role string

const (
	RoleAnonymous  Role = "anonymous"
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole normalizes a role name. Unknown names map to RoleAnonymous.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleAnonymous
	}
}

// Valid reports whether r is one of the roles a profile may hold.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// Action names a booking operation subject to authorization.
type Action string

const (
	ActionSubmit      Action = "submit"
	ActionApprove     Action = "approve"
	ActionCancel      Action = "cancel"
	ActionViewPending Action = "view_pending"
	ActionViewAll     Action = "view_all"
	ActionEdit        Action = "edit"

	// ActionManageCatalog covers creating rooms and equipment.
	ActionManageCatalog Action = "manage_catalog"
)

// Actor is the authenticated principal invoking the core. The zero value is anonymous.
type Actor struct {
	ID   string
	Role Role
}

// Anonymous returns the public, unauthenticated actor.
func Anonymous() Actor {
	return Actor{Role: RoleAnonymous}
}

// IsAnonymous reports whether the actor carries no usable identity.
func (a Actor) IsAnonymous() bool {
	return strings.TrimSpace(a.ID) == "" || !a.Role.Valid()
}

// IsAdmin reports whether the actor holds an administrative role.
func (a Actor) IsAdmin() bool {
	return !a.IsAnonymous() && (a.Role == RoleAdmin || a.Role == RoleSuperAdmin)
}

// Target describes the booking an action applies to.
type Target struct {
	OwnerID string
}

// CanPerform evaluates the booking access table.
//
//	role         submit approve cancel(own/any) viewPending(own/any)
//	anonymous    -      -       -   / -         -   / -
//	user         yes    -       yes / -         yes / -
//	admin        yes    yes     yes / yes       yes / yes
//	super_admin  yes    yes     yes / yes       yes / yes
//
// Editing follows the cancel column.
//
// Ownership-scoped actions without a target are evaluated as "any".
func CanPerform(actor Actor, action Action, target *Target) bool {
	if actor.IsAnonymous() {
		return false
	}
	if actor.IsAdmin() {
		switch action {
		case ActionSubmit, ActionApprove, ActionCancel, ActionEdit, ActionViewPending, ActionViewAll, ActionManageCatalog:
			return true
		default:
			return false
		}
	}

	switch action {
	case ActionSubmit:
		return true
	case ActionCancel, ActionEdit, ActionViewPending:
		return target != nil && target.OwnerID != "" && target.OwnerID == actor.ID
	default:
		return false
	}
}

// CanView reports whether actor may see a booking with the given status and owner.
// Approved and cancelled bookings are public; pending ones are visible to their
// owner and administrators only.
func CanView(actor Actor, status string, ownerID string) bool {
	switch status {
	case "approved", "cancelled":
		return true
	case "pending":
		return CanPerform(actor, ActionViewPending, &Target{OwnerID: ownerID})
	default:
		return CanPerform(actor, ActionViewAll, nil)
	}
}

// CanManageCatalog reports whether actor may create rooms and equipment.
func CanManageCatalog(actor Actor) bool {
	return CanPerform(actor, ActionManageCatalog, nil)
}
