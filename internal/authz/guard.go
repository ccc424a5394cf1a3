// Package authz holds the single authorization decision for the whole
// application. Every mutating or team-scoped request passes through
// Authorize before any store write; the per-endpoint checks live nowhere
// else, so the rule precedence is enforced once.
package authz

import "github.com/jwsummers/techmetrix/internal/model"

type Action string

const (
	ActionRead         Action = "read"
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionMetrics      Action = "metrics"
	ActionAddMember    Action = "add_member"
	ActionRemoveMember Action = "remove_member"
)

// DenyKind tells the transport layer how to fail: unauthenticated callers
// are redirected to sign-in, forbidden ones get an access-denied result.
type DenyKind string

const (
	DenyNone            DenyKind = ""
	DenyUnauthenticated DenyKind = "unauthenticated"
	DenyForbidden       DenyKind = "forbidden"
	DenyDemoRestricted  DenyKind = "demo_restricted"
)

type Decision struct {
	Allowed bool
	Kind    DenyKind
}

var allow = Decision{Allowed: true}

func deny(kind DenyKind) Decision {
	return Decision{Kind: kind}
}

// Resource is the target of an action. Exactly one of Order and Team is
// set; a guarded resource that could not be loaded is passed as the zero
// Resource and denied as forbidden, so missing rows are indistinguishable
// from other users' rows.
type Resource struct {
	Order *model.RepairOrder
	Team  *model.Team
}

func OrderResource(o *model.RepairOrder) Resource { return Resource{Order: o} }
func TeamResource(t *model.Team) Resource         { return Resource{Team: t} }

func membershipMutation(action Action) bool {
	return action == ActionAddMember || action == ActionRemoveMember
}

// Authorize decides whether caller may perform action on res. It is a pure
// function: first matching rule wins, no partial application, no I/O.
func Authorize(caller *model.Identity, action Action, res Resource) Decision {
	if caller == nil || caller.ID == "" {
		return deny(DenyUnauthenticated)
	}

	if res.Order != nil {
		if res.Order.UserID == caller.ID {
			return allow
		}
		return deny(DenyForbidden)
	}

	if res.Team != nil {
		if res.Team.ManagerID != caller.ID {
			return deny(DenyForbidden)
		}
		if caller.DemoRestricted && membershipMutation(action) {
			return deny(DenyDemoRestricted)
		}
		return allow
	}

	// Target resource missing: treated exactly like a resource the caller
	// does not own.
	return deny(DenyForbidden)
}
