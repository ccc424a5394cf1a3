package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwsummers/techmetrix/internal/model"
)

func TestAuthorize(t *testing.T) {
	owner := &model.Identity{ID: "user-1", Username: "jsummers", Role: model.RoleUser}
	other := &model.Identity{ID: "user-2", Username: "mreynolds", Role: model.RoleUser}
	manager := &model.Identity{ID: "admin-1", Username: "boss", Role: model.RoleAdmin}
	otherAdmin := &model.Identity{ID: "admin-2", Username: "rival", Role: model.RoleAdmin}
	demoManager := &model.Identity{ID: "admin-1", Username: "demoadmin", Role: model.RoleAdmin, DemoRestricted: true}

	order := &model.RepairOrder{ID: "ro-1", UserID: "user-1"}
	team := &model.Team{ID: "team-1", Name: "night shift", ManagerID: "admin-1"}

	tests := []struct {
		name     string
		caller   *model.Identity
		action   Action
		resource Resource
		allowed  bool
		kind     DenyKind
	}{
		{
			name:     "no caller is unauthenticated",
			caller:   nil,
			action:   ActionRead,
			resource: OrderResource(order),
			kind:     DenyUnauthenticated,
		},
		{
			name:     "caller without id is unauthenticated",
			caller:   &model.Identity{},
			action:   ActionUpdate,
			resource: OrderResource(order),
			kind:     DenyUnauthenticated,
		},
		{
			name:     "owner may update own order",
			caller:   owner,
			action:   ActionUpdate,
			resource: OrderResource(order),
			allowed:  true,
		},
		{
			name:     "owner may delete own order",
			caller:   owner,
			action:   ActionDelete,
			resource: OrderResource(order),
			allowed:  true,
		},
		{
			name:     "other user may not update the order",
			caller:   other,
			action:   ActionUpdate,
			resource: OrderResource(order),
			kind:     DenyForbidden,
		},
		{
			name:     "other user may not delete the order",
			caller:   other,
			action:   ActionDelete,
			resource: OrderResource(order),
			kind:     DenyForbidden,
		},
		{
			name:     "even an admin may not touch another user's order",
			caller:   manager,
			action:   ActionDelete,
			resource: OrderResource(order),
			kind:     DenyForbidden,
		},
		{
			name:     "manager may read own team",
			caller:   manager,
			action:   ActionRead,
			resource: TeamResource(team),
			allowed:  true,
		},
		{
			name:     "manager may view team metrics",
			caller:   manager,
			action:   ActionMetrics,
			resource: TeamResource(team),
			allowed:  true,
		},
		{
			name:     "manager may delete own team",
			caller:   manager,
			action:   ActionDelete,
			resource: TeamResource(team),
			allowed:  true,
		},
		{
			name:     "manager may add members",
			caller:   manager,
			action:   ActionAddMember,
			resource: TeamResource(team),
			allowed:  true,
		},
		{
			name:     "another admin may not act on the team",
			caller:   otherAdmin,
			action:   ActionAddMember,
			resource: TeamResource(team),
			kind:     DenyForbidden,
		},
		{
			name:     "another admin may not read team metrics",
			caller:   otherAdmin,
			action:   ActionMetrics,
			resource: TeamResource(team),
			kind:     DenyForbidden,
		},
		{
			name:     "demo manager may still read",
			caller:   demoManager,
			action:   ActionRead,
			resource: TeamResource(team),
			allowed:  true,
		},
		{
			name:     "demo manager may still view metrics",
			caller:   demoManager,
			action:   ActionMetrics,
			resource: TeamResource(team),
			allowed:  true,
		},
		{
			name:     "demo manager may not add members",
			caller:   demoManager,
			action:   ActionAddMember,
			resource: TeamResource(team),
			kind:     DenyDemoRestricted,
		},
		{
			name:     "demo manager may not remove members",
			caller:   demoManager,
			action:   ActionRemoveMember,
			resource: TeamResource(team),
			kind:     DenyDemoRestricted,
		},
		{
			name:     "ownership outranks the demo restriction for other admins",
			caller:   &model.Identity{ID: "admin-2", DemoRestricted: true},
			action:   ActionAddMember,
			resource: TeamResource(team),
			kind:     DenyForbidden,
		},
		{
			name:    "missing resource is forbidden, not a distinct not-found",
			caller:  owner,
			action:  ActionDelete,
			kind:    DenyForbidden,
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.caller, tt.action, tt.resource)
			assert.Equal(t, tt.allowed, got.Allowed)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}
}

func TestAuthorizeIsPure(t *testing.T) {
	caller := &model.Identity{ID: "user-1"}
	order := &model.RepairOrder{ID: "ro-1", UserID: "user-2"}

	first := Authorize(caller, ActionUpdate, OrderResource(order))
	second := Authorize(caller, ActionUpdate, OrderResource(order))

	assert.Equal(t, first, second)
	assert.Equal(t, "user-2", order.UserID)
}
