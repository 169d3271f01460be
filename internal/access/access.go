// Package access implements the role and ownership checks guarding every operation.
package access

import (
	"strings"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/model"
)

// Capability is the set of roles of which the caller must hold at least one.
type Capability []model.Role

var (
	Clients         = Capability{model.RoleClient}
	Mechanics       = Capability{model.RoleMechanic}
	Admins          = Capability{model.RoleAdmin}
	MechanicsAdmins = Capability{model.RoleMechanic, model.RoleAdmin}
	ClientsAdmins   = Capability{model.RoleClient, model.RoleAdmin}
	Anyone          = Capability{model.RoleClient, model.RoleMechanic, model.RoleAdmin}
)

func (c Capability) String() string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// Require fails with an AuthorizationError unless actor holds a role in c.
func Require(actor *model.User, c Capability) error {
	if actor == nil {
		return apperror.NewUnauthenticated("authentication required")
	}
	if !actor.Roles.HasAny(c...) {
		return apperror.NewAuthorization("this action requires one of the roles: " + c.String())
	}
	return nil
}

// OwnerOrAdmin allows the owner of a resource and administrators.
func OwnerOrAdmin(actor *model.User, ownerID uuid.UUID) error {
	if actor.ID == ownerID || actor.IsAdmin() {
		return nil
	}
	return apperror.NewAuthorization("you do not have access to this resource")
}

// ServiceRequestParty allows the owning client, the assigned mechanic and administrators.
func ServiceRequestParty(actor *model.User, req *model.ServiceRequest) error {
	if req.IsOwnedBy(actor.ID) || req.IsAssignedTo(actor.ID) || actor.IsAdmin() {
		return nil
	}
	return apperror.NewAuthorization("you do not have access to this service request")
}

// NotSelf rejects admin operations targeting the acting user.
func NotSelf(actor *model.User, targetID uuid.UUID, action string) error {
	if actor.ID == targetID {
		return apperror.NewAuthorization("you cannot " + action + " your own account")
	}
	return nil
}
