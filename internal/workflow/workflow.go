// Package workflow holds the service-request state machine: which status changes
// exist and who may perform them.
package workflow

import (
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/model"
)

var transitions = map[model.ServiceRequestStatus][]model.ServiceRequestStatus{
	model.StatusPending:    {model.StatusAccepted, model.StatusRejected, model.StatusCancelled},
	model.StatusAccepted:   {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted},
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s model.ServiceRequestStatus) []model.ServiceRequestStatus {
	return transitions[s]
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.ServiceRequestStatus) bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to model.ServiceRequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Authorize checks that actor may move req to the target status.
//
// Accepting is special-cased: a request that is no longer pending or already has a
// mechanic yields a ConflictError instead of an invalid transition, since the usual
// cause is another mechanic winning the claim.
func Authorize(actor *model.User, req *model.ServiceRequest, to model.ServiceRequestStatus) error {
	if !to.Valid() {
		return apperror.NewFieldValidation("status", "is invalid")
	}

	if to == model.StatusAccepted {
		if !actor.HasRole(model.RoleMechanic) {
			return apperror.NewAuthorization("only mechanics can accept service requests")
		}
		if req.Status != model.StatusPending || req.MechanicID != nil {
			return apperror.NewConflict("this service request is no longer available")
		}
		return nil
	}

	if !CanTransition(req.Status, to) {
		return apperror.NewInvalidTransition(string(req.Status), string(to))
	}

	switch to {
	case model.StatusRejected:
		if !actor.HasRole(model.RoleMechanic) {
			return apperror.NewAuthorization("only mechanics can reject service requests")
		}
		if !preferredMechanicAllows(actor, req) {
			return apperror.NewAuthorization("only the preferred mechanic can reject this service request")
		}
	case model.StatusCancelled:
		if !req.IsOwnedBy(actor.ID) {
			return apperror.NewAuthorization("only the client who created the request can cancel it")
		}
	case model.StatusInProgress, model.StatusCompleted:
		if !actor.HasRole(model.RoleMechanic) || !req.IsAssignedTo(actor.ID) {
			return apperror.NewAuthorization("only the assigned mechanic can change this status")
		}
	}
	return nil
}

// AuthorizeUpdate allows the owning client to edit a request while it is pending.
func AuthorizeUpdate(actor *model.User, req *model.ServiceRequest) error {
	if !req.IsOwnedBy(actor.ID) {
		return apperror.NewAuthorization("only the client who created the request can edit it")
	}
	if req.Status != model.StatusPending {
		return apperror.NewState("a service request can only be edited while pending, current status is %s", req.Status)
	}
	return nil
}

// AuthorizeDelete allows the owning client to delete a pending or cancelled request.
func AuthorizeDelete(actor *model.User, req *model.ServiceRequest) error {
	if !req.IsOwnedBy(actor.ID) {
		return apperror.NewAuthorization("only the client who created the request can delete it")
	}
	if req.Status != model.StatusPending && req.Status != model.StatusCancelled {
		return apperror.NewState("a service request can only be deleted while pending or cancelled, current status is %s", req.Status)
	}
	return nil
}

// AuthorizeRating allows the owning client to rate a completed request once.
func AuthorizeRating(actor *model.User, req *model.ServiceRequest) error {
	if !req.IsOwnedBy(actor.ID) {
		return apperror.NewAuthorization("only the client who created the request can rate it")
	}
	if req.Status != model.StatusCompleted || req.MechanicID == nil {
		return apperror.NewState("only completed service requests can be rated")
	}
	if req.ClientRating != nil {
		return apperror.NewConflict("this service request has already been rated")
	}
	return nil
}

func preferredMechanicAllows(actor *model.User, req *model.ServiceRequest) bool {
	return req.PreferredMechanicID == nil || *req.PreferredMechanicID == actor.ID
}
