package workflow

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []model.ServiceRequestStatus{
	model.StatusPending,
	model.StatusAccepted,
	model.StatusInProgress,
	model.StatusCompleted,
	model.StatusCancelled,
	model.StatusRejected,
}

func newActor(roles ...model.Role) *model.User {
	return &model.User{ID: uuid.New(), Roles: model.NewRoleSet(roles...)}
}

func newRequest(client *model.User, status model.ServiceRequestStatus, mechanic *model.User) *model.ServiceRequest {
	req := &model.ServiceRequest{ID: uuid.New(), ClientID: client.ID, Status: status}
	if mechanic != nil {
		req.MechanicID = &mechanic.ID
	}
	return req
}

func TestCanTransition_FreshRequest(t *testing.T) {
	allowed := map[model.ServiceRequestStatus]bool{
		model.StatusAccepted:  true,
		model.StatusRejected:  true,
		model.StatusCancelled: true,
	}

	for _, to := range allStatuses {
		assert.Equal(t, allowed[to], CanTransition(model.StatusPending, to), "pending -> %s", to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(model.StatusCompleted))
	assert.True(t, IsTerminal(model.StatusCancelled))
	assert.True(t, IsTerminal(model.StatusRejected))
	assert.False(t, IsTerminal(model.StatusAccepted))
	assert.Equal(t, []model.ServiceRequestStatus{model.StatusCompleted}, NextStatuses(model.StatusInProgress))
}

func TestAuthorize_Accept(t *testing.T) {
	client := newActor(model.RoleClient)
	mechanic := newActor(model.RoleMechanic)

	t.Run("any mechanic can accept a pending request", func(t *testing.T) {
		req := newRequest(client, model.StatusPending, nil)
		assert.NoError(t, Authorize(mechanic, req, model.StatusAccepted))
	})

	t.Run("client cannot accept", func(t *testing.T) {
		req := newRequest(client, model.StatusPending, nil)

		var authErr *apperror.AuthorizationError
		assert.True(t, errors.As(Authorize(client, req, model.StatusAccepted), &authErr))
	})

	t.Run("already claimed request is a conflict", func(t *testing.T) {
		other := newActor(model.RoleMechanic)
		req := newRequest(client, model.StatusAccepted, other)

		var conflictErr *apperror.ConflictError
		require.True(t, errors.As(Authorize(mechanic, req, model.StatusAccepted), &conflictErr))
		assert.Contains(t, conflictErr.Message, "no longer available")
	})
}

func TestAuthorize_Reject(t *testing.T) {
	client := newActor(model.RoleClient)
	mechanic := newActor(model.RoleMechanic)
	preferred := newActor(model.RoleMechanic)

	req := newRequest(client, model.StatusPending, nil)
	assert.NoError(t, Authorize(mechanic, req, model.StatusRejected))

	req.PreferredMechanicID = &preferred.ID
	assert.Error(t, Authorize(mechanic, req, model.StatusRejected))
	assert.NoError(t, Authorize(preferred, req, model.StatusRejected))

	assert.Error(t, Authorize(client, newRequest(client, model.StatusPending, nil), model.StatusRejected))
}

func TestAuthorize_Cancel(t *testing.T) {
	client := newActor(model.RoleClient)
	mechanic := newActor(model.RoleMechanic)

	t.Run("owner cancels pending and accepted", func(t *testing.T) {
		assert.NoError(t, Authorize(client, newRequest(client, model.StatusPending, nil), model.StatusCancelled))
		assert.NoError(t, Authorize(client, newRequest(client, model.StatusAccepted, mechanic), model.StatusCancelled))
	})

	t.Run("other users cannot cancel", func(t *testing.T) {
		err := Authorize(mechanic, newRequest(client, model.StatusAccepted, mechanic), model.StatusCancelled)

		var authErr *apperror.AuthorizationError
		assert.True(t, errors.As(err, &authErr))
	})

	t.Run("completed request rejects cancel with a state error", func(t *testing.T) {
		err := Authorize(client, newRequest(client, model.StatusCompleted, mechanic), model.StatusCancelled)

		var stateErr *apperror.StateError
		assert.True(t, errors.As(err, &stateErr))
		var transitionErr *apperror.InvalidTransitionError
		assert.True(t, errors.As(err, &transitionErr))
	})
}

func TestAuthorize_Progress(t *testing.T) {
	client := newActor(model.RoleClient)
	mechanic := newActor(model.RoleMechanic)
	other := newActor(model.RoleMechanic)

	accepted := newRequest(client, model.StatusAccepted, mechanic)
	assert.NoError(t, Authorize(mechanic, accepted, model.StatusInProgress))
	assert.Error(t, Authorize(other, accepted, model.StatusInProgress))
	assert.Error(t, Authorize(client, accepted, model.StatusInProgress))

	inProgress := newRequest(client, model.StatusInProgress, mechanic)
	assert.NoError(t, Authorize(mechanic, inProgress, model.StatusCompleted))

	var transitionErr *apperror.InvalidTransitionError
	assert.True(t, errors.As(Authorize(mechanic, accepted, model.StatusCompleted), &transitionErr))
	assert.True(t, errors.As(Authorize(mechanic, inProgress, model.StatusPending), &transitionErr))
}

func TestAuthorize_UnknownStatus(t *testing.T) {
	client := newActor(model.RoleClient)

	var validationErr *apperror.ValidationError
	assert.True(t, errors.As(Authorize(client, newRequest(client, model.StatusPending, nil), "archived"), &validationErr))
}

func TestAuthorizeUpdate(t *testing.T) {
	client := newActor(model.RoleClient)
	mechanic := newActor(model.RoleMechanic)

	assert.NoError(t, AuthorizeUpdate(client, newRequest(client, model.StatusPending, nil)))

	var stateErr *apperror.StateError
	assert.True(t, errors.As(AuthorizeUpdate(client, newRequest(client, model.StatusAccepted, mechanic)), &stateErr))

	var authErr *apperror.AuthorizationError
	assert.True(t, errors.As(AuthorizeUpdate(mechanic, newRequest(client, model.StatusPending, nil)), &authErr))
}

func TestAuthorizeDelete(t *testing.T) {
	client := newActor(model.RoleClient)
	mechanic := newActor(model.RoleMechanic)

	assert.NoError(t, AuthorizeDelete(client, newRequest(client, model.StatusPending, nil)))
	assert.NoError(t, AuthorizeDelete(client, newRequest(client, model.StatusCancelled, nil)))
	assert.Error(t, AuthorizeDelete(client, newRequest(client, model.StatusInProgress, mechanic)))
	assert.Error(t, AuthorizeDelete(newActor(model.RoleAdmin), newRequest(client, model.StatusPending, nil)))
}

func TestAuthorizeRating(t *testing.T) {
	client := newActor(model.RoleClient)
	mechanic := newActor(model.RoleMechanic)

	completed := newRequest(client, model.StatusCompleted, mechanic)
	assert.NoError(t, AuthorizeRating(client, completed))

	rating := 5
	completed.ClientRating = &rating
	var conflictErr *apperror.ConflictError
	assert.True(t, errors.As(AuthorizeRating(client, completed), &conflictErr))

	var stateErr *apperror.StateError
	assert.True(t, errors.As(AuthorizeRating(client, newRequest(client, model.StatusAccepted, mechanic)), &stateErr))
}
