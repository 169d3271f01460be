package service

import (
	"context"
	"log/slog"
	"net/mail"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/access"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
)

// AdminUserInput carries the fields an administrator may change on a user. Nil fields are
// left unchanged; a non-nil Roles replaces the whole role set.
type AdminUserInput struct {
	Name  *string
	Email *string
	Phone *string
	Roles *[]model.Role
}

// AdminService implements user administration. Every operation requires the administrator
// role, refuses to target the acting administrator where that would lock them out and
// keeps at least one administrator in the system.
type AdminService struct {
	repos repository.Transactor
}

// NewAdminService creates a new AdminService.
func NewAdminService(repos repository.Transactor) *AdminService {
	return &AdminService{repos: repos}
}

// ListUsers lists users matching the query.
func (s *AdminService) ListUsers(ctx context.Context, actor *model.User, query repository.Query) ([]*model.User, error) {
	if err := access.Require(actor, access.Admins); err != nil {
		return nil, err
	}
	if role, ok := query.Values[repository.RoleField]; ok && !model.Role(role).Valid() {
		return nil, apperror.NewFieldValidation("role", "is invalid")
	}

	users, err := s.repos.Users().List(ctx, query)
	if err != nil {
		return nil, translate(err, "user")
	}
	return users, nil
}

// UpdateUser edits a user's account data and, optionally, its role set.
func (s *AdminService) UpdateUser(ctx context.Context, actor *model.User, id uuid.UUID, in AdminUserInput) (*model.User, error) {
	if err := access.Require(actor, access.Admins); err != nil {
		return nil, err
	}

	var updated *model.User
	err := s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users().FindByID(ctx, id)
		if err != nil {
			return translate(err, "user")
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperror.NewFieldValidation("name", "is required")
			}
			user.Name = name
		}
		if in.Email != nil {
			email := normalizeEmail(*in.Email)
			if _, err := mail.ParseAddress(email); err != nil {
				return apperror.NewFieldValidation("email", "must be a valid email address")
			}
			user.Email = email
		}
		setIfPresent(&user.Phone, in.Phone)

		if in.Roles != nil {
			roles := model.NewRoleSet(*in.Roles...)
			for r := range roles {
				if !r.Valid() {
					return apperror.NewFieldValidation("roles", "contains an unknown role: "+string(r))
				}
			}
			if len(roles) == 0 {
				return apperror.NewFieldValidation("roles", "a user must keep at least one role")
			}
			if user.IsAdmin() && !roles.Has(model.RoleAdmin) {
				if err := ensureAnotherAdmin(ctx, repos, user.ID); err != nil {
					return err
				}
			}
			user.Roles = roles
		}

		if err := repos.Users().Update(ctx, user); err != nil {
			return translate(err, "user")
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user other than the acting administrator.
func (s *AdminService) DeleteUser(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if err := access.Require(actor, access.Admins); err != nil {
		return err
	}
	if err := access.NotSelf(actor, id, "delete"); err != nil {
		return err
	}

	err := s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users().FindByID(ctx, id)
		if err != nil {
			return translate(err, "user")
		}
		if user.IsAdmin() {
			if err := ensureAnotherAdmin(ctx, repos, user.ID); err != nil {
				return err
			}
		}
		return translate(repos.Users().Delete(ctx, id), "user")
	})
	if err != nil {
		return err
	}

	slog.Info("user deleted", slog.String("user_id", id.String()), slog.String("by", actor.ID.String()))
	return nil
}

// AssignRole adds role to a user.
func (s *AdminService) AssignRole(ctx context.Context, actor *model.User, id uuid.UUID, role model.Role) (*model.User, error) {
	if err := access.Require(actor, access.Admins); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperror.NewFieldValidation("role", "is invalid")
	}

	user, err := s.repos.Users().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user")
	}
	if user.HasRole(role) {
		return user, nil
	}
	user.Roles.Add(role)

	if err := s.repos.Users().Update(ctx, user); err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

// RemoveRole removes role from a user. The last administrator keeps the administrator role
// and every user keeps at least one role.
func (s *AdminService) RemoveRole(ctx context.Context, actor *model.User, id uuid.UUID, role model.Role) (*model.User, error) {
	if err := access.Require(actor, access.Admins); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperror.NewFieldValidation("role", "is invalid")
	}

	var updated *model.User
	err := s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users().FindByID(ctx, id)
		if err != nil {
			return translate(err, "user")
		}
		if !user.HasRole(role) {
			return apperror.NewFieldValidation("role", "the user does not have this role")
		}
		if len(user.Roles) == 1 {
			return apperror.NewFieldValidation("role", "a user must keep at least one role")
		}
		if role == model.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, repos, user.ID); err != nil {
				return err
			}
		}

		user.Roles.Remove(role)
		if err := repos.Users().Update(ctx, user); err != nil {
			return translate(err, "user")
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStatus activates or deactivates another user. A nil active toggles the current status.
func (s *AdminService) SetStatus(ctx context.Context, actor *model.User, id uuid.UUID, active *bool) (*model.User, error) {
	if err := access.Require(actor, access.Admins); err != nil {
		return nil, err
	}
	if err := access.NotSelf(actor, id, "change the status of"); err != nil {
		return nil, err
	}

	user, err := s.repos.Users().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user")
	}
	if active == nil {
		user.IsActive = !user.IsActive
	} else {
		user.IsActive = *active
	}

	if err := s.repos.Users().Update(ctx, user); err != nil {
		return nil, translate(err, "user")
	}
	slog.Info("user status changed", slog.String("user_id", id.String()), slog.Bool("is_active", user.IsActive))
	return user, nil
}

// VerifyMechanic sets the verification flag of a mechanic profile.
func (s *AdminService) VerifyMechanic(ctx context.Context, actor *model.User, userID uuid.UUID, verified bool) (*model.MechanicProfile, error) {
	if err := access.Require(actor, access.Admins); err != nil {
		return nil, err
	}

	if err := s.repos.MechanicProfiles().SetVerified(ctx, userID, verified); err != nil {
		return nil, translate(err, "mechanic profile")
	}
	profile, err := s.repos.MechanicProfiles().FindByUserID(ctx, userID)
	if err != nil {
		return nil, translate(err, "mechanic profile")
	}
	return profile, nil
}

// ensureAnotherAdmin locks the active administrator rows and fails unless an active
// administrator other than userID remains.
func ensureAnotherAdmin(ctx context.Context, repos repository.Repositories, userID uuid.UUID) error {
	admins, err := repos.Users().LockAdmins(ctx)
	if err != nil {
		return translate(err, "user")
	}
	others := slices.DeleteFunc(admins, func(id uuid.UUID) bool { return id == userID })
	if len(others) == 0 {
		return apperror.NewInvariantViolation("the last administrator cannot be removed")
	}
	return nil
}
