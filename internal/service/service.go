// Package service implements the application operations. Every operation receives the
// acting user explicitly and returns apperror values for expected failures.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/repository"
)

// Clock returns the current time.
type Clock func() time.Time

// translate maps repository errors to the application error taxonomy. Errors it does not
// recognise are wrapped and surface as internal errors.
func translate(err error, resource string) error {
	if err == nil {
		return nil
	}

	var uniqueErr *repository.UniqueConstraintError
	switch {
	case errors.As(err, &uniqueErr):
		field := uniqueErr.Field
		if field == "" {
			return apperror.NewValidation("%s already exists", resource)
		}
		return apperror.NewFieldValidation(field, "has already been taken")
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NewNotFound(resource)
	case errors.Is(err, repository.ErrConflict):
		return apperror.NewConflict(resource + " was modified concurrently, reload and try again")
	}

	var httpErr apperror.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	return fmt.Errorf("%s: %w", resource, err)
}
