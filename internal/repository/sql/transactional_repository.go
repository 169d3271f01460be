package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iyhunko/mechanic-matching/internal/repository"
)

// TransactionalRepository provides every entity repository over one executor and runs
// multi-repository work in a single transaction.
type TransactionalRepository struct {
	base
}

// NewTransactionalRepository creates a new TransactionalRepository
func NewTransactionalRepository(db *sql.DB) *TransactionalRepository {
	return &TransactionalRepository{base{db: db}}
}

func (tr *TransactionalRepository) Users() repository.UserRepository {
	return &UserRepository{tr.base}
}

func (tr *TransactionalRepository) Vehicles() repository.VehicleRepository {
	return &VehicleRepository{tr.base}
}

func (tr *TransactionalRepository) MechanicProfiles() repository.MechanicProfileRepository {
	return &MechanicProfileRepository{tr.base}
}

func (tr *TransactionalRepository) ServiceRequests() repository.ServiceRequestRepository {
	return &ServiceRequestRepository{tr.base}
}

func (tr *TransactionalRepository) Events() repository.EventRepository {
	return &EventRepository{tr.base}
}

// WithinTransaction executes fn with repositories bound to a new transaction.
func (tr *TransactionalRepository) WithinTransaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepos := &TransactionalRepository{base{db: tr.db, txn: tx}}

	if err := fn(txRepos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
