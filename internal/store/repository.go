/**
 * @description
 * This file defines the interface for the data access layer (repositories).
 * Defining interfaces allows for dependency injection and easy mocking in tests,
 * promoting a loosely coupled architecture.
 *
 * @notes
 * - Any component that needs to interact with account storage should depend on this
 *   interface, not on the concrete PostgreSQL or in-memory implementation.
 */
package store

import (
	"context"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
)

// AccountRepository defines the contract for persistence of account records.
type AccountRepository interface {
	FindAll(ctx context.Context) ([]domain.Account, error)
	// FindByID returns domain.ErrAccountNotFound when no account has the given id.
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByCustomerID(ctx context.Context, customerID string) ([]domain.Account, error)
	// Save inserts the account when its ID is empty, assigning a new one, and
	// otherwise overwrites the stored record with the same ID.
	Save(ctx context.Context, account *domain.Account) (*domain.Account, error)
	DeleteByID(ctx context.Context, id string) error
}
