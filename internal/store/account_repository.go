/**
 * @description
 * This file implements the data access layer for account records on PostgreSQL.
 * It provides a clean interface for the application logic to interact with the
 * `accounts` table in the database.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: The PostgreSQL driver.
 * - github.com/google/uuid: Account identifiers are generated on insert.
 * - github.com/shopspring/decimal: Balances are stored as NUMERIC and read back as text.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `id::text, customer_id, type_account, type_account_name, amount::text, maintenance::text,
        transactions, operation_day, date_account, number_account, type_customer, created_at, updated_at`

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id                UUID PRIMARY KEY,
    customer_id       TEXT NOT NULL,
    type_account      INTEGER NOT NULL,
    type_account_name TEXT NOT NULL,
    amount            NUMERIC(19, 2) NOT NULL DEFAULT 0,
    maintenance       NUMERIC(19, 2) NOT NULL DEFAULT 0,
    transactions      INTEGER NOT NULL CHECK (transactions >= 0),
    operation_day     INTEGER NOT NULL,
    date_account      TIMESTAMPTZ NOT NULL,
    number_account    TEXT NOT NULL,
    type_customer     TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accounts_customer_id ON accounts (customer_id);
`

// PostgresAccountRepository is the PostgreSQL implementation of the AccountRepository.
type PostgresAccountRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresAccountRepository creates a new instance of PostgresAccountRepository.
func NewPostgresAccountRepository(db *pgxpool.Pool, logger *slog.Logger) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db, logger: logger}
}

// EnsureSchema creates the accounts table and its indexes when they do not exist yet.
func (r *PostgresAccountRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure accounts schema: %w", err)
	}
	return nil
}

// FindAll returns every stored account.
func (r *PostgresAccountRepository) FindAll(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		r.logger.Error("failed to query accounts", "error", err)
		return nil, err
	}
	return collectAccounts(rows)
}

// FindByCustomerID returns the accounts owned by customerID.
func (r *PostgresAccountRepository) FindByCustomerID(ctx context.Context, customerID string) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 ORDER BY created_at`, customerID)
	if err != nil {
		r.logger.Error("failed to query accounts by customer", "customer_id", customerID, "error", err)
		return nil, err
	}
	return collectAccounts(rows)
}

// FindByID retrieves a single account.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		// Not a UUID, so it cannot be stored here.
		return nil, domain.ErrAccountNotFound
	}

	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		r.logger.Error("failed to find account", "account_id", id, "error", err)
		return nil, err
	}
	return account, nil
}

// Save inserts a new account or overwrites an existing one.
func (r *PostgresAccountRepository) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account.ID == "" {
		return r.insert(ctx, account)
	}
	return r.update(ctx, account)
}

func (r *PostgresAccountRepository) insert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
        INSERT INTO accounts (id, customer_id, type_account, type_account_name, amount, maintenance,
            transactions, operation_day, date_account, number_account, type_customer)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11)
        RETURNING ` + accountColumns

	row := r.db.QueryRow(ctx, query,
		uuid.NewString(),
		account.CustomerID,
		account.TypeAccount,
		account.TypeAccountName,
		account.Amount.String(),
		account.Maintenance.String(),
		account.Transactions,
		account.OperationDay,
		account.DateAccount,
		account.NumberAccount,
		account.TypeCustomer,
	)
	saved, err := scanAccount(row)
	if err != nil {
		r.logger.Error("failed to insert account", "customer_id", account.CustomerID, "error", err)
		return nil, err
	}

	r.logger.Info("account created", "account_id", saved.ID, "customer_id", saved.CustomerID)
	return saved, nil
}

func (r *PostgresAccountRepository) update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
        UPDATE accounts SET
            customer_id = $2, type_account = $3, type_account_name = $4, amount = $5::numeric,
            maintenance = $6::numeric, transactions = $7, operation_day = $8, date_account = $9,
            number_account = $10, type_customer = $11, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + accountColumns

	row := r.db.QueryRow(ctx, query,
		account.ID,
		account.CustomerID,
		account.TypeAccount,
		account.TypeAccountName,
		account.Amount.String(),
		account.Maintenance.String(),
		account.Transactions,
		account.OperationDay,
		account.DateAccount,
		account.NumberAccount,
		account.TypeCustomer,
	)
	saved, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		r.logger.Error("failed to update account", "account_id", account.ID, "error", err)
		return nil, err
	}
	return saved, nil
}

// DeleteByID removes the account. Deleting a missing id is not an error.
func (r *PostgresAccountRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		r.logger.Error("failed to delete account", "account_id", id, "error", err)
		return err
	}
	return nil
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                   domain.Account
		amount, maintenance string
	)
	err := row.Scan(
		&a.ID,
		&a.CustomerID,
		&a.TypeAccount,
		&a.TypeAccountName,
		&amount,
		&maintenance,
		&a.Transactions,
		&a.OperationDay,
		&a.DateAccount,
		&a.NumberAccount,
		&a.TypeCustomer,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if a.Maintenance, err = decimal.NewFromString(maintenance); err != nil {
		return nil, fmt.Errorf("parse maintenance %q: %w", maintenance, err)
	}
	return &a, nil
}
