/**
 * @description
 * This file contains the core business logic for the bank-accounts service,
 * implemented as an `AccountService`. It orchestrates operations by coordinating
 * the account repository, the type catalog and the external customer and
 * transaction services.
 *
 * @notes
 * - Business rule rejections are not errors: they come back as an AccountResponse
 *   with a nil account and a message. Errors are reserved for missing accounts,
 *   invalid input, storage failures and transaction-service failures.
 * - Writers of the same account are serialized through the AccountLocker.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultRestartConcurrency = 8

// CustomerGateway answers whether a customer exists. Implementations return
// (nil, nil) for an unknown id.
type CustomerGateway interface {
	GetPersonByID(ctx context.Context, id string) (*domain.Customer, error)
	GetCompanyByID(ctx context.Context, id string) (*domain.Customer, error)
}

// TransactionGateway durably records completed money movements.
type TransactionGateway interface {
	CreateTransaction(ctx context.Context, record domain.TransactionRecord) error
}

// EventPublisher is implemented by types that can publish account events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// MetricsRecorder receives counters about account operations.
type MetricsRecorder interface {
	RecordAccountCreation(kind, outcome string)
	RecordMovement(txType domain.TransactionType, outcome string)
	RecordRestart(duration time.Duration, total, failed int)
}

// Outcome labels passed to the MetricsRecorder.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AccountService provides methods for managing accounts and moving money.
type AccountService struct {
	repo               store.AccountRepository
	customers          CustomerGateway
	transactions       TransactionGateway
	publisher          EventPublisher
	locker             AccountLocker
	metrics            MetricsRecorder
	logger             *slog.Logger
	now                func() time.Time
	restartConcurrency int
}

// NewAccountService creates a new instance of AccountService. It starts with an
// in-process locker, no event publishing and no metrics; use the setters to
// replace them.
func NewAccountService(repo store.AccountRepository, customers CustomerGateway, transactions TransactionGateway, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		repo:               repo,
		customers:          customers,
		transactions:       transactions,
		publisher:          noopPublisher{},
		locker:             NewLocalAccountLocker(),
		metrics:            noopMetrics{},
		logger:             logger,
		now:                time.Now,
		restartConcurrency: defaultRestartConcurrency,
	}
}

func (s *AccountService) SetEventPublisher(publisher EventPublisher) {
	if publisher != nil {
		s.publisher = publisher
	}
}

func (s *AccountService) SetAccountLocker(locker AccountLocker) {
	if locker != nil {
		s.locker = locker
	}
}

func (s *AccountService) SetMetrics(metrics MetricsRecorder) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetClock replaces the time source used for the fixed-term day check and transaction dates.
func (s *AccountService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetRestartConcurrency bounds how many accounts the monthly reset saves in parallel.
func (s *AccountService) SetRestartConcurrency(n int) {
	if n > 0 {
		s.restartConcurrency = n
	}
}

// GetAll returns every account.
func (s *AccountService) GetAll(ctx context.Context) ([]domain.Account, error) {
	return s.repo.FindAll(ctx)
}

// GetAccountByID returns a single account or domain.ErrAccountNotFound.
func (s *AccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

// GetAccountsByCustomerID returns every account owned by customerID.
func (s *AccountService) GetAccountsByCustomerID(ctx context.Context, customerID string) ([]domain.Account, error) {
	return s.repo.FindByCustomerID(ctx, customerID)
}

// CreatePersonAccount opens an account for a personal customer. A person may hold
// at most one account of each type.
func (s *AccountService) CreatePersonAccount(ctx context.Context, req domain.AccountRequest) (*domain.AccountResponse, error) {
	typ, err := domain.LookupTypeAccount(req.TypeAccount)
	if err != nil {
		return nil, err
	}
	account := newAccount(req, typ)

	customer := s.lookupCustomer(ctx, "person", req.CustomerID, s.customers.GetPersonByID)
	if customer == nil {
		s.metrics.RecordAccountCreation("person", OutcomeRejected)
		return domain.Rejected(domain.MsgClientNotFound), nil
	}
	account.TypeCustomer = customer.TypeCustomer

	// Hold the customer key so two concurrent requests cannot both pass the duplicate check.
	unlock, err := s.locker.Lock(ctx, customerLockKey(req.CustomerID))
	if err != nil {
		return nil, fmt.Errorf("could not lock customer %s: %w", req.CustomerID, err)
	}
	defer unlock()

	owned, err := s.repo.FindByCustomerID(ctx, req.CustomerID)
	if err != nil {
		s.metrics.RecordAccountCreation("person", OutcomeError)
		return nil, fmt.Errorf("could not list accounts of customer %s: %w", req.CustomerID, err)
	}
	for _, existing := range owned {
		if existing.TypeAccountName == typ.Name {
			s.logger.Info("rejected duplicate account type", "customer_id", req.CustomerID, "type", typ.Name, "existing_account_id", existing.ID)
			s.metrics.RecordAccountCreation("person", OutcomeRejected)
			return domain.Rejected(domain.MsgDuplicateAccountType + typ.Name), nil
		}
	}

	return s.saveNewAccount(ctx, "person", account)
}

// CreateCompanyAccount opens an account for a company customer. Companies may only
// hold checking accounts; there is no per-type limit for them.
func (s *AccountService) CreateCompanyAccount(ctx context.Context, req domain.AccountRequest) (*domain.AccountResponse, error) {
	typ, err := domain.LookupTypeAccount(req.TypeAccount)
	if err != nil {
		return nil, err
	}
	account := newAccount(req, typ)

	customer := s.lookupCustomer(ctx, "company", req.CustomerID, s.customers.GetCompanyByID)
	if customer == nil {
		s.metrics.RecordAccountCreation("company", OutcomeRejected)
		return domain.Rejected(domain.MsgClientNotFound), nil
	}
	account.TypeCustomer = customer.TypeCustomer

	if typ.Name != domain.CheckingTypeName {
		s.metrics.RecordAccountCreation("company", OutcomeRejected)
		return domain.Rejected(domain.MsgCompanyOnlyType + domain.CheckingTypeName), nil
	}

	return s.saveNewAccount(ctx, "company", account)
}

// UpdateAccount overwrites every mutable field of an existing account. The type
// name is recomputed from the new type code; eligibility rules are not re-run.
func (s *AccountService) UpdateAccount(ctx context.Context, req domain.AccountRequest) (*domain.Account, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	if req.Transactions < 0 {
		return nil, fmt.Errorf("%w: transaction must not be negative", domain.ErrValidation)
	}
	if !domain.HasMoneyScale(req.Amount) || !domain.HasMoneyScale(req.Maintenance) {
		return nil, fmt.Errorf("%w: amount and maintenance must have at most %d decimal places", domain.ErrValidation, domain.MoneyScale)
	}
	typ, err := domain.LookupTypeAccount(req.TypeAccount)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, accountLockKey(req.ID))
	if err != nil {
		return nil, fmt.Errorf("could not lock account %s: %w", req.ID, err)
	}
	defer unlock()

	account, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	account.CustomerID = req.CustomerID
	account.TypeAccount = typ.Code
	account.TypeAccountName = typ.Name
	account.Amount = req.Amount
	account.Maintenance = req.Maintenance
	account.Transactions = req.Transactions
	account.OperationDay = req.OperationDay
	account.DateAccount = req.DateAccount
	account.NumberAccount = req.NumberAccount
	account.TypeCustomer = req.TypeCustomer

	return s.repo.Save(ctx, account)
}

// DeleteAccount removes an account. A missing id is reported in the message, never as an error.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) (*domain.Message, error) {
	unlock, err := s.locker.Lock(ctx, accountLockKey(accountID))
	if err != nil {
		return nil, fmt.Errorf("could not lock account %s: %w", accountID, err)
	}
	defer unlock()

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return &domain.Message{Message: domain.MsgAccountNotFound}, nil
		}
		return nil, err
	}

	if err := s.repo.DeleteByID(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("could not delete account %s: %w", account.ID, err)
	}

	s.logger.Info("account deleted", "account_id", account.ID, "customer_id", account.CustomerID)
	s.publish(ctx, domain.RoutingKeyAccountDeleted, domain.NewAccountEvent(account, nil, s.now()))
	return &domain.Message{Message: domain.MsgAccountDeleted}, nil
}

// Deposit adds req.Amount to the account identified by req.ID.
func (s *AccountService) Deposit(ctx context.Context, req domain.AccountRequest) (*domain.AccountResponse, error) {
	return s.move(ctx, req.ID, req.Amount, domain.TransactionDeposit)
}

// Withdrawal takes req.Amount from the account identified by req.ID.
func (s *AccountService) Withdrawal(ctx context.Context, req domain.AccountRequest) (*domain.AccountResponse, error) {
	return s.move(ctx, req.ID, req.Amount, domain.TransactionWithdrawal)
}

// move applies one deposit or withdrawal. Rules are checked in this order: monthly
// allowance, balance (withdrawals only), fixed-term operation day. Nothing is
// written unless every rule passes.
func (s *AccountService) move(ctx context.Context, accountID string, amount decimal.Decimal, txType domain.TransactionType) (*domain.AccountResponse, error) {
	// Balances are stored with MoneyScale places; a finer amount would be rounded on save
	// and no longer match the transaction record.
	if !domain.HasMoneyScale(amount) {
		return nil, fmt.Errorf("%w: amount must have at most %d decimal places", domain.ErrValidation, domain.MoneyScale)
	}

	unlock, err := s.locker.Lock(ctx, accountLockKey(accountID))
	if err != nil {
		return nil, fmt.Errorf("could not lock account %s: %w", accountID, err)
	}
	defer unlock()

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !account.HasMovementsLeft() {
		s.metrics.RecordMovement(txType, OutcomeRejected)
		return domain.Rejected(domain.MsgMovementsExhausted), nil
	}

	newAmount := account.Amount.Add(amount)
	if txType == domain.TransactionWithdrawal {
		newAmount = account.Amount.Sub(amount)
		if newAmount.IsNegative() {
			s.metrics.RecordMovement(txType, OutcomeRejected)
			return domain.Rejected(domain.MsgInsufficientBalance), nil
		}
	}

	now := s.now()
	if !account.OperationAllowedOn(now) {
		s.metrics.RecordMovement(txType, OutcomeRejected)
		return domain.Rejected(domain.MsgDayNotAllowed + account.TypeAccountName), nil
	}

	account.Amount = newAmount
	account.Transactions--

	saved, err := s.repo.Save(ctx, account)
	if err != nil {
		s.metrics.RecordMovement(txType, OutcomeError)
		return nil, fmt.Errorf("could not save account %s: %w", accountID, err)
	}

	record := domain.NewTransactionRecord(saved, txType, amount, now)
	if err := s.transactions.CreateTransaction(ctx, record); err != nil {
		s.logger.Error("failed to record transaction", "account_id", saved.ID, "type", txType, "amount", amount.String(), "error", err)
		s.metrics.RecordMovement(txType, OutcomeError)
		return nil, fmt.Errorf("%w: recording %s for account %s: %w", domain.ErrUpstreamUnavailable, txType, saved.ID, err)
	}

	s.logger.Info("movement applied", "account_id", saved.ID, "type", txType, "amount", amount.String(), "transactions_remaining", saved.Transactions)
	s.metrics.RecordMovement(txType, OutcomeAccepted)

	routingKey := domain.RoutingKeyAccountDeposit
	if txType == domain.TransactionWithdrawal {
		routingKey = domain.RoutingKeyAccountWithdrawal
	}
	s.publish(ctx, routingKey, domain.NewAccountEvent(saved, &amount, now))

	return domain.Accepted(saved, domain.MsgTransactionSuccessful), nil
}

// RestartTransactions resets every account's remaining transactions to the
// allowance of its current type. Accounts are reset concurrently and
// independently: a failure on one account is logged and does not stop the others.
func (s *AccountService) RestartTransactions(ctx context.Context) (*domain.Message, error) {
	started := time.Now()

	accounts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list accounts: %w", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.restartConcurrency)

	for _, account := range accounts {
		accountID := account.ID
		g.Go(func() error {
			if err := s.resetAccount(ctx, accountID); err != nil {
				failed.Add(1)
				s.logger.Error("failed to restart account transactions", "account_id", accountID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failedCount := int(failed.Load())
	s.metrics.RecordRestart(time.Since(started), len(accounts), failedCount)
	s.logger.Info("restarted account transactions", "accounts", len(accounts), "failed", failedCount)

	return &domain.Message{Message: domain.MsgTransactionsRestarted}, nil
}

func (s *AccountService) resetAccount(ctx context.Context, accountID string) error {
	unlock, err := s.locker.Lock(ctx, accountLockKey(accountID))
	if err != nil {
		return err
	}
	defer unlock()

	// Re-read under the lock so a movement that finished meanwhile is not overwritten.
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil
		}
		return err
	}

	typ, err := domain.LookupTypeAccount(account.TypeAccount)
	if err != nil {
		return err
	}
	account.Transactions = typ.Transactions

	_, err = s.repo.Save(ctx, account)
	return err
}

func (s *AccountService) saveNewAccount(ctx context.Context, kind string, account *domain.Account) (*domain.AccountResponse, error) {
	saved, err := s.repo.Save(ctx, account)
	if err != nil {
		s.metrics.RecordAccountCreation(kind, OutcomeError)
		return nil, fmt.Errorf("could not save account: %w", err)
	}

	s.logger.Info("account opened", "account_id", saved.ID, "customer_id", saved.CustomerID, "type", saved.TypeAccountName, "kind", kind)
	s.metrics.RecordAccountCreation(kind, OutcomeAccepted)
	s.publish(ctx, domain.RoutingKeyAccountCreated, domain.NewAccountEvent(saved, nil, s.now()))

	return domain.Accepted(saved, domain.MsgAccountCreated), nil
}

// lookupCustomer treats a customer-service failure the same as an unknown customer.
func (s *AccountService) lookupCustomer(ctx context.Context, kind, customerID string, get func(context.Context, string) (*domain.Customer, error)) *domain.Customer {
	customer, err := get(ctx, customerID)
	if err != nil {
		s.logger.Warn("customer lookup failed", "kind", kind, "customer_id", customerID, "error", err)
		return nil
	}
	return customer
}

func (s *AccountService) publish(ctx context.Context, routingKey string, event domain.AccountEvent) {
	if err := s.publisher.Publish(ctx, domain.AccountEventsExchange, routingKey, event); err != nil {
		s.logger.Warn("failed to publish account event", "routing_key", routingKey, "account_id", event.AccountID, "error", err)
	}
}

// newAccount builds an unsaved account from the request and the catalog entry.
// The balance always starts at zero.
func newAccount(req domain.AccountRequest, typ domain.TypeAccount) *domain.Account {
	return &domain.Account{
		CustomerID:      req.CustomerID,
		TypeAccount:     typ.Code,
		TypeAccountName: typ.Name,
		Amount:          decimal.Zero,
		Maintenance:     typ.MaintenanceFee,
		Transactions:    typ.Transactions,
		OperationDay:    typ.OperationDay,
		DateAccount:     req.DateAccount,
		NumberAccount:   req.NumberAccount,
		TypeCustomer:    req.TypeCustomer,
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordAccountCreation(kind, outcome string)                   {}
func (noopMetrics) RecordMovement(txType domain.TransactionType, outcome string) {}
func (noopMetrics) RecordRestart(duration time.Duration, total, failed int)      {}
