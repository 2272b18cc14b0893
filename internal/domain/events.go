/**
 * @description
 * This file defines the domain models for events that are published and consumed by
 * the bank-accounts service. These structs are the contract for messages exchanged
 * over the message broker (RabbitMQ).
 */
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys on the account_events exchange.
const (
	AccountEventsExchange         = "account_events"
	RoutingKeyAccountCreated      = "account.created"
	RoutingKeyAccountDeleted      = "account.deleted"
	RoutingKeyAccountDeposit      = "account.deposit"
	RoutingKeyAccountWithdrawal   = "account.withdrawal"
	RoutingKeyRestartTransactions = "account.transactions.restart"
	RestartTransactionsQueue      = "account_service_restart_transactions"
)

// AccountEvent is published after an account is created, deleted or moves money.
type AccountEvent struct {
	AccountID    string           `json:"account_id"`
	CustomerID   string           `json:"customer_id"`
	TypeAccount  string           `json:"type_account"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Balance      decimal.Decimal  `json:"balance"`
	Transactions int              `json:"transactions_remaining"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

// RestartTransactionsEvent asks the service to run the monthly reset sweep.
type RestartTransactionsEvent struct {
	RequestedBy string `json:"requested_by"`
}

// NewAccountEvent snapshots account for publishing.
func NewAccountEvent(account *Account, amount *decimal.Decimal, at time.Time) AccountEvent {
	return AccountEvent{
		AccountID:    account.ID,
		CustomerID:   account.CustomerID,
		TypeAccount:  account.TypeAccountName,
		Amount:       amount,
		Balance:      account.Amount,
		Transactions: account.Transactions,
		OccurredAt:   at,
	}
}
