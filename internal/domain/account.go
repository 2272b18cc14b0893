/**
 * @description
 * This file defines the core domain model for an Account within the bank-accounts
 * service. It represents the structure of an account as stored in our own database
 * and returned by the HTTP API.
 *
 * @notes
 * - TypeAccountName is denormalized from the type catalog and is refreshed every
 *   time the type code is written (creation and update).
 * - Monetary values use shopspring/decimal to avoid float drift on balances.
 */
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a customer's bank account in our system.
type Account struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	TypeAccount     int             `json:"typeAccount"`
	TypeAccountName string          `json:"descripTypeAccount"`
	Amount          decimal.Decimal `json:"amount"`
	Maintenance     decimal.Decimal `json:"maintenance"`
	Transactions    int             `json:"transaction"`
	OperationDay    int             `json:"operationDay"`
	DateAccount     time.Time       `json:"dateAccount"`
	NumberAccount   string          `json:"numberAccount"`
	TypeCustomer    string          `json:"typeCustomer"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Clone returns a copy of the account that can be mutated without affecting the original.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// HasMovementsLeft reports whether the monthly allowance still permits a deposit or withdrawal.
func (a *Account) HasMovementsLeft() bool {
	return a.Transactions-1 >= 0
}

// IsFixedTerm reports whether movements on the account are restricted to a single day of the month.
func (a *Account) IsFixedTerm() bool {
	return a.TypeAccountName == FixedTermTypeName
}

// OperationAllowedOn reports whether a movement may happen on the given date.
// Only fixed-term accounts are restricted.
func (a *Account) OperationAllowedOn(t time.Time) bool {
	if !a.IsFixedTerm() {
		return true
	}
	return a.OperationDay == t.Day()
}

// MoneyScale is the number of decimal places balances and fees are stored with.
const MoneyScale = 2

// HasMoneyScale reports whether d can be stored without rounding.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// AccountRequest is the input accepted by the account operations. The same shape is
// used for creation, full updates and money movements; each operation reads the fields
// it needs.
type AccountRequest struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	TypeAccount   int             `json:"typeAccount"`
	Amount        decimal.Decimal `json:"amount"`
	Maintenance   decimal.Decimal `json:"maintenance"`
	Transactions  int             `json:"transaction"`
	OperationDay  int             `json:"operationDay"`
	DateAccount   time.Time       `json:"dateAccount"`
	NumberAccount string          `json:"numberAccount"`
	TypeCustomer  string          `json:"typeCustomer"`
}

// AccountResponse is the tagged outcome of creation and movement operations. A nil
// Account means the request was rejected by a business rule and Message says why.
type AccountResponse struct {
	Account *Account `json:"account"`
	Message string   `json:"message"`
}

// Message is a plain informational response.
type Message struct {
	Message string `json:"message"`
}

// Business rule and outcome messages returned to callers.
const (
	MsgAccountCreated        = "Account created successfully"
	MsgClientNotFound        = "Client does not exist"
	MsgDuplicateAccountType  = "Personal client already has a bank account: "
	MsgCompanyOnlyType       = "For company only type of account: "
	MsgAccountNotFound       = "Account does not exist"
	MsgAccountDeleted        = "Account deleted successfully"
	MsgDayNotAllowed         = "Day of the month not allowed for "
	MsgMovementsExhausted    = "Exhausted monthly movements limit"
	MsgInsufficientBalance   = "You don't have enough balance"
	MsgTransactionSuccessful = "Successful transaction"
	MsgTransactionsRestarted = "The number of transactions of the accounts was satisfactorily restarted"
)

// Rejected builds a response for a request refused by a business rule.
func Rejected(message string) *AccountResponse {
	return &AccountResponse{Message: message}
}

// Accepted builds a response carrying the resulting account.
func Accepted(account *Account, message string) *AccountResponse {
	return &AccountResponse{Account: account, Message: message}
}
