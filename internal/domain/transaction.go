/**
 * @description
 * Models exchanged with the transaction-service when a money movement is recorded.
 */
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the direction of a money movement.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// TransactionRecord is the payload sent to the transaction-service. It is never stored locally.
type TransactionRecord struct {
	CustomerID      string          `json:"customerId"`
	ProductID       string          `json:"productId"`
	ProductType     string          `json:"productType"`
	TransactionType TransactionType `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transactionDate"`
	CustomerType    string          `json:"customerType"`
}

// NewTransactionRecord builds the record of a completed movement on account.
func NewTransactionRecord(account *Account, txType TransactionType, amount decimal.Decimal, at time.Time) TransactionRecord {
	return TransactionRecord{
		CustomerID:      account.CustomerID,
		ProductID:       account.ID,
		ProductType:     account.TypeAccountName,
		TransactionType: txType,
		Amount:          amount,
		TransactionDate: at,
		CustomerType:    account.TypeCustomer,
	}
}
