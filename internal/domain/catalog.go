package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Names of the account types the business rules refer to.
const (
	CheckingTypeName  = "CHECKING"
	SavingsTypeName   = "SAVINGS"
	FixedTermTypeName = "FIXED_TERM"
)

// TypeAccount describes the fixed rules attached to an account type code.
type TypeAccount struct {
	Code           int             `json:"id"`
	Name           string          `json:"type"`
	MaintenanceFee decimal.Decimal `json:"maintenance"`
	Transactions   int             `json:"transactions"`
	OperationDay   int             `json:"dayOperation"`
}

// typeAccounts is built once at package initialisation and never written afterwards,
// so concurrent readers need no locking.
var typeAccounts = map[int]TypeAccount{
	1: {Code: 1, Name: CheckingTypeName, MaintenanceFee: decimal.RequireFromString("5.00"), Transactions: 10, OperationDay: 1},
	2: {Code: 2, Name: SavingsTypeName, MaintenanceFee: decimal.Zero, Transactions: 5, OperationDay: 1},
	3: {Code: 3, Name: FixedTermTypeName, MaintenanceFee: decimal.Zero, Transactions: 1, OperationDay: 15},
}

// LookupTypeAccount returns the catalog entry for code.
func LookupTypeAccount(code int) (TypeAccount, error) {
	t, ok := typeAccounts[code]
	if !ok {
		return TypeAccount{}, fmt.Errorf("%w: %d", ErrUnknownAccountType, code)
	}
	return t, nil
}

// TypeAccounts returns every catalog entry ordered by code.
func TypeAccounts() []TypeAccount {
	return sortedByCode(typeAccounts)
}

func sortedByCode(entries map[int]TypeAccount) []TypeAccount {
	codes := make([]int, 0, len(entries))
	for code := range entries {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	out := make([]TypeAccount, 0, len(codes))
	for _, code := range codes {
		out = append(out, entries[code])
	}
	return out
}
