package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestAccount(customerID string) *domain.Account {
	return &domain.Account{
		CustomerID:      customerID,
		TypeAccount:     2,
		TypeAccountName: domain.SavingsTypeName,
		Amount:          decimal.Zero,
		Transactions:    5,
		OperationDay:    1,
		DateAccount:     time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC),
		NumberAccount:   "04112122",
	}
}

func TestMemoryAccountRepository_SaveAssignsID(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	saved, err := repo.Save(ctx, newTestAccount("00001"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected Save to assign an id")
	}

	found, err := repo.FindByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if found.CustomerID != "00001" {
		t.Fatalf("expected customer 00001, got %q", found.CustomerID)
	}
}

func TestMemoryAccountRepository_ReturnedAccountsAreCopies(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	saved, _ := repo.Save(ctx, newTestAccount("00001"))
	saved.Amount = decimal.NewFromInt(999)

	found, _ := repo.FindByID(ctx, saved.ID)
	if !found.Amount.IsZero() {
		t.Fatalf("expected stored amount to stay zero, got %s", found.Amount)
	}
}

func TestMemoryAccountRepository_SaveUnknownIDFails(t *testing.T) {
	repo := NewMemoryAccountRepository()
	account := newTestAccount("00001")
	account.ID = "missing"

	if _, err := repo.Save(context.Background(), account); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryAccountRepository_FindByCustomerIDFollowsUpdates(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	first, _ := repo.Save(ctx, newTestAccount("00001"))
	if _, err := repo.Save(ctx, newTestAccount("00001")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := repo.Save(ctx, newTestAccount("00002")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	accounts, _ := repo.FindByCustomerID(ctx, "00001")
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts for 00001, got %d", len(accounts))
	}

	first.CustomerID = "00002"
	if _, err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	accounts, _ = repo.FindByCustomerID(ctx, "00001")
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account for 00001 after reassignment, got %d", len(accounts))
	}
	accounts, _ = repo.FindByCustomerID(ctx, "00002")
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts for 00002 after reassignment, got %d", len(accounts))
	}
}

func TestMemoryAccountRepository_DeleteByID(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	saved, _ := repo.Save(ctx, newTestAccount("00001"))
	if err := repo.DeleteByID(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteByID returned error: %v", err)
	}
	if _, err := repo.FindByID(ctx, saved.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound after delete, got %v", err)
	}
	if err := repo.DeleteByID(ctx, saved.ID); err != nil {
		t.Fatalf("expected deleting a missing id to succeed, got %v", err)
	}

	all, _ := repo.FindAll(ctx)
	if len(all) != 0 {
		t.Fatalf("expected empty repository, got %d accounts", len(all))
	}
}
