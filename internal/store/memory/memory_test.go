package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finstream/bankfeed/internal/pipeline"
)

func TestStore_Accounts(t *testing.T) {
	store := New()
	ctx := context.Background()

	if account, err := store.FindAccount(ctx, "missing"); err != nil || account != nil {
		t.Fatalf("FindAccount on empty store = (%v, %v), want (nil, nil)", account, err)
	}
	if account, err := store.FirstAccount(ctx); err != nil || account != nil {
		t.Fatalf("FirstAccount on empty store = (%v, %v), want (nil, nil)", account, err)
	}

	older := &pipeline.Account{ID: "a1", Name: "Checking", Currency: "EUR", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &pipeline.Account{ID: "a2", Name: "Savings", Currency: "EUR", CreatedAt: time.Now()}
	if err := store.CreateAccount(ctx, newer); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := store.CreateAccount(ctx, older); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := store.CreateAccount(ctx, older); err == nil {
		t.Fatal("duplicate CreateAccount did not fail")
	}

	first, err := store.FirstAccount(ctx)
	if err != nil {
		t.Fatalf("FirstAccount failed: %v", err)
	}
	if first.ID != "a1" {
		t.Errorf("FirstAccount = %s, want the oldest (a1)", first.ID)
	}

	// Returned accounts are copies; mutating one must not leak into the store.
	first.Name = "mutated"
	again, _ := store.FindAccount(ctx, "a1")
	if again.Name != "Checking" {
		t.Errorf("stored account mutated through a returned copy: %q", again.Name)
	}
}

func TestStore_TransactionsAndHashes(t *testing.T) {
	store := New()
	ctx := context.Background()

	txs := []*pipeline.Transaction{
		{ID: "t2", AccountID: "a1", Hash: "h2", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(2)},
		{ID: "t1", AccountID: "a1", Hash: "h1", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(1)},
		{ID: "t3", AccountID: "other", Hash: "h3", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(3)},
	}
	if err := store.InsertTransactions(ctx, txs); err != nil {
		t.Fatalf("InsertTransactions failed: %v", err)
	}

	listed, err := store.ListTransactions(ctx, "a1")
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d transactions for a1, want 2", len(listed))
	}
	if listed[0].ID != "t1" || listed[1].ID != "t2" {
		t.Errorf("transactions not sorted by date: %s, %s", listed[0].ID, listed[1].ID)
	}

	existing, err := store.ExistingHashes(ctx, "a1", []string{"h1", "h3", "nope"})
	if err != nil {
		t.Fatalf("ExistingHashes failed: %v", err)
	}
	if _, ok := existing["h1"]; !ok {
		t.Error("h1 missing from existing set")
	}
	if _, ok := existing["h3"]; ok {
		t.Error("h3 belongs to another account and must not match")
	}
	if len(existing) != 1 {
		t.Errorf("existing set size = %d, want 1", len(existing))
	}
}

func TestStore_UpdateAccountBalance(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.UpdateAccountBalance(ctx, "missing", decimal.Zero, decimal.Zero); err == nil {
		t.Fatal("updating a missing account did not fail")
	}

	if err := store.CreateAccount(ctx, &pipeline.Account{ID: "a1", Currency: "EUR"}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	want := decimal.RequireFromString("1465.80")
	if err := store.UpdateAccountBalance(ctx, "a1", want, want); err != nil {
		t.Fatalf("UpdateAccountBalance failed: %v", err)
	}
	account, _ := store.FindAccount(ctx, "a1")
	if !account.Balance.Equal(want) || !account.AvailableBalance.Equal(want) {
		t.Errorf("balances = %s / %s, want %s", account.Balance, account.AvailableBalance, want)
	}
}
