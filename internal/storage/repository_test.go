package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTransactionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx := core.Transaction{
		ID:           "t1",
		UserID:       "u1",
		Amount:       core.Money{Cents: 2550},
		Category:     "Groceries",
		Date:         core.NewDate(2025, 3, 14),
		Description:  "weekly shop",
		Type:         core.Expense,
		IsRecurring:  true,
		NeedsVsWants: core.Need,
	}
	err := store.Apply(ctx, ledger.Mutation{InsertTransactions: []core.Transaction{tx}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := store.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Amount.Cents != 2550 || got.Date.String() != "2025-03-14" ||
		!got.IsRecurring || got.NeedsVsWants != core.Need {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, err := store.GetTransaction(ctx, "u2", "t1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("another user's transaction must be invisible, got %v", err)
	}
}

func TestApplyRollsBackOnDanglingReference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx := core.Transaction{
		ID: "t1", UserID: "u1", Amount: core.Money{Cents: 100},
		Category: "Food", Date: core.NewDate(2025, 3, 1), Type: core.Expense,
	}
	err := store.Apply(ctx, ledger.Mutation{
		InsertTransactions: []core.Transaction{tx},
		Stats:              []ledger.StatsDelta{{UserID: "u1", Month: "2025-03", ExpenseCents: 100}},
		Budgets:            []ledger.BudgetDelta{{UserID: "u1", BudgetID: "missing", SpentCents: 100}},
	})
	if !errors.Is(err, ledger.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}

	if _, err := store.GetTransaction(ctx, "u1", "t1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("transaction survived the rollback")
	}
	if _, err := store.GetMonthlyStats(ctx, "u1", "2025-03"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("stats survived the rollback")
	}
}

func TestStatsUpsertAccumulates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := store.Apply(ctx, ledger.Mutation{
			Stats: []ledger.StatsDelta{{UserID: "u1", Month: "2025-03", IncomeCents: 1000, ExpenseCents: 250}},
		})
		if err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
	}

	st, err := store.GetMonthlyStats(ctx, "u1", "2025-03")
	if err != nil {
		t.Fatalf("GetMonthlyStats: %v", err)
	}
	if st.TotalIncome.Cents != 2000 || st.TotalExpenses.Cents != 500 {
		t.Errorf("stats = %+v", st)
	}
}

func TestBudgetDeltaAndProfileNetWorth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CreateBudget(ctx, core.BudgetCategory{
		ID: "b1", UserID: "u1", Name: "Food", Type: core.Need,
		PlannedAmount: core.Money{Cents: 40000}, Month: "2025-03",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.PutProfile(ctx, core.Profile{
		UserID:          "u1",
		TotalNetWorth:   core.Money{Cents: 10000},
		InitialNetWorth: core.Money{Cents: 10000},
		Currency:        "USD",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.Apply(ctx, ledger.Mutation{
		Budgets:  []ledger.BudgetDelta{{UserID: "u1", BudgetID: "b1", SpentCents: 1500}},
		NetWorth: []ledger.NetWorthDelta{{UserID: "u1", Cents: -1500}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	b, _ := store.GetBudget(ctx, "u1", "b1")
	if b.SpentAmount.Cents != 1500 {
		t.Errorf("spent = %d, want 1500", b.SpentAmount.Cents)
	}
	p, _ := store.GetProfile(ctx, "u1")
	if p.TotalNetWorth.Cents != 8500 {
		t.Errorf("net worth = %d, want 8500", p.TotalNetWorth.Cents)
	}

	// Net worth deltas for users without a profile are skipped silently.
	err = store.Apply(ctx, ledger.Mutation{
		NetWorth: []ledger.NetWorthDelta{{UserID: "ghost", Cents: 100}},
	})
	if err != nil {
		t.Errorf("missing profile must not fail the mutation: %v", err)
	}
}

func TestTemplateAdvanceAndDueListing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CreateTemplate(ctx, core.RecurringTemplate{
		ID: "r1", UserID: "u1", Amount: core.Money{Cents: 999},
		Category: "Subscriptions", Type: core.Expense, Frequency: core.Monthly,
		NextOccurrence: core.NewDate(2025, 3, 1), Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	due, err := store.ListDueTemplates(ctx, "u1", core.NewDate(2025, 3, 10))
	if err != nil {
		t.Fatalf("ListDueTemplates: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due = %d, want 1", len(due))
	}

	err = store.Apply(ctx, ledger.Mutation{
		Advances: []ledger.TemplateAdvance{{UserID: "u1", TemplateID: "r1", NextOccurrence: core.NewDate(2025, 4, 1)}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	due, _ = store.ListDueTemplates(ctx, "u1", core.NewDate(2025, 3, 10))
	if len(due) != 0 {
		t.Errorf("template still due after advance")
	}
	all, _ := store.ListTemplates(ctx, "u1")
	if len(all) != 1 || all[0].NextOccurrence.String() != "2025-04-01" {
		t.Errorf("templates = %+v", all)
	}
}

func TestPutProfilePreservesNetWorthOnUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.PutProfile(ctx, core.Profile{
		UserID:          "u1",
		TotalNetWorth:   core.Money{Cents: 5000},
		InitialNetWorth: core.Money{Cents: 5000},
		Currency:        "USD",
	})
	if err != nil {
		t.Fatal(err)
	}

	// A later onboarding update must not clobber the live balance.
	err = store.PutProfile(ctx, core.Profile{
		UserID:        "u1",
		MonthlyIncome: core.Money{Cents: 300000},
		Currency:      "EUR",
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalNetWorth.Cents != 5000 || p.InitialNetWorth.Cents != 5000 {
		t.Errorf("net worth clobbered: %+v", p)
	}
	if p.Currency != "EUR" || p.MonthlyIncome.Cents != 300000 {
		t.Errorf("update not applied: %+v", p)
	}
}

func TestUserIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"b-user", "a-user"} {
		if err := store.PutProfile(ctx, core.Profile{UserID: u, Currency: "USD"}); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := store.UserIDs(ctx)
	if err != nil {
		t.Fatalf("UserIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a-user" || ids[1] != "b-user" {
		t.Errorf("ids = %v", ids)
	}
}
