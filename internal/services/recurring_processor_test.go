package services

import (
	"context"
	"testing"
	"time"

	"divvy/internal/core"
	"divvy/internal/ledger/memory"
)

func newTestProcessor(t *testing.T) (*RecurringProcessor, *Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	l := NewLedger(store, nil, nil)
	return NewRecurringProcessor(store, l), l, store
}

func TestProcessDueGeneratesAndAdvances(t *testing.T) {
	p, l, store := newTestProcessor(t)
	ctx := context.Background()
	onboard(t, l, "u1", 50000)

	_, err := l.CreateTemplate(ctx, core.RecurringTemplate{
		UserID:         "u1",
		Amount:         core.Money{Cents: 999},
		Category:       "Subscriptions",
		Description:    "Streaming",
		Type:           core.Expense,
		Frequency:      core.Monthly,
		NextOccurrence: core.NewDate(2025, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	count, err := p.ProcessDue(ctx, "u1", now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if count != 1 {
		t.Fatalf("generated = %d, want 1", count)
	}

	txs, _ := store.ListTransactions(ctx, "u1", 0)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	tx := txs[0]
	if !tx.IsRecurring {
		t.Errorf("generated transaction not flagged recurring")
	}
	// Dated the processing day, not the overdue occurrence date.
	if tx.Date.String() != "2025-03-10" {
		t.Errorf("date = %s, want 2025-03-10", tx.Date)
	}

	stats, _ := store.GetMonthlyStats(ctx, "u1", "2025-03")
	if stats.TotalExpenses.Cents != 999 {
		t.Errorf("expenses = %d, want 999", stats.TotalExpenses.Cents)
	}
	profile, _ := store.GetProfile(ctx, "u1")
	if profile.TotalNetWorth.Cents != 49001 {
		t.Errorf("net worth = %d, want 49001", profile.TotalNetWorth.Cents)
	}

	tmpls, _ := store.ListTemplates(ctx, "u1")
	if tmpls[0].NextOccurrence.String() != "2025-04-01" {
		t.Errorf("next occurrence = %s, want 2025-04-01", tmpls[0].NextOccurrence)
	}
}

func TestProcessDueSecondRunGeneratesNothing(t *testing.T) {
	p, l, store := newTestProcessor(t)
	ctx := context.Background()
	onboard(t, l, "u1", 0)

	_, err := l.CreateTemplate(ctx, core.RecurringTemplate{
		UserID:         "u1",
		Amount:         core.Money{Cents: 500},
		Category:       "Rent",
		Type:           core.Expense,
		Frequency:      core.Weekly,
		NextOccurrence: core.NewDate(2025, 3, 9),
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if count, err := p.ProcessDue(ctx, "u1", now); err != nil || count != 1 {
		t.Fatalf("first run: count=%d err=%v", count, err)
	}
	// Next occurrence moved to 2025-03-16, beyond now.
	if count, err := p.ProcessDue(ctx, "u1", now); err != nil || count != 0 {
		t.Fatalf("second run: count=%d err=%v, want 0", count, err)
	}

	txs, _ := store.ListTransactions(ctx, "u1", 0)
	if len(txs) != 1 {
		t.Errorf("expected 1 transaction after two runs, got %d", len(txs))
	}
}

func TestProcessDueAdvancesOnePeriodPerPass(t *testing.T) {
	p, l, store := newTestProcessor(t)
	ctx := context.Background()
	onboard(t, l, "u1", 0)

	// Three weeks behind: each pass catches up one period, without
	// back-filling the missed ones in a single pass.
	_, err := l.CreateTemplate(ctx, core.RecurringTemplate{
		UserID:         "u1",
		Amount:         core.Money{Cents: 700},
		Category:       "Gym",
		Type:           core.Expense,
		Frequency:      core.Weekly,
		NextOccurrence: core.NewDate(2025, 2, 17),
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	total := 0
	for i := 0; i < 5; i++ {
		count, err := p.ProcessDue(ctx, "u1", now)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		total += count
	}
	// Occurrences 02-17, 02-24, 03-03, 03-10 are due; 03-17 is not.
	if total != 4 {
		t.Errorf("total generated = %d, want 4", total)
	}
	txs, _ := store.ListTransactions(ctx, "u1", 0)
	if len(txs) != 4 {
		t.Errorf("transactions = %d, want 4", len(txs))
	}
}

func TestProcessDueChargesMatchingBudget(t *testing.T) {
	p, l, store := newTestProcessor(t)
	ctx := context.Background()
	onboard(t, l, "u1", 0)

	budgetID, err := l.CreateBudget(ctx, core.BudgetCategory{
		UserID:        "u1",
		Name:          "Subscriptions",
		Type:          core.Want,
		PlannedAmount: core.Money{Cents: 5000},
		Month:         "2025-03",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.CreateTemplate(ctx, core.RecurringTemplate{
		UserID:         "u1",
		Amount:         core.Money{Cents: 1500},
		Category:       "Subscriptions",
		Type:           core.Expense,
		Frequency:      core.Monthly,
		NextOccurrence: core.NewDate(2025, 3, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	if _, err := p.ProcessDue(ctx, "u1", now); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}

	b, _ := store.GetBudget(ctx, "u1", budgetID)
	if b.SpentAmount.Cents != 1500 {
		t.Errorf("budget spent = %d, want 1500", b.SpentAmount.Cents)
	}
}

func TestProcessAllUsers(t *testing.T) {
	p, l, store := newTestProcessor(t)
	ctx := context.Background()
	onboard(t, l, "u1", 0)
	onboard(t, l, "u2", 0)

	for _, user := range []string{"u1", "u2"} {
		_, err := l.CreateTemplate(ctx, core.RecurringTemplate{
			UserID:         user,
			Amount:         core.Money{Cents: 100},
			Category:       "Misc",
			Type:           core.Expense,
			Frequency:      core.Monthly,
			NextOccurrence: core.NewDate(2025, 3, 1),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	now := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	total, err := p.ProcessAllUsers(ctx, now)
	if err != nil {
		t.Fatalf("ProcessAllUsers: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	for _, user := range []string{"u1", "u2"} {
		txs, _ := store.ListTransactions(ctx, user, 0)
		if len(txs) != 1 {
			t.Errorf("user %s: %d transactions, want 1", user, len(txs))
		}
	}
}
