package memory

import (
	"context"
	"errors"
	"testing"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

func TestApplyCreatesStatsLazily(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Apply(ctx, ledger.Mutation{
		Stats: []ledger.StatsDelta{{UserID: "u1", Month: "2025-03", ExpenseCents: 1500}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	st, err := s.GetMonthlyStats(ctx, "u1", "2025-03")
	if err != nil {
		t.Fatalf("GetMonthlyStats: %v", err)
	}
	if st.TotalExpenses.Cents != 1500 || st.TotalIncome.Cents != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestApplyRejectsDanglingReferenceAtomically(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx := core.Transaction{ID: "t1", UserID: "u1", Amount: core.Money{Cents: 100}, Type: core.Expense, Date: core.NewDate(2025, 3, 1)}
	err := s.Apply(ctx, ledger.Mutation{
		InsertTransactions: []core.Transaction{tx},
		Stats:              []ledger.StatsDelta{{UserID: "u1", Month: "2025-03", ExpenseCents: 100}},
		Budgets:            []ledger.BudgetDelta{{UserID: "u1", BudgetID: "missing", SpentCents: 100}},
	})
	if !errors.Is(err, ledger.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}

	// Nothing from the failed mutation may be visible.
	if _, err := s.GetTransaction(ctx, "u1", "t1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("transaction leaked from failed mutation")
	}
	if _, err := s.GetMonthlyStats(ctx, "u1", "2025-03"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("stats leaked from failed mutation")
	}
}

func TestApplyDeltasAccumulate(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateBudget(ctx, core.BudgetCategory{ID: "b1", UserID: "u1", Name: "Food", Month: "2025-03"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutProfile(ctx, core.Profile{UserID: "u1", TotalNetWorth: core.Money{Cents: 10000}}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		err := s.Apply(ctx, ledger.Mutation{
			Budgets:  []ledger.BudgetDelta{{UserID: "u1", BudgetID: "b1", SpentCents: 500}},
			NetWorth: []ledger.NetWorthDelta{{UserID: "u1", Cents: -500}},
		})
		if err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
	}

	b, _ := s.GetBudget(ctx, "u1", "b1")
	if b.SpentAmount.Cents != 1500 {
		t.Errorf("spent = %d, want 1500", b.SpentAmount.Cents)
	}
	p, _ := s.GetProfile(ctx, "u1")
	if p.TotalNetWorth.Cents != 8500 {
		t.Errorf("net worth = %d, want 8500", p.TotalNetWorth.Cents)
	}
}

func TestApplySkipsNetWorthWithoutProfile(t *testing.T) {
	s := New()
	err := s.Apply(context.Background(), ledger.Mutation{
		NetWorth: []ledger.NetWorthDelta{{UserID: "ghost", Cents: 100}},
	})
	if err != nil {
		t.Fatalf("missing profile must not fail the mutation: %v", err)
	}
}

func TestListTransactionsOrderAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()

	dates := []core.Date{
		core.NewDate(2025, 3, 1),
		core.NewDate(2025, 3, 15),
		core.NewDate(2025, 3, 8),
	}
	for i, d := range dates {
		tx := core.Transaction{ID: string(rune('a' + i)), UserID: "u1", Amount: core.Money{Cents: 100}, Type: core.Income, Date: d}
		if err := s.Apply(ctx, ledger.Mutation{InsertTransactions: []core.Transaction{tx}}); err != nil {
			t.Fatal(err)
		}
	}

	txs, err := s.ListTransactions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Date.String() != "2025-03-15" || txs[1].Date.String() != "2025-03-08" {
		t.Errorf("wrong order: %s, %s", txs[0].Date, txs[1].Date)
	}
}

func TestListDueTemplates(t *testing.T) {
	s := New()
	ctx := context.Background()

	mk := func(id string, next core.Date, active bool) core.RecurringTemplate {
		return core.RecurringTemplate{
			ID: id, UserID: "u1", Amount: core.Money{Cents: 100},
			Type: core.Expense, Frequency: core.Monthly,
			NextOccurrence: next, Active: active,
		}
	}
	s.CreateTemplate(ctx, mk("past", core.NewDate(2025, 2, 1), true))
	s.CreateTemplate(ctx, mk("today", core.NewDate(2025, 3, 10), true))
	s.CreateTemplate(ctx, mk("future", core.NewDate(2025, 4, 1), true))
	s.CreateTemplate(ctx, mk("inactive", core.NewDate(2025, 1, 1), false))

	due, err := s.ListDueTemplates(ctx, "u1", core.NewDate(2025, 3, 10))
	if err != nil {
		t.Fatalf("ListDueTemplates: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due templates, got %d", len(due))
	}
	if due[0].ID != "past" || due[1].ID != "today" {
		t.Errorf("due = %s, %s", due[0].ID, due[1].ID)
	}
}

func TestUserScoping(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx := core.Transaction{ID: "t1", UserID: "u1", Amount: core.Money{Cents: 100}, Type: core.Income, Date: core.NewDate(2025, 3, 1)}
	if err := s.Apply(ctx, ledger.Mutation{InsertTransactions: []core.Transaction{tx}}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetTransaction(ctx, "u2", "t1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("another user's transaction must be invisible, got %v", err)
	}
}
