// Package services orchestrates ledger operations: the aggregate update
// protocol that keeps monthly stats, budget spent amounts, goal progress and
// the cached net worth consistent with the transaction ledger, plus the
// recurring catch-up generator.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/ledger"
	"divvy/internal/notify"
)

// Ledger is the aggregate updater. Every ledger-affecting operation goes
// through it so that the four cached aggregates are only ever touched by one
// atomic mutation per operation.
type Ledger struct {
	store    ledger.Store
	events   *amqp.Client     // optional, nil when AMQP is disabled
	notifier *notify.Notifier // optional, nil outside the API server
}

func NewLedger(store ledger.Store, events *amqp.Client, notifier *notify.Notifier) *Ledger {
	return &Ledger{
		store:    store,
		events:   events,
		notifier: notifier,
	}
}

// Store exposes the underlying read contract for the API layer.
func (l *Ledger) Store() ledger.Store {
	return l.store
}

// RecordTransaction persists the transaction and applies all aggregate
// deltas in one atomic mutation: monthly stats, matched budget spent amount,
// referenced goal progress and the profile's cached net worth. It returns
// the new transaction id.
//
// A dangling explicit BudgetID or GoalID fails the whole operation with
// ledger.ErrReferenceNotFound. An expense whose category matches no budget
// at all is not an error: only the budget increment is skipped.
func (l *Ledger) RecordTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	tx.ID = uuid.NewString()

	m, err := l.transactionMutation(ctx, tx, 1)
	if err != nil {
		return "", err
	}
	m.InsertTransactions = []core.Transaction{tx}

	if err := l.store.Apply(ctx, m); err != nil {
		return "", fmt.Errorf("apply transaction mutation: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category,
		"month", tx.Date.MonthKey())

	l.publish(ctx, notify.Event{
		UserID:        tx.UserID,
		Kind:          notify.KindTransactionRecorded,
		TransactionID: tx.ID,
		Month:         tx.Date.MonthKey(),
	})
	return tx.ID, nil
}

// DeleteTransaction removes the transaction and applies the exact inverse of
// its aggregate deltas, restoring all four aggregates to their prior values.
// Deleting an id that does not exist is a no-op.
func (l *Ledger) DeleteTransaction(ctx context.Context, userID, id string) error {
	tx, err := l.store.GetTransaction(ctx, userID, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	m, err := l.transactionMutation(ctx, tx, -1)
	if err != nil {
		return err
	}
	m.DeleteTransactionIDs = []string{id}

	if err := l.store.Apply(ctx, m); err != nil {
		return fmt.Errorf("apply reversal mutation: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id,
		"user_id", userID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents)

	l.publish(ctx, notify.Event{
		UserID:        userID,
		Kind:          notify.KindTransactionDeleted,
		TransactionID: id,
		Month:         tx.Date.MonthKey(),
	})
	return nil
}

// transactionMutation builds the aggregate deltas for tx, scaled by sign
// (+1 records, -1 reverses). The stored amount/type/category/goalId/budgetId
// drive both directions, which is what makes delete the exact inverse of
// record.
func (l *Ledger) transactionMutation(ctx context.Context, tx core.Transaction, sign int64) (ledger.Mutation, error) {
	var m ledger.Mutation

	amount := tx.Amount.Cents * sign
	sd := ledger.StatsDelta{UserID: tx.UserID, Month: tx.Date.MonthKey()}
	nd := ledger.NetWorthDelta{UserID: tx.UserID}
	if tx.Type == core.Income {
		sd.IncomeCents = amount
		nd.Cents = amount
	} else {
		sd.ExpenseCents = amount
		nd.Cents = -amount
	}
	m.Stats = []ledger.StatsDelta{sd}
	m.NetWorth = []ledger.NetWorthDelta{nd}

	if tx.Type == core.Expense {
		budgetID, err := l.resolveBudget(ctx, tx)
		if err != nil {
			return ledger.Mutation{}, err
		}
		if budgetID != "" {
			m.Budgets = []ledger.BudgetDelta{{
				UserID:     tx.UserID,
				BudgetID:   budgetID,
				SpentCents: amount,
			}}
		}
	}

	if tx.GoalID != "" {
		if _, err := l.store.GetGoal(ctx, tx.UserID, tx.GoalID); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ledger.Mutation{}, fmt.Errorf("goal %s: %w", tx.GoalID, ledger.ErrReferenceNotFound)
			}
			return ledger.Mutation{}, fmt.Errorf("lookup goal: %w", err)
		}
		m.Goals = []ledger.GoalDelta{{
			UserID:       tx.UserID,
			GoalID:       tx.GoalID,
			CurrentCents: amount,
		}}
	}

	return m, nil
}

// resolveBudget finds the budget category an expense is charged against. An
// explicit BudgetID wins over name matching since it survives renames; a
// missing explicit id is an error while a failed name match is not.
func (l *Ledger) resolveBudget(ctx context.Context, tx core.Transaction) (string, error) {
	if tx.BudgetID != "" {
		if _, err := l.store.GetBudget(ctx, tx.UserID, tx.BudgetID); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return "", fmt.Errorf("budget %s: %w", tx.BudgetID, ledger.ErrReferenceNotFound)
			}
			return "", fmt.Errorf("lookup budget: %w", err)
		}
		return tx.BudgetID, nil
	}

	budgets, err := l.store.ListBudgets(ctx, tx.UserID, tx.Date.MonthKey())
	if err != nil {
		return "", fmt.Errorf("list budgets: %w", err)
	}
	for _, b := range budgets {
		if b.Name == tx.Category {
			return b.ID, nil
		}
	}
	return "", nil
}

// CreateProfile stores the onboarding snapshot. The cached net worth starts
// at the initial net worth and is only ever moved by transaction mutations
// afterwards.
func (l *Ledger) CreateProfile(ctx context.Context, p core.Profile) error {
	p.TotalNetWorth = p.InitialNetWorth
	p.OnboardingCompleted = true
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if err := l.store.PutProfile(ctx, p); err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile created",
		"user_id", p.UserID,
		"initial_net_worth_cents", p.InitialNetWorth.Cents,
		"currency", p.Currency)
	return nil
}

// CreateBudget registers a budget category for a month.
func (l *Ledger) CreateBudget(ctx context.Context, b core.BudgetCategory) (string, error) {
	b.ID = uuid.NewString()
	b.SpentAmount = core.Money{}
	if err := b.Validate(); err != nil {
		return "", err
	}
	if err := l.store.CreateBudget(ctx, b); err != nil {
		return "", fmt.Errorf("create budget: %w", err)
	}
	return b.ID, nil
}

// CreateGoal registers a savings goal. When a due date is given the
// informational monthly contribution is derived from the remaining amount
// and the months left; it is never recomputed afterwards.
func (l *Ledger) CreateGoal(ctx context.Context, g core.SavingsGoal, now time.Time) (string, error) {
	g.ID = uuid.NewString()
	if g.Type == "" {
		g.Type = core.RegularGoal
	}
	if err := g.Validate(); err != nil {
		return "", err
	}
	g.MonthlyContribution = monthlyContribution(g, now)
	if err := l.store.CreateGoal(ctx, g); err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	return g.ID, nil
}

func monthlyContribution(g core.SavingsGoal, now time.Time) core.Money {
	if g.DueDate.IsZero() {
		return core.Money{}
	}
	months := (g.DueDate.Year()-now.Year())*12 + int(g.DueDate.Month()) - int(now.Month())
	remaining := g.TargetAmount.Cents - g.CurrentAmount.Cents
	if months <= 0 || remaining <= 0 {
		return core.Money{}
	}
	return core.Money{Cents: remaining / int64(months)}
}

// CreateTemplate registers a recurring template.
func (l *Ledger) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (string, error) {
	t.ID = uuid.NewString()
	t.Active = true
	if err := t.Validate(); err != nil {
		return "", err
	}
	if err := l.store.CreateTemplate(ctx, t); err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}
	return t.ID, nil
}

func (l *Ledger) publish(ctx context.Context, ev notify.Event) {
	if l.notifier != nil {
		l.notifier.Publish(ev)
	}
	if l.events != nil {
		if err := l.events.PublishLedgerEvent(ctx, ev); err != nil {
			// Delivery is best effort; the mutation is already committed.
			slog.WarnContext(ctx, "Failed to publish ledger event",
				"error", err,
				"user_id", ev.UserID,
				"kind", ev.Kind)
		}
	}
}
