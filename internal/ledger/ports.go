// Package ledger defines the storage ports for the Divvy ledger: a read
// contract for user-scoped snapshots and an atomic multi-document write
// contract used to keep the cached aggregates consistent with the
// transaction ledger.
package ledger

import (
	"context"
	"errors"

	"divvy/internal/core"
)

var (
	// ErrNotFound is returned by single-document reads when the document
	// does not exist for that user.
	ErrNotFound = errors.New("document not found")

	// ErrReferenceNotFound is returned by Apply when a mutation targets a
	// budget or goal id that does not resolve to an existing document. The
	// whole mutation is discarded.
	ErrReferenceNotFound = errors.New("referenced document not found")
)

type (
	// StatsDelta is a relative increment against the (user, month) stats
	// document. The document is created on first touch.
	StatsDelta struct {
		UserID       string
		Month        string // YYYY-MM
		IncomeCents  int64
		ExpenseCents int64
	}

	// BudgetDelta is a relative increment of a budget category's spent
	// amount. The target must exist.
	BudgetDelta struct {
		UserID     string
		BudgetID   string
		SpentCents int64
	}

	// GoalDelta is a relative increment of a savings goal's current amount.
	// The target must exist.
	GoalDelta struct {
		UserID       string
		GoalID       string
		CurrentCents int64
	}

	// NetWorthDelta is a relative increment of the profile's cached total
	// net worth. A missing profile is skipped, not an error: transactions
	// may be recorded before onboarding in test scenarios.
	NetWorthDelta struct {
		UserID string
		Cents  int64
	}

	// TemplateAdvance moves a recurring template's next occurrence forward.
	TemplateAdvance struct {
		UserID         string
		TemplateID     string
		NextOccurrence core.Date
	}

	// Mutation is one atomic unit of work against the store: every listed
	// operation is applied together or not at all. Aggregate updates are
	// always relative deltas, never absolute overwrites, so concurrent
	// mutations for the same user cannot lose updates.
	Mutation struct {
		InsertTransactions   []core.Transaction
		DeleteTransactionIDs []string
		Stats                []StatsDelta
		Budgets              []BudgetDelta
		Goals                []GoalDelta
		NetWorth             []NetWorthDelta
		Advances             []TemplateAdvance
	}
)

// Empty reports whether the mutation carries no operations.
func (m Mutation) Empty() bool {
	return len(m.InsertTransactions) == 0 &&
		len(m.DeleteTransactionIDs) == 0 &&
		len(m.Stats) == 0 &&
		len(m.Budgets) == 0 &&
		len(m.Goals) == 0 &&
		len(m.NetWorth) == 0 &&
		len(m.Advances) == 0
}

// Store is the ledger persistence port. Every entity is scoped to its owning
// user; reads return point-in-time snapshots.
type Store interface {
	// Apply commits the mutation atomically. On any error nothing is
	// applied.
	Apply(ctx context.Context, m Mutation) error

	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	// ListTransactions returns the user's transactions ordered by date
	// descending, limited to limit (0 means no limit).
	ListTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)

	GetProfile(ctx context.Context, userID string) (core.Profile, error)
	PutProfile(ctx context.Context, p core.Profile) error

	CreateBudget(ctx context.Context, b core.BudgetCategory) error
	GetBudget(ctx context.Context, userID, id string) (core.BudgetCategory, error)
	ListBudgets(ctx context.Context, userID, month string) ([]core.BudgetCategory, error)

	CreateGoal(ctx context.Context, g core.SavingsGoal) error
	GetGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error)
	ListGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error)

	CreateTemplate(ctx context.Context, t core.RecurringTemplate) error
	ListTemplates(ctx context.Context, userID string) ([]core.RecurringTemplate, error)
	// ListDueTemplates returns the user's active templates whose next
	// occurrence is on or before asOf.
	ListDueTemplates(ctx context.Context, userID string, asOf core.Date) ([]core.RecurringTemplate, error)

	GetMonthlyStats(ctx context.Context, userID, month string) (core.MonthlyStats, error)

	// UserIDs lists users with a financial profile, for batch jobs.
	UserIDs(ctx context.Context) ([]string, error)
}
