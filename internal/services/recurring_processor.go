package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"divvy/internal/core"
	"divvy/internal/ledger"
	"divvy/internal/notify"
)

// RecurringProcessor materializes past-due recurring templates into concrete
// transactions. It runs on dashboard load and from the recurring worker; a
// pass that finds nothing due is free, so invoking it often is safe.
type RecurringProcessor struct {
	store  ledger.Store
	ledger *Ledger
}

func NewRecurringProcessor(store ledger.Store, ledger *Ledger) *RecurringProcessor {
	return &RecurringProcessor{
		store:  store,
		ledger: ledger,
	}
}

// ProcessDue generates one transaction for every active template of the user
// whose next occurrence is on or before now, and advances each template by
// exactly one period. All generated transactions' aggregate effects and all
// template advances commit as one atomic mutation, so a second run in the
// same window finds nothing due and generates nothing.
//
// A template that fell several periods behind still advances only once per
// pass; missed periods are not back-filled.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, userID string, now time.Time) (int, error) {
	if p.store == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	due, err := p.store.ListDueTemplates(ctx, userID, today)
	if err != nil {
		return 0, fmt.Errorf("list due templates: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing due recurring templates",
		"user_id", userID,
		"due", len(due),
		"processing_date", today.String())

	var batch ledger.Mutation
	generated := make([]core.Transaction, 0, len(due))

	for _, tmpl := range due {
		// Generated transactions are dated today, not the template's
		// overdue occurrence date. Templates carry no budget or goal
		// references, so only category-name matching applies.
		tx := core.Transaction{
			ID:           uuid.NewString(),
			UserID:       tmpl.UserID,
			Amount:       tmpl.Amount,
			Category:     tmpl.Category,
			Date:         today,
			Description:  tmpl.Description,
			Type:         tmpl.Type,
			IsRecurring:  true,
			NeedsVsWants: tmpl.NeedsVsWants,
		}

		m, err := p.ledger.transactionMutation(ctx, tx, 1)
		if err != nil {
			return 0, fmt.Errorf("template %s: %w", tmpl.ID, err)
		}

		batch.InsertTransactions = append(batch.InsertTransactions, tx)
		batch.Stats = append(batch.Stats, m.Stats...)
		batch.Budgets = append(batch.Budgets, m.Budgets...)
		batch.NetWorth = append(batch.NetWorth, m.NetWorth...)
		batch.Advances = append(batch.Advances, ledger.TemplateAdvance{
			UserID:         tmpl.UserID,
			TemplateID:     tmpl.ID,
			NextOccurrence: NextOccurrence(tmpl.Frequency, tmpl.NextOccurrence),
		})
		generated = append(generated, tx)
	}

	if err := p.store.Apply(ctx, batch); err != nil {
		return 0, fmt.Errorf("apply recurring batch: %w", err)
	}

	for _, tx := range generated {
		p.ledger.publish(ctx, notify.Event{
			UserID:        tx.UserID,
			Kind:          notify.KindRecurringGenerated,
			TransactionID: tx.ID,
			Month:         tx.Date.MonthKey(),
		})
	}

	slog.InfoContext(ctx, "Recurring template processing complete",
		"user_id", userID,
		"generated", len(generated))

	return len(generated), nil
}

// ProcessAllUsers runs a catch-up pass for every user with a profile; the
// recurring worker drives this on an interval.
func (p *RecurringProcessor) ProcessAllUsers(ctx context.Context, now time.Time) (int, error) {
	users, err := p.store.UserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	total := 0
	for _, userID := range users {
		count, err := p.ProcessDue(ctx, userID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Recurring processing failed for user",
				"user_id", userID,
				"error", err)
			continue
		}
		total += count
	}
	return total, nil
}
