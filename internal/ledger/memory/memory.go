// Package memory provides a mutex-guarded in-memory ledger store. It is the
// default development backend and the test double for the SQLite store; both
// honor the same atomic Apply contract.
package memory

import (
	"context"
	"sort"
	"sync"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

type Store struct {
	mu           sync.Mutex
	transactions map[string]core.Transaction
	budgets      map[string]core.BudgetCategory
	goals        map[string]core.SavingsGoal
	templates    map[string]core.RecurringTemplate
	stats        map[string]core.MonthlyStats // keyed userID+"/"+month
	profiles     map[string]core.Profile
}

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.BudgetCategory),
		goals:        make(map[string]core.SavingsGoal),
		templates:    make(map[string]core.RecurringTemplate),
		stats:        make(map[string]core.MonthlyStats),
		profiles:     make(map[string]core.Profile),
	}
}

func statsKey(userID, month string) string { return userID + "/" + month }

// Apply commits the mutation atomically: references are checked up front and
// nothing is touched unless every check passes.
func (s *Store) Apply(_ context.Context, m ledger.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bd := range m.Budgets {
		b, ok := s.budgets[bd.BudgetID]
		if !ok || b.UserID != bd.UserID {
			return ledger.ErrReferenceNotFound
		}
	}
	for _, gd := range m.Goals {
		g, ok := s.goals[gd.GoalID]
		if !ok || g.UserID != gd.UserID {
			return ledger.ErrReferenceNotFound
		}
	}
	for _, adv := range m.Advances {
		t, ok := s.templates[adv.TemplateID]
		if !ok || t.UserID != adv.UserID {
			return ledger.ErrReferenceNotFound
		}
	}

	for _, tx := range m.InsertTransactions {
		s.transactions[tx.ID] = tx
	}
	for _, id := range m.DeleteTransactionIDs {
		delete(s.transactions, id)
	}
	for _, sd := range m.Stats {
		key := statsKey(sd.UserID, sd.Month)
		st, ok := s.stats[key]
		if !ok {
			st = core.MonthlyStats{UserID: sd.UserID, Month: sd.Month}
		}
		st.TotalIncome.Cents += sd.IncomeCents
		st.TotalExpenses.Cents += sd.ExpenseCents
		s.stats[key] = st
	}
	for _, bd := range m.Budgets {
		b := s.budgets[bd.BudgetID]
		b.SpentAmount.Cents += bd.SpentCents
		s.budgets[bd.BudgetID] = b
	}
	for _, gd := range m.Goals {
		g := s.goals[gd.GoalID]
		g.CurrentAmount.Cents += gd.CurrentCents
		s.goals[gd.GoalID] = g
	}
	for _, nd := range m.NetWorth {
		p, ok := s.profiles[nd.UserID]
		if !ok {
			// Profile absent: the delta is skipped, matching the store
			// contract for pre-onboarding scenarios.
			continue
		}
		p.TotalNetWorth.Cents += nd.Cents
		s.profiles[nd.UserID] = p
	}
	for _, adv := range m.Advances {
		t := s.templates[adv.TemplateID]
		t.NextOccurrence = adv.NextOccurrence
		s.templates[adv.TemplateID] = t
	}
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, ledger.ErrNotFound
	}
	return p, nil
}

func (s *Store) PutProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) CreateBudget(_ context.Context, b core.BudgetCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) GetBudget(_ context.Context, userID, id string) (core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return core.BudgetCategory{}, ledger.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, userID, month string) ([]core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BudgetCategory, 0)
	for _, b := range s.budgets {
		if b.UserID == userID && b.Month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateGoal(_ context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = g
	return nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return core.SavingsGoal{}, ledger.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SavingsGoal, 0)
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateTemplate(_ context.Context, t core.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return nil
}

func (s *Store) ListTemplates(_ context.Context, userID string) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringTemplate, 0)
	for _, t := range s.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDueTemplates(_ context.Context, userID string, asOf core.Date) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringTemplate, 0)
	for _, t := range s.templates {
		if t.UserID == userID && t.Active && !t.NextOccurrence.After(asOf.Time) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetMonthlyStats(_ context.Context, userID, month string) (core.MonthlyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[statsKey(userID, month)]
	if !ok {
		return core.MonthlyStats{}, ledger.ErrNotFound
	}
	return st, nil
}

func (s *Store) UserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
