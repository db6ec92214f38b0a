// Package storage implements the ledger store on SQLite. All aggregate
// updates inside Apply are relative SET x = x + ? increments inside one
// transaction, which is what gives the four cached aggregates their
// all-or-nothing guarantee.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"divvy/internal/core"
	"divvy/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Apply commits the mutation in one SQL transaction. Budget, goal and
// template targets must exist (zero rows affected rolls everything back
// with ledger.ErrReferenceNotFound); a missing profile skips the net worth
// delta per the store contract.
func (s *SQLiteStore) Apply(ctx context.Context, m ledger.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range m.InsertTransactions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions
				(id, user_id, amount_cents, category, date, description, type,
				 is_recurring, needs_vs_wants, goal_id, budget_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.Amount.Cents, t.Category, t.Date.String(),
			t.Description, string(t.Type), boolToInt(t.IsRecurring),
			string(t.NeedsVsWants), t.GoalID, t.BudgetID)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}

	for _, id := range m.DeleteTransactionIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
	}

	for _, sd := range m.Stats {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO monthly_stats (user_id, month, total_income_cents, total_expenses_cents)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, month) DO UPDATE SET
				total_income_cents = total_income_cents + excluded.total_income_cents,
				total_expenses_cents = total_expenses_cents + excluded.total_expenses_cents`,
			sd.UserID, sd.Month, sd.IncomeCents, sd.ExpenseCents)
		if err != nil {
			return fmt.Errorf("upsert monthly stats: %w", err)
		}
	}

	for _, bd := range m.Budgets {
		res, err := tx.ExecContext(ctx, `
			UPDATE budget_categories SET spent_cents = spent_cents + ?
			WHERE id = ? AND user_id = ?`,
			bd.SpentCents, bd.BudgetID, bd.UserID)
		if err != nil {
			return fmt.Errorf("update budget spent amount: %w", err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("budget %s: %w", bd.BudgetID, err)
		}
	}

	for _, gd := range m.Goals {
		res, err := tx.ExecContext(ctx, `
			UPDATE savings_goals SET current_cents = current_cents + ?
			WHERE id = ? AND user_id = ?`,
			gd.CurrentCents, gd.GoalID, gd.UserID)
		if err != nil {
			return fmt.Errorf("update goal current amount: %w", err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("goal %s: %w", gd.GoalID, err)
		}
	}

	for _, nd := range m.NetWorth {
		_, err := tx.ExecContext(ctx, `
			UPDATE financial_profiles SET total_net_worth_cents = total_net_worth_cents + ?
			WHERE user_id = ?`,
			nd.Cents, nd.UserID)
		if err != nil {
			return fmt.Errorf("update net worth: %w", err)
		}
	}

	for _, adv := range m.Advances {
		res, err := tx.ExecContext(ctx, `
			UPDATE recurring_templates SET next_occurrence = ?
			WHERE id = ? AND user_id = ?`,
			adv.NextOccurrence.String(), adv.TemplateID, adv.UserID)
		if err != nil {
			return fmt.Errorf("advance template: %w", err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("template %s: %w", adv.TemplateID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mutation: %w", err)
	}

	slog.DebugContext(ctx, "Ledger mutation committed",
		"inserted", len(m.InsertTransactions),
		"deleted", len(m.DeleteTransactionIDs),
		"stats_deltas", len(m.Stats),
		"budget_deltas", len(m.Budgets),
		"goal_deltas", len(m.Goals),
		"template_advances", len(m.Advances))
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrReferenceNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const transactionColumns = `id, user_id, amount_cents, category, date, description, type,
	is_recurring, needs_vs_wants, goal_id, budget_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t           core.Transaction
		dateStr     string
		txType      string
		isRecurring int
		split       string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &t.Category, &dateStr,
		&t.Description, &txType, &isRecurring, &split, &t.GoalID, &t.BudgetID)
	if err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	t.Date = d
	t.Type = core.TransactionType(txType)
	t.IsRecurring = isRecurring != 0
	t.NeedsVsWants = core.NeedsVsWants(split)
	return t, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ? ORDER BY date DESC, created_at DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	var (
		p         core.Profile
		freq      string
		completed int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, total_net_worth_cents, initial_net_worth_cents,
			monthly_income_cents, salary_date, salary_frequency, currency,
			onboarding_completed
		FROM financial_profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.TotalNetWorth.Cents, &p.InitialNetWorth.Cents,
			&p.MonthlyIncome.Cents, &p.SalaryDate, &freq, &p.Currency, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.SalaryFrequency = core.Frequency(freq)
	p.OnboardingCompleted = completed != 0
	return p, nil
}

func (s *SQLiteStore) PutProfile(ctx context.Context, p core.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_profiles
			(user_id, total_net_worth_cents, initial_net_worth_cents,
			 monthly_income_cents, salary_date, salary_frequency, currency,
			 onboarding_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			monthly_income_cents = excluded.monthly_income_cents,
			salary_date = excluded.salary_date,
			salary_frequency = excluded.salary_frequency,
			currency = excluded.currency,
			onboarding_completed = excluded.onboarding_completed`,
		p.UserID, p.TotalNetWorth.Cents, p.InitialNetWorth.Cents,
		p.MonthlyIncome.Cents, p.SalaryDate, string(p.SalaryFrequency),
		p.Currency, boolToInt(p.OnboardingCompleted))
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateBudget(ctx context.Context, b core.BudgetCategory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_categories (id, user_id, name, type, planned_cents, spent_cents, month)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, string(b.Type), b.PlannedAmount.Cents,
		b.SpentAmount.Cents, b.Month)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func scanBudget(row interface{ Scan(...any) error }) (core.BudgetCategory, error) {
	var (
		b     core.BudgetCategory
		btype string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &btype, &b.PlannedAmount.Cents,
		&b.SpentAmount.Cents, &b.Month)
	if err != nil {
		return core.BudgetCategory{}, err
	}
	b.Type = core.NeedsVsWants(btype)
	return b, nil
}

func (s *SQLiteStore) GetBudget(ctx context.Context, userID, id string) (core.BudgetCategory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, planned_cents, spent_cents, month
		FROM budget_categories WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetCategory{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) ListBudgets(ctx context.Context, userID, month string) ([]core.BudgetCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, planned_cents, spent_cents, month
		FROM budget_categories WHERE user_id = ? AND month = ?
		ORDER BY name`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.BudgetCategory, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateGoal(ctx context.Context, g core.SavingsGoal) error {
	due := ""
	if !g.DueDate.IsZero() {
		due = g.DueDate.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO savings_goals
			(id, user_id, name, target_cents, current_cents,
			 monthly_contribution_cents, due_date, icon, type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents,
		g.MonthlyContribution.Cents, due, g.Icon, string(g.Type))
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func scanGoal(row interface{ Scan(...any) error }) (core.SavingsGoal, error) {
	var (
		g     core.SavingsGoal
		due   string
		gtype string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents,
		&g.CurrentAmount.Cents, &g.MonthlyContribution.Cents, &due, &g.Icon, &gtype)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if due != "" {
		d, err := core.ParseDate(due)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("stored due date %q: %w", due, err)
		}
		g.DueDate = d
	}
	g.Type = core.GoalType(gtype)
	return g, nil
}

func (s *SQLiteStore) GetGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, target_cents, current_cents,
			monthly_contribution_cents, due_date, icon, type
		FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) ListGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, target_cents, current_cents,
			monthly_contribution_cents, due_date, icon, type
		FROM savings_goals WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.SavingsGoal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateTemplate(ctx context.Context, t core.RecurringTemplate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_templates
			(id, user_id, amount_cents, category, description, type,
			 frequency, next_occurrence, needs_vs_wants, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount.Cents, t.Category, t.Description,
		string(t.Type), string(t.Frequency), t.NextOccurrence.String(),
		string(t.NeedsVsWants), boolToInt(t.Active))
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func scanTemplate(row interface{ Scan(...any) error }) (core.RecurringTemplate, error) {
	var (
		t      core.RecurringTemplate
		ttype  string
		freq   string
		next   string
		split  string
		active int
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &t.Category,
		&t.Description, &ttype, &freq, &next, &split, &active)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	d, err := core.ParseDate(next)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("stored next occurrence %q: %w", next, err)
	}
	t.Type = core.TransactionType(ttype)
	t.Frequency = core.Frequency(freq)
	t.NextOccurrence = d
	t.NeedsVsWants = core.NeedsVsWants(split)
	t.Active = active != 0
	return t, nil
}

const templateColumns = `id, user_id, amount_cents, category, description, type,
	frequency, next_occurrence, needs_vs_wants, active`

func (s *SQLiteStore) ListTemplates(ctx context.Context, userID string) ([]core.RecurringTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM recurring_templates
		WHERE user_id = ? ORDER BY next_occurrence`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func (s *SQLiteStore) ListDueTemplates(ctx context.Context, userID string, asOf core.Date) ([]core.RecurringTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM recurring_templates
		WHERE user_id = ? AND active = 1 AND next_occurrence <= ?
		ORDER BY next_occurrence`, userID, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("list due templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func collectTemplates(rows *sql.Rows) ([]core.RecurringTemplate, error) {
	out := make([]core.RecurringTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetMonthlyStats(ctx context.Context, userID, month string) (core.MonthlyStats, error) {
	var st core.MonthlyStats
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, month, total_income_cents, total_expenses_cents
		FROM monthly_stats WHERE user_id = ? AND month = ?`, userID, month).
		Scan(&st.UserID, &st.Month, &st.TotalIncome.Cents, &st.TotalExpenses.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyStats{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.MonthlyStats{}, fmt.Errorf("get monthly stats: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM financial_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
