package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Need    NeedsVsWants = "need"
	Want    NeedsVsWants = "want"
	Savings NeedsVsWants = "savings"
)

const (
	Monthly  Frequency = "monthly"
	Weekly   Frequency = "weekly"
	BiWeekly Frequency = "bi-weekly"
)

const (
	RegularGoal   GoalType = "goal"
	EmergencyFund GoalType = "emergency"
)

type (
	TransactionType string

	// NeedsVsWants classifies a budget line under the 50/30/20 allocation rule.
	NeedsVsWants string

	Frequency string

	GoalType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is an immutable ledger fact once committed. Amount is always
	// a positive magnitude; direction is carried by Type. GoalID and BudgetID
	// are optional back-references, empty when unset.
	Transaction struct {
		ID           string
		UserID       string
		Amount       Money
		Category     string
		Date         Date
		Description  string
		Type         TransactionType
		IsRecurring  bool
		NeedsVsWants NeedsVsWants // empty when unset
		GoalID       string
		BudgetID     string
	}

	// MonthlyStats is the per-(user, month) income/expense aggregate, created
	// lazily on the first transaction of a month and never deleted.
	MonthlyStats struct {
		UserID        string
		Month         string // YYYY-MM
		TotalIncome   Money
		TotalExpenses Money
	}

	BudgetCategory struct {
		ID            string
		UserID        string
		Name          string
		Type          NeedsVsWants
		PlannedAmount Money
		SpentAmount   Money
		Month         string // YYYY-MM
	}

	SavingsGoal struct {
		ID            string
		UserID        string
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		// MonthlyContribution is informational, computed once at creation time
		// from the target and due date. It is not kept live.
		MonthlyContribution Money
		DueDate             Date // zero when the goal has no deadline
		Icon                string
		Type                GoalType
	}

	RecurringTemplate struct {
		ID             string
		UserID         string
		Amount         Money
		Category       string
		Description    string
		Type           TransactionType
		Frequency      Frequency
		NextOccurrence Date
		NeedsVsWants   NeedsVsWants
		Active         bool
	}

	// Profile holds the user's financial profile. TotalNetWorth is the live
	// cached balance, maintained incrementally; InitialNetWorth is the
	// onboarding snapshot and is never mutated again.
	Profile struct {
		UserID              string
		TotalNetWorth       Money
		InitialNetWorth     Money
		MonthlyIncome       Money
		SalaryDate          int // day of month, 1-31
		SalaryFrequency     Frequency
		Currency            string
		OnboardingCompleted bool
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidSplit     = errors.New("invalid needs-vs-wants classification")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyUser        = errors.New("empty user id")
	ErrEmptyName        = errors.New("empty name")
)

// NewDate creates a Date for the given calendar day, at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthKey returns the YYYY-MM bucket the date falls into.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (n NeedsVsWants) Validate() error {
	switch n {
	case Need, Want, Savings:
		return nil
	default:
		return ErrInvalidSplit
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Monthly, Weekly, BiWeekly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.UserID) == "" {
		return ErrEmptyUser
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if tx.NeedsVsWants != "" {
		if err := tx.NeedsVsWants.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b BudgetCategory) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Type.Validate(); err != nil {
		return err
	}
	if err := b.PlannedAmount.Validate(); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01", b.Month); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	switch g.Type {
	case RegularGoal, EmergencyFund:
		return nil
	default:
		return errors.New("invalid goal type")
	}
}

func (rt RecurringTemplate) Validate() error {
	if strings.TrimSpace(rt.UserID) == "" {
		return ErrEmptyUser
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if err := rt.Type.Validate(); err != nil {
		return err
	}
	if err := rt.Frequency.Validate(); err != nil {
		return err
	}
	if err := rt.NextOccurrence.Validate(); err != nil {
		return err
	}
	if rt.NeedsVsWants != "" {
		if err := rt.NeedsVsWants.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUser
	}
	if p.SalaryDate != 0 && (p.SalaryDate < 1 || p.SalaryDate > 31) {
		return ErrInvalidDate
	}
	if p.SalaryFrequency != "" && p.SalaryFrequency != Monthly && p.SalaryFrequency != BiWeekly {
		return ErrInvalidFrequency
	}
	return nil
}
