package core

import (
	"errors"
	"testing"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		UserID:   "u1",
		Amount:   Money{Cents: 1500},
		Category: "Groceries",
		Date:     NewDate(2025, 3, 14),
		Type:     Expense,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"missing user", func(tx *Transaction) { tx.UserID = " " }, ErrEmptyUser},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"bad split", func(tx *Transaction) { tx.NeedsVsWants = "luxury" }, ErrInvalidSplit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBudgetCategoryValidate(t *testing.T) {
	valid := BudgetCategory{
		UserID:        "u1",
		Name:          "Groceries",
		Type:          Need,
		PlannedAmount: Money{Cents: 40000},
		Month:         "2025-03",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*BudgetCategory)
		want   error
	}{
		{"missing name", func(b *BudgetCategory) { b.Name = "" }, ErrEmptyName},
		{"bad split", func(b *BudgetCategory) { b.Type = "misc" }, ErrInvalidSplit},
		{"zero planned", func(b *BudgetCategory) { b.PlannedAmount = Money{} }, ErrInvalidAmount},
		{"bad month", func(b *BudgetCategory) { b.Month = "2025-3" }, ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			if err := b.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	valid := RecurringTemplate{
		UserID:         "u1",
		Amount:         Money{Cents: 999},
		Category:       "Subscriptions",
		Type:           Expense,
		Frequency:      Monthly,
		NextOccurrence: NewDate(2025, 4, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	bad := valid
	bad.Frequency = "daily"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("Validate() = %v, want %v", err, ErrInvalidFrequency)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-14")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2025-03-14" {
		t.Errorf("String() = %q", d.String())
	}
	if d.MonthKey() != "2025-03" {
		t.Errorf("MonthKey() = %q", d.MonthKey())
	}
	if _, err := ParseDate("14/03/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}
