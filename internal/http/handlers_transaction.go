package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"divvy/internal/core"
)

type transactionRequest struct {
	Amount       string `json:"amount"`
	Category     string `json:"category"`
	Date         string `json:"date"` // YYYY-MM-DD
	Description  string `json:"description"`
	Type         string `json:"type"`
	NeedsVsWants string `json:"needsVsWants"`
	GoalID       string `json:"goalId"`
	BudgetID     string `json:"budgetId"`
}

type transactionView struct {
	ID           string `json:"id"`
	AmountCents  int64  `json:"amountCents"`
	Category     string `json:"category"`
	Date         string `json:"date"`
	Description  string `json:"description,omitempty"`
	Type         string `json:"type"`
	IsRecurring  bool   `json:"isRecurring"`
	NeedsVsWants string `json:"needsVsWants,omitempty"`
	GoalID       string `json:"goalId,omitempty"`
	BudgetID     string `json:"budgetId,omitempty"`
}

func toTransactionView(tx core.Transaction) transactionView {
	return transactionView{
		ID:           tx.ID,
		AmountCents:  tx.Amount.Cents,
		Category:     tx.Category,
		Date:         tx.Date.String(),
		Description:  tx.Description,
		Type:         string(tx.Type),
		IsRecurring:  tx.IsRecurring,
		NeedsVsWants: string(tx.NeedsVsWants),
		GoalID:       tx.GoalID,
		BudgetID:     tx.BudgetID,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	tx := core.Transaction{
		UserID:       uid,
		Amount:       core.Money{Cents: cents},
		Category:     req.Category,
		Date:         date,
		Description:  req.Description,
		Type:         core.TransactionType(req.Type),
		NeedsVsWants: core.NeedsVsWants(req.NeedsVsWants),
		GoalID:       req.GoalID,
		BudgetID:     req.BudgetID,
	}

	// Manual submissions are blocked when they would push the matched
	// budget past its plan. The recurring generator does not come through
	// here and is deliberately not subject to this check.
	if budget, over := s.overBudget(r.Context(), tx); over {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":          "budget exceeded",
			"code":           "budget_exceeded",
			"budget":         budget.Name,
			"remainingCents": budget.PlannedAmount.Cents - budget.SpentAmount.Cents,
		})
		return
	}

	id, err := s.ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// overBudget resolves the budget an expense would charge and reports whether
// the charge would exceed the planned amount. Resolution failures are left
// for the write path to report.
func (s *Server) overBudget(ctx context.Context, tx core.Transaction) (core.BudgetCategory, bool) {
	if tx.Type != core.Expense {
		return core.BudgetCategory{}, false
	}

	var budget core.BudgetCategory
	if tx.BudgetID != "" {
		b, err := s.store.GetBudget(ctx, tx.UserID, tx.BudgetID)
		if err != nil {
			return core.BudgetCategory{}, false
		}
		budget = b
	} else {
		budgets, err := s.store.ListBudgets(ctx, tx.UserID, tx.Date.MonthKey())
		if err != nil {
			return core.BudgetCategory{}, false
		}
		found := false
		for _, b := range budgets {
			if b.Name == tx.Category {
				budget = b
				found = true
				break
			}
		}
		if !found {
			return core.BudgetCategory{}, false
		}
	}

	return budget, budget.SpentAmount.Cents+tx.Amount.Cents > budget.PlannedAmount.Cents
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	limit := s.window
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		limit = n
	}

	txs, err := s.store.ListTransactions(r.Context(), uid, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, toTransactionView(tx))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), uid, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type salaryRequest struct {
	Amount      string `json:"amount"` // signed; negative records a correction
	Date        string `json:"date"`
	Description string `json:"description"`
}

// handleAddSalary records a salary deposit. A negative amount is translated
// into a positive-magnitude expense labelled as a correction, keeping the
// ledger's sign convention intact.
func (s *Server) handleAddSalary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req salaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseSignedDecimalToCents(req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cents == 0 {
		writeServiceError(w, core.ErrInvalidAmount)
		return
	}

	date := core.DateOf(time.Now())
	if req.Date != "" {
		date, err = core.ParseDate(req.Date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	tx := core.Transaction{
		UserID:      uid,
		Category:    "Salary",
		Date:        date,
		Description: req.Description,
		Type:        core.Income,
	}
	if cents > 0 {
		tx.Amount = core.Money{Cents: cents}
	} else {
		tx.Amount = core.Money{Cents: -cents}
		tx.Type = core.Expense
		tx.Category = "Salary Correction"
	}

	id, err := s.ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":   id,
		"type": string(tx.Type),
	})
}
