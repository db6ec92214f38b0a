package http

import (
	"net/http"
	"time"

	"divvy/internal/core"
)

type budgetRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"` // need, want or savings
	PlannedAmount string `json:"plannedAmount"`
	Month         string `json:"month"` // YYYY-MM, defaults to current
}

type budgetView struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	PlannedAmountCents int64  `json:"plannedAmountCents"`
	SpentAmountCents   int64  `json:"spentAmountCents"`
	Month              string `json:"month"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	planned, err := core.ParseDecimalToCents(req.PlannedAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	month := req.Month
	if month == "" {
		month = core.DateOf(time.Now()).MonthKey()
	}

	id, err := s.ledger.CreateBudget(r.Context(), core.BudgetCategory{
		UserID:        uid,
		Name:          req.Name,
		Type:          core.NeedsVsWants(req.Type),
		PlannedAmount: core.Money{Cents: planned},
		Month:         month,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = core.DateOf(time.Now()).MonthKey()
	}

	budgets, err := s.store.ListBudgets(r.Context(), uid, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, budgetView{
			ID:                 b.ID,
			Name:               b.Name,
			Type:               string(b.Type),
			PlannedAmountCents: b.PlannedAmount.Cents,
			SpentAmountCents:   b.SpentAmount.Cents,
			Month:              b.Month,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
