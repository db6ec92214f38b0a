package http

import (
	"net/http"
	"time"

	"divvy/internal/core"
)

type goalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"targetAmount"`
	CurrentAmount string `json:"currentAmount"` // optional starting balance
	DueDate       string `json:"dueDate"`       // optional YYYY-MM-DD
	Icon          string `json:"icon"`
	Type          string `json:"type"` // goal or emergency, defaults to goal
}

type goalView struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	TargetAmountCents        int64  `json:"targetAmountCents"`
	CurrentAmountCents       int64  `json:"currentAmountCents"`
	MonthlyContributionCents int64  `json:"monthlyContributionCents,omitempty"`
	DueDate                  string `json:"dueDate,omitempty"`
	Icon                     string `json:"icon,omitempty"`
	Type                     string `json:"type"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	target, err := core.ParseDecimalToCents(req.TargetAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var current int64
	if req.CurrentAmount != "" {
		current, err = core.ParseDecimalToCents(req.CurrentAmount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}
	var due core.Date
	if req.DueDate != "" {
		due, err = core.ParseDate(req.DueDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	id, err := s.ledger.CreateGoal(r.Context(), core.SavingsGoal{
		UserID:        uid,
		Name:          req.Name,
		TargetAmount:  core.Money{Cents: target},
		CurrentAmount: core.Money{Cents: current},
		DueDate:       due,
		Icon:          req.Icon,
		Type:          core.GoalType(req.Type),
	}, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	goals, err := s.store.ListGoals(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		v := goalView{
			ID:                       g.ID,
			Name:                     g.Name,
			TargetAmountCents:        g.TargetAmount.Cents,
			CurrentAmountCents:       g.CurrentAmount.Cents,
			MonthlyContributionCents: g.MonthlyContribution.Cents,
			Icon:                     g.Icon,
			Type:                     string(g.Type),
		}
		if !g.DueDate.IsZero() {
			v.DueDate = g.DueDate.String()
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}
