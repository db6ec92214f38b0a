package http

import (
	"errors"
	"net/http"
	"time"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

type statsView struct {
	Month              string `json:"month"`
	TotalIncomeCents   int64  `json:"totalIncomeCents"`
	TotalExpensesCents int64  `json:"totalExpensesCents"`
}

// handleGetStats returns the month's aggregate. A month no transaction has
// touched yet simply has zero totals; that is not an error.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = core.DateOf(time.Now()).MonthKey()
	}

	stats, err := s.store.GetMonthlyStats(r.Context(), uid, month)
	if errors.Is(err, ledger.ErrNotFound) {
		writeJSON(w, http.StatusOK, statsView{Month: month})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsView{
		Month:              stats.Month,
		TotalIncomeCents:   stats.TotalIncome.Cents,
		TotalExpensesCents: stats.TotalExpenses.Cents,
	})
}

type netWorthPointView struct {
	Date       string `json:"date"`
	ValueCents int64  `json:"valueCents"`
}

// rangeDays translates the chart range selector into a day count. "all" is
// bounded to a year; the reconstruction window cannot reach further back
// anyway.
func rangeDays(selector string) (int, bool) {
	switch selector {
	case "", "30d":
		return 30, true
	case "7d":
		return 7, true
	case "90d":
		return 90, true
	case "all":
		return 365, true
	default:
		return 0, false
	}
}

func (s *Server) handleNetWorthSeries(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	days, ok := rangeDays(r.URL.Query().Get("range"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid range, want 7d, 30d, 90d or all", "")
		return
	}

	profile, err := s.store.GetProfile(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	txs, err := s.store.ListTransactions(r.Context(), uid, s.window)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	points := core.ReconstructNetWorthSeries(profile.TotalNetWorth, txs, days, core.DateOf(time.Now()))
	views := make([]netWorthPointView, 0, len(points))
	for _, p := range points {
		views = append(views, netWorthPointView{Date: p.Date.String(), ValueCents: p.Value.Cents})
	}
	writeJSON(w, http.StatusOK, views)
}
