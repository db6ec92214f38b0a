package http

import (
	"net/http"

	"divvy/internal/core"
)

type profileRequest struct {
	InitialNetWorth string `json:"initialNetWorth"` // signed decimal
	MonthlyIncome   string `json:"monthlyIncome"`
	SalaryDate      int    `json:"salaryDate"`
	SalaryFrequency string `json:"salaryFrequency"`
	Currency        string `json:"currency"`
}

type profileView struct {
	UserID               string `json:"userId"`
	TotalNetWorthCents   int64  `json:"totalNetWorthCents"`
	InitialNetWorthCents int64  `json:"initialNetWorthCents"`
	MonthlyIncomeCents   int64  `json:"monthlyIncomeCents"`
	SalaryDate           int    `json:"salaryDate,omitempty"`
	SalaryFrequency      string `json:"salaryFrequency,omitempty"`
	Currency             string `json:"currency"`
	OnboardingCompleted  bool   `json:"onboardingCompleted"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := s.store.GetProfile(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{
		UserID:               p.UserID,
		TotalNetWorthCents:   p.TotalNetWorth.Cents,
		InitialNetWorthCents: p.InitialNetWorth.Cents,
		MonthlyIncomeCents:   p.MonthlyIncome.Cents,
		SalaryDate:           p.SalaryDate,
		SalaryFrequency:      string(p.SalaryFrequency),
		Currency:             p.Currency,
		OnboardingCompleted:  p.OnboardingCompleted,
	})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Zero is a legal starting point for both fields, and omitting them
	// means zero.
	var netWorth int64
	var err error
	if req.InitialNetWorth != "" {
		netWorth, err = core.ParseBalanceToCents(req.InitialNetWorth)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}
	var income int64
	if req.MonthlyIncome != "" {
		income, err = core.ParseBalanceToCents(req.MonthlyIncome)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if income < 0 {
			writeServiceError(w, core.ErrInvalidAmount)
			return
		}
	}

	p := core.Profile{
		UserID:          uid,
		InitialNetWorth: core.Money{Cents: netWorth},
		MonthlyIncome:   core.Money{Cents: income},
		SalaryDate:      req.SalaryDate,
		SalaryFrequency: core.Frequency(req.SalaryFrequency),
		Currency:        req.Currency,
	}
	if err := s.ledger.CreateProfile(r.Context(), p); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
