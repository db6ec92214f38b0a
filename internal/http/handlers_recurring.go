package http

import (
	"net/http"
	"time"

	"divvy/internal/core"
)

type templateRequest struct {
	Amount         string `json:"amount"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	Frequency      string `json:"frequency"` // monthly, weekly or bi-weekly
	NextOccurrence string `json:"nextOccurrence"`
	NeedsVsWants   string `json:"needsVsWants"`
}

type templateView struct {
	ID             string `json:"id"`
	AmountCents    int64  `json:"amountCents"`
	Category       string `json:"category"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type"`
	Frequency      string `json:"frequency"`
	NextOccurrence string `json:"nextOccurrence"`
	NeedsVsWants   string `json:"needsVsWants,omitempty"`
	Active         bool   `json:"active"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	next, err := core.ParseDate(req.NextOccurrence)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	id, err := s.ledger.CreateTemplate(r.Context(), core.RecurringTemplate{
		UserID:         uid,
		Amount:         core.Money{Cents: cents},
		Category:       req.Category,
		Description:    req.Description,
		Type:           core.TransactionType(req.Type),
		Frequency:      core.Frequency(req.Frequency),
		NextOccurrence: next,
		NeedsVsWants:   core.NeedsVsWants(req.NeedsVsWants),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	templates, err := s.store.ListTemplates(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]templateView, 0, len(templates))
	for _, t := range templates {
		views = append(views, templateView{
			ID:             t.ID,
			AmountCents:    t.Amount.Cents,
			Category:       t.Category,
			Description:    t.Description,
			Type:           string(t.Type),
			Frequency:      string(t.Frequency),
			NextOccurrence: t.NextOccurrence.String(),
			NeedsVsWants:   string(t.NeedsVsWants),
			Active:         t.Active,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// handleRunRecurring runs one catch-up pass for the caller. Each due template
// generates at most one transaction per pass; clients that spam this endpoint
// get idempotent behaviour until the next occurrence falls due again.
func (s *Server) handleRunRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	generated, err := s.recurring.ProcessDue(r.Context(), uid, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"generated": generated})
}
