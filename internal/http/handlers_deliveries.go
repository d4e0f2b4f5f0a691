package http

import (
	"net/http"
	"strings"

	"milkledger/internal/core"
	"milkledger/internal/services"
)

// dayResponse pairs the editable record with its priced view.
type dayResponse struct {
	Date       string             `json:"date"`
	Notes      string             `json:"notes"`
	Quantities map[string]float64 `json:"quantities"`
	Summary    any                `json:"summary"`
}

// summaryResponse is the JSON shape of core.Totals.
type summaryResponse struct {
	From        string                       `json:"from,omitempty"`
	To          string                       `json:"to,omitempty"`
	CustomerID  string                       `json:"customerId,omitempty"`
	Volume      float64                      `json:"volume"`
	Revenue     float64                      `json:"revenue"`
	Deliveries  int                          `json:"deliveries"`
	PerCustomer map[string]customerTotalJSON `json:"perCustomer"`
}

type customerTotalJSON struct {
	Volume     float64 `json:"volume"`
	Revenue    float64 `json:"revenue"`
	Deliveries int     `json:"deliveries"`
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	rec, err := s.svc.GetDay(date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	view, err := s.svc.Day(date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(dayResponse{
		Date:       view.Date,
		Notes:      rec.Notes,
		Quantities: rec.Quantities,
		Summary:    view,
	}).Write(w)
}

// handleSaveDay replaces the whole record of a date. The body is
// {"quantities": {"<customerId>": <liters>}, "notes": "..."}.
func (s *Server) handleSaveDay(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		writeBadBody(w, err)
		return
	}
	quantities, err := parser.Object("quantities")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	view, err := s.svc.SaveDay(r.Context(), r.PathValue("date"), quantities, parser.Get("notes"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.svc.Recent(queryInt(r, "limit", services.RecentDays))).Write(w)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.svc.Today()).Write(w)
}

// handleSummary totals an optional date range, optionally for one customer.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.TrimSpace(q.Get("from"))
	to := strings.TrimSpace(q.Get("to"))
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := core.ParseDate(d); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	customerFilter := core.AnyCustomer
	customerID := strings.TrimSpace(q.Get("customer"))
	if customerID != "" {
		if _, err := s.svc.Customer(customerID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		customerFilter = core.OnlyCustomer(customerID)
	}

	totals := s.svc.Totals(core.InRange(from, to), customerFilter)
	resp := summaryResponse{
		From:        from,
		To:          to,
		CustomerID:  customerID,
		Volume:      totals.Volume,
		Revenue:     totals.Revenue,
		Deliveries:  totals.Deliveries,
		PerCustomer: make(map[string]customerTotalJSON, len(totals.PerCustomer)),
	}
	for id, ct := range totals.PerCustomer {
		resp.PerCustomer[id] = customerTotalJSON(ct)
	}
	NewResponse().JSON(resp).Write(w)
}
