package http

import (
	"fmt"
	"net/http"

	"milkledger/internal/core"
	"milkledger/internal/report"
)

const (
	contentTypePDF = "application/pdf"
	contentTypeCSV = "text/csv; charset=utf-8"
)

func (s *Server) monthParam(w http.ResponseWriter, r *http.Request) (core.YearMonth, bool) {
	ym, err := ParseMonthParams(r.URL.Query(), s.svc.LocalNow())
	if err != nil {
		writeServiceError(w, r, err)
		return core.YearMonth{}, false
	}
	return ym, true
}

func (s *Server) monthReport(w http.ResponseWriter, r *http.Request) (report.MonthReport, bool) {
	ym, ok := s.monthParam(w, r)
	if !ok {
		return report.MonthReport{}, false
	}
	rep, err := s.svc.Month(ym)
	if err != nil {
		writeServiceError(w, r, err)
		return report.MonthReport{}, false
	}
	return rep, true
}

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.monthReport(w, r)
	if !ok {
		return
	}
	NewResponse().JSON(rep).Write(w)
}

func (s *Server) handleMonthPDF(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.monthReport(w, r)
	if !ok {
		return
	}
	data, err := report.MonthPDF(rep, s.svc.LocalNow())
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("render month pdf: %w", err))
		return
	}
	NewResponse().Body(contentTypePDF, data).
		Attachment(fmt.Sprintf("milk-report-%s.pdf", rep.Month)).
		Write(w)
}

func (s *Server) handleMonthCSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.monthReport(w, r)
	if !ok {
		return
	}
	data, err := report.MonthCSV(rep)
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("render month csv: %w", err))
		return
	}
	NewResponse().Body(contentTypeCSV, data).
		Attachment(fmt.Sprintf("milk-report-%s.csv", rep.Month)).
		Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ym, ok := s.monthParam(w, r)
	if !ok {
		return
	}
	cal, err := s.svc.Calendar(ym)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(cal).Write(w)
}

func (s *Server) statement(w http.ResponseWriter, r *http.Request) (report.Statement, bool) {
	ym, ok := s.monthParam(w, r)
	if !ok {
		return report.Statement{}, false
	}
	st, err := s.svc.CustomerMonth(r.PathValue("id"), ym)
	if err != nil {
		writeServiceError(w, r, err)
		return report.Statement{}, false
	}
	return st, true
}

func (s *Server) handleCustomerMonth(w http.ResponseWriter, r *http.Request) {
	st, ok := s.statement(w, r)
	if !ok {
		return
	}
	NewResponse().JSON(st).Write(w)
}

func (s *Server) handleCustomerBill(w http.ResponseWriter, r *http.Request) {
	st, ok := s.statement(w, r)
	if !ok {
		return
	}
	data, err := report.BillPDF(st, s.svc.LocalNow())
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("render bill pdf: %w", err))
		return
	}
	NewResponse().Body(contentTypePDF, data).
		Attachment(fmt.Sprintf("bill-%s-%s.pdf", st.Customer.ID, st.Month)).
		Write(w)
}
