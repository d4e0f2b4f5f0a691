package services

import (
	"context"
	"fmt"

	"milkledger/internal/core"
	"milkledger/internal/persistence"
	"milkledger/internal/report"
)

// Totals aggregates the ledger with the given filters. Nil filters match all.
func (s *LedgerService) Totals(dateFilter core.DateFilter, customerFilter core.CustomerFilter) core.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.ComputeTotals(s.ledger, s.registry, s.settings, dateFilter, customerFilter)
}

// Today returns the view of the current date.
func (s *LedgerService) Today() report.DayView {
	today := core.FormatDate(s.LocalNow())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.Day(s.source(), today)
}

// Day returns the view of date.
func (s *LedgerService) Day(date string) (report.DayView, error) {
	t, err := core.ParseDate(date)
	if err != nil {
		return report.DayView{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.Day(s.source(), core.FormatDate(t)), nil
}

// GetDay returns the raw record of date for editing.
func (s *LedgerService) GetDay(date string) (core.DayRecord, error) {
	t, err := core.ParseDate(date)
	if err != nil {
		return core.DayRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.GetDay(core.FormatDate(t)), nil
}

// Recent returns the newest n dates with deliveries.
func (s *LedgerService) Recent(n int) []report.DayView {
	if n <= 0 {
		n = RecentDays
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.Recent(s.source(), n)
}

// Month returns the month sheet. Results are cached until the next mutation.
func (s *LedgerService) Month(ym core.YearMonth) (report.MonthReport, error) {
	if err := ym.Validate(); err != nil {
		return report.MonthReport{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rep, ok := s.months.Get(ym.String()); ok {
		return rep.Clone(), nil
	}
	rep := report.Month(s.source(), ym)
	s.months.Set(ym.String(), rep)
	return rep.Clone(), nil
}

// Calendar returns the badge grid of ym.
func (s *LedgerService) Calendar(ym core.YearMonth) (report.Calendar, error) {
	if err := ym.Validate(); err != nil {
		return report.Calendar{}, err
	}
	today := s.LocalNow()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.BuildCalendar(s.source(), ym, today), nil
}

// CustomerMonth returns one customer's statement for ym.
func (s *LedgerService) CustomerMonth(id string, ym core.YearMonth) (report.Statement, error) {
	if err := ym.Validate(); err != nil {
		return report.Statement{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := report.CustomerMonth(s.source(), id, ym)
	if err != nil {
		return report.Statement{}, fmt.Errorf("%w: %s", err, id)
	}
	return st, nil
}

// Customers lists customers in insertion order.
func (s *LedgerService) Customers(includeInactive bool) []core.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if includeInactive {
		return s.registry.All()
	}
	return s.registry.ListActive()
}

// Customer returns one customer.
func (s *LedgerService) Customer(id string) (core.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.registry.FindByID(id)
	if !ok {
		return core.Customer{}, fmt.Errorf("%w: %s", core.ErrCustomerNotFound, id)
	}
	return c, nil
}

// Settings returns the current settings.
func (s *LedgerService) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// StorageInfo reports the size of the persisted state.
func (s *LedgerService) StorageInfo(ctx context.Context) (persistence.StorageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adapter.Info(ctx, s.state())
}
