// Package report derives read-only views of the ledger: day summaries, the
// month sheet, calendar badges and per-customer statements. Nothing here
// mutates its inputs.
package report

import (
	"time"

	"milkledger/internal/core"
)

// Source is the state a projection reads.
type Source struct {
	Ledger   core.Ledger
	Registry *core.Registry
	Settings core.Settings
}

// DayLine is one customer's delivery on a day.
type DayLine struct {
	CustomerID string  `json:"customerId"`
	Name       string  `json:"name"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
}

// DayView summarizes one date.
type DayView struct {
	Date      string    `json:"date"`
	Volume    float64   `json:"volume"`
	Revenue   float64   `json:"revenue"`
	Customers int       `json:"customers"`
	Notes     string    `json:"notes,omitempty"`
	Lines     []DayLine `json:"lines"`
}

// Day summarizes date over active customers.
func Day(src Source, date string) DayView {
	totals := core.ComputeTotals(src.Ledger, src.Registry, src.Settings, core.OnDate(date), core.AnyCustomer)
	view := DayView{
		Date:      date,
		Volume:    totals.Volume,
		Revenue:   totals.Revenue,
		Customers: len(totals.PerCustomer),
		Notes:     src.Ledger.GetDay(date).Notes,
		Lines:     []DayLine{},
	}
	for _, c := range src.Registry.ListActive() {
		ct, ok := totals.PerCustomer[c.ID]
		if !ok {
			continue
		}
		view.Lines = append(view.Lines, DayLine{
			CustomerID: c.ID,
			Name:       c.Name,
			Volume:     ct.Volume,
			Price:      core.ResolvePrice(c, src.Settings),
			Amount:     ct.Revenue,
		})
	}
	return view
}

// Recent returns the views of the newest n ledger dates, newest first.
func Recent(src Source, n int) []DayView {
	out := []DayView{}
	for _, date := range src.Ledger.Dates(core.Descending) {
		if len(out) >= n {
			break
		}
		out = append(out, Day(src, date))
	}
	return out
}

// Column is one active customer in the month sheet.
type Column struct {
	CustomerID string  `json:"customerId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
}

// Cell is a customer's quantity on a row. Delivered is false for the
// "no delivery" marker.
type Cell struct {
	Volume    float64 `json:"volume"`
	Delivered bool    `json:"delivered"`
}

// Row is one ledger date of the month.
type Row struct {
	Date    string  `json:"date"`
	Notes   string  `json:"notes,omitempty"`
	Cells   []Cell  `json:"cells"`
	Volume  float64 `json:"volume"`
	Revenue float64 `json:"revenue"`
}

// ColumnTotal sums a column.
type ColumnTotal struct {
	Volume     float64 `json:"volume"`
	Revenue    float64 `json:"revenue"`
	Deliveries int     `json:"deliveries"`
}

// MonthReport is the per-day sheet of one month.
type MonthReport struct {
	Month        string        `json:"month"`
	Columns      []Column      `json:"columns"`
	Rows         []Row         `json:"rows"`
	ColumnTotals []ColumnTotal `json:"columnTotals"`
	Volume       float64       `json:"volume"`
	Revenue      float64       `json:"revenue"`
	DeliveryDays int           `json:"deliveryDays"`
	// AverageVolume is the volume per delivery day.
	AverageVolume float64 `json:"averageVolume"`
}

// Clone returns a deep copy, so a cached report can be handed out.
func (m MonthReport) Clone() MonthReport {
	out := m
	out.Columns = cloneSlice(m.Columns)
	out.ColumnTotals = cloneSlice(m.ColumnTotals)
	out.Rows = make([]Row, len(m.Rows))
	for i, row := range m.Rows {
		row.Cells = cloneSlice(row.Cells)
		out.Rows[i] = row
	}
	return out
}

// cloneSlice keeps empty slices non-nil so they still encode as [].
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// Month builds the sheet for ym. Only days with nonzero volume count as
// delivery days.
func Month(src Source, ym core.YearMonth) MonthReport {
	active := src.Registry.ListActive()
	rep := MonthReport{
		Month:        ym.String(),
		Columns:      make([]Column, len(active)),
		Rows:         []Row{},
		ColumnTotals: make([]ColumnTotal, len(active)),
	}
	for i, c := range active {
		rep.Columns[i] = Column{CustomerID: c.ID, Name: c.Name, Price: core.ResolvePrice(c, src.Settings)}
	}

	for _, date := range src.Ledger.Dates(core.Ascending) {
		if !ym.Contains(date) {
			continue
		}
		rec := src.Ledger[date]
		row := Row{Date: date, Notes: rec.Notes, Cells: make([]Cell, len(active))}
		for i, col := range rep.Columns {
			q := rec.Quantities[col.CustomerID]
			if !(q > 0) {
				continue
			}
			amount := q * col.Price
			row.Cells[i] = Cell{Volume: q, Delivered: true}
			row.Volume += q
			row.Revenue += amount

			rep.ColumnTotals[i].Volume += q
			rep.ColumnTotals[i].Revenue += amount
			rep.ColumnTotals[i].Deliveries++
		}
		rep.Rows = append(rep.Rows, row)
		rep.Volume += row.Volume
		rep.Revenue += row.Revenue
		if row.Volume > 0 {
			rep.DeliveryDays++
		}
	}
	if rep.DeliveryDays > 0 {
		rep.AverageVolume = rep.Volume / float64(rep.DeliveryDays)
	}
	return rep
}

// CalendarCell is the badge of one day.
type CalendarCell struct {
	Day       int     `json:"day"`
	Date      string  `json:"date"`
	Volume    float64 `json:"volume"`
	HasRecord bool    `json:"hasRecord"`
	IsToday   bool    `json:"isToday"`
}

// Calendar is a month grid starting on Sunday.
type Calendar struct {
	Month string `json:"month"`
	// LeadingBlanks is the weekday of the first day, Sunday = 0.
	LeadingBlanks int            `json:"leadingBlanks"`
	Cells         []CalendarCell `json:"cells"`
}

// BuildCalendar returns one cell per day of ym with the active volume of that day.
func BuildCalendar(src Source, ym core.YearMonth, today time.Time) Calendar {
	cal := Calendar{
		Month:         ym.String(),
		LeadingBlanks: int(ym.First().Weekday()),
		Cells:         make([]CalendarCell, 0, ym.DaysIn()),
	}
	todayKey := core.FormatDate(today)

	perDay := map[string]float64{}
	for _, date := range src.Ledger.Dates(core.Ascending) {
		if ym.Contains(date) {
			perDay[date] = core.ComputeTotals(src.Ledger, src.Registry, src.Settings, core.OnDate(date), core.AnyCustomer).Volume
		}
	}

	for d := 1; d <= ym.DaysIn(); d++ {
		date := core.FormatDate(ym.First().AddDate(0, 0, d-1))
		_, has := src.Ledger[date]
		cal.Cells = append(cal.Cells, CalendarCell{
			Day:       d,
			Date:      date,
			Volume:    perDay[date],
			HasRecord: has,
			IsToday:   date == todayKey,
		})
	}
	return cal
}

// StatementLine is one delivery on a customer statement.
type StatementLine struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
	Amount float64 `json:"amount"`
}

// Statement is one customer's month: the monthly due and the bill body.
type Statement struct {
	Customer   core.Customer   `json:"customer"`
	Month      string          `json:"month"`
	Price      float64         `json:"price"`
	Volume     float64         `json:"volume"`
	Revenue    float64         `json:"revenue"`
	Deliveries int             `json:"deliveries"`
	Lines      []StatementLine `json:"lines"`
}

// CustomerMonth totals one customer over ym. An inactive customer has an
// empty statement, the same as in every other aggregate.
func CustomerMonth(src Source, customerID string, ym core.YearMonth) (Statement, error) {
	c, ok := src.Registry.FindByID(customerID)
	if !ok {
		return Statement{}, core.ErrCustomerNotFound
	}
	st := Statement{
		Customer: c,
		Month:    ym.String(),
		Price:    core.ResolvePrice(c, src.Settings),
		Lines:    []StatementLine{},
	}
	totals := core.ComputeTotals(src.Ledger, src.Registry, src.Settings, core.InMonth(ym), core.OnlyCustomer(customerID))
	st.Volume = totals.Volume
	st.Revenue = totals.Revenue
	st.Deliveries = totals.Deliveries
	if totals.Deliveries == 0 {
		return st, nil
	}
	for _, date := range src.Ledger.Dates(core.Ascending) {
		if !ym.Contains(date) {
			continue
		}
		if q := src.Ledger[date].Quantities[customerID]; q > 0 {
			st.Lines = append(st.Lines, StatementLine{Date: date, Volume: q, Amount: q * st.Price})
		}
	}
	return st, nil
}
