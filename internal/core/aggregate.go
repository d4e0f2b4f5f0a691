package core

// DateFilter selects ledger dates by their ISO key.
type DateFilter func(date string) bool

// CustomerFilter selects customers taking part in an aggregation.
type CustomerFilter func(c Customer) bool

// AllDates matches every date.
func AllDates(string) bool { return true }

// OnDate matches a single date.
func OnDate(date string) DateFilter {
	return func(d string) bool { return d == date }
}

// InMonth matches dates in the given month.
func InMonth(ym YearMonth) DateFilter {
	return ym.Contains
}

// InRange matches dates between from and to, both inclusive. An empty bound
// is open.
func InRange(from, to string) DateFilter {
	return func(d string) bool {
		return (from == "" || d >= from) && (to == "" || d <= to)
	}
}

// AnyCustomer matches every customer.
func AnyCustomer(Customer) bool { return true }

// OnlyCustomer matches the customer with the given id.
func OnlyCustomer(id string) CustomerFilter {
	return func(c Customer) bool { return c.ID == id }
}

// CustomerTotal is the share of one customer in a Totals.
type CustomerTotal struct {
	Volume     float64
	Revenue    float64
	Deliveries int
}

// Totals is the result of ComputeTotals.
type Totals struct {
	Volume      float64
	Revenue     float64
	Deliveries  int // counted (date, customer) pairs
	PerCustomer map[string]CustomerTotal
}

// ComputeTotals sums volume and revenue over the dates matching dateFilter
// and the customers matching customerFilter.
//
// Pairs whose customer is unknown or inactive are skipped. The price of each
// pair is resolved at call time with ResolvePrice, so a price change applies
// to history as well. Dates and customer ids are visited in sorted order,
// making the floating point result deterministic. Inputs are not modified.
func ComputeTotals(ledger Ledger, registry *Registry, settings Settings, dateFilter DateFilter, customerFilter CustomerFilter) Totals {
	if dateFilter == nil {
		dateFilter = AllDates
	}
	if customerFilter == nil {
		customerFilter = AnyCustomer
	}

	totals := Totals{PerCustomer: map[string]CustomerTotal{}}
	for _, date := range ledger.Dates(Ascending) {
		if !dateFilter(date) {
			continue
		}
		rec := ledger[date]
		for _, id := range rec.CustomerIDs() {
			c, ok := registry.FindByID(id)
			if !ok || !c.IsActive() || !customerFilter(c) {
				continue
			}
			q := rec.Quantities[id]
			if !(q > 0) {
				continue
			}
			amount := q * ResolvePrice(c, settings)

			totals.Volume += q
			totals.Revenue += amount
			totals.Deliveries++

			ct := totals.PerCustomer[id]
			ct.Volume += q
			ct.Revenue += amount
			ct.Deliveries++
			totals.PerCustomer[id] = ct
		}
	}
	return totals
}
