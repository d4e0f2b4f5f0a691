package core

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// fixture builds customers A (60), B (70) and C (no own price) with the
// default price set to 50.
func fixture() (*Registry, Settings) {
	r := NewRegistry([]Customer{
		{ID: "A", Name: "A", MilkPrice: 60, Status: Active},
		{ID: "B", Name: "B", MilkPrice: 70, Status: Active},
		{ID: "C", Name: "C", Status: Active},
	})
	return r, Settings{DefaultMilkPrice: 50}
}

func TestComputeTotalsScenarios(t *testing.T) {
	r, s := fixture()
	l := Ledger{}
	l.UpsertDay("2024-06-01", map[string]float64{"A": 2, "B": 1.5}, "")
	l.UpsertDay("2024-06-02", map[string]float64{"C": 3}, "")

	day1 := ComputeTotals(l, r, s, OnDate("2024-06-01"), nil)
	if !near(day1.Volume, 3.5) || !near(day1.Revenue, 225) || day1.Deliveries != 2 {
		t.Fatalf("day 1: unexpected totals %+v", day1)
	}

	day2 := ComputeTotals(l, r, s, OnDate("2024-06-02"), nil)
	if !near(day2.Revenue, 150) {
		t.Fatalf("day 2: expected revenue 150, got %v", day2.Revenue)
	}

	month := ComputeTotals(l, r, s, InMonth(YearMonth{2024, 6}), nil)
	if !near(month.Volume, 6.5) || !near(month.Revenue, 375) {
		t.Fatalf("month: unexpected totals %+v", month)
	}
	if ct := month.PerCustomer["B"]; !near(ct.Volume, 1.5) || !near(ct.Revenue, 105) || ct.Deliveries != 1 {
		t.Fatalf("unexpected per customer total %+v", ct)
	}

	// delete A: registry removal plus ledger cascade
	r.Remove("A")
	l.RemoveCustomer("A")
	after := ComputeTotals(l, r, s, OnDate("2024-06-01"), nil)
	if !near(after.Volume, 1.5) || !near(after.Revenue, 105) {
		t.Fatalf("after delete: unexpected totals %+v", after)
	}
}

func TestComputeTotalsSkipsInactiveAndUnknown(t *testing.T) {
	r, s := fixture()
	l := Ledger{}
	l.UpsertDay("2024-06-01", map[string]float64{"A": 2, "B": 1, "ghost": 10}, "")

	if _, err := r.Update("B", CustomerFields{Status: strp("Inactive")}, s); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := ComputeTotals(l, r, s, AllDates, nil)
	if !near(got.Volume, 2) || !near(got.Revenue, 120) {
		t.Fatalf("expected only A counted, got %+v", got)
	}
	if _, ok := got.PerCustomer["B"]; ok {
		t.Fatalf("inactive customer in per customer totals")
	}
	if len(l["2024-06-01"].Quantities) != 3 {
		t.Fatalf("aggregation must not mutate the ledger")
	}
}

func TestComputeTotalsUsesLivePrice(t *testing.T) {
	r, s := fixture()
	l := Ledger{}
	l.UpsertDay("2024-06-01", map[string]float64{"A": 1}, "")
	l.UpsertDay("2024-06-02", map[string]float64{"C": 1}, "")

	r.Update("A", CustomerFields{MilkPrice: 80}, s)
	s.DefaultMilkPrice = 55
	got := ComputeTotals(l, r, s, AllDates, nil)
	if !near(got.Revenue, 135) {
		t.Fatalf("expected live prices 80+55, got %v", got.Revenue)
	}

	got = ComputeTotals(l, r, Settings{}, OnDate("2024-06-02"), nil)
	if !near(got.Revenue, DefaultMilkPrice) {
		t.Fatalf("expected absolute default, got %v", got.Revenue)
	}
}

func TestComputeTotalsFilters(t *testing.T) {
	r, s := fixture()
	l := Ledger{}
	l.UpsertDay("2024-05-31", map[string]float64{"A": 1}, "")
	l.UpsertDay("2024-06-01", map[string]float64{"A": 2, "B": 1}, "")
	l.UpsertDay("2024-07-01", map[string]float64{"B": 4}, "")

	if got := ComputeTotals(l, r, s, InRange("2024-06-01", ""), nil); !near(got.Volume, 7) {
		t.Fatalf("open range: unexpected volume %v", got.Volume)
	}
	if got := ComputeTotals(l, r, s, InRange("", "2024-06-01"), OnlyCustomer("A")); !near(got.Volume, 3) || !near(got.Revenue, 180) {
		t.Fatalf("customer range: unexpected totals %+v", got)
	}
	if got := ComputeTotals(Ledger{}, r, s, nil, nil); got.Volume != 0 || got.Revenue != 0 || got.PerCustomer == nil {
		t.Fatalf("empty ledger: unexpected totals %+v", got)
	}
}

func TestYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2024-02")
	if err != nil || ym.String() != "2024-02" || ym.DaysIn() != 29 {
		t.Fatalf("unexpected year month %v (%d days, err=%v)", ym, ym.DaysIn(), err)
	}
	if !ym.Contains("2024-02-29") || ym.Contains("2024-12-01") || ym.Contains("2024-020") {
		t.Fatalf("unexpected Contains result")
	}
	if _, err := ParseYearMonth("2024-13"); err == nil {
		t.Fatalf("expected error for month 13")
	}
	if err := (YearMonth{2024, 0}).Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ParseDate("2024-06-31"); err == nil {
		t.Fatalf("expected invalid date")
	}
}
