package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestUpsertDayReplacesWholeRecord(t *testing.T) {
	l := Ledger{}
	l.UpsertDay("2024-06-01", map[string]float64{"a": 2, "b": 1.5}, "first")
	l.UpsertDay("2024-06-01", map[string]float64{"b": 1, "c": 0}, "")

	got := l.GetDay("2024-06-01")
	want := DayRecord{Quantities: map[string]float64{"b": 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestUpsertDayEmptyRemovesDate(t *testing.T) {
	l := Ledger{}
	l.UpsertDay("2024-06-03", map[string]float64{"a": 2}, "")
	l.UpsertDay("2024-06-03", map[string]float64{"a": 0}, "")
	if _, ok := l["2024-06-03"]; ok {
		t.Fatalf("expected date removed")
	}

	l.UpsertDay("2024-06-04", map[string]float64{"a": -1}, "  ")
	if len(l) != 0 {
		t.Fatalf("expected empty ledger, got %v", l)
	}

	l.UpsertDay("2024-06-05", nil, "holiday")
	if rec := l.GetDay("2024-06-05"); rec.Notes != "holiday" {
		t.Fatalf("notes-only day should be kept: %+v", rec)
	}
}

func TestRemoveCustomerCascade(t *testing.T) {
	l := Ledger{}
	l.UpsertDay("2024-06-01", map[string]float64{"a": 2, "b": 1}, "")
	l.UpsertDay("2024-06-02", map[string]float64{"a": 1}, "")
	l.UpsertDay("2024-06-03", map[string]float64{"a": 1}, "rain")
	l.UpsertDay("2024-06-04", map[string]float64{"b": 3}, "")

	if n := l.RemoveCustomer("a"); n != 3 {
		t.Fatalf("expected 3 touched dates, got %d", n)
	}
	if _, ok := l["2024-06-02"]; ok {
		t.Fatalf("emptied date should be removed")
	}
	if rec := l.GetDay("2024-06-03"); rec.Notes != "rain" || len(rec.Quantities) != 0 {
		t.Fatalf("notes day should survive: %+v", rec)
	}
	if rec := l.GetDay("2024-06-01"); !reflect.DeepEqual(rec.Quantities, map[string]float64{"b": 1}) {
		t.Fatalf("other customers should survive: %+v", rec)
	}
	for _, rec := range l {
		if _, ok := rec.Quantities["a"]; ok {
			t.Fatalf("reference to removed customer left behind")
		}
	}
}

func TestLedgerDatesOrder(t *testing.T) {
	l := Ledger{
		"2024-06-02": {Notes: "x"},
		"2023-12-31": {Notes: "y"},
		"2024-06-10": {Notes: "z"},
	}
	if got := l.Dates(Ascending); !reflect.DeepEqual(got, []string{"2023-12-31", "2024-06-02", "2024-06-10"}) {
		t.Fatalf("unexpected ascending order: %v", got)
	}
	if got := l.Dates(Descending); !reflect.DeepEqual(got, []string{"2024-06-10", "2024-06-02", "2023-12-31"}) {
		t.Fatalf("unexpected descending order: %v", got)
	}
}

func TestGetDayReturnsCopy(t *testing.T) {
	l := Ledger{}
	l.UpsertDay("2024-06-01", map[string]float64{"a": 2}, "")
	rec := l.GetDay("2024-06-01")
	rec.Quantities["a"] = 99
	if l["2024-06-01"].Quantities["a"] != 2 {
		t.Fatalf("GetDay leaked internal map")
	}
	if rec := l.GetDay("2030-01-01"); !rec.IsEmpty() || rec.Quantities == nil {
		t.Fatalf("missing day should be empty with a usable map: %+v", rec)
	}
}

func TestLedgerJSONFlatLayout(t *testing.T) {
	in := `{
		"2024-06-01": {"notes": "", "customer_a": 2, "customer_b": "1.5", "customer_c": "x", "customer_d": 0},
		"2024-06-02": {"notes": "closed"},
		"2024-06-03": {"customer_a": -1},
		"2024-06-04": null
	}`
	var l Ledger
	if err := json.Unmarshal([]byte(in), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Ledger{
		"2024-06-01": {Quantities: map[string]float64{"customer_a": 2, "customer_b": 1.5}},
		"2024-06-02": {Notes: "closed", Quantities: map[string]float64{}},
	}
	if !reflect.DeepEqual(l, want) {
		t.Fatalf("expected %+v, got %+v", want, l)
	}

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var flat map[string]map[string]any
	if err := json.Unmarshal(out, &flat); err != nil {
		t.Fatalf("decode flat: %v", err)
	}
	if flat["2024-06-02"]["notes"] != "closed" || flat["2024-06-01"]["customer_b"] != 1.5 {
		t.Fatalf("unexpected flat layout: %s", out)
	}

	if err := json.Unmarshal([]byte(`[1,2]`), &l); err == nil {
		t.Fatalf("expected error for non-object ledger")
	}
	if err := json.Unmarshal([]byte(`{"2024-06-01": 5}`), &l); err == nil {
		t.Fatalf("expected error for non-object day")
	}
}

func TestDecodeLedgerSkipsBadDays(t *testing.T) {
	l, skipped, err := DecodeLedger([]byte(`{"2024-06-01": {"a": 1}, "2024-06-02": 5, "2024-06-03": ["x"]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(l) != 1 || l["2024-06-01"].Quantities["a"] != 1 {
		t.Fatalf("unexpected ledger %+v", l)
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped days, got %v", skipped)
	}
}
