package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func strp(s string) *string { return &s }

func testRegistry() *Registry {
	n := 0
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return NewRegistry(nil).
		WithIDGenerator(func() string { n++; return fmt.Sprintf("customer_%d", n) }).
		WithClock(func() time.Time { return fixed })
}

func TestRegistryCreateDefaults(t *testing.T) {
	r := testRegistry()
	c, err := r.Create(CustomerFields{Name: strp("  Asha ")}, Settings{DefaultMilkPrice: 50})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if c.ID != "customer_1" || c.Name != "Asha" {
		t.Fatalf("unexpected customer: %+v", c)
	}
	if c.MilkPrice != 50 || c.DefaultLiters != 1 || c.Status != Active || c.DeliveryTime != Morning {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.CreatedAt.IsZero() {
		t.Fatalf("createdAt not set")
	}
}

func TestRegistryCreateLenientNumbers(t *testing.T) {
	r := testRegistry()
	c, err := r.Create(CustomerFields{
		Name:          strp("B"),
		MilkPrice:     "abc",
		DefaultLiters: "-2",
		DeliveryTime:  strp("Noon"),
		Status:        strp("inactive"),
	}, Settings{})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if c.MilkPrice != DefaultMilkPrice {
		t.Fatalf("expected absolute default price, got %v", c.MilkPrice)
	}
	if c.DefaultLiters != 1 {
		t.Fatalf("expected default liters 1, got %v", c.DefaultLiters)
	}
	if c.DeliveryTime != "Noon" || c.Status != Inactive {
		t.Fatalf("unexpected customer: %+v", c)
	}
}

func TestRegistryCreateRequiresName(t *testing.T) {
	r := testRegistry()
	for _, name := range []*string{nil, strp(""), strp("   ")} {
		_, err := r.Create(CustomerFields{Name: name}, DefaultSettings())
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("registry mutated on validation failure")
	}
}

func TestRegistryIDsNeverReused(t *testing.T) {
	ids := []string{"customer_a", "customer_a", "customer_b"}
	i := 0
	r := NewRegistry(nil).WithIDGenerator(func() string { id := ids[i]; i++; return id })
	a, _ := r.Create(CustomerFields{Name: strp("A")}, DefaultSettings())
	b, _ := r.Create(CustomerFields{Name: strp("B")}, DefaultSettings())
	if a.ID == b.ID {
		t.Fatalf("duplicate id %q", a.ID)
	}
}

func TestRegistryUpdateMergesAndKeepsIdentity(t *testing.T) {
	r := testRegistry()
	c, _ := r.Create(CustomerFields{Name: strp("A"), MilkPrice: 60, Phone: strp("123")}, DefaultSettings())

	u, err := r.Update(c.ID, CustomerFields{MilkPrice: "65,5", Status: strp("Inactive")}, DefaultSettings())
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if u.ID != c.ID || !u.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("identity changed: %+v", u)
	}
	if u.Name != "A" || u.Phone != "123" || u.MilkPrice != 65.5 || u.Status != Inactive {
		t.Fatalf("unexpected merge: %+v", u)
	}

	if _, err := r.Update(c.ID, CustomerFields{Name: strp(" ")}, DefaultSettings()); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := r.Update("missing", CustomerFields{}, DefaultSettings()); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistryListActiveKeepsOrder(t *testing.T) {
	r := testRegistry()
	r.Create(CustomerFields{Name: strp("A")}, DefaultSettings())
	r.Create(CustomerFields{Name: strp("B"), Status: strp("Inactive")}, DefaultSettings())
	r.Create(CustomerFields{Name: strp("C")}, DefaultSettings())

	active := r.ListActive()
	if len(active) != 2 || active[0].Name != "A" || active[1].Name != "C" {
		t.Fatalf("unexpected active list: %+v", active)
	}
	if !r.Remove("customer_1") || r.Remove("customer_1") {
		t.Fatalf("remove should succeed once")
	}
	if _, ok := r.FindByID("customer_1"); ok {
		t.Fatalf("removed customer still found")
	}
}

func TestCustomerJSONLenientDecode(t *testing.T) {
	var c Customer
	in := `{"id":"customer_x","name":"Ravi","milkPrice":"oops","defaultLiters":"2","status":"Paused","deliveryTime":"Evening","createdAt":"2024-06-01T10:00:00.000Z"}`
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.MilkPrice != 0 || c.DefaultLiters != 2 || c.Status != Active || c.DeliveryTime != Evening {
		t.Fatalf("unexpected customer: %+v", c)
	}
	if c.CreatedAt.Year() != 2024 {
		t.Fatalf("createdAt not parsed: %v", c.CreatedAt)
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var back Customer
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("decode again: %v", err)
	}
	if !back.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("createdAt changed: %v vs %v", back.CreatedAt, c.CreatedAt)
	}
	back.CreatedAt, c.CreatedAt = time.Time{}, time.Time{}
	if back != c {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, c)
	}

	if err := json.Unmarshal([]byte(`{"name":"no id"}`), &c); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if err := json.Unmarshal([]byte(`{"id":"notes","name":"x"}`), &c); !errors.Is(err, ErrReservedID) {
		t.Fatalf("expected ErrReservedID, got %v", err)
	}
}

func TestDecodeCustomersSkipsBadRecords(t *testing.T) {
	customers, skipped, err := DecodeCustomers([]byte(`[{"id":"a","name":"A"},{"name":"no id"},{"id":"a","name":"dup"},{"id":"b"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(customers) != 2 || customers[0].Name != "A" || customers[1].ID != "b" {
		t.Fatalf("unexpected customers %+v", customers)
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped records, got %v", skipped)
	}
	if _, _, err := DecodeCustomers([]byte(`{"id":"a"}`)); err == nil {
		t.Fatalf("expected error for non-array value")
	}
}
