package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"milkledger/internal/core"
	"milkledger/internal/storage"
)

func sampleState() State {
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return State{
		Ledger: core.Ledger{
			"2024-06-01": {Notes: "rain", Quantities: map[string]float64{"customer_a": 2, "customer_b": 1.5}},
			"2024-06-02": {Quantities: map[string]float64{"customer_a": 1}},
		},
		Customers: []core.Customer{
			{ID: "customer_a", Name: "Asha", MilkPrice: 60, DeliveryTime: core.Morning, DefaultLiters: 2, Status: core.Active, CreatedAt: created},
			{ID: "customer_b", Name: "Bala", MilkPrice: 70, DeliveryTime: core.Evening, DefaultLiters: 1, Status: core.Inactive, CreatedAt: created},
		},
		Settings: core.Settings{DefaultMilkPrice: 65},
	}
}

func TestLoadEmptyStoreGivesDefaults(t *testing.T) {
	a := NewAdapter(storage.NewMemoryStore(), nil)
	state, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Ledger) != 0 || len(state.Customers) != 0 {
		t.Fatalf("expected empty state, got %+v", state)
	}
	if state.Settings.DefaultMilkPrice != 60 {
		t.Fatalf("expected default price 60, got %v", state.Settings.DefaultMilkPrice)
	}
}

func TestSaveAllThenLoad(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(storage.NewMemoryStore(), nil)
	want := sampleState()

	if err := a.SaveAll(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Ledger) != 2 || got.Ledger["2024-06-01"].Notes != "rain" || got.Ledger["2024-06-01"].Quantities["customer_b"] != 1.5 {
		t.Fatalf("ledger mismatch: %+v", got.Ledger)
	}
	if len(got.Customers) != 2 || got.Customers[1].Status != core.Inactive || got.Customers[1].MilkPrice != 70 {
		t.Fatalf("customers mismatch: %+v", got.Customers)
	}
	if !got.Customers[0].CreatedAt.Equal(want.Customers[0].CreatedAt) {
		t.Fatalf("createdAt mismatch: %v", got.Customers[0].CreatedAt)
	}
	if got.Settings.DefaultMilkPrice != 65 {
		t.Fatalf("settings mismatch: %+v", got.Settings)
	}
}

func TestLoadResetsCorruptedKeysIndependently(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStoreFrom(map[string]string{
		KeyDeliveryData: `{"2024-06-01": {"customer_a": 2}`,
		KeyCustomers:    `[{"id":"customer_a","name":"Asha","milkPrice":"55"}]`,
		KeySettings:     `not json`,
	})
	a := NewAdapter(store, nil)

	state, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Ledger) != 0 {
		t.Fatalf("corrupted ledger should reset, got %+v", state.Ledger)
	}
	if len(state.Customers) != 1 || state.Customers[0].MilkPrice != 55 {
		t.Fatalf("valid customers should survive, got %+v", state.Customers)
	}
	if state.Settings.DefaultMilkPrice != 60 {
		t.Fatalf("corrupted settings should reset, got %+v", state.Settings)
	}
	if _, ok, _ := store.Get(ctx, KeySettings); ok {
		t.Fatalf("corrupted settings value should be removed")
	}
}

func TestLoadSkipsUnreadableRecords(t *testing.T) {
	ctx := context.Background()
	customers := `[{"id":"c1","name":"Asha"},{"name":"no id"},{"id":"notes","name":"Clash"},{"id":"c1","name":"Again"},{"id":"c2","name":"Bala"}]`
	ledger := `{"2024-06-01": {"c1": 2}, "2024-06-02": [1, 2], "2024-06-03": "x", "2024-06-04": {"c2": 1}}`
	store := storage.NewMemoryStoreFrom(map[string]string{
		KeyDeliveryData: ledger,
		KeyCustomers:    customers,
	})

	state, err := NewAdapter(store, nil).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Customers) != 2 || state.Customers[0].ID != "c1" || state.Customers[0].Name != "Asha" || state.Customers[1].ID != "c2" {
		t.Fatalf("readable customers should survive, got %+v", state.Customers)
	}
	if len(state.Ledger) != 2 || state.Ledger["2024-06-01"].Quantities["c1"] != 2 || state.Ledger["2024-06-04"].Quantities["c2"] != 1 {
		t.Fatalf("readable days should survive, got %+v", state.Ledger)
	}
	for key, want := range map[string]string{KeyCustomers: customers, KeyDeliveryData: ledger} {
		if v, ok, _ := store.Get(ctx, key); !ok || v != want {
			t.Fatalf("%s must stay stored untouched, got %q (present=%v)", key, v, ok)
		}
	}
}

func TestLoadLenientValues(t *testing.T) {
	store := storage.NewMemoryStoreFrom(map[string]string{
		KeyDeliveryData: `{"2024-06-01": {"customer_a": "1,5", "customer_b": 0, "notes": ""}, "2024-06-02": {"customer_b": -1}}`,
		KeySettings:     `{"defaultMilkPrice": 0}`,
	})
	state, err := NewAdapter(store, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Ledger) != 1 || state.Ledger["2024-06-01"].Quantities["customer_a"] != 1.5 {
		t.Fatalf("unexpected ledger %+v", state.Ledger)
	}
	if state.Settings.DefaultMilkPrice != 60 {
		t.Fatalf("non-positive price should normalize to 60, got %v", state.Settings.DefaultMilkPrice)
	}
}

func TestMarkBackupAndInfo(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(storage.NewMemoryStore(), nil)
	state := sampleState()

	info, err := a.Info(ctx, state)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Entries != 2 || info.Customers != 2 || info.Bytes == 0 || info.LastBackup != nil {
		t.Fatalf("unexpected info %+v", info)
	}

	at := time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)
	if err := a.MarkBackup(ctx, at); err != nil {
		t.Fatalf("mark backup: %v", err)
	}
	info, err = a.Info(ctx, state)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.LastBackup == nil || !info.LastBackup.Equal(at) {
		t.Fatalf("last backup not reported: %+v", info.LastBackup)
	}
}

type failingStore struct{ storage.Store }

func (failingStore) SetMany(context.Context, map[string]string) error {
	return errors.New("disk full")
}

func TestSaveAllPropagatesStoreErrors(t *testing.T) {
	a := NewAdapter(failingStore{storage.NewMemoryStore()}, nil)
	if err := a.SaveAll(context.Background(), sampleState()); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestExportDocument(t *testing.T) {
	now := time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC)
	data, err := Export(sampleState(), now)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"deliveryData\"") {
		t.Fatalf("export should be indented:\n%s", data)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if doc["version"] != "2.0" || doc["exportDate"] != "2024-07-01T10:30:00.000Z" {
		t.Fatalf("unexpected metadata: %v %v", doc["version"], doc["exportDate"])
	}
	day := doc["deliveryData"].(map[string]any)["2024-06-01"].(map[string]any)
	if day["notes"] != "rain" || day["customer_a"] != 2.0 {
		t.Fatalf("unexpected day layout: %v", day)
	}

	imp, err := ParseImport(data)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if !imp.HasSettings || imp.Settings.DefaultMilkPrice != 65 || len(imp.Customers) != 2 || len(imp.Ledger) != 2 {
		t.Fatalf("unexpected import %+v", imp)
	}
}

func TestParseImportRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"deliveryData":`},
		{"missing deliveryData", `{"customers": []}`},
		{"missing customers", `{"deliveryData": {}}`},
		{"null customers", `{"deliveryData": {}, "customers": null}`},
		{"deliveryData not object", `{"deliveryData": [1,2], "customers": []}`},
		{"customers not array", `{"deliveryData": {}, "customers": {"a": 1}}`},
		{"customer without id", `{"deliveryData": {}, "customers": [{"name": "x"}]}`},
		{"customer id clashes with notes", `{"deliveryData": {"2024-06-01": {"notes": "hello"}}, "customers": [{"id": "notes", "name": "x"}]}`},
		{"duplicate customer id", `{"deliveryData": {}, "customers": [{"id": "c1"}, {"id": "c1"}]}`},
		{"day not object", `{"deliveryData": {"2024-06-01": 5}, "customers": []}`},
		{"settings not object", `{"deliveryData": {}, "customers": [], "settings": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseImport([]byte(tt.data)); !errors.Is(err, ErrInvalidImport) {
				t.Fatalf("expected ErrInvalidImport, got %v", err)
			}
		})
	}
}

func TestParseImportWithoutSettings(t *testing.T) {
	imp, err := ParseImport([]byte(`{"deliveryData": {"2024-06-01": {"c1": 1}}, "customers": [{"id": "c1", "name": "A"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if imp.HasSettings {
		t.Fatalf("settings should be absent")
	}
	if len(imp.Ledger) != 1 || imp.Customers[0].ID != "c1" {
		t.Fatalf("unexpected import %+v", imp)
	}
}
