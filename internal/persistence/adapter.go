// Package persistence maps the ledger state onto the key-value store and
// handles the export/import document.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"milkledger/internal/core"
	"milkledger/internal/log"
	"milkledger/internal/storage"
)

// Storage keys. The layout is shared with existing exports and backups.
const (
	KeyDeliveryData = "delivery_data"
	KeyCustomers    = "customers"
	KeySettings     = "settings"
	KeyLastBackup   = "last_backup"
)

// State is everything the ledger persists.
type State struct {
	Ledger    core.Ledger
	Customers []core.Customer
	Settings  core.Settings
}

// EmptyState returns the state of a fresh installation.
func EmptyState() State {
	return State{
		Ledger:    core.Ledger{},
		Customers: []core.Customer{},
		Settings:  core.DefaultSettings(),
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		Ledger:    s.Ledger.Clone(),
		Customers: append([]core.Customer{}, s.Customers...),
		Settings:  s.Settings,
	}
}

// Adapter reads and writes State through a storage.Store.
type Adapter struct {
	store  storage.Store
	logger *log.Logger
}

func NewAdapter(store storage.Store, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Adapter{store: store, logger: logger.WithComponent(log.ComponentPersistence)}
}

// Load reads every key independently. A missing key yields its default. A
// value that is not valid JSON of the right shape is logged, reset to its
// default and removed so the next start is clean. Single unreadable days or
// customers inside a readable value are skipped with a warning and the rest
// is kept. Store I/O errors are returned.
func (a *Adapter) Load(ctx context.Context) (State, error) {
	state := EmptyState()

	err := a.loadKey(ctx, KeyDeliveryData, func(raw []byte) ([]error, error) {
		ledger, skipped, err := core.DecodeLedger(raw)
		if err != nil {
			return nil, err
		}
		state.Ledger = ledger
		return skipped, nil
	})
	if err != nil {
		return State{}, err
	}

	err = a.loadKey(ctx, KeyCustomers, func(raw []byte) ([]error, error) {
		customers, skipped, err := core.DecodeCustomers(raw)
		if err != nil {
			return nil, err
		}
		state.Customers = customers
		return skipped, nil
	})
	if err != nil {
		return State{}, err
	}

	err = a.loadKey(ctx, KeySettings, func(raw []byte) ([]error, error) {
		var settings core.Settings
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, err
		}
		state.Settings = settings
		return nil, nil
	})
	if err != nil {
		return State{}, err
	}
	state.Settings = state.Settings.Normalize()

	a.logger.DebugContext(ctx, "State loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldDays, len(state.Ledger),
		log.FieldCustomers, len(state.Customers))
	return state, nil
}

// loadKey hands the stored value of key to decode. decode only assigns on
// success, so a failed decode leaves the default in place.
func (a *Adapter) loadKey(ctx context.Context, key string, decode func(raw []byte) (skipped []error, err error)) error {
	raw, ok, err := a.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	skipped, err := decode([]byte(raw))
	if err != nil {
		a.logger.WarnContext(ctx, "Stored value is corrupted, resetting to default",
			log.FieldStorageKey, key,
			log.FieldErrorType, log.ErrorTypeCorruption,
			log.FieldError, err.Error())
		if derr := a.store.Delete(ctx, key); derr != nil {
			return fmt.Errorf("reset %s: %w", key, derr)
		}
		return nil
	}
	for _, serr := range skipped {
		a.logger.WarnContext(ctx, "Skipped unreadable stored record",
			log.FieldStorageKey, key,
			log.FieldErrorType, log.ErrorTypeCorruption,
			log.FieldError, serr.Error())
	}
	return nil
}

func (a *Adapter) SaveLedger(ctx context.Context, ledger core.Ledger) error {
	return a.save(ctx, KeyDeliveryData, ledger)
}

func (a *Adapter) SaveCustomers(ctx context.Context, customers []core.Customer) error {
	if customers == nil {
		customers = []core.Customer{}
	}
	return a.save(ctx, KeyCustomers, customers)
}

func (a *Adapter) SaveSettings(ctx context.Context, settings core.Settings) error {
	return a.save(ctx, KeySettings, settings)
}

// SaveAll writes ledger, customers and settings in one atomic store write.
func (a *Adapter) SaveAll(ctx context.Context, state State) error {
	values, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := a.store.SetMany(ctx, values); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// MarkBackup records the time of the last export.
func (a *Adapter) MarkBackup(ctx context.Context, t time.Time) error {
	if err := a.store.Set(ctx, KeyLastBackup, t.UTC().Format(core.ISOTimestamp)); err != nil {
		return fmt.Errorf("save %s: %w", KeyLastBackup, err)
	}
	return nil
}

// LastBackup returns the time of the last export, or false if there was none
// or the stored value is unreadable.
func (a *Adapter) LastBackup(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := a.store.Get(ctx, KeyLastBackup)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read %s: %w", KeyLastBackup, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (a *Adapter) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := a.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func encodeState(state State) (map[string]string, error) {
	customers := state.Customers
	if customers == nil {
		customers = []core.Customer{}
	}
	ledger := state.Ledger
	if ledger == nil {
		ledger = core.Ledger{}
	}
	values := make(map[string]string, 3)
	for key, v := range map[string]any{
		KeyDeliveryData: ledger,
		KeyCustomers:    customers,
		KeySettings:     state.Settings,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		values[key] = string(data)
	}
	return values, nil
}

// StorageInfo describes the persisted state.
type StorageInfo struct {
	Entries    int        `json:"entries"`
	Customers  int        `json:"customers"`
	Bytes      int        `json:"bytes"`
	LastBackup *time.Time `json:"lastBackup,omitempty"`
}

// Info reports counts and the serialized size of state.
func (a *Adapter) Info(ctx context.Context, state State) (StorageInfo, error) {
	values, err := encodeState(state)
	if err != nil {
		return StorageInfo{}, err
	}
	info := StorageInfo{Entries: len(state.Ledger), Customers: len(state.Customers)}
	for _, v := range values {
		info.Bytes += len(v)
	}
	last, ok, err := a.LastBackup(ctx)
	if err != nil {
		return StorageInfo{}, err
	}
	if ok {
		info.LastBackup = &last
	}
	return info, nil
}
