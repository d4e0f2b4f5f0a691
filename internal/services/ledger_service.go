package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"milkledger/internal/cache"
	"milkledger/internal/core"
	"milkledger/internal/log"
	"milkledger/internal/metrics"
	"milkledger/internal/persistence"
	"milkledger/internal/report"
)

const (
	// PendingImportTTL bounds how long a parsed import waits for confirmation.
	PendingImportTTL = 10 * time.Minute

	// RecentDays is the default length of the recent deliveries list.
	RecentDays = 10

	monthCacheSize   = 24
	pendingCacheSize = 8
)

// ErrImportNotFound is returned for unknown or expired import tokens.
var ErrImportNotFound = errors.New("pending import not found or expired")

// Options tunes a LedgerService. Zero values pick the defaults.
type Options struct {
	Logger   *log.Logger
	Location *time.Location
	Now      func() time.Time
	NewID    func() string
}

// LedgerService owns the registry, ledger and settings and is the only
// component allowed to change them. Every command runs as one serialized
// sequence: copy, mutate the copy, persist, then swap the copy in. A failed
// persist leaves the in-memory state untouched.
type LedgerService struct {
	mu       sync.RWMutex
	adapter  *persistence.Adapter
	logger   *log.Logger
	location *time.Location
	now      func() time.Time

	registry *core.Registry
	ledger   core.Ledger
	settings core.Settings

	months  *cache.LRUCache[report.MonthReport]
	pending *cache.LRUCache[persistence.Import]
}

// NewLedgerService loads the persisted state once and returns the service.
func NewLedgerService(ctx context.Context, adapter *persistence.Adapter, opts Options) (*LedgerService, error) {
	if adapter == nil {
		return nil, fmt.Errorf("persistence adapter is required")
	}
	s := &LedgerService{
		adapter:  adapter,
		logger:   opts.Logger,
		location: opts.Location,
		now:      opts.Now,
		months:   cache.NewLRUCache[report.MonthReport](monthCacheSize, time.Hour),
		pending:  cache.NewLRUCache[persistence.Import](pendingCacheSize, PendingImportTTL),
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.pending.WithClock(s.now)

	state, err := adapter.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	s.registry = core.NewRegistry(state.Customers).WithClock(s.now)
	if opts.NewID != nil {
		s.registry.WithIDGenerator(opts.NewID)
	}
	s.ledger = state.Ledger
	s.settings = state.Settings
	s.updateGauges()

	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldDays, len(s.ledger),
		log.FieldCustomers, s.registry.Len())
	return s, nil
}

// RegisterCaches hands the service caches to a cache manager for periodic
// expiry.
func (s *LedgerService) RegisterCaches(m *cache.Manager) {
	m.Register("month_reports", s.months)
	m.Register("pending_imports", s.pending)
}

// LocalNow returns the current time in the service location.
func (s *LedgerService) LocalNow() time.Time {
	return s.now().In(s.location)
}

func (s *LedgerService) state() persistence.State {
	return persistence.State{Ledger: s.ledger, Customers: s.registry.All(), Settings: s.settings}
}

func (s *LedgerService) source() report.Source {
	return report.Source{Ledger: s.ledger, Registry: s.registry, Settings: s.settings}
}

// swap installs a committed state. Callers hold the write lock.
func (s *LedgerService) swap(registry *core.Registry, ledger core.Ledger, settings core.Settings) {
	s.registry = registry
	s.ledger = ledger
	s.settings = settings
	s.months.Clear()
	s.updateGauges()
}

func (s *LedgerService) updateGauges() {
	active := len(s.registry.ListActive())
	metrics.SetState(len(s.ledger), active, s.registry.Len()-active)
}

func (s *LedgerService) finish(ctx context.Context, op string, err error, fields log.LogFields) {
	metrics.ObserveMutation(op, err)
	if err == nil {
		s.logger.InfoContext(ctx, "Command applied", fields.WithOperation(op).ToSlice()...)
		return
	}
	errType := log.ErrorTypeStorage
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrNoCustomers), errors.Is(err, persistence.ErrInvalidImport):
		errType = log.ErrorTypeValidation
	case errors.Is(err, core.ErrCustomerNotFound), errors.Is(err, ErrImportNotFound):
		errType = log.ErrorTypeNotFound
	}
	if errType == log.ErrorTypeStorage {
		s.logger.LogError(ctx, "Command failed", err, errType, op, fields)
		return
	}
	s.logger.WarnContext(ctx, "Command rejected", fields.WithError(err).WithErrorType(errType).WithOperation(op).ToSlice()...)
}

// SaveDay replaces the record of date with quantities and notes. Quantities
// are read leniently and non-positive ones are dropped. Every id must be a
// registered customer; only active customers may receive a quantity.
// Existing quantities of inactive customers on that date are kept.
func (s *LedgerService) SaveDay(ctx context.Context, date string, quantities map[string]any, notes string) (_ report.DayView, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := log.NewFields().WithDay(date, len(quantities), 0)
	defer func() { s.finish(ctx, log.OpSaveDay, err, fields) }()

	if s.registry.Len() == 0 {
		return report.DayView{}, core.ErrNoCustomers
	}
	t, err := core.ParseDate(date)
	if err != nil {
		return report.DayView{}, err
	}
	date = core.FormatDate(t)

	resolved := make(map[string]float64, len(quantities))
	for id, raw := range quantities {
		c, ok := s.registry.FindByID(id)
		if !ok {
			return report.DayView{}, fmt.Errorf("%w: %s", core.ErrCustomerNotFound, id)
		}
		q := core.ResolveNumber(raw, 0)
		if q > 0 && !c.IsActive() {
			return report.DayView{}, &core.ValidationError{Field: id, Message: fmt.Sprintf("customer %s is inactive", c.Name)}
		}
		resolved[id] = q
	}
	for id, q := range s.ledger.GetDay(date).Quantities {
		if c, ok := s.registry.FindByID(id); ok && !c.IsActive() {
			resolved[id] = q
		}
	}

	next := s.ledger.Clone()
	next.UpsertDay(date, resolved, notes)
	if err := s.adapter.SaveLedger(ctx, next); err != nil {
		return report.DayView{}, err
	}
	s.swap(s.registry, next, s.settings)

	view := report.Day(s.source(), date)
	fields = log.NewFields().WithDay(date, view.Customers, view.Volume)
	return view, nil
}

// CreateCustomer registers a new customer.
func (s *LedgerService) CreateCustomer(ctx context.Context, fields core.CustomerFields) (_ core.Customer, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lf := log.NewFields()
	defer func() { s.finish(ctx, log.OpCreate, err, lf) }()

	next := s.registry.Clone()
	c, err := next.Create(fields, s.settings)
	if err != nil {
		return core.Customer{}, err
	}
	if err := s.adapter.SaveCustomers(ctx, next.All()); err != nil {
		return core.Customer{}, err
	}
	s.swap(next, s.ledger, s.settings)
	lf = lf.WithCustomer(c.ID)
	return c, nil
}

// UpdateCustomer merges fields into an existing customer.
func (s *LedgerService) UpdateCustomer(ctx context.Context, id string, fields core.CustomerFields) (_ core.Customer, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lf := log.NewFields().WithCustomer(id)
	defer func() { s.finish(ctx, log.OpUpdate, err, lf) }()

	next := s.registry.Clone()
	c, err := next.Update(id, fields, s.settings)
	if err != nil {
		return core.Customer{}, err
	}
	if err := s.adapter.SaveCustomers(ctx, next.All()); err != nil {
		return core.Customer{}, err
	}
	s.swap(next, s.ledger, s.settings)
	return c, nil
}

// DeleteCustomer removes the customer and every ledger quantity of it. Both
// stores are written in one atomic store write.
func (s *LedgerService) DeleteCustomer(ctx context.Context, id string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lf := log.NewFields().WithCustomer(id)
	defer func() { s.finish(ctx, log.OpDelete, err, lf) }()

	nextRegistry := s.registry.Clone()
	if !nextRegistry.Remove(id) {
		return fmt.Errorf("%w: %s", core.ErrCustomerNotFound, id)
	}
	nextLedger := s.ledger.Clone()
	touched := nextLedger.RemoveCustomer(id)

	err = s.adapter.SaveAll(ctx, persistence.State{Ledger: nextLedger, Customers: nextRegistry.All(), Settings: s.settings})
	if err != nil {
		return err
	}
	s.swap(nextRegistry, nextLedger, s.settings)
	lf[log.FieldDays] = touched
	return nil
}

// SaveSettings stores the default milk price. A non-positive or unreadable
// price falls back to the absolute default.
func (s *LedgerService) SaveSettings(ctx context.Context, defaultMilkPrice any) (_ core.Settings, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, log.OpSettings, err, log.NewFields()) }()

	next := core.Settings{DefaultMilkPrice: core.ResolveNumber(defaultMilkPrice, core.DefaultMilkPrice)}.Normalize()
	if err := s.adapter.SaveSettings(ctx, next); err != nil {
		return core.Settings{}, err
	}
	s.swap(s.registry, s.ledger, next)
	return next, nil
}

// Export renders the backup document and records the backup time.
func (s *LedgerService) Export(ctx context.Context) (_ []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, log.OpExport, err, log.NewFields()) }()

	now := s.now()
	data, err := persistence.Export(s.state(), now)
	if err != nil {
		return nil, err
	}
	if err := s.adapter.MarkBackup(ctx, now); err != nil {
		return nil, err
	}
	return data, nil
}

// PendingImport describes a parsed import waiting for confirmation.
type PendingImport struct {
	Token       string    `json:"token"`
	Days        int       `json:"days"`
	Customers   int       `json:"customers"`
	HasSettings bool      `json:"hasSettings"`
	ExportDate  string    `json:"exportDate,omitempty"`
	Version     string    `json:"version,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PrepareImport validates a backup document and holds it until ConfirmImport
// or CancelImport. Nothing is changed yet.
func (s *LedgerService) PrepareImport(ctx context.Context, data []byte) (PendingImport, error) {
	imp, err := persistence.ParseImport(data)
	if err != nil {
		s.finish(ctx, log.OpImport, err, log.NewFields())
		return PendingImport{}, err
	}
	token := uuid.NewString()
	s.pending.Set(token, imp)

	s.logger.InfoContext(ctx, "Import awaiting confirmation",
		log.FieldImportToken, token,
		log.FieldDays, len(imp.Ledger),
		log.FieldCustomers, len(imp.Customers))
	return PendingImport{
		Token:       token,
		Days:        len(imp.Ledger),
		Customers:   len(imp.Customers),
		HasSettings: imp.HasSettings,
		ExportDate:  imp.ExportDate,
		Version:     imp.Version,
		ExpiresAt:   s.now().Add(PendingImportTTL),
	}, nil
}

// ConfirmImport replaces ledger and customers with the pending import, and
// settings when the document carried them.
func (s *LedgerService) ConfirmImport(ctx context.Context, token string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lf := log.NewFields()
	lf[log.FieldImportToken] = token
	defer func() { s.finish(ctx, log.OpImport, err, lf) }()

	imp, ok := s.pending.Take(token)
	if !ok {
		return ErrImportNotFound
	}
	settings := s.settings
	if imp.HasSettings {
		settings = imp.Settings
	}
	next := persistence.State{Ledger: imp.Ledger.Clone(), Customers: imp.Customers, Settings: settings}
	if err := s.adapter.SaveAll(ctx, next); err != nil {
		// Nothing was applied; the same token may be confirmed again.
		s.pending.Set(token, imp)
		return err
	}
	registry := s.registry.WithCustomers(imp.Customers)
	s.swap(registry, next.Ledger, settings)
	return nil
}

// CancelImport drops a pending import. It reports whether the token existed.
func (s *LedgerService) CancelImport(token string) bool {
	_, ok := s.pending.Take(token)
	return ok
}

// ClearAll empties the ledger and the registry and resets the settings.
// The last backup time is kept.
func (s *LedgerService) ClearAll(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, log.OpClear, err, log.NewFields()) }()

	next := persistence.EmptyState()
	if err := s.adapter.SaveAll(ctx, next); err != nil {
		return err
	}
	registry := s.registry.WithCustomers(nil)
	s.swap(registry, next.Ledger, next.Settings)
	return nil
}
