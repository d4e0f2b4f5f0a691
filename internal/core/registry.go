package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CustomerFields carries the user editable part of a customer. Nil fields
// are left untouched by Update. Numeric fields hold raw input and go through
// ResolveNumber.
type CustomerFields struct {
	Name          *string
	Address       *string
	Phone         *string
	MilkPrice     any
	DeliveryTime  *string
	DefaultLiters any
	Status        *string
}

// Registry is the ordered collection of customers.
type Registry struct {
	customers []Customer
	newID     func() string
	now       func() time.Time
}

// NewRegistry builds a registry over existing customers, keeping their order.
func NewRegistry(customers []Customer) *Registry {
	r := &Registry{
		customers: append([]Customer(nil), customers...),
		newID:     func() string { return "customer_" + uuid.NewString() },
		now:       time.Now,
	}
	return r
}

// WithClock replaces the creation timestamp source.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// WithIDGenerator replaces the id source.
func (r *Registry) WithIDGenerator(gen func() string) *Registry {
	r.newID = gen
	return r
}

// Clone returns an independent copy sharing the id and clock sources.
func (r *Registry) Clone() *Registry {
	return &Registry{
		customers: append([]Customer(nil), r.customers...),
		newID:     r.newID,
		now:       r.now,
	}
}

// WithCustomers returns a registry holding customers instead, sharing the id
// and clock sources.
func (r *Registry) WithCustomers(customers []Customer) *Registry {
	out := r.Clone()
	out.customers = append([]Customer(nil), customers...)
	return out
}

// Create adds a customer with a fresh id.
func (r *Registry) Create(fields CustomerFields, settings Settings) (Customer, error) {
	name := ""
	if fields.Name != nil {
		name = strings.TrimSpace(*fields.Name)
	}
	if name == "" {
		return Customer{}, ErrEmptyName
	}

	id := r.newID()
	for r.indexOf(id) >= 0 || id == notesKey {
		id = r.newID()
	}

	c := Customer{
		ID:            id,
		Name:          name,
		MilkPrice:     resolveCustomerPrice(fields.MilkPrice, settings),
		DeliveryTime:  Morning,
		DefaultLiters: resolveDefaultLiters(fields.DefaultLiters),
		Status:        Active,
		CreatedAt:     r.now().UTC(),
	}
	if fields.Address != nil {
		c.Address = strings.TrimSpace(*fields.Address)
	}
	if fields.Phone != nil {
		c.Phone = strings.TrimSpace(*fields.Phone)
	}
	if fields.DeliveryTime != nil {
		c.DeliveryTime = normalizeDeliveryTime(*fields.DeliveryTime)
	}
	if fields.Status != nil {
		c.Status = normalizeStatus(*fields.Status)
	}

	r.customers = append(r.customers, c)
	return c, nil
}

// Update merges fields into the customer with the given id. The id and
// creation time never change.
func (r *Registry) Update(id string, fields CustomerFields, settings Settings) (Customer, error) {
	i := r.indexOf(id)
	if i < 0 {
		return Customer{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
	}
	c := r.customers[i]

	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return Customer{}, ErrEmptyName
		}
		c.Name = name
	}
	if fields.Address != nil {
		c.Address = strings.TrimSpace(*fields.Address)
	}
	if fields.Phone != nil {
		c.Phone = strings.TrimSpace(*fields.Phone)
	}
	if fields.MilkPrice != nil {
		c.MilkPrice = resolveCustomerPrice(fields.MilkPrice, settings)
	}
	if fields.DeliveryTime != nil {
		c.DeliveryTime = normalizeDeliveryTime(*fields.DeliveryTime)
	}
	if fields.DefaultLiters != nil {
		c.DefaultLiters = resolveDefaultLiters(fields.DefaultLiters)
	}
	if fields.Status != nil {
		c.Status = normalizeStatus(*fields.Status)
	}

	r.customers[i] = c
	return c, nil
}

// Remove deletes the customer record. Ledger cleanup is the caller's job.
func (r *Registry) Remove(id string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.customers = append(r.customers[:i], r.customers[i+1:]...)
	return true
}

// FindByID returns the customer with the given id.
func (r *Registry) FindByID(id string) (Customer, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.customers[i], true
	}
	return Customer{}, false
}

// ListActive returns non-inactive customers in insertion order.
func (r *Registry) ListActive() []Customer {
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		if c.IsActive() {
			out = append(out, c)
		}
	}
	return out
}

// All returns every customer in insertion order.
func (r *Registry) All() []Customer {
	out := make([]Customer, len(r.customers))
	copy(out, r.customers)
	return out
}

func (r *Registry) Len() int {
	return len(r.customers)
}

func (r *Registry) indexOf(id string) int {
	for i, c := range r.customers {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func resolveCustomerPrice(v any, s Settings) float64 {
	if p := ResolveNumber(v, 0); p > 0 {
		return p
	}
	return ResolvePrice(Customer{}, s)
}

func resolveDefaultLiters(v any) float64 {
	if l := ResolveNumber(v, 1); l > 0 {
		return l
	}
	return 1
}

func normalizeStatus(s string) Status {
	if strings.EqualFold(strings.TrimSpace(s), string(Inactive)) {
		return Inactive
	}
	return Active
}

func normalizeDeliveryTime(s string) DeliveryTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return Morning
	}
	return DeliveryTime(s)
}

// customerJSON is the persisted and exported shape of a customer.
type customerJSON struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	Phone         string  `json:"phone"`
	MilkPrice     float64 `json:"milkPrice"`
	DeliveryTime  string  `json:"deliveryTime"`
	DefaultLiters float64 `json:"defaultLiters"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"createdAt"`
}

func (c Customer) MarshalJSON() ([]byte, error) {
	out := customerJSON{
		ID:            c.ID,
		Name:          c.Name,
		Address:       c.Address,
		Phone:         c.Phone,
		MilkPrice:     c.MilkPrice,
		DeliveryTime:  string(c.DeliveryTime),
		DefaultLiters: c.DefaultLiters,
		Status:        string(c.Status),
	}
	if !c.CreatedAt.IsZero() {
		out.CreatedAt = c.CreatedAt.UTC().Format(ISOTimestamp)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a customer leniently: numeric fields may be strings or
// garbage and fall back to their defaults, unknown statuses mean active.
func (c *Customer) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            any `json:"id"`
		Name          any `json:"name"`
		Address       any `json:"address"`
		Phone         any `json:"phone"`
		MilkPrice     any `json:"milkPrice"`
		DeliveryTime  any `json:"deliveryTime"`
		DefaultLiters any `json:"defaultLiters"`
		Status        any `json:"status"`
		CreatedAt     any `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id := textOf(raw.ID)
	if id == "" {
		return fmt.Errorf("customer without id")
	}
	if id == notesKey {
		return fmt.Errorf("%w: %q", ErrReservedID, id)
	}

	*c = Customer{
		ID:            id,
		Name:          textOf(raw.Name),
		Address:       textOf(raw.Address),
		Phone:         textOf(raw.Phone),
		MilkPrice:     ResolveNumber(raw.MilkPrice, 0),
		DeliveryTime:  DeliveryTime(textOf(raw.DeliveryTime)),
		DefaultLiters: ResolveNumber(raw.DefaultLiters, 1),
		Status:        normalizeStatus(textOf(raw.Status)),
	}
	if ts := textOf(raw.CreatedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			c.CreatedAt = t
		}
	}
	return nil
}

// ErrReservedID is returned for a customer id that clashes with the notes
// field of the day layout.
var ErrReservedID = errors.New("customer id is reserved")

// DecodeCustomers reads a customer array record by record. Records that
// cannot be decoded, and repeated ids, are left out and reported in skipped;
// only a value that is not an array is an error.
func DecodeCustomers(data []byte) (customers []Customer, skipped []error, err error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, err
	}
	customers = make([]Customer, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		var c Customer
		if err := json.Unmarshal(rec, &c); err != nil {
			skipped = append(skipped, fmt.Errorf("customer %d: %w", i, err))
			continue
		}
		if seen[c.ID] {
			skipped = append(skipped, fmt.Errorf("customer %d: duplicate id %q", i, c.ID))
			continue
		}
		seen[c.ID] = true
		customers = append(customers, c)
	}
	return customers, skipped, nil
}

// ISOTimestamp matches the millisecond UTC timestamps written by exports.
const ISOTimestamp = "2006-01-02T15:04:05.000Z07:00"

func textOf(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprint(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}
