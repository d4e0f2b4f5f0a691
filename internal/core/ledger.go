package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// notesKey shares the day object with customer ids in the persisted layout.
const notesKey = "notes"

// DayRecord is the delivery record of one calendar date.
type DayRecord struct {
	Notes      string
	Quantities map[string]float64 // customer id -> volume, always > 0
}

// IsEmpty reports whether the record carries neither notes nor quantities.
func (d DayRecord) IsEmpty() bool {
	return d.Notes == "" && len(d.Quantities) == 0
}

func (d DayRecord) clone() DayRecord {
	out := DayRecord{Notes: d.Notes, Quantities: make(map[string]float64, len(d.Quantities))}
	for id, q := range d.Quantities {
		out.Quantities[id] = q
	}
	return out
}

// CustomerIDs returns the ids with a quantity, sorted.
func (d DayRecord) CustomerIDs() []string {
	ids := make([]string, 0, len(d.Quantities))
	for id := range d.Quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Order selects the direction of Ledger.Dates.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Ledger maps ISO dates to day records. It has no intrinsic order; Dates
// sorts explicitly.
type Ledger map[string]DayRecord

// UpsertDay replaces the whole record for date. Non-positive quantities are
// dropped and a record left empty removes the date.
func (l Ledger) UpsertDay(date string, quantities map[string]float64, notes string) {
	rec := DayRecord{Notes: strings.TrimSpace(notes), Quantities: make(map[string]float64, len(quantities))}
	for id, q := range quantities {
		if q > 0 {
			rec.Quantities[id] = q
		}
	}
	if rec.IsEmpty() {
		delete(l, date)
		return
	}
	l[date] = rec
}

// RemoveCustomer drops the customer from every date and removes dates left
// empty. It returns the number of dates that referenced the customer.
func (l Ledger) RemoveCustomer(customerID string) int {
	touched := 0
	for date, rec := range l {
		if _, ok := rec.Quantities[customerID]; !ok {
			continue
		}
		touched++
		delete(rec.Quantities, customerID)
		if rec.IsEmpty() {
			delete(l, date)
		}
	}
	return touched
}

// GetDay returns the record for date, or an empty record.
func (l Ledger) GetDay(date string) DayRecord {
	rec, ok := l[date]
	if !ok {
		return DayRecord{Quantities: map[string]float64{}}
	}
	return rec.clone()
}

// Dates returns every date key sorted as requested. ISO dates sort
// lexicographically.
func (l Ledger) Dates(order Order) []string {
	dates := make([]string, 0, len(l))
	for d := range l {
		dates = append(dates, d)
	}
	if order == Descending {
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	} else {
		sort.Strings(dates)
	}
	return dates
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for d, rec := range l {
		out[d] = rec.clone()
	}
	return out
}

// MarshalJSON writes each day in the flat layout
// {"notes": "...", "<customerId>": <volume>}.
func (d DayRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(d.Quantities)+1)
	for id, q := range d.Quantities {
		flat[id] = q
	}
	if d.Notes != "" {
		flat[notesKey] = d.Notes
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat day layout. Quantities resolve leniently and
// non-positive values are dropped.
func (d *DayRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return err
	}
	if flat == nil {
		*d = DayRecord{}
		return nil
	}
	rec := DayRecord{Quantities: make(map[string]float64, len(flat))}
	for k, v := range flat {
		if k == notesKey {
			if s, ok := v.(string); ok {
				rec.Notes = strings.TrimSpace(s)
			}
			continue
		}
		if q := ResolveNumber(v, 0); q > 0 {
			rec.Quantities[k] = q
		}
	}
	*d = rec
	return nil
}

// UnmarshalJSON decodes a ledger and drops dates left empty after the
// lenient per-day decoding. A day that is not an object fails the whole
// ledger; DecodeLedger skips it instead.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	out, skipped, err := DecodeLedger(data)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		return skipped[0]
	}
	*l = out
	return nil
}

// DecodeLedger reads a ledger day by day. Days that cannot be decoded are
// left out and reported in skipped; only a value that is not an object is
// an error.
func DecodeLedger(data []byte) (ledger Ledger, skipped []error, err error) {
	var days map[string]json.RawMessage
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, nil, err
	}
	if days == nil {
		return nil, nil, errors.New("ledger must be an object")
	}
	ledger = make(Ledger, len(days))
	for _, date := range sortedKeys(days) {
		var rec DayRecord
		if err := json.Unmarshal(days[date], &rec); err != nil {
			skipped = append(skipped, fmt.Errorf("day %s: %w", date, err))
			continue
		}
		if !rec.IsEmpty() {
			ledger[date] = rec
		}
	}
	return ledger, skipped, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
