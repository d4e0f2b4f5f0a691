package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"milkledger/internal/core"
)

// ExportVersion is written into every export document.
const ExportVersion = "2.0"

// ErrInvalidImport is returned for documents that cannot be imported.
var ErrInvalidImport = errors.New("invalid backup file")

type exportDoc struct {
	DeliveryData core.Ledger     `json:"deliveryData"`
	Customers    []core.Customer `json:"customers"`
	Settings     core.Settings   `json:"settings"`
	ExportDate   string          `json:"exportDate"`
	Version      string          `json:"version"`
}

// Export renders state as an indented backup document.
func Export(state State, now time.Time) ([]byte, error) {
	doc := exportDoc{
		DeliveryData: state.Ledger,
		Customers:    state.Customers,
		Settings:     state.Settings,
		ExportDate:   now.UTC().Format(core.ISOTimestamp),
		Version:      ExportVersion,
	}
	if doc.DeliveryData == nil {
		doc.DeliveryData = core.Ledger{}
	}
	if doc.Customers == nil {
		doc.Customers = []core.Customer{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// Import is a parsed backup document.
type Import struct {
	Ledger      core.Ledger
	Customers   []core.Customer
	Settings    core.Settings
	HasSettings bool
	ExportDate  string
	Version     string
}

// ParseImport validates a backup document. deliveryData and customers are
// required; settings are optional.
func ParseImport(data []byte) (Import, error) {
	var raw struct {
		DeliveryData json.RawMessage `json:"deliveryData"`
		Customers    json.RawMessage `json:"customers"`
		Settings     json.RawMessage `json:"settings"`
		ExportDate   any             `json:"exportDate"`
		Version      any             `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Import{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if isAbsent(raw.DeliveryData) {
		return Import{}, fmt.Errorf("%w: missing deliveryData", ErrInvalidImport)
	}
	if isAbsent(raw.Customers) {
		return Import{}, fmt.Errorf("%w: missing customers", ErrInvalidImport)
	}

	var imp Import
	if err := json.Unmarshal(raw.DeliveryData, &imp.Ledger); err != nil {
		return Import{}, fmt.Errorf("%w: deliveryData: %v", ErrInvalidImport, err)
	}
	customers, skipped, err := core.DecodeCustomers(raw.Customers)
	if err != nil {
		return Import{}, fmt.Errorf("%w: customers: %v", ErrInvalidImport, err)
	}
	if len(skipped) > 0 {
		return Import{}, fmt.Errorf("%w: %v", ErrInvalidImport, skipped[0])
	}
	imp.Customers = customers
	if !isAbsent(raw.Settings) {
		if err := json.Unmarshal(raw.Settings, &imp.Settings); err != nil {
			return Import{}, fmt.Errorf("%w: settings: %v", ErrInvalidImport, err)
		}
		imp.Settings = imp.Settings.Normalize()
		imp.HasSettings = true
	}
	if s, ok := raw.ExportDate.(string); ok {
		imp.ExportDate = s
	}
	if s, ok := raw.Version.(string); ok {
		imp.Version = s
	}
	return imp, nil
}

func isAbsent(m json.RawMessage) bool {
	return len(m) == 0 || string(m) == "null"
}
