package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMilkPrice is the last step of the price fallback chain.
const DefaultMilkPrice = 60.0

// DateLayout is the ISO calendar date used as ledger key.
const DateLayout = "2006-01-02"

const (
	Active   Status = "Active"
	Inactive Status = "Inactive"
)

const (
	Morning DeliveryTime = "Morning"
	Evening DeliveryTime = "Evening"
)

type (
	// Status controls whether a customer takes part in entry and aggregation.
	Status string

	// DeliveryTime is Morning, Evening or any other free label.
	DeliveryTime string

	Customer struct {
		ID            string
		Name          string
		Address       string
		Phone         string
		MilkPrice     float64
		DeliveryTime  DeliveryTime
		DefaultLiters float64
		Status        Status
		CreatedAt     time.Time
	}

	Settings struct {
		DefaultMilkPrice float64 `json:"defaultMilkPrice"`
	}

	// YearMonth identifies a calendar month, e.g. 2024-06.
	YearMonth struct {
		Year  int
		Month int // 1-12
	}
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrNoCustomers      = errors.New("no customers registered")
)

// ValidationError reports bad user input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ErrEmptyName is returned when a customer has no name.
var ErrEmptyName = &ValidationError{Field: "name", Message: "customer name is required"}

// IsActive reports whether the customer participates in aggregation.
// Only the literal Inactive status disables a customer.
func (c Customer) IsActive() bool {
	return c.Status != Inactive
}

// DefaultSettings returns settings holding the absolute default price.
func DefaultSettings() Settings {
	return Settings{DefaultMilkPrice: DefaultMilkPrice}
}

// Normalize applies the lenient settings policy: a non-positive price falls
// back to the absolute default.
func (s Settings) Normalize() Settings {
	if !(s.DefaultMilkPrice > 0) {
		s.DefaultMilkPrice = DefaultMilkPrice
	}
	return s
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("settings must be an object")
	}
	s.DefaultMilkPrice = ResolveNumber(raw["defaultMilkPrice"], DefaultMilkPrice)
	return nil
}

// ParseDate validates an ISO date key.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q: want YYYY-MM-DD", s)}
	}
	return t, nil
}

// FormatDate renders t as a ledger key.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, &ValidationError{Field: "month", Message: fmt.Sprintf("invalid month %q: want YYYY-MM", s)}
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

// YearMonthOf returns the month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

func (ym YearMonth) Validate() error {
	if ym.Month < 1 || ym.Month > 12 {
		return &ValidationError{Field: "month", Message: fmt.Sprintf("invalid month %d", ym.Month)}
	}
	if ym.Year < 1 || ym.Year > 9999 {
		return &ValidationError{Field: "year", Message: fmt.Sprintf("invalid year %d", ym.Year)}
	}
	return nil
}

// String returns the "YYYY-MM" prefix shared by every date key of the month.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// First returns the first day of the month in UTC.
func (ym YearMonth) First() time.Time {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the month.
func (ym YearMonth) DaysIn() int {
	return ym.First().AddDate(0, 1, -1).Day()
}

// Contains reports whether the date key falls in the month.
func (ym YearMonth) Contains(date string) bool {
	return strings.HasPrefix(date, ym.String()+"-")
}
