// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON objects or form-encoded values.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"milkledger/internal/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
)

// ParseMonthParams reads the month from the query: either month=YYYY-MM or
// year=YYYY&month=M. Missing values default to the month of now.
func ParseMonthParams(query url.Values, now time.Time) (core.YearMonth, error) {
	ym := core.YearMonthOf(now)

	month := strings.TrimSpace(query.Get("month"))
	if strings.Contains(month, "-") {
		return core.ParseYearMonth(month)
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.YearMonth{}, &core.ValidationError{Field: "year", Message: fmt.Sprintf("invalid year %q", v)}
		}
		ym.Year = y
	}
	if month != "" {
		m, err := strconv.Atoi(month)
		if err != nil {
			return core.YearMonth{}, &core.ValidationError{Field: "month", Message: fmt.Sprintf("invalid month %q", month)}
		}
		ym.Month = m
	}
	return ym, ym.Validate()
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		if p.jsonData == nil {
			p.jsonData = map[string]any{}
		}
		return nil
	}
	if body[0] == '[' {
		p.err = errors.New("request body must be an object")
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(body))
	return p.err
}

// Has reports whether key was sent.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return sanitizeInput(stringValue(p.jsonData[key]))
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Value returns the raw value for numeric fields, or nil when absent.
func (p *RequestBodyParser) Value(key string) any {
	if p.jsonData != nil {
		return p.jsonData[key]
	}
	if p.formData != nil {
		if vs, ok := p.formData[key]; ok && len(vs) > 0 {
			return vs[0]
		}
	}
	return nil
}

// Object returns the nested object under key. Form bodies use dotted keys,
// e.g. quantities.customer_1=2.
func (p *RequestBodyParser) Object(key string) (map[string]any, error) {
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok || raw == nil {
			return map[string]any{}, nil
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, &core.ValidationError{Field: key, Message: "must be an object"}
		}
		return obj, nil
	}
	out := map[string]any{}
	prefix := key + "."
	for k, vs := range p.formData {
		if strings.HasPrefix(k, prefix) && len(vs) > 0 {
			out[strings.TrimPrefix(k, prefix)] = vs[0]
		}
	}
	return out, nil
}

// optional returns a pointer to the sanitized value when key was sent.
func (p *RequestBodyParser) optional(key string) *string {
	if !p.Has(key) {
		return nil
	}
	v := p.Get(key)
	return &v
}

// CustomerFields maps the body onto editable customer fields. Absent keys
// stay nil so updates leave them untouched.
func (p *RequestBodyParser) CustomerFields() core.CustomerFields {
	return core.CustomerFields{
		Name:          p.optional("name"),
		Address:       p.optional("address"),
		Phone:         p.optional("phone"),
		MilkPrice:     p.Value("milkPrice"),
		DeliveryTime:  p.optional("deliveryTime"),
		DefaultLiters: p.Value("defaultLiters"),
		Status:        p.optional("status"),
	}
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
