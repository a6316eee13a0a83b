// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// month and date query parameters and JSON or form encoded bodies.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

const maxBodyBytes = 1 << 20

var errInvalidField = errors.New("invalid field")

func fieldError(name string, err error) error {
	if err == nil {
		return fmt.Errorf("%w %q", errInvalidField, name)
	}
	return fmt.Errorf("%w %q: %w", errInvalidField, name, err)
}

// ParseMonthParams reads ?month=YYYY-MM, or the ?year=&month=N pair, falling
// back to the month of now for whatever is missing.
func ParseMonthParams(query url.Values, now time.Time) (core.Month, error) {
	cur := core.MonthOf(core.Today(now))
	raw := strings.TrimSpace(query.Get("month"))
	if strings.Contains(raw, "-") {
		m, err := core.ParseMonth(raw)
		if err != nil {
			return core.Month{}, fieldError("month", err)
		}
		return m, nil
	}

	year, month := cur.Year, int(cur.Month)
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Month{}, fieldError("year", core.ErrInvalidMonth)
		}
		year = y
	}
	if raw != "" {
		mo, err := strconv.Atoi(raw)
		if err != nil {
			return core.Month{}, fieldError("month", core.ErrInvalidMonth)
		}
		month = mo
	}
	m := core.NewMonth(year, time.Month(month))
	if err := m.Validate(); err != nil {
		return core.Month{}, fieldError("month", err)
	}
	return m, nil
}

// ParseDateParam reads a YYYY-MM-DD query value, defaulting to today.
func ParseDateParam(query url.Values, key string, now time.Time) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Today(now), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fieldError(key, err)
	}
	return d, nil
}

// RequestBodyParser reads a JSON object or form encoded body once and serves
// its fields as trimmed strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
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

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Has reports whether the body carries key, even with an empty value.
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

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Amount parses key as a positive money amount.
func (p *RequestBodyParser) Amount(key string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(p.Get(key))
	if err != nil {
		return core.Money{}, fieldError(key, err)
	}
	return core.Money{Cents: cents}, nil
}

// OptionalAmount parses key allowing zero; missing gives zero.
func (p *RequestBodyParser) OptionalAmount(key string) (core.Money, error) {
	v := p.Get(key)
	if v == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseAmount(v)
	if err != nil {
		return core.Money{}, fieldError(key, err)
	}
	return core.Money{Cents: cents}, nil
}

func (p *RequestBodyParser) Date(key string) (core.Date, error) {
	d, err := core.ParseDate(p.Get(key))
	if err != nil {
		return core.Date{}, fieldError(key, err)
	}
	return d, nil
}

// Int parses key as an integer; missing gives zero.
func (p *RequestBodyParser) Int(key string) (int, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fieldError(key, nil)
	}
	return n, nil
}

// Decimal parses key as a decimal; missing gives zero.
func (p *RequestBodyParser) Decimal(key string) (decimal.Decimal, error) {
	v := p.Get(key)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return decimal.Zero, fieldError(key, nil)
	}
	return d, nil
}

// Bool parses key as a boolean; missing gives false.
func (p *RequestBodyParser) Bool(key string) (bool, error) {
	v := p.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fieldError(key, nil)
	}
	return b, nil
}

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

// parseBody parses the request body or writes a 400 and returns nil.
func parseBody(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return nil
	}
	return p
}
