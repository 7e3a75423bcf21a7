// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON or form bodies for transaction input and query strings for view params.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// maxBodyBytes bounds request bodies read by RequestBodyParser.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
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

	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
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

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string. Numbers keep their
// literal text.
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

// ParseTransactionInput reads a transaction from the parsed body. Amount is
// accepted as a JSON number or a decimal string with either separator.
// Errors wrap the core validation error of the offending field.
func (p *RequestBodyParser) ParseTransactionInput() (core.TransactionInput, error) {
	in := core.TransactionInput{
		Type:        core.TransactionType(strings.ToLower(p.Get("type"))),
		Category:    p.Get("category"),
		Description: p.Get("description"),
	}
	if !in.Type.IsValid() {
		return in, core.ErrInvalidType
	}
	if in.Category == "" {
		return in, core.ErrEmptyCategory
	}

	amount, err := p.amount()
	if err != nil {
		return in, err
	}
	in.Amount = amount

	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return in, err
	}
	in.Date = date
	return in, nil
}

func (p *RequestBodyParser) amount() (core.Money, error) {
	if p.jsonData != nil {
		if n, ok := p.jsonData["amount"].(json.Number); ok {
			d, err := decimal.NewFromString(n.String())
			if err != nil {
				return core.Money{}, core.ErrInvalidAmount
			}
			return core.MoneyFromDecimal(d)
		}
	}
	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// queryKeys are the query string keys naming view params.
var queryKeys = []string{"filter", "sort", "order", "page"}

// hasViewQuery reports whether q names any view param.
func hasViewQuery(q url.Values) bool {
	for _, k := range queryKeys {
		if q.Has(k) {
			return true
		}
	}
	return false
}

// applyViewQuery derives the params requested by q starting from cur. Keys
// missing from q keep their current value. Changing filter, sort or order
// resets the page unless q names a page explicitly.
func applyViewQuery(cur core.Params, q url.Values) (core.Params, error) {
	if !hasViewQuery(q) {
		return cur, nil
	}
	pick := func(key, current string) string {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
		return current
	}
	next, err := core.ParseParams(
		pick("filter", string(cur.Filter)),
		pick("sort", string(cur.Sort)),
		pick("order", string(cur.Order)),
		q.Get("page"),
	)
	if err != nil {
		return core.Params{}, err
	}
	if strings.TrimSpace(q.Get("page")) == "" && next.SameView(cur) {
		next.Page = cur.Page
	}
	return next, nil
}
