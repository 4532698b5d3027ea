package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of date-only columns
const DateLayout = "2006-01-02"

// ProtectedFields are never accepted from a client update payload
var ProtectedFields = []string{"id", "organization_id", "created_at", "created_by"}

// Payload is a decoded JSON request body
type Payload map[string]interface{}

// Missing returns the required fields that are absent, null or blank, in the given order
func (p Payload) Missing(required ...string) []string {
	var missing []string
	for _, field := range required {
		v, ok := p[field]
		if !ok || v == nil {
			missing = append(missing, field)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// Strip removes the given fields in place and returns p
func (p Payload) Strip(fields ...string) Payload {
	for _, field := range fields {
		delete(p, field)
	}
	return p
}

// Pick returns a copy holding only the allowed fields present in p
func (p Payload) Pick(allowed ...string) Payload {
	out := make(Payload, len(allowed))
	for _, field := range allowed {
		if v, ok := p[field]; ok {
			out[field] = v
		}
	}
	return out
}

// String returns the field as a trimmed string, or "" when absent or not a string
func (p Payload) String(field string) string {
	s, _ := p[field].(string)
	return strings.TrimSpace(s)
}

// InvalidDates returns the present, non-null fields that are not YYYY-MM-DD strings
func (p Payload) InvalidDates(fields ...string) []string {
	var invalid []string
	for _, field := range fields {
		v, ok := p[field]
		if !ok || v == nil {
			continue
		}
		s, isString := v.(string)
		if !isString {
			invalid = append(invalid, field)
			continue
		}
		if _, err := time.Parse(DateLayout, strings.TrimSpace(s)); err != nil {
			invalid = append(invalid, field)
		}
	}
	return invalid
}

// InvalidNumbers returns the present, non-null fields that are not numbers or numeric strings
func (p Payload) InvalidNumbers(fields ...string) []string {
	var invalid []string
	for _, field := range fields {
		v, ok := p[field]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case json.Number, float64, int, int64:
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
				invalid = append(invalid, field)
			}
		default:
			invalid = append(invalid, field)
		}
	}
	return invalid
}

// Has reports whether field is present
func (p Payload) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// JSON is a raw JSON document stored in a jsonb column
type JSON []byte

// MarshalJSON implements json.Marshaler
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("types.JSON: UnmarshalJSON on nil pointer")
	}
	if bytes.Equal(data, []byte("null")) {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// Value implements driver.Valuer
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner
func (j *JSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("types.JSON: cannot scan %T", src)
	}
	return nil
}
