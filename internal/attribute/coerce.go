// Package attribute implements the custom attribute engine: per-type value
// coercion, compilation of attribute configs into validators, the
// (entity_type, attr_name) uniqueness guard, and admission checks for
// config submissions.
//
// Everything here is pure. Callers supply a snapshot of configs and get
// structured results back; nothing in this package panics or performs I/O.
//
// Import Path: labledger.io/lims/internal/attribute
package attribute

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"labledger.io/lims/internal/domain"
)

// Coerced is the outcome of converting a raw form value to its canonical type.
//
// OK=false means the value could not be converted. Present=false means the
// value is absent (nil or blank) and Value is nil.
type Coerced struct {
	OK      bool
	Present bool
	Value   any
}

var absent = Coerced{OK: true}

func present(v any) Coerced { return Coerced{OK: true, Present: true, Value: v} }

var rejected = Coerced{}

// dateLayouts are tried in order when parsing ISO-8601 strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or date-time. Values without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 date %q", s)
}

// Coerce converts raw to the canonical Go type for dataType:
// text and select → string, number → float64, date → time.Time, boolean → bool.
// Re-coercing a canonical value returns it unchanged.
func Coerce(dataType domain.DataType, raw any) Coerced {
	switch dataType {
	case domain.DataTypeText:
		return coerceString(raw)
	case domain.DataTypeSelect:
		return coerceString(raw)
	case domain.DataTypeNumber:
		return coerceNumber(raw)
	case domain.DataTypeDate:
		return coerceDate(raw)
	case domain.DataTypeBoolean:
		return coerceBoolean(raw)
	}
	return rejected
}

func coerceString(raw any) Coerced {
	switch v := raw.(type) {
	case nil:
		return absent
	case string:
		if v == "" {
			return absent
		}
		return present(v)
	case json.Number:
		return present(v.String())
	case bool:
		return present(strconv.FormatBool(v))
	case float64:
		return present(strconv.FormatFloat(v, 'f', -1, 64))
	case int:
		return present(strconv.Itoa(v))
	case int64:
		return present(strconv.FormatInt(v, 10))
	}
	return rejected
}

func coerceNumber(raw any) Coerced {
	var f float64
	switch v := raw.(type) {
	case nil:
		return absent
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return rejected
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return absent
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rejected
		}
		f = parsed
	default:
		return rejected
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return rejected
	}
	return present(f)
}

func coerceDate(raw any) Coerced {
	switch v := raw.(type) {
	case nil:
		return absent
	case time.Time:
		if v.IsZero() {
			return absent
		}
		return present(v)
	case *time.Time:
		if v == nil || v.IsZero() {
			return absent
		}
		return present(*v)
	case string:
		if strings.TrimSpace(v) == "" {
			return absent
		}
		t, err := ParseDate(v)
		if err != nil {
			return rejected
		}
		return present(t)
	}
	return rejected
}

// coerceBoolean is tolerant: unrecognized values pass through unchanged.
func coerceBoolean(raw any) Coerced {
	switch v := raw.(type) {
	case nil:
		return absent
	case bool:
		return present(v)
	case string:
		switch v {
		case "":
			return absent
		case "true":
			return present(true)
		case "false":
			return present(false)
		}
	}
	return present(raw)
}
