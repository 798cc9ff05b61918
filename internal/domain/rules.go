package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Recognized validation_rules keys.
const (
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinDate   = "min_date"
	RuleMaxDate   = "max_date"
	RuleOptions   = "options"
)

// ErrRulesNotObject is returned when validation_rules is valid JSON but not an object.
var ErrRulesNotObject = errors.New("validation_rules must be a JSON object")

// TextRules bounds the length of a text value.
type TextRules struct {
	MinLength *int
	MaxLength *int
}

// NumberRules bounds a numeric value.
type NumberRules struct {
	Min *float64
	Max *float64
}

// DateRules bounds a date value. Bounds are kept as written and parsed by the compiler.
type DateRules struct {
	MinDate *string
	MaxDate *string
}

// SelectRules enumerates the allowed values of a select attribute.
type SelectRules struct {
	// Options is nil when the key is missing or not an array of strings.
	Options []string
}

// ValidationRules is the typed view of a config's validation_rules object.
// Exactly one typed payload is set, matching DataType (none for boolean).
// Keys that are not recognized for DataType, or that have the wrong JSON
// type, are kept in Extra so the object round-trips unchanged.
type ValidationRules struct {
	DataType DataType
	Text     *TextRules
	Number   *NumberRules
	Date     *DateRules
	Select   *SelectRules
	Extra    map[string]json.RawMessage
}

// RuleProblem reports a recognized key whose value has the wrong shape.
type RuleProblem struct {
	Key     string
	Message string
}

// DecodeRules builds the typed view for dataType from a raw JSON object.
// Shape problems are reported, never fatal: the offending key lands in Extra.
func DecodeRules(dataType DataType, raw map[string]json.RawMessage) (ValidationRules, []RuleProblem) {
	rules := ValidationRules{DataType: dataType, Extra: map[string]json.RawMessage{}}
	var problems []RuleProblem

	take := func(key string) (json.RawMessage, bool) {
		v, ok := raw[key]
		if !ok || isJSONNull(v) {
			return nil, false
		}
		return v, true
	}
	recognized := map[string]bool{}

	switch dataType {
	case DataTypeText:
		tr := &TextRules{}
		for _, key := range []string{RuleMinLength, RuleMaxLength} {
			v, ok := take(key)
			recognized[key] = true
			if !ok {
				continue
			}
			n, err := decodeLength(v)
			if err != nil {
				problems = append(problems, RuleProblem{Key: key, Message: key + " must be a non-negative integer"})
				rules.Extra[key] = v
				continue
			}
			if key == RuleMinLength {
				tr.MinLength = &n
			} else {
				tr.MaxLength = &n
			}
		}
		rules.Text = tr

	case DataTypeNumber:
		nr := &NumberRules{}
		for _, key := range []string{RuleMin, RuleMax} {
			v, ok := take(key)
			recognized[key] = true
			if !ok {
				continue
			}
			f, err := decodeNumber(v)
			if err != nil {
				problems = append(problems, RuleProblem{Key: key, Message: key + " must be a number"})
				rules.Extra[key] = v
				continue
			}
			if key == RuleMin {
				nr.Min = &f
			} else {
				nr.Max = &f
			}
		}
		rules.Number = nr

	case DataTypeDate:
		dr := &DateRules{}
		for _, key := range []string{RuleMinDate, RuleMaxDate} {
			v, ok := take(key)
			recognized[key] = true
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				problems = append(problems, RuleProblem{Key: key, Message: key + " must be a date string"})
				rules.Extra[key] = v
				continue
			}
			if key == RuleMinDate {
				dr.MinDate = &s
			} else {
				dr.MaxDate = &s
			}
		}
		rules.Date = dr

	case DataTypeSelect:
		sr := &SelectRules{}
		recognized[RuleOptions] = true
		if v, ok := take(RuleOptions); ok {
			var opts []string
			if err := json.Unmarshal(v, &opts); err != nil {
				problems = append(problems, RuleProblem{Key: RuleOptions, Message: "options must be an array of strings"})
				rules.Extra[RuleOptions] = v
			} else {
				if opts == nil {
					opts = []string{}
				}
				sr.Options = opts
			}
		}
		rules.Select = sr
	}

	for k, v := range raw {
		if recognized[k] {
			// null recognized keys are dropped, typed values were consumed above
			continue
		}
		rules.Extra[k] = v
	}
	return rules, problems
}

// DecodeRulesJSON decodes a stored validation_rules document, tolerating shape problems.
// Empty input and JSON null decode to empty rules.
func DecodeRulesJSON(dataType DataType, data []byte) (ValidationRules, error) {
	raw, err := parseRulesObject(data)
	if err != nil {
		return ValidationRules{}, err
	}
	rules, _ := DecodeRules(dataType, raw)
	return rules, nil
}

// ParseRulesText parses the editable JSON text of validation_rules.
// A blank text is an empty object. The returned error is a syntax or shape error
// of the document itself; problems describe individual recognized keys.
func ParseRulesText(dataType DataType, text string) (ValidationRules, []RuleProblem, error) {
	raw, err := parseRulesObject([]byte(text))
	if err != nil {
		return ValidationRules{}, nil, err
	}
	rules, problems := DecodeRules(dataType, raw)
	return rules, problems, nil
}

func parseRulesObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || isJSONNull(trimmed) {
		return map[string]json.RawMessage{}, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("invalid JSON")
	}
	if trimmed[0] != '{' {
		return nil, ErrRulesNotObject
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// MarshalJSON renders the typed payload merged with Extra.
func (r ValidationRules) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+2)
	for k, v := range r.Extra {
		out[k] = v
	}
	switch {
	case r.Text != nil:
		putInt(out, RuleMinLength, r.Text.MinLength)
		putInt(out, RuleMaxLength, r.Text.MaxLength)
	case r.Number != nil:
		putFloat(out, RuleMin, r.Number.Min)
		putFloat(out, RuleMax, r.Number.Max)
	case r.Date != nil:
		putString(out, RuleMinDate, r.Date.MinDate)
		putString(out, RuleMaxDate, r.Date.MaxDate)
	case r.Select != nil:
		if r.Select.Options != nil {
			out[RuleOptions] = r.Select.Options
		}
	}
	return json.Marshal(out)
}

// ExtraKeys returns the preserved non-recognized keys in sorted order.
func (r ValidationRules) ExtraKeys() []string {
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func putInt(m map[string]interface{}, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

func putFloat(m map[string]interface{}, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

func putString(m map[string]interface{}, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func decodeNumber(v json.RawMessage) (float64, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, err
	}
	// json.Number also accepts quoted numbers; bounds must be JSON numbers.
	if len(v) > 0 && v[0] == '"' {
		return 0, fmt.Errorf("quoted number")
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

func decodeLength(v json.RawMessage) (int, error) {
	f, err := decodeNumber(v)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("not a non-negative integer")
	}
	return int(f), nil
}

func isJSONNull(v []byte) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
