package attribute

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"labledger.io/lims/internal/domain"
)

// FieldResult is the outcome of validating one raw value against one config.
type FieldResult struct {
	// Value is the coerced value. It is nil when the input was absent
	// and holds the raw input when coercion failed.
	Value      any
	Present    bool
	Violations []string
}

// Valid reports whether no rule was violated.
func (r FieldResult) Valid() bool { return len(r.Violations) == 0 }

// check inspects a coerced, present value and returns violation messages.
type check func(v any) []string

// FieldValidator is the compiled form of a single AttributeConfig.
type FieldValidator struct {
	config  domain.AttributeConfig
	typeMsg string
	checks  []check
}

// Config returns the config the validator was compiled from.
func (f *FieldValidator) Config() domain.AttributeConfig { return f.config }

// CompileField turns cfg into a validator. Compilation never fails: rules that
// are malformed or missing compile to no constraint, except a select without
// options, which rejects every present value.
func CompileField(cfg domain.AttributeConfig) *FieldValidator {
	f := &FieldValidator{config: cfg}
	rules := cfg.ValidationRules

	switch cfg.DataType {
	case domain.DataTypeText:
		f.typeMsg = "must be text"
		if rules.Text != nil {
			f.checks = append(f.checks, textChecks(*rules.Text)...)
		}
	case domain.DataTypeNumber:
		f.typeMsg = "must be a number"
		if rules.Number != nil {
			f.checks = append(f.checks, numberChecks(*rules.Number)...)
		}
	case domain.DataTypeDate:
		f.typeMsg = "must be a valid date"
		if rules.Date != nil {
			f.checks = append(f.checks, dateChecks(*rules.Date)...)
		}
	case domain.DataTypeBoolean:
		// Non-boolean input passes through unconstrained.
	case domain.DataTypeSelect:
		f.typeMsg = "must be a string"
		var options []string
		if rules.Select != nil {
			options = rules.Select.Options
		}
		f.checks = append(f.checks, selectCheck(options))
	default:
		f.typeMsg = fmt.Sprintf("has unsupported data type %q", cfg.DataType)
	}
	return f
}

// Validate coerces raw and applies the compiled rules. Absent values
// always pass.
func (f *FieldValidator) Validate(raw any) FieldResult {
	c := Coerce(f.config.DataType, raw)
	if !c.OK {
		return FieldResult{Value: raw, Present: true, Violations: []string{f.typeMsg}}
	}
	if !c.Present {
		return FieldResult{}
	}

	res := FieldResult{Value: c.Value, Present: true}
	for _, chk := range f.checks {
		res.Violations = append(res.Violations, chk(c.Value)...)
	}
	return res
}

func textChecks(r domain.TextRules) []check {
	var checks []check
	if r.MinLength != nil {
		n := *r.MinLength
		checks = append(checks, func(v any) []string {
			if utf8.RuneCountInString(v.(string)) < n {
				return []string{fmt.Sprintf("must be at least %d characters", n)}
			}
			return nil
		})
	}
	if r.MaxLength != nil {
		n := *r.MaxLength
		checks = append(checks, func(v any) []string {
			if utf8.RuneCountInString(v.(string)) > n {
				return []string{fmt.Sprintf("must be at most %d characters", n)}
			}
			return nil
		})
	}
	return checks
}

func numberChecks(r domain.NumberRules) []check {
	var checks []check
	if r.Min != nil {
		bound := *r.Min
		checks = append(checks, func(v any) []string {
			if v.(float64) < bound {
				return []string{"must be at least " + formatNumber(bound)}
			}
			return nil
		})
	}
	if r.Max != nil {
		bound := *r.Max
		checks = append(checks, func(v any) []string {
			if v.(float64) > bound {
				return []string{"must be at most " + formatNumber(bound)}
			}
			return nil
		})
	}
	return checks
}

// dateChecks compares instants. Bounds that do not parse are ignored.
func dateChecks(r domain.DateRules) []check {
	var checks []check
	if r.MinDate != nil {
		if bound, err := ParseDate(*r.MinDate); err == nil {
			label := *r.MinDate
			checks = append(checks, func(v any) []string {
				if v.(time.Time).Before(bound) {
					return []string{"must be on or after " + label}
				}
				return nil
			})
		}
	}
	if r.MaxDate != nil {
		if bound, err := ParseDate(*r.MaxDate); err == nil {
			label := *r.MaxDate
			checks = append(checks, func(v any) []string {
				if v.(time.Time).After(bound) {
					return []string{"must be on or before " + label}
				}
				return nil
			})
		}
	}
	return checks
}

func selectCheck(options []string) check {
	if len(options) == 0 {
		return func(any) []string {
			return []string{"has no options configured"}
		}
	}
	allowed := make(map[string]struct{}, len(options))
	for _, o := range options {
		allowed[o] = struct{}{}
	}
	msg := "must be one of: " + strings.Join(options, ", ")
	return func(v any) []string {
		if _, ok := allowed[v.(string)]; !ok {
			return []string{msg}
		}
		return nil
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
