package attribute

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"labledger.io/lims/internal/domain"
)

// Submission error codes.
const (
	CodeFieldRequired    = "FIELD_REQUIRED"
	CodeFieldInvalid     = "FIELD_INVALID"
	CodeFieldTooLong     = "FIELD_TOO_LONG"
	CodeFieldImmutable   = "ATTRIBUTE_FIELD_IMMUTABLE"
	CodeRulesInvalidJSON = "VALIDATION_RULES_INVALID_JSON"
	CodeRulesInvalid     = "VALIDATION_RULES_INVALID"
	CodeConflict         = "ATTRIBUTE_CONFLICT"
)

var attrNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Submission is the raw form state of an attribute config editor.
type Submission struct {
	EntityType      string `json:"entity_type" validate:"required,entity_type"`
	AttrName        string `json:"attr_name" validate:"required,max=255,attrname"`
	DataType        string `json:"data_type" validate:"required,data_type"`
	ValidationRules string `json:"validation_rules"`
	Description     string `json:"description" validate:"max=500"`
	Active          *bool  `json:"active,omitempty"`
}

// Payload is a submission that passed every lifecycle step.
type Payload struct {
	EntityType      domain.EntityType      `json:"entity_type"`
	AttrName        string                 `json:"attr_name"`
	DataType        domain.DataType        `json:"data_type"`
	ValidationRules domain.ValidationRules `json:"validation_rules"`
	Description     *string                `json:"description"`
	Active          bool                   `json:"active"`
}

// Key returns the (entity_type, attr_name) identity of the payload.
func (p Payload) Key() domain.AttributeKey {
	return domain.AttributeKey{EntityType: p.EntityType, AttrName: p.AttrName}
}

// Apply copies the payload onto cfg, leaving identity and timestamps alone.
func (p Payload) Apply(cfg *domain.AttributeConfig) {
	cfg.EntityType = p.EntityType
	cfg.AttrName = p.AttrName
	cfg.DataType = p.DataType
	cfg.ValidationRules = p.ValidationRules
	cfg.Description = p.Description
	cfg.Active = p.Active
}

// SubmissionError is the first failure found by the lifecycle steps.
// An empty Field means the error belongs to the form as a whole.
type SubmissionError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *SubmissionError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("attrname", func(fl validator.FieldLevel) bool {
		return attrNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("entity_type", func(fl validator.FieldLevel) bool {
		return domain.EntityType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("data_type", func(fl validator.FieldLevel) bool {
		return domain.DataType(fl.Field().String()).Valid()
	})
	return v
}

// ValidateSubmission runs the create lifecycle against a snapshot of existing
// configs. Steps run in order and stop at the first failure:
// structure, rules JSON, uniqueness, rules semantics, normalization.
func ValidateSubmission(sub Submission, existing []domain.AttributeConfig) (Payload, *SubmissionError) {
	if err := checkStructure(sub); err != nil {
		return Payload{}, err
	}
	return admit(sub, existing, "")
}

// ValidateUpdate runs the lifecycle for an edit of current. entity_type and
// data_type cannot change; attr_name may, subject to uniqueness.
func ValidateUpdate(current domain.AttributeConfig, sub Submission, existing []domain.AttributeConfig) (Payload, *SubmissionError) {
	if err := checkStructure(sub); err != nil {
		return Payload{}, err
	}
	if domain.EntityType(sub.EntityType) != current.EntityType {
		return Payload{}, &SubmissionError{
			Field:   "entity_type",
			Code:    CodeFieldImmutable,
			Message: "entity_type cannot be changed after creation",
		}
	}
	if domain.DataType(sub.DataType) != current.DataType {
		return Payload{}, &SubmissionError{
			Field:   "data_type",
			Code:    CodeFieldImmutable,
			Message: "data_type cannot be changed after creation",
		}
	}
	if sub.Active == nil {
		active := current.Active
		sub.Active = &active
	}
	return admit(sub, existing, current.ID)
}

// ValidateActivation checks the transition of cfg to the given active state.
// Deactivation always succeeds. Reactivation requires the name to still be
// free and the stored rules to pass the semantic checks; values stored while
// the config was inactive are not re-validated.
func ValidateActivation(cfg domain.AttributeConfig, active bool, existing []domain.AttributeConfig) *SubmissionError {
	if !active || cfg.Active {
		return nil
	}
	if !CheckUnique(existing, cfg.Key(), cfg.ID) {
		return &SubmissionError{Code: CodeConflict, Message: ConflictMessage(cfg.Key())}
	}
	return checkRules(cfg.DataType, cfg.ValidationRules, nil)
}

func admit(sub Submission, existing []domain.AttributeConfig, excludeID string) (Payload, *SubmissionError) {
	dataType := domain.DataType(sub.DataType)

	rules, problems, err := domain.ParseRulesText(dataType, sub.ValidationRules)
	if err != nil {
		msg := "validation_rules must be valid JSON"
		if errors.Is(err, domain.ErrRulesNotObject) {
			msg = err.Error()
		}
		return Payload{}, &SubmissionError{Field: "validation_rules", Code: CodeRulesInvalidJSON, Message: msg}
	}

	key := domain.AttributeKey{EntityType: domain.EntityType(sub.EntityType), AttrName: sub.AttrName}
	if !CheckUnique(existing, key, excludeID) {
		return Payload{}, &SubmissionError{Code: CodeConflict, Message: ConflictMessage(key)}
	}

	if serr := checkRules(dataType, rules, problems); serr != nil {
		return Payload{}, serr
	}

	p := Payload{
		EntityType:      key.EntityType,
		AttrName:        key.AttrName,
		DataType:        dataType,
		ValidationRules: rules,
		Active:          true,
	}
	if desc := strings.TrimSpace(sub.Description); desc != "" {
		p.Description = &desc
	}
	if sub.Active != nil {
		p.Active = *sub.Active
	}
	return p, nil
}

func checkStructure(sub Submission) *SubmissionError {
	err := validate.Struct(sub)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &SubmissionError{Code: CodeFieldInvalid, Message: err.Error()}
	}
	return structuralError(verrs[0])
}

func structuralError(fe validator.FieldError) *SubmissionError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &SubmissionError{Field: field, Code: CodeFieldRequired, Message: field + " is required"}
	case "max":
		return &SubmissionError{Field: field, Code: CodeFieldTooLong,
			Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	case "attrname":
		return &SubmissionError{Field: field, Code: CodeFieldInvalid,
			Message: field + " may only contain letters, digits, underscores and hyphens"}
	case "entity_type":
		return &SubmissionError{Field: field, Code: CodeFieldInvalid,
			Message: field + " must be one of: " + joinValues(domain.EntityTypes())}
	case "data_type":
		return &SubmissionError{Field: field, Code: CodeFieldInvalid,
			Message: field + " must be one of: " + joinValues(domain.DataTypes())}
	}
	return &SubmissionError{Field: field, Code: CodeFieldInvalid, Message: field + " is invalid"}
}

// checkRules applies the semantic rule checks for dataType.
func checkRules(dataType domain.DataType, rules domain.ValidationRules, problems []domain.RuleProblem) *SubmissionError {
	invalid := func(msg string) *SubmissionError {
		return &SubmissionError{Field: "validation_rules", Code: CodeRulesInvalid, Message: msg}
	}
	if len(problems) > 0 {
		return invalid(problems[0].Message)
	}

	switch dataType {
	case domain.DataTypeSelect:
		if rules.Select == nil || len(rules.Select.Options) == 0 {
			return invalid("select attributes require a non-empty options array")
		}
		seen := make(map[string]bool, len(rules.Select.Options))
		for _, o := range rules.Select.Options {
			if strings.TrimSpace(o) == "" {
				return invalid("options must not contain blank values")
			}
			if seen[o] {
				return invalid(fmt.Sprintf("options contains %q more than once", o))
			}
			seen[o] = true
		}

	case domain.DataTypeNumber:
		if r := rules.Number; r != nil && r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return invalid("min must be less than or equal to max")
		}

	case domain.DataTypeText:
		if r := rules.Text; r != nil && r.MinLength != nil && r.MaxLength != nil && *r.MinLength > *r.MaxLength {
			return invalid("min_length must be less than or equal to max_length")
		}

	case domain.DataTypeDate:
		r := rules.Date
		if r == nil {
			return nil
		}
		lo, hi := r.MinDate, r.MaxDate
		if lo != nil {
			if _, err := ParseDate(*lo); err != nil {
				return invalid("min_date must be a valid ISO-8601 date")
			}
		}
		if hi != nil {
			if _, err := ParseDate(*hi); err != nil {
				return invalid("max_date must be a valid ISO-8601 date")
			}
		}
		if lo != nil && hi != nil {
			from, _ := ParseDate(*lo)
			to, _ := ParseDate(*hi)
			if from.After(to) {
				return invalid("min_date must be on or before max_date")
			}
		}
	}
	return nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
