package attribute

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labledger.io/lims/internal/domain"
)

func validSubmission() Submission {
	return Submission{
		EntityType:      "samples",
		AttrName:        "ph_level",
		DataType:        "number",
		ValidationRules: `{"min":0,"max":14}`,
		Description:     "  Acidity of the sample  ",
	}
}

func TestValidateSubmission_Success(t *testing.T) {
	p, serr := ValidateSubmission(validSubmission(), nil)
	require.Nil(t, serr)

	assert.Equal(t, domain.EntityTypeSamples, p.EntityType)
	assert.Equal(t, "ph_level", p.AttrName)
	assert.Equal(t, domain.DataTypeNumber, p.DataType)
	require.NotNil(t, p.ValidationRules.Number)
	assert.Equal(t, 14.0, *p.ValidationRules.Number.Max)
	require.NotNil(t, p.Description)
	assert.Equal(t, "Acidity of the sample", *p.Description)
	assert.True(t, p.Active)
}

func TestValidateSubmission_BlankDescriptionAndRules(t *testing.T) {
	sub := validSubmission()
	sub.Description = "   "
	sub.ValidationRules = "  "
	inactive := false
	sub.Active = &inactive

	p, serr := ValidateSubmission(sub, nil)
	require.Nil(t, serr)
	assert.Nil(t, p.Description)
	assert.False(t, p.Active)
	require.NotNil(t, p.ValidationRules.Number)
	assert.Nil(t, p.ValidationRules.Number.Min)
}

func TestValidateSubmission_Structural(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Submission)
		wantField string
		wantCode  string
		wantMsg   string
	}{
		{"missing entity type", func(s *Submission) { s.EntityType = "" }, "entity_type", CodeFieldRequired, "entity_type is required"},
		{"unknown entity type", func(s *Submission) { s.EntityType = "widgets" }, "entity_type", CodeFieldInvalid, "samples, tests"},
		{"missing attr name", func(s *Submission) { s.AttrName = "" }, "attr_name", CodeFieldRequired, "attr_name is required"},
		{"attr name with space", func(s *Submission) { s.AttrName = "ph level" }, "attr_name", CodeFieldInvalid, "letters, digits"},
		{"attr name too long", func(s *Submission) { s.AttrName = strings.Repeat("a", 256) }, "attr_name", CodeFieldTooLong, "at most 255"},
		{"unknown data type", func(s *Submission) { s.DataType = "json" }, "data_type", CodeFieldInvalid, "text, number, date, boolean, select"},
		{"description too long", func(s *Submission) { s.Description = strings.Repeat("d", 501) }, "description", CodeFieldTooLong, "at most 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			_, serr := ValidateSubmission(sub, nil)
			require.NotNil(t, serr)
			assert.Equal(t, tt.wantField, serr.Field)
			assert.Equal(t, tt.wantCode, serr.Code)
			assert.Contains(t, serr.Message, tt.wantMsg)
		})
	}
}

func TestValidateSubmission_AttrNameBoundary(t *testing.T) {
	sub := validSubmission()
	sub.AttrName = strings.Repeat("a", 255)
	_, serr := ValidateSubmission(sub, nil)
	assert.Nil(t, serr)

	sub.AttrName = "Lot-No_2"
	_, serr = ValidateSubmission(sub, nil)
	assert.Nil(t, serr)
}

func TestValidateSubmission_RulesJSON(t *testing.T) {
	tests := []struct {
		name    string
		rules   string
		wantMsg string
	}{
		{"syntax error", `{"min":`, "validation_rules must be valid JSON"},
		{"array", `[1,2]`, "validation_rules must be a JSON object"},
		{"string", `"min"`, "validation_rules must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			sub.ValidationRules = tt.rules

			_, serr := ValidateSubmission(sub, nil)
			require.NotNil(t, serr)
			assert.Equal(t, "validation_rules", serr.Field)
			assert.Equal(t, CodeRulesInvalidJSON, serr.Code)
			assert.Equal(t, tt.wantMsg, serr.Message)
		})
	}
}

func TestValidateSubmission_DuplicateName(t *testing.T) {
	existing := []domain.AttributeConfig{
		{ID: "1", EntityType: domain.EntityTypeSamples, AttrName: "ph_level", DataType: domain.DataTypeNumber, Active: true},
	}
	sub := Submission{EntityType: "samples", AttrName: "ph_level", DataType: "text"}

	_, serr := ValidateSubmission(sub, existing)
	require.NotNil(t, serr)
	assert.Equal(t, CodeConflict, serr.Code)
	assert.Empty(t, serr.Field)
	assert.Contains(t, serr.Message, "ph_level")
	assert.Contains(t, serr.Message, "samples")
}

func TestValidateSubmission_StepOrder(t *testing.T) {
	existing := []domain.AttributeConfig{
		{ID: "1", EntityType: domain.EntityTypeSamples, AttrName: "grade", DataType: domain.DataTypeSelect},
	}

	// Broken JSON is reported before the duplicate name.
	_, serr := ValidateSubmission(Submission{
		EntityType: "samples", AttrName: "grade", DataType: "select", ValidationRules: "{",
	}, existing)
	require.NotNil(t, serr)
	assert.Equal(t, CodeRulesInvalidJSON, serr.Code)

	// The duplicate name is reported before missing options.
	_, serr = ValidateSubmission(Submission{
		EntityType: "samples", AttrName: "grade", DataType: "select", ValidationRules: "{}",
	}, existing)
	require.NotNil(t, serr)
	assert.Equal(t, CodeConflict, serr.Code)

	// Structural problems come first of all.
	_, serr = ValidateSubmission(Submission{
		EntityType: "samples", AttrName: "bad name", DataType: "select", ValidationRules: "{",
	}, existing)
	require.NotNil(t, serr)
	assert.Equal(t, "attr_name", serr.Field)
}

func TestValidateSubmission_SelectRequiresOptions(t *testing.T) {
	sub := Submission{EntityType: "samples", AttrName: "matrix", DataType: "select", ValidationRules: "{}"}

	_, serr := ValidateSubmission(sub, nil)
	require.NotNil(t, serr)
	assert.Equal(t, CodeRulesInvalid, serr.Code)
	assert.Contains(t, serr.Message, "options")
}

func TestValidateSubmission_RuleSemantics(t *testing.T) {
	tests := []struct {
		name     string
		dataType string
		rules    string
		wantMsg  string
	}{
		{"select empty options", "select", `{"options":[]}`, "options"},
		{"select options not strings", "select", `{"options":[1,2]}`, "options must be an array of strings"},
		{"select blank option", "select", `{"options":["a"," "]}`, "blank"},
		{"select repeated option", "select", `{"options":["a","a"]}`, `"a" more than once`},
		{"number min above max", "number", `{"min":5,"max":1}`, "min must be less than or equal to max"},
		{"number quoted bound", "number", `{"min":"5"}`, "min must be a number"},
		{"text negative length", "text", `{"min_length":-1}`, "min_length must be a non-negative integer"},
		{"text fractional length", "text", `{"max_length":2.5}`, "max_length must be a non-negative integer"},
		{"text min above max", "text", `{"min_length":5,"max_length":1}`, "min_length must be less than or equal to max_length"},
		{"date unparseable", "date", `{"min_date":"someday"}`, "min_date must be a valid ISO-8601 date"},
		{"date not a string", "date", `{"max_date":20240101}`, "max_date must be a date string"},
		{"date inverted", "date", `{"min_date":"2024-02-01","max_date":"2024-01-01"}`, "min_date must be on or before max_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Submission{EntityType: "tests", AttrName: "x", DataType: tt.dataType, ValidationRules: tt.rules}

			_, serr := ValidateSubmission(sub, nil)
			require.NotNil(t, serr)
			assert.Equal(t, "validation_rules", serr.Field)
			assert.Equal(t, CodeRulesInvalid, serr.Code)
			assert.Contains(t, serr.Message, tt.wantMsg)
		})
	}
}

func TestValidateSubmission_KeepsUnknownRuleKeys(t *testing.T) {
	sub := Submission{EntityType: "tests", AttrName: "unit", DataType: "boolean", ValidationRules: `{"ui_hint":"toggle"}`}

	p, serr := ValidateSubmission(sub, nil)
	require.Nil(t, serr)
	assert.Equal(t, []string{"ui_hint"}, p.ValidationRules.ExtraKeys())
}

func TestValidateUpdate(t *testing.T) {
	current := domain.AttributeConfig{
		ID: "1", EntityType: domain.EntityTypeSamples, AttrName: "ph_level", DataType: domain.DataTypeNumber, Active: false,
	}
	other := domain.AttributeConfig{
		ID: "2", EntityType: domain.EntityTypeSamples, AttrName: "turbidity", DataType: domain.DataTypeNumber, Active: true,
	}
	existing := []domain.AttributeConfig{current, other}

	t.Run("own name is not a conflict", func(t *testing.T) {
		p, serr := ValidateUpdate(current, Submission{EntityType: "samples", AttrName: "ph_level", DataType: "number"}, existing)
		require.Nil(t, serr)
		assert.False(t, p.Active, "active state is kept when omitted")
	})

	t.Run("rename onto another config", func(t *testing.T) {
		_, serr := ValidateUpdate(current, Submission{EntityType: "samples", AttrName: "turbidity", DataType: "number"}, existing)
		require.NotNil(t, serr)
		assert.Equal(t, CodeConflict, serr.Code)
	})

	t.Run("entity type is immutable", func(t *testing.T) {
		_, serr := ValidateUpdate(current, Submission{EntityType: "tests", AttrName: "ph_level", DataType: "number"}, existing)
		require.NotNil(t, serr)
		assert.Equal(t, "entity_type", serr.Field)
		assert.Equal(t, CodeFieldImmutable, serr.Code)
	})

	t.Run("data type is immutable", func(t *testing.T) {
		_, serr := ValidateUpdate(current, Submission{EntityType: "samples", AttrName: "ph_level", DataType: "text"}, existing)
		require.NotNil(t, serr)
		assert.Equal(t, "data_type", serr.Field)
		assert.Equal(t, CodeFieldImmutable, serr.Code)
	})
}

func TestValidateActivation(t *testing.T) {
	selectCfg := config(t, "matrix", domain.DataTypeSelect, `{"options":["soil"]}`)
	selectCfg.Active = false

	assert.Nil(t, ValidateActivation(selectCfg, true, []domain.AttributeConfig{selectCfg}))
	assert.Nil(t, ValidateActivation(config(t, "x", domain.DataTypeText, `{}`), false, nil), "deactivation always allowed")

	broken := config(t, "matrix", domain.DataTypeSelect, `{}`)
	broken.Active = false
	serr := ValidateActivation(broken, true, nil)
	require.NotNil(t, serr)
	assert.Equal(t, CodeRulesInvalid, serr.Code)

	clash := selectCfg
	clash.ID = "other"
	serr = ValidateActivation(selectCfg, true, []domain.AttributeConfig{selectCfg, clash})
	require.NotNil(t, serr)
	assert.Equal(t, CodeConflict, serr.Code)
}

func TestSubmissionError_Error(t *testing.T) {
	assert.Equal(t, "attr_name: attr_name is required",
		(&SubmissionError{Field: "attr_name", Message: "attr_name is required"}).Error())
	assert.Equal(t, "taken", (&SubmissionError{Message: "taken"}).Error())
}
