package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labledger.io/lims/internal/domain"
)

func config(t *testing.T, name string, dataType domain.DataType, rules string) domain.AttributeConfig {
	t.Helper()
	vr, err := domain.DecodeRulesJSON(dataType, []byte(rules))
	require.NoError(t, err)
	return domain.AttributeConfig{
		ID:              "id-" + name,
		EntityType:      domain.EntityTypeSamples,
		AttrName:        name,
		DataType:        dataType,
		ValidationRules: vr,
		Active:          true,
	}
}

func TestFieldValidator_Validate(t *testing.T) {
	tests := []struct {
		name     string
		dataType domain.DataType
		rules    string
		raw      any
		want     []string
	}{
		{"text within bounds", domain.DataTypeText, `{"min_length":2,"max_length":5}`, "abc", nil},
		{"text too short", domain.DataTypeText, `{"min_length":2}`, "a", []string{"must be at least 2 characters"}},
		{"text too long", domain.DataTypeText, `{"max_length":3}`, "abcd", []string{"must be at most 3 characters"}},
		{"text counts runes", domain.DataTypeText, `{"max_length":3}`, "µgL", nil},
		{"text not scalar", domain.DataTypeText, `{}`, []any{"a"}, []string{"must be text"}},

		{"number in range", domain.DataTypeNumber, `{"min":0,"max":14}`, "7.5", nil},
		{"number below min", domain.DataTypeNumber, `{"min":0,"max":14}`, -1, []string{"must be at least 0"}},
		{"number above max", domain.DataTypeNumber, `{"min":0,"max":14}`, "20", []string{"must be at most 14"}},
		{"number fractional bound", domain.DataTypeNumber, `{"max":0.5}`, 0.75, []string{"must be at most 0.5"}},
		{"number not numeric", domain.DataTypeNumber, `{"min":0}`, "high", []string{"must be a number"}},
		{"number malformed rule ignored", domain.DataTypeNumber, `{"min":"zero"}`, -5, nil},

		{"date after min", domain.DataTypeDate, `{"min_date":"2024-01-01"}`, "2024-06-01", nil},
		{"date on min", domain.DataTypeDate, `{"min_date":"2024-01-01"}`, "2024-01-01", nil},
		{"date before min", domain.DataTypeDate, `{"min_date":"2024-01-01"}`, "2023-12-31", []string{"must be on or after 2024-01-01"}},
		{"date after max", domain.DataTypeDate, `{"max_date":"2024-12-31"}`, "2025-01-01", []string{"must be on or before 2024-12-31"}},
		{"date unparseable bound ignored", domain.DataTypeDate, `{"min_date":"soon"}`, "1999-01-01", nil},
		{"date invalid", domain.DataTypeDate, `{}`, "not a date", []string{"must be a valid date"}},

		{"boolean", domain.DataTypeBoolean, `{}`, true, nil},
		{"boolean tolerant", domain.DataTypeBoolean, `{}`, "Y", nil},

		{"select allowed", domain.DataTypeSelect, `{"options":["low","high"]}`, "low", nil},
		{"select not allowed", domain.DataTypeSelect, `{"options":["low","high"]}`, "mid", []string{"must be one of: low, high"}},
		{"select case sensitive", domain.DataTypeSelect, `{"options":["low"]}`, "LOW", []string{"must be one of: low"}},
		{"select without options", domain.DataTypeSelect, `{}`, "low", []string{"has no options configured"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := CompileField(config(t, "field", tt.dataType, tt.rules))
			got := f.Validate(tt.raw)
			assert.Equal(t, tt.want, got.Violations)
			assert.Equal(t, len(tt.want) == 0, got.Valid())
		})
	}
}

func TestFieldValidator_AbsentNeverViolates(t *testing.T) {
	configs := []domain.AttributeConfig{
		config(t, "n", domain.DataTypeNumber, `{"min":1,"max":2}`),
		config(t, "d", domain.DataTypeDate, `{"min_date":"2024-01-01","max_date":"2024-12-31"}`),
		config(t, "s", domain.DataTypeText, `{"min_length":3,"max_length":4}`),
		config(t, "o", domain.DataTypeSelect, `{}`),
	}
	for _, cfg := range configs {
		f := CompileField(cfg)
		for _, raw := range []any{nil, ""} {
			res := f.Validate(raw)
			assert.Empty(t, res.Violations, "%s with %#v", cfg.AttrName, raw)
			assert.False(t, res.Present)
			assert.Nil(t, res.Value)
		}
	}
}

func TestFieldValidator_ReportsEveryViolatedBound(t *testing.T) {
	// min > max cannot be admitted by the lifecycle but may exist in legacy data.
	f := CompileField(config(t, "x", domain.DataTypeNumber, `{"min":10,"max":5}`))
	got := f.Validate(7)
	assert.Equal(t, []string{"must be at least 10", "must be at most 5"}, got.Violations)
}

func TestFieldValidator_Config(t *testing.T) {
	cfg := config(t, "ph_level", domain.DataTypeNumber, `{}`)
	assert.Equal(t, cfg, CompileField(cfg).Config())
}
