// Package domain provides domain models for the LIMS attribute service.
//
// Import Path: labledger.io/lims/internal/domain
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityType identifies the kind of LIMS record a custom attribute belongs to.
// The set is closed and must stay in sync with every client.
type EntityType string

const (
	EntityTypeSamples        EntityType = "samples"
	EntityTypeTests          EntityType = "tests"
	EntityTypeResults        EntityType = "results"
	EntityTypeProjects       EntityType = "projects"
	EntityTypeClientProjects EntityType = "client_projects"
	EntityTypeBatches        EntityType = "batches"
	EntityTypeAnalyses       EntityType = "analyses"
	EntityTypeAnalytes       EntityType = "analytes"
)

// EntityTypes lists every supported entity type in display order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityTypeSamples,
		EntityTypeTests,
		EntityTypeResults,
		EntityTypeProjects,
		EntityTypeClientProjects,
		EntityTypeBatches,
		EntityTypeAnalyses,
		EntityTypeAnalytes,
	}
}

// Valid reports whether t is a member of the closed set.
func (t EntityType) Valid() bool {
	for _, et := range EntityTypes() {
		if et == t {
			return true
		}
	}
	return false
}

// DataType is the value type of a custom attribute.
type DataType string

const (
	DataTypeText    DataType = "text"
	DataTypeNumber  DataType = "number"
	DataTypeDate    DataType = "date"
	DataTypeBoolean DataType = "boolean"
	DataTypeSelect  DataType = "select"
)

// DataTypes lists every supported data type.
func DataTypes() []DataType {
	return []DataType{DataTypeText, DataTypeNumber, DataTypeDate, DataTypeBoolean, DataTypeSelect}
}

// Valid reports whether d is a member of the closed set.
func (d DataType) Valid() bool {
	switch d {
	case DataTypeText, DataTypeNumber, DataTypeDate, DataTypeBoolean, DataTypeSelect:
		return true
	}
	return false
}

// AttributeConfig defines one custom field for one entity type.
//
// EntityType and DataType are immutable once created. Inactive configs are
// excluded from new-entry validation but values already stored for them stay readable.
type AttributeConfig struct {
	ID              string          `json:"id"`
	EntityType      EntityType      `json:"entity_type"`
	AttrName        string          `json:"attr_name"`
	DataType        DataType        `json:"data_type"`
	ValidationRules ValidationRules `json:"validation_rules"`
	Description     *string         `json:"description,omitempty"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Key returns the (entity_type, attr_name) identity of the config.
func (c AttributeConfig) Key() AttributeKey {
	return AttributeKey{EntityType: c.EntityType, AttrName: c.AttrName}
}

// UnmarshalJSON decodes validation_rules according to data_type.
func (c *AttributeConfig) UnmarshalJSON(data []byte) error {
	type plain AttributeConfig
	var aux struct {
		plain
		ValidationRules json.RawMessage `json:"validation_rules"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = AttributeConfig(aux.plain)

	rules, err := DecodeRulesJSON(c.DataType, aux.ValidationRules)
	if err != nil {
		return fmt.Errorf("validation_rules: %w", err)
	}
	c.ValidationRules = rules
	return nil
}

// AttributeKey is the uniqueness identity of an AttributeConfig.
type AttributeKey struct {
	EntityType EntityType `json:"entity_type"`
	AttrName   string     `json:"attr_name"`
}

func (k AttributeKey) String() string {
	return string(k.EntityType) + "/" + k.AttrName
}
