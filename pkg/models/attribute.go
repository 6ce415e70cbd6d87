package models

import (
	"fmt"
	"time"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
)

// ValueType enumerates the declarable attribute value types.
type ValueType string

const (
	ValueTypeString   ValueType = "string"
	ValueTypeNumber   ValueType = "number"
	ValueTypeDatetime ValueType = "datetime"
	ValueTypeBoolean  ValueType = "boolean"
	ValueTypeVector   ValueType = "vector"
)

// Valid reports whether v is one of the declarable value types.
func (v ValueType) Valid() bool {
	switch v {
	case ValueTypeString, ValueTypeNumber, ValueTypeDatetime, ValueTypeBoolean, ValueTypeVector:
		return true
	}
	return false
}

// AttributeDefinition declares an attribute key for a model type (base or
// trait). Keys are unique within their type. This is the schema side of the
// EAV pattern; Attribute rows are validated against it before insert.
type AttributeDefinition struct {
	ID          int64          `json:"id"`
	ModelTypeID int64          `json:"model_type_id"`
	Key         string         `json:"key"`
	ValueType   ValueType      `json:"value_type"`
	Required    bool           `json:"required"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// RelationAttributeDefinition declares an attribute key for a relationship
// type, mirroring AttributeDefinition.
type RelationAttributeDefinition struct {
	ID                 int64     `json:"id"`
	RelationshipTypeID int64     `json:"relationship_type_id"`
	Key                string    `json:"key"`
	ValueType          ValueType `json:"value_type"`
	Required           bool      `json:"required"`
}

// AttributeValue is the tagged union carried through the application layer.
// Exactly one variant field is meaningful, selected by Type; the storage layer
// maps the union to discriminated nullable columns where the single non-null
// column is the type discriminant.
//
// Numbers are 64-bit integers: the reference schema stores integer precision
// and widening to floating point would silently change stored values.
type AttributeValue struct {
	Type   ValueType
	Text   string
	Number int64
	Time   time.Time
	Bool   bool
	Vector string
}

// StringValue builds a string-typed value.
func StringValue(s string) AttributeValue {
	return AttributeValue{Type: ValueTypeString, Text: s}
}

// NumberValue builds a number-typed value.
func NumberValue(n int64) AttributeValue {
	return AttributeValue{Type: ValueTypeNumber, Number: n}
}

// DatetimeValue builds a datetime-typed value.
func DatetimeValue(t time.Time) AttributeValue {
	return AttributeValue{Type: ValueTypeDatetime, Time: t}
}

// BooleanValue builds a boolean-typed value.
func BooleanValue(b bool) AttributeValue {
	return AttributeValue{Type: ValueTypeBoolean, Bool: b}
}

// VectorValue builds a vector-typed value. The payload is opaque text; the
// engine never interprets it.
func VectorValue(v string) AttributeValue {
	return AttributeValue{Type: ValueTypeVector, Vector: v}
}

// Scalar returns the populated variant as an untyped value, used when
// flattening attributes into the materialized key/value mapping.
func (v AttributeValue) Scalar() any {
	switch v.Type {
	case ValueTypeString:
		return v.Text
	case ValueTypeNumber:
		return v.Number
	case ValueTypeDatetime:
		return v.Time
	case ValueTypeBoolean:
		return v.Bool
	case ValueTypeVector:
		return v.Vector
	}
	return nil
}

// CoerceValue converts an untyped input (e.g. a decoded JSON argument from an
// MCP tool call) into an AttributeValue of the declared type. Returns
// ErrTypeMismatch when the input cannot represent the declared type.
//
// JSON numbers arrive as float64; fractional parts are truncated to match the
// integer storage of the number type. Datetimes accept RFC 3339 strings.
func CoerceValue(declared ValueType, raw any) (AttributeValue, error) {
	switch declared {
	case ValueTypeString:
		if s, ok := raw.(string); ok {
			return StringValue(s), nil
		}
	case ValueTypeNumber:
		switch n := raw.(type) {
		case int64:
			return NumberValue(n), nil
		case int:
			return NumberValue(int64(n)), nil
		case float64:
			return NumberValue(int64(n)), nil
		}
	case ValueTypeDatetime:
		switch t := raw.(type) {
		case time.Time:
			return DatetimeValue(t), nil
		case string:
			parsed, err := time.Parse(time.RFC3339, t)
			if err == nil {
				return DatetimeValue(parsed), nil
			}
		}
	case ValueTypeBoolean:
		if b, ok := raw.(bool); ok {
			return BooleanValue(b), nil
		}
	case ValueTypeVector:
		if s, ok := raw.(string); ok {
			return VectorValue(s), nil
		}
	default:
		return AttributeValue{}, fmt.Errorf("value type %q: %w", declared, apperrors.ErrTypeMismatch)
	}
	return AttributeValue{}, fmt.Errorf("%T is not a valid %s: %w", raw, declared, apperrors.ErrTypeMismatch)
}

// Attribute is one stored EAV value for a model. The
// (model_id, attribute_definition_id, value) combination is unique: a model
// may hold several values for the same key, but never the identical value
// twice.
type Attribute struct {
	ID                    int64          `json:"id"`
	ModelID               int64          `json:"model_id"`
	AttributeDefinitionID int64          `json:"attribute_definition_id"`
	Value                 AttributeValue `json:"value"`
}

// RelationAttribute is one stored EAV value for a relation, with the same
// single-populated-column discipline as Attribute.
type RelationAttribute struct {
	ID                            int64          `json:"id"`
	RelationID                    int64          `json:"relation_id"`
	RelationAttributeDefinitionID int64          `json:"relation_attribute_definition_id"`
	Value                         AttributeValue `json:"value"`
}
