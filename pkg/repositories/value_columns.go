package repositories

import (
	"time"

	"github.com/pkmgraph/pkm-engine/pkg/models"
)

// KeyedValue pairs an attribute key with its typed value, in insertion order.
// The materializer flattens these into the canonical key/value mapping.
type KeyedValue struct {
	Key   string
	Value models.AttributeValue
}

// valueColumns maps the tagged union to the discriminated nullable columns of
// the EAV tables: exactly one returned pointer is non-nil.
func valueColumns(v models.AttributeValue) (text *string, number *int64, ts *time.Time, b *bool, vector *string) {
	switch v.Type {
	case models.ValueTypeString:
		text = &v.Text
	case models.ValueTypeNumber:
		number = &v.Number
	case models.ValueTypeDatetime:
		ts = &v.Time
	case models.ValueTypeBoolean:
		b = &v.Bool
	case models.ValueTypeVector:
		vector = &v.Vector
	}
	return
}

// valueFromColumns rebuilds the tagged union from scanned columns. The
// declared value type from the joined definition selects the variant; the
// matching column is the only non-null one by constraint.
func valueFromColumns(declared models.ValueType, text *string, number *int64, ts *time.Time, b *bool, vector *string) models.AttributeValue {
	switch declared {
	case models.ValueTypeString:
		if text != nil {
			return models.StringValue(*text)
		}
	case models.ValueTypeNumber:
		if number != nil {
			return models.NumberValue(*number)
		}
	case models.ValueTypeDatetime:
		if ts != nil {
			return models.DatetimeValue(*ts)
		}
	case models.ValueTypeBoolean:
		if b != nil {
			return models.BooleanValue(*b)
		}
	case models.ValueTypeVector:
		if vector != nil {
			return models.VectorValue(*vector)
		}
	}
	return models.AttributeValue{Type: declared}
}
