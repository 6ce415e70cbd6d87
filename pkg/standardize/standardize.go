// Package standardize is the defensive normalization layer applied to every
// materialized result before it leaves the engine, and to any entity-shaped
// data ingested from a boundary the engine does not fully control (such as
// the server-side get_model_full function).
//
// Standardize is a total function: for any input, including nulls, scalars,
// and partially filled structures, it returns a structurally valid canonical
// shape. Missing required fields are filled with typed defaults, malformed
// child elements are dropped, and every deviation is logged for operational
// visibility but never surfaced as an error to the caller.
package standardize

import (
	"time"

	"go.uber.org/zap"
)

// Shape selects which canonical shape Standardize and Validate target.
type Shape string

const (
	// ShapeModelType is the type-composition block:
	// {base_model: {id, name, description}, traits: [...]}.
	ShapeModelType Shape = "model_type"
	// ShapeModel is a model block with its nested type composition:
	// {id, title, body, created_at, updated_at, model_type: ...}.
	ShapeModel Shape = "model"
	// ShapeModelFull is the complete materialization:
	// {model: ..., attributes: {...}, relations: [...]}.
	ShapeModelFull Shape = "model_full"
)

const defaultName = "Unknown"

// Standardizer normalizes raw values into canonical shapes. It is stateless
// apart from its logger and clock; the same input always yields the same
// structure.
type Standardizer struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Standardizer. Pass zap.NewNop() to disable deviation logging.
func New(logger *zap.Logger) *Standardizer {
	return &Standardizer{
		logger: logger.Named("standardize"),
		now:    time.Now,
	}
}

// Standardize re-shapes raw into the canonical form for the given shape tag.
// It never fails; unknown shape tags fall back to ShapeModelFull.
func (s *Standardizer) Standardize(shape Shape, raw any) map[string]any {
	switch shape {
	case ShapeModelType:
		return s.standardizeModelType(raw)
	case ShapeModel:
		return s.standardizeModel(raw)
	case ShapeModelFull:
		return s.standardizeModelFull(raw)
	default:
		s.logger.Warn("Unknown shape tag, standardizing as model_full", zap.String("shape", string(shape)))
		return s.standardizeModelFull(raw)
	}
}

func (s *Standardizer) standardizeModelType(raw any) map[string]any {
	data, ok := asMap(raw)
	if !ok {
		s.logger.Warn("Invalid model_type data: not a structured value")
		data = map[string]any{}
	}

	baseModel, ok := asMap(data["base_model"])
	if !ok {
		if _, present := data["base_model"]; present || len(data) > 0 {
			s.logger.Warn("Invalid base_model in model_type data")
		}
		baseModel = map[string]any{}
	}

	standardizedBase := map[string]any{
		"id":          intOrDefault(baseModel["id"], 0),
		"name":        stringOrDefault(baseModel["name"], defaultName),
		"description": nullableString(baseModel["description"]),
	}

	rawTraits, ok := data["traits"].([]any)
	if !ok && data["traits"] != nil {
		s.logger.Warn("Invalid traits in model_type data: not a list")
	}

	traits := make([]any, 0, len(rawTraits))
	for _, entry := range rawTraits {
		trait, ok := asMap(entry)
		if !ok {
			s.logger.Warn("Dropping malformed trait entry: not a structured value")
			continue
		}
		traits = append(traits, map[string]any{
			"id":          intOrDefault(trait["id"], 0),
			"name":        stringOrDefault(trait["name"], defaultName),
			"description": nullableString(trait["description"]),
		})
	}

	return map[string]any{
		"base_model": standardizedBase,
		"traits":     traits,
	}
}

func (s *Standardizer) standardizeModel(raw any) map[string]any {
	data, ok := asMap(raw)
	if !ok {
		s.logger.Warn("Invalid model data: not a structured value")
		data = map[string]any{}
	}

	return map[string]any{
		"id":         intOrDefault(data["id"], 0),
		"title":      stringOrDefault(data["title"], defaultName),
		"body":       nullableString(data["body"]),
		"created_at": s.timeOrNow(data["created_at"]),
		"updated_at": s.timeOrNow(data["updated_at"]),
		"model_type": s.standardizeModelType(data["model_type"]),
	}
}

func (s *Standardizer) standardizeModelFull(raw any) map[string]any {
	data, ok := asMap(raw)
	if !ok {
		s.logger.Warn("Invalid model full data: not a structured value")
		data = map[string]any{}
	}

	attributes := s.standardizeValueMap(data["attributes"], "attributes")

	rawRelations, ok := data["relations"].([]any)
	if !ok && data["relations"] != nil {
		s.logger.Warn("Invalid relations in model full data: not a list")
	}

	relations := make([]any, 0, len(rawRelations))
	for _, entry := range rawRelations {
		relation, ok := asMap(entry)
		if !ok {
			s.logger.Warn("Dropping malformed relation entry: not a structured value")
			continue
		}
		relations = append(relations, s.standardizeRelation(relation))
	}

	return map[string]any{
		"model":      s.standardizeModel(data["model"]),
		"attributes": attributes,
		"relations":  relations,
	}
}

func (s *Standardizer) standardizeRelation(relation map[string]any) map[string]any {
	direction, _ := relation["direction"].(string)
	if direction != "outgoing" && direction != "incoming" {
		s.logger.Warn("Invalid relation direction, defaulting to outgoing",
			zap.Any("direction", relation["direction"]))
		direction = "outgoing"
	}

	attributes := s.standardizeValueMap(relation["relation_attributes"], "relation_attributes")

	return map[string]any{
		"relation_id":         intOrDefault(relation["relation_id"], 0),
		"relation_name":       stringOrDefault(relation["relation_name"], defaultName),
		"direction":           direction,
		"other_model":         s.standardizeModel(relation["other_model"]),
		"relation_attributes": attributes,
	}
}

// standardizeValueMap copies a flattened attribute mapping, re-rendering any
// timestamp-valued entries so both materialization paths emit identical
// documents.
func (s *Standardizer) standardizeValueMap(raw any, field string) map[string]any {
	data, ok := asMap(raw)
	if !ok {
		if raw != nil {
			s.logger.Warn("Invalid value mapping: not a mapping", zap.String("field", field))
		}
		return map[string]any{}
	}

	values := make(map[string]any, len(data))
	for key, value := range data {
		if str, ok := value.(string); ok {
			if canonical, ok := canonicalTimestamp(str); ok {
				values[key] = canonical
				continue
			}
		}
		values[key] = value
	}
	return values
}

func (s *Standardizer) timeOrNow(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if canonical, ok := canonicalTimestamp(t); ok {
			return canonical
		}
		if t != "" {
			s.logger.Warn("Invalid timestamp, defaulting to now", zap.String("value", t))
		}
	}
	return s.now()
}

// canonicalTimestamp re-renders an RFC 3339 string in UTC. Postgres renders
// the zero offset as "+00:00" where Go writes "Z"; re-emitting collapses the
// two renderings of an instant into one.
func canonicalTimestamp(v string) (string, bool) {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return "", false
	}
	return ts.UTC().Format(time.RFC3339Nano), true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// intOrDefault canonicalizes ids to int64, tolerating the numeric types that
// arrive from JSON decoding and from pgx scans.
func intOrDefault(v any, def int64) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return def
}

func stringOrDefault(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// nullableString keeps a present string and maps everything else to nil;
// description and body are nullable in the canonical shapes.
func nullableString(v any) any {
	if s, ok := v.(string); ok {
		return s
	}
	return nil
}
