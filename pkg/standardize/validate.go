package standardize

// Validate reports whether value already conforms to the canonical shape for
// the given tag. It checks structural requirements only (required keys present,
// containers of the right kind); Standardize remains the authority on content.
func (s *Standardizer) Validate(shape Shape, value any) bool {
	switch shape {
	case ShapeModelType:
		return validateModelType(value)
	case ShapeModel:
		return validateModel(value)
	case ShapeModelFull:
		return validateModelFull(value)
	default:
		return false
	}
}

func validateModelType(value any) bool {
	data, ok := asMap(value)
	if !ok {
		return false
	}

	base, ok := asMap(data["base_model"])
	if !ok {
		return false
	}
	if !hasKeys(base, "id", "name", "description") {
		return false
	}

	traits, ok := data["traits"].([]any)
	if !ok {
		return false
	}
	for _, entry := range traits {
		trait, ok := asMap(entry)
		if !ok || !hasKeys(trait, "id", "name", "description") {
			return false
		}
	}

	return true
}

func validateModel(value any) bool {
	data, ok := asMap(value)
	if !ok {
		return false
	}
	if !hasKeys(data, "id", "title", "body", "created_at", "updated_at", "model_type") {
		return false
	}
	return validateModelType(data["model_type"])
}

func validateModelFull(value any) bool {
	data, ok := asMap(value)
	if !ok {
		return false
	}
	if !validateModel(data["model"]) {
		return false
	}
	if _, ok := asMap(data["attributes"]); !ok {
		return false
	}

	relations, ok := data["relations"].([]any)
	if !ok {
		return false
	}
	for _, entry := range relations {
		relation, ok := asMap(entry)
		if !ok {
			return false
		}
		if !hasKeys(relation, "relation_id", "relation_name", "direction", "other_model", "relation_attributes") {
			return false
		}
	}

	return true
}

func hasKeys(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
