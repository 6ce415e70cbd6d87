package models

import "time"

// Relation direction labels as seen from the materialized model.
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// TypeRef is the id/name/description triple used for both the base type and
// trait entries inside a type-composition block.
type TypeRef struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// TypeComposition is a model's full type composition: its single base type
// plus every assigned trait type. Trait order carries no meaning; consumers
// must not rely on it.
type TypeComposition struct {
	BaseModel TypeRef   `json:"base_model"`
	Traits    []TypeRef `json:"traits"`
}

// ModelView is a model's core fields plus its type composition, used both for
// the materialized model itself and for the other endpoint of each relation.
type ModelView struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Body      *string         `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ModelType TypeComposition `json:"model_type"`
}

// RelationView is one edge of the materialized model's one-hop neighborhood.
// The other endpoint carries its own type composition but its relations are
// not expanded.
type RelationView struct {
	RelationID         int64          `json:"relation_id"`
	RelationName       string         `json:"relation_name"`
	Direction          string         `json:"direction"` // 'outgoing' or 'incoming'
	OtherModel         ModelView      `json:"other_model"`
	RelationAttributes map[string]any `json:"relation_attributes"`
}

// MaterializedModel is the complete one-hop view of a model: type
// composition, flattened attributes, and relationship neighborhood.
type MaterializedModel struct {
	Model      ModelView      `json:"model"`
	Attributes map[string]any `json:"attributes"`
	Relations  []RelationView `json:"relations"`
}
