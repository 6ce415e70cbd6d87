package models

import "time"

// Model is a stored entity: a single base type plus open-ended attributes and
// relations. Stored in the models table.
type Model struct {
	ID          int64     `json:"id"`
	ModelTypeID int64     `json:"model_type_id"` // must reference a base type
	Title       string    `json:"title"`
	Body        *string   `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Relation is a directed edge between two models, typed by a RelationshipType.
// Deleting either endpoint cascades the edge and its attributes.
type Relation struct {
	ID                 int64     `json:"id"`
	FromID             int64     `json:"from_id"`
	ToID               int64     `json:"to_id"`
	RelationshipTypeID int64     `json:"relationship_type_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// Embedding is an optional 1:1 opaque vector payload per model. The engine
// stores and returns it without interpreting the contents.
type Embedding struct {
	ModelID   int64  `json:"model_id"`
	Embedding string `json:"embedding"`
}
