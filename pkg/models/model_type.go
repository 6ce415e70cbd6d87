// Package models defines the persistent data model for the polymorphic
// graph-document store: named types (base and trait), models with open-ended
// typed attributes, and typed attributed relations between models.
package models

import "time"

// Type kind constants. A base type is a model's single primary classification;
// trait types are additively assignable capabilities.
const (
	TypeKindBase  = "base"
	TypeKindTrait = "trait"
)

// ModelType is a named type definition, either a base type or a trait type.
// Stored in the model_types table; names are unique across both kinds.
type ModelType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ParentID    *int64  `json:"parent_id,omitempty"` // single-level categorization, not inheritance
	TypeKind    string  `json:"type_kind"`           // 'base' or 'trait'
	Description *string `json:"description,omitempty"`
}

// IsBase reports whether the type can be a model's primary classification.
func (t *ModelType) IsBase() bool { return t.TypeKind == TypeKindBase }

// IsTrait reports whether the type is additively assignable.
func (t *ModelType) IsTrait() bool { return t.TypeKind == TypeKindTrait }

// TraitAssignment records that a model additionally carries a trait type.
// Unique per (model_id, trait_type_id) pair.
type TraitAssignment struct {
	ID          int64     `json:"id"`
	ModelID     int64     `json:"model_id"`
	TraitTypeID int64     `json:"trait_type_id"`
	AppliedAt   time.Time `json:"applied_at"`
}

// RelationshipType is a directed-by-declaration edge type between two base
// types. Unique per (from_model_type_id, to_model_type_id, relation_name).
type RelationshipType struct {
	ID              int64   `json:"id"`
	FromModelTypeID int64   `json:"from_model_type_id"`
	ToModelTypeID   int64   `json:"to_model_type_id"`
	RelationName    string  `json:"relation_name"`
	Multiplicity    string  `json:"multiplicity"` // defaults to 'many'
	Description     *string `json:"description,omitempty"`
}

// MultiplicityMany is the default multiplicity policy for relationship types.
const MultiplicityMany = "many"
