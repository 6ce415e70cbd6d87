// Package repositories provides data access for the graph-document store.
// Repositories are stateless; they read their connection (pool or
// transaction) from the context scope set by the caller.
package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/database"
	"github.com/pkmgraph/pkm-engine/pkg/models"
)

// ModelTypeRepository provides data access for type definitions: model types,
// attribute definitions, relationship types, and relation attribute
// definitions. Definitions are append-mostly; there are no update or delete
// operations outside migrations.
type ModelTypeRepository interface {
	CreateType(ctx context.Context, t *models.ModelType) error
	GetTypeByID(ctx context.Context, id int64) (*models.ModelType, error)
	GetTypeByName(ctx context.Context, name string) (*models.ModelType, error)

	CreateAttributeDefinition(ctx context.Context, def *models.AttributeDefinition) error
	GetAttributeDefinitionsByTypes(ctx context.Context, typeIDs []int64) ([]*models.AttributeDefinition, error)

	CreateRelationshipType(ctx context.Context, rt *models.RelationshipType) error
	GetRelationshipTypeByID(ctx context.Context, id int64) (*models.RelationshipType, error)
	GetRelationshipType(ctx context.Context, fromTypeID, toTypeID int64, name string) (*models.RelationshipType, error)
	ListRelationshipTypesByName(ctx context.Context, name string) ([]*models.RelationshipType, error)

	CreateRelationAttributeDefinition(ctx context.Context, def *models.RelationAttributeDefinition) error
	GetRelationAttributeDefinitions(ctx context.Context, relationshipTypeID int64) ([]*models.RelationAttributeDefinition, error)
}

type modelTypeRepository struct{}

// NewModelTypeRepository creates a new ModelTypeRepository.
func NewModelTypeRepository() ModelTypeRepository {
	return &modelTypeRepository{}
}

var _ ModelTypeRepository = (*modelTypeRepository)(nil)

func (r *modelTypeRepository) CreateType(ctx context.Context, t *models.ModelType) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO model_types (name, parent_id, type_kind, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := q.QueryRow(ctx, query, t.Name, t.ParentID, t.TypeKind, t.Description).Scan(&t.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "unique_model_type_name") {
			return fmt.Errorf("model type %q: %w", t.Name, apperrors.ErrDuplicateName)
		}
		return fmt.Errorf("failed to create model type: %w", err)
	}

	return nil
}

func (r *modelTypeRepository) GetTypeByID(ctx context.Context, id int64) (*models.ModelType, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, name, parent_id, type_kind, description
		FROM model_types
		WHERE id = $1`

	return scanModelType(q.QueryRow(ctx, query, id))
}

func (r *modelTypeRepository) GetTypeByName(ctx context.Context, name string) (*models.ModelType, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, name, parent_id, type_kind, description
		FROM model_types
		WHERE name = $1`

	return scanModelType(q.QueryRow(ctx, query, name))
}

func (r *modelTypeRepository) CreateAttributeDefinition(ctx context.Context, def *models.AttributeDefinition) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	constraints := def.Constraints
	if constraints == nil {
		constraints = map[string]any{}
	}

	query := `
		INSERT INTO attribute_definitions (model_type_id, key, value_type, required, constraints)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := q.QueryRow(ctx, query, def.ModelTypeID, def.Key, def.ValueType, def.Required, constraints).Scan(&def.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "unique_attribute_definition") {
			return fmt.Errorf("attribute key %q: %w", def.Key, apperrors.ErrDuplicateKey)
		}
		if database.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("model type %d: %w", def.ModelTypeID, apperrors.ErrUnknownType)
		}
		return fmt.Errorf("failed to create attribute definition: %w", err)
	}

	return nil
}

func (r *modelTypeRepository) GetAttributeDefinitionsByTypes(ctx context.Context, typeIDs []int64) ([]*models.AttributeDefinition, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	if len(typeIDs) == 0 {
		return []*models.AttributeDefinition{}, nil
	}

	query := `
		SELECT id, model_type_id, key, value_type, required, constraints
		FROM attribute_definitions
		WHERE model_type_id = ANY($1)
		ORDER BY id`

	rows, err := q.Query(ctx, query, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.AttributeDefinition
	for rows.Next() {
		var def models.AttributeDefinition
		if err := rows.Scan(&def.ID, &def.ModelTypeID, &def.Key, &def.ValueType, &def.Required, &def.Constraints); err != nil {
			return nil, fmt.Errorf("failed to scan attribute definition: %w", err)
		}
		defs = append(defs, &def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attribute definitions: %w", err)
	}

	return defs, nil
}

func (r *modelTypeRepository) CreateRelationshipType(ctx context.Context, rt *models.RelationshipType) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if rt.Multiplicity == "" {
		rt.Multiplicity = models.MultiplicityMany
	}

	query := `
		INSERT INTO relationship_types (from_model_type_id, to_model_type_id, relation_name, multiplicity, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := q.QueryRow(ctx, query,
		rt.FromModelTypeID, rt.ToModelTypeID, rt.RelationName, rt.Multiplicity, rt.Description,
	).Scan(&rt.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "unique_relationship_type") {
			return fmt.Errorf("relationship type %q: %w", rt.RelationName, apperrors.ErrDuplicateName)
		}
		if database.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("relationship endpoint type: %w", apperrors.ErrUnknownType)
		}
		return fmt.Errorf("failed to create relationship type: %w", err)
	}

	return nil
}

func (r *modelTypeRepository) GetRelationshipTypeByID(ctx context.Context, id int64) (*models.RelationshipType, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, from_model_type_id, to_model_type_id, relation_name, multiplicity, description
		FROM relationship_types
		WHERE id = $1`

	return scanRelationshipType(q.QueryRow(ctx, query, id))
}

func (r *modelTypeRepository) GetRelationshipType(ctx context.Context, fromTypeID, toTypeID int64, name string) (*models.RelationshipType, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, from_model_type_id, to_model_type_id, relation_name, multiplicity, description
		FROM relationship_types
		WHERE from_model_type_id = $1 AND to_model_type_id = $2 AND relation_name = $3`

	return scanRelationshipType(q.QueryRow(ctx, query, fromTypeID, toTypeID, name))
}

func (r *modelTypeRepository) ListRelationshipTypesByName(ctx context.Context, name string) ([]*models.RelationshipType, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, from_model_type_id, to_model_type_id, relation_name, multiplicity, description
		FROM relationship_types
		WHERE relation_name = $1
		ORDER BY id`

	rows, err := q.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationship types: %w", err)
	}
	defer rows.Close()

	var types []*models.RelationshipType
	for rows.Next() {
		var rt models.RelationshipType
		if err := rows.Scan(&rt.ID, &rt.FromModelTypeID, &rt.ToModelTypeID, &rt.RelationName, &rt.Multiplicity, &rt.Description); err != nil {
			return nil, fmt.Errorf("failed to scan relationship type: %w", err)
		}
		types = append(types, &rt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationship types: %w", err)
	}

	return types, nil
}

func (r *modelTypeRepository) CreateRelationAttributeDefinition(ctx context.Context, def *models.RelationAttributeDefinition) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO relation_attribute_definitions (relationship_type_id, key, value_type, required)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := q.QueryRow(ctx, query, def.RelationshipTypeID, def.Key, def.ValueType, def.Required).Scan(&def.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "unique_relation_attribute_definition") {
			return fmt.Errorf("relation attribute key %q: %w", def.Key, apperrors.ErrDuplicateKey)
		}
		if database.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("relationship type %d: %w", def.RelationshipTypeID, apperrors.ErrUnknownType)
		}
		return fmt.Errorf("failed to create relation attribute definition: %w", err)
	}

	return nil
}

func (r *modelTypeRepository) GetRelationAttributeDefinitions(ctx context.Context, relationshipTypeID int64) ([]*models.RelationAttributeDefinition, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, relationship_type_id, key, value_type, required
		FROM relation_attribute_definitions
		WHERE relationship_type_id = $1
		ORDER BY id`

	rows, err := q.Query(ctx, query, relationshipTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relation attribute definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.RelationAttributeDefinition
	for rows.Next() {
		var def models.RelationAttributeDefinition
		if err := rows.Scan(&def.ID, &def.RelationshipTypeID, &def.Key, &def.ValueType, &def.Required); err != nil {
			return nil, fmt.Errorf("failed to scan relation attribute definition: %w", err)
		}
		defs = append(defs, &def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relation attribute definitions: %w", err)
	}

	return defs, nil
}

func scanModelType(row pgx.Row) (*models.ModelType, error) {
	var t models.ModelType
	err := row.Scan(&t.ID, &t.Name, &t.ParentID, &t.TypeKind, &t.Description)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to scan model type: %w", err)
	}
	return &t, nil
}

func scanRelationshipType(row pgx.Row) (*models.RelationshipType, error) {
	var rt models.RelationshipType
	err := row.Scan(&rt.ID, &rt.FromModelTypeID, &rt.ToModelTypeID, &rt.RelationName, &rt.Multiplicity, &rt.Description)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to scan relationship type: %w", err)
	}
	return &rt, nil
}
