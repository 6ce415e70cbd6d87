package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/database"
	"github.com/pkmgraph/pkm-engine/pkg/models"
)

// RelationRepository provides data access for relations and their attribute
// values, plus the server-side materialization function.
type RelationRepository interface {
	Create(ctx context.Context, rel *models.Relation) error
	GetByID(ctx context.Context, id int64) (*models.Relation, error)
	ListByModel(ctx context.Context, modelID int64) ([]*models.Relation, error)
	Delete(ctx context.Context, id int64) (bool, error)

	InsertAttribute(ctx context.Context, a *models.RelationAttribute) error
	GetAttributeValues(ctx context.Context, relationID int64) ([]KeyedValue, error)

	GetModelFull(ctx context.Context, modelID int64) (json.RawMessage, error)
}

type relationRepository struct{}

// NewRelationRepository creates a new RelationRepository.
func NewRelationRepository() RelationRepository {
	return &relationRepository{}
}

var _ RelationRepository = (*relationRepository)(nil)

func (r *relationRepository) Create(ctx context.Context, rel *models.Relation) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO relations (from_id, to_id, relationship_type_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := q.QueryRow(ctx, query, rel.FromID, rel.ToID, rel.RelationshipTypeID).Scan(&rel.ID, &rel.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("relation endpoints: %w", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to create relation: %w", err)
	}

	return nil
}

func (r *relationRepository) GetByID(ctx context.Context, id int64) (*models.Relation, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, from_id, to_id, relationship_type_id, created_at
		FROM relations
		WHERE id = $1`

	var rel models.Relation
	err := q.QueryRow(ctx, query, id).Scan(&rel.ID, &rel.FromID, &rel.ToID, &rel.RelationshipTypeID, &rel.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to scan relation: %w", err)
	}

	return &rel, nil
}

// ListByModel returns every relation where the model is either endpoint.
func (r *relationRepository) ListByModel(ctx context.Context, modelID int64) ([]*models.Relation, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, from_id, to_id, relationship_type_id, created_at
		FROM relations
		WHERE from_id = $1 OR to_id = $1
		ORDER BY id`

	rows, err := q.Query(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var relations []*models.Relation
	for rows.Next() {
		var rel models.Relation
		if err := rows.Scan(&rel.ID, &rel.FromID, &rel.ToID, &rel.RelationshipTypeID, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		relations = append(relations, &rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}

	return relations, nil
}

// Delete removes a relation; its attribute rows cascade at the schema level.
func (r *relationRepository) Delete(ctx context.Context, id int64) (bool, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	tag, err := q.Exec(ctx, `DELETE FROM relations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete relation: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *relationRepository) InsertAttribute(ctx context.Context, a *models.RelationAttribute) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	text, number, ts, b, vector := valueColumns(a.Value)

	query := `
		INSERT INTO relation_attributes (relation_id, relation_attribute_definition_id, value_text, value_number, value_time, value_bool, value_vector)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := q.QueryRow(ctx, query, a.RelationID, a.RelationAttributeDefinitionID, text, number, ts, b, vector).Scan(&a.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "unique_relation_attribute_value") {
			return fmt.Errorf("relation %d attribute %d: %w", a.RelationID, a.RelationAttributeDefinitionID, apperrors.ErrDuplicateValue)
		}
		return fmt.Errorf("failed to insert relation attribute: %w", err)
	}

	return nil
}

// GetAttributeValues returns the relation's attribute values with their keys
// in insertion order.
func (r *relationRepository) GetAttributeValues(ctx context.Context, relationID int64) ([]KeyedValue, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT rad.key, rad.value_type, ra.value_text, ra.value_number, ra.value_time, ra.value_bool, ra.value_vector
		FROM relation_attributes ra
		JOIN relation_attribute_definitions rad ON ra.relation_attribute_definition_id = rad.id
		WHERE ra.relation_id = $1
		ORDER BY ra.id`

	rows, err := q.Query(ctx, query, relationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relation attributes: %w", err)
	}
	defer rows.Close()

	return collectKeyedValues(rows)
}

// GetModelFull invokes the server-side get_model_full function. It returns
// the raw jsonb document, or nil when the model does not exist. Both this and
// the in-process materializer produce the same nested shape.
func (r *relationRepository) GetModelFull(ctx context.Context, modelID int64) (json.RawMessage, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	var doc json.RawMessage
	err := q.QueryRow(ctx, `SELECT get_model_full($1)`, modelID).Scan(&doc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to call get_model_full: %w", err)
	}

	return doc, nil
}
