package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/database"
	"github.com/pkmgraph/pkm-engine/pkg/models"
)

// ModelRepository provides data access for models, their trait assignments,
// attribute values, and embeddings.
type ModelRepository interface {
	Create(ctx context.Context, m *models.Model) error
	GetByID(ctx context.Context, id int64) (*models.Model, error)
	ListByType(ctx context.Context, modelTypeID int64) ([]*models.Model, error)
	Update(ctx context.Context, m *models.Model) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) (bool, error)

	AssignTrait(ctx context.Context, ta *models.TraitAssignment) error
	GetTraitTypes(ctx context.Context, modelID int64) ([]*models.ModelType, error)

	InsertAttribute(ctx context.Context, a *models.Attribute) error
	GetAttributeValues(ctx context.Context, modelID int64) ([]KeyedValue, error)

	UpsertEmbedding(ctx context.Context, e *models.Embedding) error
	GetEmbedding(ctx context.Context, modelID int64) (*models.Embedding, error)
}

type modelRepository struct{}

// NewModelRepository creates a new ModelRepository.
func NewModelRepository() ModelRepository {
	return &modelRepository{}
}

var _ ModelRepository = (*modelRepository)(nil)

func (r *modelRepository) Create(ctx context.Context, m *models.Model) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO models (model_type_id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := q.QueryRow(ctx, query, m.ModelTypeID, m.Title, m.Body).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("model type %d: %w", m.ModelTypeID, apperrors.ErrUnknownType)
		}
		return fmt.Errorf("failed to create model: %w", err)
	}

	return nil
}

func (r *modelRepository) GetByID(ctx context.Context, id int64) (*models.Model, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, model_type_id, title, body, created_at, updated_at
		FROM models
		WHERE id = $1`

	return scanModel(q.QueryRow(ctx, query, id))
}

func (r *modelRepository) ListByType(ctx context.Context, modelTypeID int64) ([]*models.Model, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, model_type_id, title, body, created_at, updated_at
		FROM models
		WHERE model_type_id = $1
		ORDER BY id`

	rows, err := q.Query(ctx, query, modelTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var result []*models.Model
	for rows.Next() {
		var m models.Model
		if err := rows.Scan(&m.ID, &m.ModelTypeID, &m.Title, &m.Body, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating models: %w", err)
	}

	return result, nil
}

func (r *modelRepository) Update(ctx context.Context, m *models.Model) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE models
		SET title = $1, body = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at`

	err := q.QueryRow(ctx, query, m.Title, m.Body, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("model %d: %w", m.ID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to update model: %w", err)
	}

	return nil
}

// Touch refreshes a model's updated_at. Called after any attribute mutation.
func (r *modelRepository) Touch(ctx context.Context, id int64) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	_, err := q.Exec(ctx, `UPDATE models SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch model: %w", err)
	}
	return nil
}

// Delete removes a model. Trait assignments, attributes, the embedding, and
// incident relations (both directions) cascade at the schema level.
func (r *modelRepository) Delete(ctx context.Context, id int64) (bool, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	tag, err := q.Exec(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete model: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *modelRepository) AssignTrait(ctx context.Context, ta *models.TraitAssignment) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO trait_assignments (model_id, trait_type_id)
		VALUES ($1, $2)
		RETURNING id, applied_at`

	err := q.QueryRow(ctx, query, ta.ModelID, ta.TraitTypeID).Scan(&ta.ID, &ta.AppliedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "unique_trait_assignment") {
			return fmt.Errorf("model %d trait %d: %w", ta.ModelID, ta.TraitTypeID, apperrors.ErrDuplicateTraitAssignment)
		}
		if database.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("trait assignment: %w", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to assign trait: %w", err)
	}

	return nil
}

func (r *modelRepository) GetTraitTypes(ctx context.Context, modelID int64) ([]*models.ModelType, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT mt.id, mt.name, mt.parent_id, mt.type_kind, mt.description
		FROM trait_assignments ta
		JOIN model_types mt ON ta.trait_type_id = mt.id
		WHERE ta.model_id = $1
		ORDER BY ta.id`

	rows, err := q.Query(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trait types: %w", err)
	}
	defer rows.Close()

	var traits []*models.ModelType
	for rows.Next() {
		var t models.ModelType
		if err := rows.Scan(&t.ID, &t.Name, &t.ParentID, &t.TypeKind, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan trait type: %w", err)
		}
		traits = append(traits, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trait types: %w", err)
	}

	return traits, nil
}

func (r *modelRepository) InsertAttribute(ctx context.Context, a *models.Attribute) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	text, number, ts, b, vector := valueColumns(a.Value)

	query := `
		INSERT INTO attributes (model_id, attribute_definition_id, value_text, value_number, value_time, value_bool, value_vector)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := q.QueryRow(ctx, query, a.ModelID, a.AttributeDefinitionID, text, number, ts, b, vector).Scan(&a.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "unique_attribute_value") {
			return fmt.Errorf("model %d attribute %d: %w", a.ModelID, a.AttributeDefinitionID, apperrors.ErrDuplicateValue)
		}
		return fmt.Errorf("failed to insert attribute: %w", err)
	}

	return nil
}

// GetAttributeValues returns the model's attribute values with their keys in
// insertion order, so flattening keeps the most recently inserted value for a
// key that holds several.
func (r *modelRepository) GetAttributeValues(ctx context.Context, modelID int64) ([]KeyedValue, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ad.key, ad.value_type, a.value_text, a.value_number, a.value_time, a.value_bool, a.value_vector
		FROM attributes a
		JOIN attribute_definitions ad ON a.attribute_definition_id = ad.id
		WHERE a.model_id = $1
		ORDER BY a.id`

	rows, err := q.Query(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	return collectKeyedValues(rows)
}

func (r *modelRepository) UpsertEmbedding(ctx context.Context, e *models.Embedding) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO embeddings (model_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (model_id) DO UPDATE SET embedding = EXCLUDED.embedding`

	_, err := q.Exec(ctx, query, e.ModelID, e.Embedding)
	if err != nil {
		if database.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("model %d: %w", e.ModelID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	return nil
}

func (r *modelRepository) GetEmbedding(ctx context.Context, modelID int64) (*models.Embedding, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	var e models.Embedding
	err := q.QueryRow(ctx, `SELECT model_id, embedding FROM embeddings WHERE model_id = $1`, modelID).
		Scan(&e.ModelID, &e.Embedding)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to scan embedding: %w", err)
	}

	return &e, nil
}

func scanModel(row pgx.Row) (*models.Model, error) {
	var m models.Model
	err := row.Scan(&m.ID, &m.ModelTypeID, &m.Title, &m.Body, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to scan model: %w", err)
	}
	return &m, nil
}

// collectKeyedValues scans (key, value_type, value columns) rows shared by
// the model and relation attribute queries.
func collectKeyedValues(rows pgx.Rows) ([]KeyedValue, error) {
	var values []KeyedValue
	for rows.Next() {
		var (
			key      string
			declared models.ValueType
			text     *string
			number   *int64
			ts       *time.Time
			b        *bool
			vector   *string
		)
		if err := rows.Scan(&key, &declared, &text, &number, &ts, &b, &vector); err != nil {
			return nil, fmt.Errorf("failed to scan attribute value: %w", err)
		}
		values = append(values, KeyedValue{Key: key, Value: valueFromColumns(declared, text, number, ts, b, vector)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attribute values: %w", err)
	}

	return values, nil
}
