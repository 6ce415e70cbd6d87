package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/repositories"
)

// passthroughScope satisfies TxScope without a database: callbacks run on the
// caller's context and always commit.
type passthroughScope struct{}

func (passthroughScope) Scope(ctx context.Context) context.Context { return ctx }

func (passthroughScope) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughScope) WithReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockTypeRepo implements repositories.ModelTypeRepository backed by maps,
// enforcing the same uniqueness rules as the schema constraints.
type mockTypeRepo struct {
	types        map[int64]*models.ModelType
	attrDefs     []*models.AttributeDefinition
	relTypes     map[int64]*models.RelationshipType
	relAttrDefs  []*models.RelationAttributeDefinition
	nextID       int64
	getTypeByIDE error
}

func newMockTypeRepo() *mockTypeRepo {
	return &mockTypeRepo{
		types:    make(map[int64]*models.ModelType),
		relTypes: make(map[int64]*models.RelationshipType),
	}
}

func (m *mockTypeRepo) newID() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockTypeRepo) CreateType(ctx context.Context, t *models.ModelType) error {
	for _, existing := range m.types {
		if existing.Name == t.Name {
			return fmt.Errorf("model type %q: %w", t.Name, apperrors.ErrDuplicateName)
		}
	}
	t.ID = m.newID()
	m.types[t.ID] = t
	return nil
}

func (m *mockTypeRepo) GetTypeByID(ctx context.Context, id int64) (*models.ModelType, error) {
	if m.getTypeByIDE != nil {
		return nil, m.getTypeByIDE
	}
	return m.types[id], nil
}

func (m *mockTypeRepo) GetTypeByName(ctx context.Context, name string) (*models.ModelType, error) {
	for _, t := range m.types {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTypeRepo) CreateAttributeDefinition(ctx context.Context, def *models.AttributeDefinition) error {
	if m.types[def.ModelTypeID] == nil {
		return fmt.Errorf("model type %d: %w", def.ModelTypeID, apperrors.ErrUnknownType)
	}
	for _, existing := range m.attrDefs {
		if existing.ModelTypeID == def.ModelTypeID && existing.Key == def.Key {
			return fmt.Errorf("attribute key %q: %w", def.Key, apperrors.ErrDuplicateKey)
		}
	}
	def.ID = m.newID()
	m.attrDefs = append(m.attrDefs, def)
	return nil
}

func (m *mockTypeRepo) GetAttributeDefinitionsByTypes(ctx context.Context, typeIDs []int64) ([]*models.AttributeDefinition, error) {
	wanted := make(map[int64]bool, len(typeIDs))
	for _, id := range typeIDs {
		wanted[id] = true
	}
	var defs []*models.AttributeDefinition
	for _, def := range m.attrDefs {
		if wanted[def.ModelTypeID] {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func (m *mockTypeRepo) CreateRelationshipType(ctx context.Context, rt *models.RelationshipType) error {
	for _, existing := range m.relTypes {
		if existing.FromModelTypeID == rt.FromModelTypeID &&
			existing.ToModelTypeID == rt.ToModelTypeID &&
			existing.RelationName == rt.RelationName {
			return fmt.Errorf("relationship type %q: %w", rt.RelationName, apperrors.ErrDuplicateName)
		}
	}
	rt.ID = m.newID()
	m.relTypes[rt.ID] = rt
	return nil
}

func (m *mockTypeRepo) GetRelationshipTypeByID(ctx context.Context, id int64) (*models.RelationshipType, error) {
	return m.relTypes[id], nil
}

func (m *mockTypeRepo) GetRelationshipType(ctx context.Context, fromTypeID, toTypeID int64, name string) (*models.RelationshipType, error) {
	for _, rt := range m.relTypes {
		if rt.FromModelTypeID == fromTypeID && rt.ToModelTypeID == toTypeID && rt.RelationName == name {
			return rt, nil
		}
	}
	return nil, nil
}

func (m *mockTypeRepo) ListRelationshipTypesByName(ctx context.Context, name string) ([]*models.RelationshipType, error) {
	var result []*models.RelationshipType
	for _, rt := range m.relTypes {
		if rt.RelationName == name {
			result = append(result, rt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockTypeRepo) CreateRelationAttributeDefinition(ctx context.Context, def *models.RelationAttributeDefinition) error {
	if m.relTypes[def.RelationshipTypeID] == nil {
		return fmt.Errorf("relationship type %d: %w", def.RelationshipTypeID, apperrors.ErrUnknownType)
	}
	for _, existing := range m.relAttrDefs {
		if existing.RelationshipTypeID == def.RelationshipTypeID && existing.Key == def.Key {
			return fmt.Errorf("relation attribute key %q: %w", def.Key, apperrors.ErrDuplicateKey)
		}
	}
	def.ID = m.newID()
	m.relAttrDefs = append(m.relAttrDefs, def)
	return nil
}

func (m *mockTypeRepo) GetRelationAttributeDefinitions(ctx context.Context, relationshipTypeID int64) ([]*models.RelationAttributeDefinition, error) {
	var defs []*models.RelationAttributeDefinition
	for _, def := range m.relAttrDefs {
		if def.RelationshipTypeID == relationshipTypeID {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

var _ repositories.ModelTypeRepository = (*mockTypeRepo)(nil)

// mockModelRepo implements repositories.ModelRepository. It shares the type
// repo so trait and attribute lookups can join against definitions.
type mockModelRepo struct {
	typeRepo   *mockTypeRepo
	models     map[int64]*models.Model
	traits     []*models.TraitAssignment
	attributes []*models.Attribute
	embeddings map[int64]*models.Embedding
	nextID     int64
}

func newMockModelRepo(typeRepo *mockTypeRepo) *mockModelRepo {
	return &mockModelRepo{
		typeRepo:   typeRepo,
		models:     make(map[int64]*models.Model),
		embeddings: make(map[int64]*models.Embedding),
	}
}

func (m *mockModelRepo) newID() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockModelRepo) Create(ctx context.Context, model *models.Model) error {
	if m.typeRepo.types[model.ModelTypeID] == nil {
		return fmt.Errorf("model type %d: %w", model.ModelTypeID, apperrors.ErrUnknownType)
	}
	model.ID = m.newID()
	model.CreatedAt = time.Now()
	model.UpdatedAt = model.CreatedAt
	m.models[model.ID] = model
	return nil
}

func (m *mockModelRepo) GetByID(ctx context.Context, id int64) (*models.Model, error) {
	return m.models[id], nil
}

func (m *mockModelRepo) ListByType(ctx context.Context, modelTypeID int64) ([]*models.Model, error) {
	var result []*models.Model
	for _, model := range m.models {
		if model.ModelTypeID == modelTypeID {
			result = append(result, model)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockModelRepo) Update(ctx context.Context, model *models.Model) error {
	existing := m.models[model.ID]
	if existing == nil {
		return fmt.Errorf("model %d: %w", model.ID, apperrors.ErrNotFound)
	}
	existing.Title = model.Title
	existing.Body = model.Body
	existing.UpdatedAt = time.Now()
	model.CreatedAt = existing.CreatedAt
	model.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m *mockModelRepo) Touch(ctx context.Context, id int64) error {
	if existing := m.models[id]; existing != nil {
		existing.UpdatedAt = time.Now()
	}
	return nil
}

func (m *mockModelRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if m.models[id] == nil {
		return false, nil
	}
	delete(m.models, id)
	return true, nil
}

func (m *mockModelRepo) AssignTrait(ctx context.Context, ta *models.TraitAssignment) error {
	for _, existing := range m.traits {
		if existing.ModelID == ta.ModelID && existing.TraitTypeID == ta.TraitTypeID {
			return fmt.Errorf("model %d trait %d: %w", ta.ModelID, ta.TraitTypeID, apperrors.ErrDuplicateTraitAssignment)
		}
	}
	if m.models[ta.ModelID] == nil {
		return fmt.Errorf("trait assignment: %w", apperrors.ErrNotFound)
	}
	ta.ID = m.newID()
	ta.AppliedAt = time.Now()
	m.traits = append(m.traits, ta)
	return nil
}

func (m *mockModelRepo) GetTraitTypes(ctx context.Context, modelID int64) ([]*models.ModelType, error) {
	var result []*models.ModelType
	for _, ta := range m.traits {
		if ta.ModelID == modelID {
			if t := m.typeRepo.types[ta.TraitTypeID]; t != nil {
				result = append(result, t)
			}
		}
	}
	return result, nil
}

func (m *mockModelRepo) InsertAttribute(ctx context.Context, a *models.Attribute) error {
	for _, existing := range m.attributes {
		if existing.ModelID == a.ModelID &&
			existing.AttributeDefinitionID == a.AttributeDefinitionID &&
			existing.Value == a.Value {
			return fmt.Errorf("model %d attribute %d: %w", a.ModelID, a.AttributeDefinitionID, apperrors.ErrDuplicateValue)
		}
	}
	a.ID = m.newID()
	m.attributes = append(m.attributes, a)
	return nil
}

func (m *mockModelRepo) GetAttributeValues(ctx context.Context, modelID int64) ([]repositories.KeyedValue, error) {
	var values []repositories.KeyedValue
	for _, a := range m.attributes {
		if a.ModelID != modelID {
			continue
		}
		for _, def := range m.typeRepo.attrDefs {
			if def.ID == a.AttributeDefinitionID {
				values = append(values, repositories.KeyedValue{Key: def.Key, Value: a.Value})
				break
			}
		}
	}
	return values, nil
}

func (m *mockModelRepo) UpsertEmbedding(ctx context.Context, e *models.Embedding) error {
	if m.models[e.ModelID] == nil {
		return fmt.Errorf("model %d: %w", e.ModelID, apperrors.ErrNotFound)
	}
	m.embeddings[e.ModelID] = e
	return nil
}

func (m *mockModelRepo) GetEmbedding(ctx context.Context, modelID int64) (*models.Embedding, error) {
	return m.embeddings[modelID], nil
}

var _ repositories.ModelRepository = (*mockModelRepo)(nil)

// mockRelationRepo implements repositories.RelationRepository.
type mockRelationRepo struct {
	typeRepo      *mockTypeRepo
	relations     map[int64]*models.Relation
	attributes    []*models.RelationAttribute
	modelFullDocs map[int64]json.RawMessage
	nextID        int64
}

func newMockRelationRepo(typeRepo *mockTypeRepo) *mockRelationRepo {
	return &mockRelationRepo{
		typeRepo:      typeRepo,
		relations:     make(map[int64]*models.Relation),
		modelFullDocs: make(map[int64]json.RawMessage),
	}
}

func (m *mockRelationRepo) Create(ctx context.Context, rel *models.Relation) error {
	m.nextID++
	rel.ID = m.nextID
	rel.CreatedAt = time.Now()
	m.relations[rel.ID] = rel
	return nil
}

func (m *mockRelationRepo) GetByID(ctx context.Context, id int64) (*models.Relation, error) {
	return m.relations[id], nil
}

func (m *mockRelationRepo) ListByModel(ctx context.Context, modelID int64) ([]*models.Relation, error) {
	var result []*models.Relation
	for _, rel := range m.relations {
		if rel.FromID == modelID || rel.ToID == modelID {
			result = append(result, rel)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockRelationRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if m.relations[id] == nil {
		return false, nil
	}
	delete(m.relations, id)
	return true, nil
}

func (m *mockRelationRepo) InsertAttribute(ctx context.Context, a *models.RelationAttribute) error {
	for _, existing := range m.attributes {
		if existing.RelationID == a.RelationID &&
			existing.RelationAttributeDefinitionID == a.RelationAttributeDefinitionID &&
			existing.Value == a.Value {
			return fmt.Errorf("relation %d attribute %d: %w", a.RelationID, a.RelationAttributeDefinitionID, apperrors.ErrDuplicateValue)
		}
	}
	m.nextID++
	a.ID = m.nextID
	m.attributes = append(m.attributes, a)
	return nil
}

func (m *mockRelationRepo) GetAttributeValues(ctx context.Context, relationID int64) ([]repositories.KeyedValue, error) {
	var values []repositories.KeyedValue
	for _, a := range m.attributes {
		if a.RelationID != relationID {
			continue
		}
		for _, def := range m.typeRepo.relAttrDefs {
			if def.ID == a.RelationAttributeDefinitionID {
				values = append(values, repositories.KeyedValue{Key: def.Key, Value: a.Value})
				break
			}
		}
	}
	return values, nil
}

func (m *mockRelationRepo) GetModelFull(ctx context.Context, modelID int64) (json.RawMessage, error) {
	return m.modelFullDocs[modelID], nil
}

var _ repositories.RelationRepository = (*mockRelationRepo)(nil)
