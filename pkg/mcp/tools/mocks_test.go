package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/services"
)

// mockRegistryService implements services.RegistryService backed by maps.
type mockRegistryService struct {
	types    map[int64]*models.ModelType
	relTypes map[int64]*models.RelationshipType
	attrDefs []*models.AttributeDefinition
	nextID   int64
}

func newMockRegistryService() *mockRegistryService {
	return &mockRegistryService{
		types:    make(map[int64]*models.ModelType),
		relTypes: make(map[int64]*models.RelationshipType),
	}
}

func (m *mockRegistryService) DefineType(ctx context.Context, name, typeKind string, parentID *int64, description *string) (*models.ModelType, error) {
	for _, t := range m.types {
		if t.Name == name {
			return nil, fmt.Errorf("model type %q: %w", name, apperrors.ErrDuplicateName)
		}
	}
	m.nextID++
	t := &models.ModelType{ID: m.nextID, Name: name, TypeKind: typeKind, ParentID: parentID, Description: description}
	m.types[t.ID] = t
	return t, nil
}

func (m *mockRegistryService) GetType(ctx context.Context, id int64) (*models.ModelType, error) {
	if t := m.types[id]; t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("type %d: %w", id, apperrors.ErrUnknownType)
}

func (m *mockRegistryService) GetTypeByName(ctx context.Context, name string) (*models.ModelType, error) {
	for _, t := range m.types {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("type %q: %w", name, apperrors.ErrUnknownType)
}

func (m *mockRegistryService) DefineAttribute(ctx context.Context, modelTypeID int64, key string, valueType models.ValueType, required bool, constraints map[string]any) (*models.AttributeDefinition, error) {
	m.nextID++
	def := &models.AttributeDefinition{ID: m.nextID, ModelTypeID: modelTypeID, Key: key, ValueType: valueType, Required: required}
	m.attrDefs = append(m.attrDefs, def)
	return def, nil
}

func (m *mockRegistryService) DefineRelationshipType(ctx context.Context, fromTypeID, toTypeID int64, relationName string, description *string) (*models.RelationshipType, error) {
	m.nextID++
	rt := &models.RelationshipType{
		ID:              m.nextID,
		FromModelTypeID: fromTypeID,
		ToModelTypeID:   toTypeID,
		RelationName:    relationName,
		Multiplicity:    models.MultiplicityMany,
		Description:     description,
	}
	m.relTypes[rt.ID] = rt
	return rt, nil
}

func (m *mockRegistryService) GetRelationshipType(ctx context.Context, id int64) (*models.RelationshipType, error) {
	if rt := m.relTypes[id]; rt != nil {
		return rt, nil
	}
	return nil, fmt.Errorf("relationship type %d: %w", id, apperrors.ErrNotFound)
}

func (m *mockRegistryService) ListRelationshipTypesByName(ctx context.Context, relationName string) ([]*models.RelationshipType, error) {
	var result []*models.RelationshipType
	for _, rt := range m.relTypes {
		if rt.RelationName == relationName {
			result = append(result, rt)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("relationship type %q: %w", relationName, apperrors.ErrNotFound)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockRegistryService) ListAttributeDefinitions(ctx context.Context, modelTypeID int64) ([]*models.AttributeDefinition, error) {
	if m.types[modelTypeID] == nil {
		return nil, fmt.Errorf("type %d: %w", modelTypeID, apperrors.ErrUnknownType)
	}
	var defs []*models.AttributeDefinition
	for _, def := range m.attrDefs {
		if def.ModelTypeID == modelTypeID {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func (m *mockRegistryService) DefineRelationAttribute(ctx context.Context, relationshipTypeID int64, key string, valueType models.ValueType, required bool) (*models.RelationAttributeDefinition, error) {
	m.nextID++
	return &models.RelationAttributeDefinition{ID: m.nextID, RelationshipTypeID: relationshipTypeID, Key: key, ValueType: valueType, Required: required}, nil
}

var _ services.RegistryService = (*mockRegistryService)(nil)

// mockModelService implements services.ModelService. Attribute keys are
// validated against a flat key -> value type map.
type mockModelService struct {
	registry *mockRegistryService
	models   map[int64]*models.Model
	attrKeys map[string]models.ValueType
	nextID   int64
}

func newMockModelService(registry *mockRegistryService) *mockModelService {
	return &mockModelService{
		registry: registry,
		models:   make(map[int64]*models.Model),
		attrKeys: make(map[string]models.ValueType),
	}
}

func (m *mockModelService) CreateModel(ctx context.Context, modelTypeID int64, title string, body *string) (*models.Model, error) {
	t := m.registry.types[modelTypeID]
	if t == nil {
		return nil, fmt.Errorf("model type %d: %w", modelTypeID, apperrors.ErrUnknownType)
	}
	if !t.IsBase() {
		return nil, fmt.Errorf("type %q: %w", t.Name, apperrors.ErrInvalidBaseType)
	}
	m.nextID++
	now := time.Now()
	model := &models.Model{ID: m.nextID, ModelTypeID: modelTypeID, Title: title, Body: body, CreatedAt: now, UpdatedAt: now}
	m.models[model.ID] = model
	return model, nil
}

func (m *mockModelService) GetModel(ctx context.Context, id int64) (*models.Model, error) {
	if model := m.models[id]; model != nil {
		return model, nil
	}
	return nil, fmt.Errorf("model %d: %w", id, apperrors.ErrNotFound)
}

func (m *mockModelService) ListModelsByType(ctx context.Context, modelTypeID int64) ([]*models.Model, error) {
	var result []*models.Model
	for _, model := range m.models {
		if model.ModelTypeID == modelTypeID {
			result = append(result, model)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockModelService) UpdateModel(ctx context.Context, id int64, title string, body *string) (*models.Model, error) {
	model, err := m.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}
	model.Title = title
	model.Body = body
	return model, nil
}

func (m *mockModelService) DeleteModel(ctx context.Context, id int64) error {
	if m.models[id] == nil {
		return fmt.Errorf("model %d: %w", id, apperrors.ErrNotFound)
	}
	delete(m.models, id)
	return nil
}

func (m *mockModelService) AssignTrait(ctx context.Context, modelID, traitTypeID int64) (*models.TraitAssignment, error) {
	t := m.registry.types[traitTypeID]
	if t == nil {
		return nil, fmt.Errorf("trait type %d: %w", traitTypeID, apperrors.ErrUnknownType)
	}
	if !t.IsTrait() {
		return nil, fmt.Errorf("type %q: %w", t.Name, apperrors.ErrInvalidTraitType)
	}
	m.nextID++
	return &models.TraitAssignment{ID: m.nextID, ModelID: modelID, TraitTypeID: traitTypeID, AppliedAt: time.Now()}, nil
}

func (m *mockModelService) SetAttribute(ctx context.Context, modelID int64, key string, raw any) (*models.Attribute, error) {
	if _, err := m.GetModel(ctx, modelID); err != nil {
		return nil, err
	}
	declared, ok := m.attrKeys[key]
	if !ok {
		return nil, fmt.Errorf("attribute %q: %w", key, apperrors.ErrUnknownAttributeKey)
	}
	value, err := models.CoerceValue(declared, raw)
	if err != nil {
		return nil, err
	}
	m.nextID++
	return &models.Attribute{ID: m.nextID, ModelID: modelID, Value: value}, nil
}

func (m *mockModelService) SetEmbedding(ctx context.Context, modelID int64, embedding string) error {
	_, err := m.GetModel(ctx, modelID)
	return err
}

var _ services.ModelService = (*mockModelService)(nil)

// mockRelationService implements services.RelationService.
type mockRelationService struct {
	relations     map[int64]*models.Relation
	relationNames map[string]int64 // relation name -> relationship type id
	nextID        int64
}

func newMockRelationService() *mockRelationService {
	return &mockRelationService{
		relations:     make(map[int64]*models.Relation),
		relationNames: make(map[string]int64),
	}
}

func (m *mockRelationService) CreateRelation(ctx context.Context, fromModelID, toModelID, relationshipTypeID int64) (*models.Relation, error) {
	m.nextID++
	rel := &models.Relation{ID: m.nextID, FromID: fromModelID, ToID: toModelID, RelationshipTypeID: relationshipTypeID, CreatedAt: time.Now()}
	m.relations[rel.ID] = rel
	return rel, nil
}

func (m *mockRelationService) LinkModels(ctx context.Context, fromModelID, toModelID int64, relationName string) (*models.Relation, error) {
	rtID, ok := m.relationNames[relationName]
	if !ok {
		return nil, fmt.Errorf("relationship type %q: %w", relationName, apperrors.ErrNotFound)
	}
	return m.CreateRelation(ctx, fromModelID, toModelID, rtID)
}

func (m *mockRelationService) GetRelation(ctx context.Context, id int64) (*models.Relation, error) {
	if rel := m.relations[id]; rel != nil {
		return rel, nil
	}
	return nil, fmt.Errorf("relation %d: %w", id, apperrors.ErrNotFound)
}

func (m *mockRelationService) DeleteRelation(ctx context.Context, id int64) error {
	if m.relations[id] == nil {
		return fmt.Errorf("relation %d: %w", id, apperrors.ErrNotFound)
	}
	delete(m.relations, id)
	return nil
}

func (m *mockRelationService) SetRelationAttribute(ctx context.Context, relationID int64, key string, raw any) (*models.RelationAttribute, error) {
	if _, err := m.GetRelation(ctx, relationID); err != nil {
		return nil, err
	}
	m.nextID++
	return &models.RelationAttribute{ID: m.nextID, RelationID: relationID}, nil
}

var _ services.RelationService = (*mockRelationService)(nil)

// mockMaterializerService serves canned documents by model id.
type mockMaterializerService struct {
	docs map[int64]map[string]any
}

func newMockMaterializerService() *mockMaterializerService {
	return &mockMaterializerService{docs: make(map[int64]map[string]any)}
}

func (m *mockMaterializerService) Materialize(ctx context.Context, modelID int64) (*models.MaterializedModel, error) {
	return nil, fmt.Errorf("model %d: %w", modelID, apperrors.ErrNotFound)
}

func (m *mockMaterializerService) MaterializeDocument(ctx context.Context, modelID int64) (map[string]any, error) {
	if doc := m.docs[modelID]; doc != nil {
		return doc, nil
	}
	return nil, fmt.Errorf("model %d: %w", modelID, apperrors.ErrNotFound)
}

func (m *mockMaterializerService) MaterializeViaFunction(ctx context.Context, modelID int64) (map[string]any, error) {
	return m.MaterializeDocument(ctx, modelID)
}

var _ services.MaterializerService = (*mockMaterializerService)(nil)
