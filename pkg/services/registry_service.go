package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/repositories"
)

// RegistryService manages the type registry: model types (base and trait),
// attribute definitions, relationship types, and relation attribute
// definitions. The registry is append-mostly; definitions are never updated
// or deleted through this surface.
type RegistryService interface {
	// DefineType registers a new base or trait type. Names are unique across
	// both kinds; a duplicate name returns ErrDuplicateName.
	DefineType(ctx context.Context, name, typeKind string, parentID *int64, description *string) (*models.ModelType, error)

	// GetType returns a type by id, or ErrUnknownType.
	GetType(ctx context.Context, id int64) (*models.ModelType, error)

	// GetTypeByName returns a type by its unique name, or ErrUnknownType.
	GetTypeByName(ctx context.Context, name string) (*models.ModelType, error)

	// DefineAttribute declares an attribute key for a model type. Duplicate
	// keys within the type return ErrDuplicateKey.
	DefineAttribute(ctx context.Context, modelTypeID int64, key string, valueType models.ValueType, required bool, constraints map[string]any) (*models.AttributeDefinition, error)

	// DefineRelationshipType registers a directed relation template between
	// two base types. The (from, to, name) triple is unique.
	DefineRelationshipType(ctx context.Context, fromTypeID, toTypeID int64, relationName string, description *string) (*models.RelationshipType, error)

	// GetRelationshipType returns a relationship type by id, or ErrNotFound.
	GetRelationshipType(ctx context.Context, id int64) (*models.RelationshipType, error)

	// ListRelationshipTypesByName returns every relationship type declared
	// under the given relation name. Names are only unique per endpoint pair,
	// so several declarations may share one. An empty name returns ErrNotFound.
	ListRelationshipTypesByName(ctx context.Context, relationName string) ([]*models.RelationshipType, error)

	// ListAttributeDefinitions returns the attribute keys declared on a model
	// type, or ErrUnknownType when the type does not exist.
	ListAttributeDefinitions(ctx context.Context, modelTypeID int64) ([]*models.AttributeDefinition, error)

	// DefineRelationAttribute declares an attribute key for a relationship
	// type.
	DefineRelationAttribute(ctx context.Context, relationshipTypeID int64, key string, valueType models.ValueType, required bool) (*models.RelationAttributeDefinition, error)
}

type registryService struct {
	db       TxScope
	typeRepo repositories.ModelTypeRepository
	logger   *zap.Logger
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(db TxScope, typeRepo repositories.ModelTypeRepository, logger *zap.Logger) RegistryService {
	return &registryService{
		db:       db,
		typeRepo: typeRepo,
		logger:   logger.Named("registry-service"),
	}
}

var _ RegistryService = (*registryService)(nil)

func (s *registryService) DefineType(ctx context.Context, name, typeKind string, parentID *int64, description *string) (*models.ModelType, error) {
	if typeKind != models.TypeKindBase && typeKind != models.TypeKindTrait {
		return nil, fmt.Errorf("type kind must be %q or %q, got %q", models.TypeKindBase, models.TypeKindTrait, typeKind)
	}
	if name == "" {
		return nil, fmt.Errorf("type name must not be empty")
	}

	t := &models.ModelType{
		Name:        name,
		ParentID:    parentID,
		TypeKind:    typeKind,
		Description: description,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		if parentID != nil {
			parent, err := s.typeRepo.GetTypeByID(ctx, *parentID)
			if err != nil {
				return fmt.Errorf("get parent type: %w", err)
			}
			if parent == nil {
				return fmt.Errorf("parent type %d: %w", *parentID, apperrors.ErrUnknownType)
			}
		}
		return s.typeRepo.CreateType(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Defined model type",
		zap.Int64("type_id", t.ID),
		zap.String("name", t.Name),
		zap.String("kind", t.TypeKind))

	return t, nil
}

func (s *registryService) GetType(ctx context.Context, id int64) (*models.ModelType, error) {
	t, err := s.typeRepo.GetTypeByID(s.db.Scope(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get type: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("type %d: %w", id, apperrors.ErrUnknownType)
	}
	return t, nil
}

func (s *registryService) GetTypeByName(ctx context.Context, name string) (*models.ModelType, error) {
	t, err := s.typeRepo.GetTypeByName(s.db.Scope(ctx), name)
	if err != nil {
		return nil, fmt.Errorf("get type by name: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("type %q: %w", name, apperrors.ErrUnknownType)
	}
	return t, nil
}

func (s *registryService) DefineAttribute(ctx context.Context, modelTypeID int64, key string, valueType models.ValueType, required bool, constraints map[string]any) (*models.AttributeDefinition, error) {
	if key == "" {
		return nil, fmt.Errorf("attribute key must not be empty")
	}
	if !valueType.Valid() {
		return nil, fmt.Errorf("value type %q: %w", valueType, apperrors.ErrTypeMismatch)
	}

	def := &models.AttributeDefinition{
		ModelTypeID: modelTypeID,
		Key:         key,
		ValueType:   valueType,
		Required:    required,
		Constraints: constraints,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		return s.typeRepo.CreateAttributeDefinition(ctx, def)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Defined attribute",
		zap.Int64("type_id", modelTypeID),
		zap.String("key", key),
		zap.String("value_type", string(valueType)))

	return def, nil
}

func (s *registryService) DefineRelationshipType(ctx context.Context, fromTypeID, toTypeID int64, relationName string, description *string) (*models.RelationshipType, error) {
	if relationName == "" {
		return nil, fmt.Errorf("relation name must not be empty")
	}

	rt := &models.RelationshipType{
		FromModelTypeID: fromTypeID,
		ToModelTypeID:   toTypeID,
		RelationName:    relationName,
		Multiplicity:    models.MultiplicityMany,
		Description:     description,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		for _, typeID := range []int64{fromTypeID, toTypeID} {
			t, err := s.typeRepo.GetTypeByID(ctx, typeID)
			if err != nil {
				return fmt.Errorf("get endpoint type: %w", err)
			}
			if t == nil {
				return fmt.Errorf("endpoint type %d: %w", typeID, apperrors.ErrUnknownType)
			}
			if !t.IsBase() {
				return fmt.Errorf("endpoint type %q is not a base type: %w", t.Name, apperrors.ErrInvalidBaseType)
			}
		}
		return s.typeRepo.CreateRelationshipType(ctx, rt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Defined relationship type",
		zap.Int64("relationship_type_id", rt.ID),
		zap.String("relation_name", relationName),
		zap.Int64("from_type_id", fromTypeID),
		zap.Int64("to_type_id", toTypeID))

	return rt, nil
}

func (s *registryService) GetRelationshipType(ctx context.Context, id int64) (*models.RelationshipType, error) {
	rt, err := s.typeRepo.GetRelationshipTypeByID(s.db.Scope(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get relationship type: %w", err)
	}
	if rt == nil {
		return nil, fmt.Errorf("relationship type %d: %w", id, apperrors.ErrNotFound)
	}
	return rt, nil
}

func (s *registryService) ListRelationshipTypesByName(ctx context.Context, relationName string) ([]*models.RelationshipType, error) {
	rts, err := s.typeRepo.ListRelationshipTypesByName(s.db.Scope(ctx), relationName)
	if err != nil {
		return nil, fmt.Errorf("list relationship types: %w", err)
	}
	if len(rts) == 0 {
		return nil, fmt.Errorf("relationship type %q: %w", relationName, apperrors.ErrNotFound)
	}
	return rts, nil
}

func (s *registryService) ListAttributeDefinitions(ctx context.Context, modelTypeID int64) ([]*models.AttributeDefinition, error) {
	ctx = s.db.Scope(ctx)

	t, err := s.typeRepo.GetTypeByID(ctx, modelTypeID)
	if err != nil {
		return nil, fmt.Errorf("get type: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("type %d: %w", modelTypeID, apperrors.ErrUnknownType)
	}

	defs, err := s.typeRepo.GetAttributeDefinitionsByTypes(ctx, []int64{modelTypeID})
	if err != nil {
		return nil, fmt.Errorf("list attribute definitions: %w", err)
	}
	return defs, nil
}

func (s *registryService) DefineRelationAttribute(ctx context.Context, relationshipTypeID int64, key string, valueType models.ValueType, required bool) (*models.RelationAttributeDefinition, error) {
	if key == "" {
		return nil, fmt.Errorf("relation attribute key must not be empty")
	}
	if !valueType.Valid() {
		return nil, fmt.Errorf("value type %q: %w", valueType, apperrors.ErrTypeMismatch)
	}

	def := &models.RelationAttributeDefinition{
		RelationshipTypeID: relationshipTypeID,
		Key:                key,
		ValueType:          valueType,
		Required:           required,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		return s.typeRepo.CreateRelationAttributeDefinition(ctx, def)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Defined relation attribute",
		zap.Int64("relationship_type_id", relationshipTypeID),
		zap.String("key", key),
		zap.String("value_type", string(valueType)))

	return def, nil
}
