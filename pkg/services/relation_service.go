package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/repositories"
)

// RelationService manages typed relations between models. Every relation
// instantiates a declared relationship type, and the endpoint models' base
// types must match the declaration exactly.
type RelationService interface {
	// CreateRelation links two models under the given relationship type.
	// Endpoint base types that do not match the declaration return
	// ErrEndpointTypeMismatch.
	CreateRelation(ctx context.Context, fromModelID, toModelID, relationshipTypeID int64) (*models.Relation, error)

	// LinkModels links two models by relation name, resolving the relationship
	// type whose declared endpoint types match the models' base types. No
	// declaration with that name returns ErrNotFound; declarations exist but
	// none match the endpoints returns ErrEndpointTypeMismatch.
	LinkModels(ctx context.Context, fromModelID, toModelID int64, relationName string) (*models.Relation, error)

	// GetRelation returns a relation by id, or ErrNotFound.
	GetRelation(ctx context.Context, id int64) (*models.Relation, error)

	// DeleteRelation removes a relation and its attribute values. The endpoint
	// models are untouched.
	DeleteRelation(ctx context.Context, id int64) error

	// SetRelationAttribute records a typed attribute value on a relation. The
	// key must be declared on the relation's relationship type.
	SetRelationAttribute(ctx context.Context, relationID int64, key string, raw any) (*models.RelationAttribute, error)
}

type relationService struct {
	db           TxScope
	typeRepo     repositories.ModelTypeRepository
	modelRepo    repositories.ModelRepository
	relationRepo repositories.RelationRepository
	logger       *zap.Logger
}

// NewRelationService creates a new RelationService.
func NewRelationService(
	db TxScope,
	typeRepo repositories.ModelTypeRepository,
	modelRepo repositories.ModelRepository,
	relationRepo repositories.RelationRepository,
	logger *zap.Logger,
) RelationService {
	return &relationService{
		db:           db,
		typeRepo:     typeRepo,
		modelRepo:    modelRepo,
		relationRepo: relationRepo,
		logger:       logger.Named("relation-service"),
	}
}

var _ RelationService = (*relationService)(nil)

func (s *relationService) CreateRelation(ctx context.Context, fromModelID, toModelID, relationshipTypeID int64) (*models.Relation, error) {
	rel := &models.Relation{
		FromID:             fromModelID,
		ToID:               toModelID,
		RelationshipTypeID: relationshipTypeID,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		rt, err := s.typeRepo.GetRelationshipTypeByID(ctx, relationshipTypeID)
		if err != nil {
			return fmt.Errorf("get relationship type: %w", err)
		}
		if rt == nil {
			return fmt.Errorf("relationship type %d: %w", relationshipTypeID, apperrors.ErrNotFound)
		}

		from, to, err := s.loadEndpoints(ctx, fromModelID, toModelID)
		if err != nil {
			return err
		}
		if from.ModelTypeID != rt.FromModelTypeID || to.ModelTypeID != rt.ToModelTypeID {
			return fmt.Errorf("relation %q declared (%d -> %d), endpoints are (%d -> %d): %w",
				rt.RelationName, rt.FromModelTypeID, rt.ToModelTypeID,
				from.ModelTypeID, to.ModelTypeID, apperrors.ErrEndpointTypeMismatch)
		}

		return s.relationRepo.Create(ctx, rel)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created relation",
		zap.Int64("relation_id", rel.ID),
		zap.Int64("from_model_id", fromModelID),
		zap.Int64("to_model_id", toModelID),
		zap.Int64("relationship_type_id", relationshipTypeID))

	return rel, nil
}

func (s *relationService) LinkModels(ctx context.Context, fromModelID, toModelID int64, relationName string) (*models.Relation, error) {
	rel := &models.Relation{FromID: fromModelID, ToID: toModelID}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		candidates, err := s.typeRepo.ListRelationshipTypesByName(ctx, relationName)
		if err != nil {
			return fmt.Errorf("list relationship types: %w", err)
		}
		if len(candidates) == 0 {
			return fmt.Errorf("relationship type %q: %w", relationName, apperrors.ErrNotFound)
		}

		from, to, err := s.loadEndpoints(ctx, fromModelID, toModelID)
		if err != nil {
			return err
		}

		for _, rt := range candidates {
			if from.ModelTypeID == rt.FromModelTypeID && to.ModelTypeID == rt.ToModelTypeID {
				rel.RelationshipTypeID = rt.ID
				return s.relationRepo.Create(ctx, rel)
			}
		}

		return fmt.Errorf("relation %q has no declaration for endpoint types (%d -> %d): %w",
			relationName, from.ModelTypeID, to.ModelTypeID, apperrors.ErrEndpointTypeMismatch)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Linked models",
		zap.Int64("relation_id", rel.ID),
		zap.Int64("from_model_id", fromModelID),
		zap.Int64("to_model_id", toModelID),
		zap.String("relation_name", relationName))

	return rel, nil
}

func (s *relationService) GetRelation(ctx context.Context, id int64) (*models.Relation, error) {
	rel, err := s.relationRepo.GetByID(s.db.Scope(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get relation: %w", err)
	}
	if rel == nil {
		return nil, fmt.Errorf("relation %d: %w", id, apperrors.ErrNotFound)
	}
	return rel, nil
}

func (s *relationService) DeleteRelation(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		deleted, err := s.relationRepo.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete relation: %w", err)
		}
		if !deleted {
			return fmt.Errorf("relation %d: %w", id, apperrors.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Deleted relation", zap.Int64("relation_id", id))
	return nil
}

func (s *relationService) SetRelationAttribute(ctx context.Context, relationID int64, key string, raw any) (*models.RelationAttribute, error) {
	var attr *models.RelationAttribute

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		rel, err := s.relationRepo.GetByID(ctx, relationID)
		if err != nil {
			return fmt.Errorf("get relation: %w", err)
		}
		if rel == nil {
			return fmt.Errorf("relation %d: %w", relationID, apperrors.ErrNotFound)
		}

		defs, err := s.typeRepo.GetRelationAttributeDefinitions(ctx, rel.RelationshipTypeID)
		if err != nil {
			return fmt.Errorf("get relation attribute definitions: %w", err)
		}

		var def *models.RelationAttributeDefinition
		for _, d := range defs {
			if d.Key == key {
				def = d
				break
			}
		}
		if def == nil {
			return fmt.Errorf("relation attribute %q on relation %d: %w", key, relationID, apperrors.ErrUnknownAttributeKey)
		}

		value, err := models.CoerceValue(def.ValueType, raw)
		if err != nil {
			return fmt.Errorf("relation attribute %q: %w", key, err)
		}

		attr = &models.RelationAttribute{
			RelationID:                    relationID,
			RelationAttributeDefinitionID: def.ID,
			Value:                         value,
		}
		return s.relationRepo.InsertAttribute(ctx, attr)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Set relation attribute",
		zap.Int64("relation_id", relationID),
		zap.String("key", key))

	return attr, nil
}

func (s *relationService) loadEndpoints(ctx context.Context, fromModelID, toModelID int64) (*models.Model, *models.Model, error) {
	from, err := s.modelRepo.GetByID(ctx, fromModelID)
	if err != nil {
		return nil, nil, fmt.Errorf("get from model: %w", err)
	}
	if from == nil {
		return nil, nil, fmt.Errorf("model %d: %w", fromModelID, apperrors.ErrNotFound)
	}

	to, err := s.modelRepo.GetByID(ctx, toModelID)
	if err != nil {
		return nil, nil, fmt.Errorf("get to model: %w", err)
	}
	if to == nil {
		return nil, nil, fmt.Errorf("model %d: %w", toModelID, apperrors.ErrNotFound)
	}

	return from, to, nil
}
