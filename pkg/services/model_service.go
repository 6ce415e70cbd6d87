package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/repositories"
)

// ModelService manages model lifecycle: creation under a base type, trait
// assignment, typed attribute writes, and embeddings. Every write runs in a
// single transaction so validation failures never leave partial state.
type ModelService interface {
	// CreateModel creates a model under the given base type. A trait type id
	// returns ErrInvalidBaseType; an unknown id returns ErrUnknownType.
	CreateModel(ctx context.Context, modelTypeID int64, title string, body *string) (*models.Model, error)

	// GetModel returns a model by id, or ErrNotFound.
	GetModel(ctx context.Context, id int64) (*models.Model, error)

	// ListModelsByType returns all models of the given base type in creation
	// order.
	ListModelsByType(ctx context.Context, modelTypeID int64) ([]*models.Model, error)

	// UpdateModel replaces a model's title and body and refreshes updated_at.
	UpdateModel(ctx context.Context, id int64, title string, body *string) (*models.Model, error)

	// DeleteModel removes a model and everything hanging off it: trait
	// assignments, attribute values, the embedding, and relations in both
	// directions. Returns ErrNotFound for an unknown id.
	DeleteModel(ctx context.Context, id int64) error

	// AssignTrait additively attaches a trait type to a model. A base type id
	// returns ErrInvalidTraitType; re-assignment returns
	// ErrDuplicateTraitAssignment.
	AssignTrait(ctx context.Context, modelID, traitTypeID int64) (*models.TraitAssignment, error)

	// SetAttribute records a typed attribute value for a model. The key must
	// be declared on the model's base type or one of its assigned traits
	// (ErrUnknownAttributeKey otherwise), and the value must coerce to the
	// declared type (ErrTypeMismatch). The identical value for the same key
	// returns ErrDuplicateValue; a different value for the same key is stored
	// alongside the existing ones.
	SetAttribute(ctx context.Context, modelID int64, key string, raw any) (*models.Attribute, error)

	// SetEmbedding stores or replaces the model's embedding payload.
	SetEmbedding(ctx context.Context, modelID int64, embedding string) error
}

type modelService struct {
	db        TxScope
	typeRepo  repositories.ModelTypeRepository
	modelRepo repositories.ModelRepository
	logger    *zap.Logger
}

// NewModelService creates a new ModelService.
func NewModelService(
	db TxScope,
	typeRepo repositories.ModelTypeRepository,
	modelRepo repositories.ModelRepository,
	logger *zap.Logger,
) ModelService {
	return &modelService{
		db:        db,
		typeRepo:  typeRepo,
		modelRepo: modelRepo,
		logger:    logger.Named("model-service"),
	}
}

var _ ModelService = (*modelService)(nil)

func (s *modelService) CreateModel(ctx context.Context, modelTypeID int64, title string, body *string) (*models.Model, error) {
	if title == "" {
		return nil, fmt.Errorf("model title must not be empty")
	}

	m := &models.Model{
		ModelTypeID: modelTypeID,
		Title:       title,
		Body:        body,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.typeRepo.GetTypeByID(ctx, modelTypeID)
		if err != nil {
			return fmt.Errorf("get model type: %w", err)
		}
		if t == nil {
			return fmt.Errorf("model type %d: %w", modelTypeID, apperrors.ErrUnknownType)
		}
		if !t.IsBase() {
			return fmt.Errorf("type %q is a trait, not a base type: %w", t.Name, apperrors.ErrInvalidBaseType)
		}
		return s.modelRepo.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created model",
		zap.Int64("model_id", m.ID),
		zap.Int64("model_type_id", modelTypeID),
		zap.String("title", title))

	return m, nil
}

func (s *modelService) GetModel(ctx context.Context, id int64) (*models.Model, error) {
	m, err := s.modelRepo.GetByID(s.db.Scope(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("model %d: %w", id, apperrors.ErrNotFound)
	}
	return m, nil
}

func (s *modelService) ListModelsByType(ctx context.Context, modelTypeID int64) ([]*models.Model, error) {
	result, err := s.modelRepo.ListByType(s.db.Scope(ctx), modelTypeID)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return result, nil
}

func (s *modelService) UpdateModel(ctx context.Context, id int64, title string, body *string) (*models.Model, error) {
	if title == "" {
		return nil, fmt.Errorf("model title must not be empty")
	}

	m := &models.Model{ID: id, Title: title, Body: body}
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		return s.modelRepo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (s *modelService) DeleteModel(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		deleted, err := s.modelRepo.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete model: %w", err)
		}
		if !deleted {
			return fmt.Errorf("model %d: %w", id, apperrors.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Deleted model", zap.Int64("model_id", id))
	return nil
}

func (s *modelService) AssignTrait(ctx context.Context, modelID, traitTypeID int64) (*models.TraitAssignment, error) {
	ta := &models.TraitAssignment{ModelID: modelID, TraitTypeID: traitTypeID}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.typeRepo.GetTypeByID(ctx, traitTypeID)
		if err != nil {
			return fmt.Errorf("get trait type: %w", err)
		}
		if t == nil {
			return fmt.Errorf("trait type %d: %w", traitTypeID, apperrors.ErrUnknownType)
		}
		if !t.IsTrait() {
			return fmt.Errorf("type %q is a base type, not a trait: %w", t.Name, apperrors.ErrInvalidTraitType)
		}
		return s.modelRepo.AssignTrait(ctx, ta)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assigned trait",
		zap.Int64("model_id", modelID),
		zap.Int64("trait_type_id", traitTypeID))

	return ta, nil
}

func (s *modelService) SetAttribute(ctx context.Context, modelID int64, key string, raw any) (*models.Attribute, error) {
	var attr *models.Attribute

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		m, err := s.modelRepo.GetByID(ctx, modelID)
		if err != nil {
			return fmt.Errorf("get model: %w", err)
		}
		if m == nil {
			return fmt.Errorf("model %d: %w", modelID, apperrors.ErrNotFound)
		}

		def, err := s.resolveAttributeKey(ctx, m, key)
		if err != nil {
			return err
		}

		value, err := models.CoerceValue(def.ValueType, raw)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}

		attr = &models.Attribute{
			ModelID:               modelID,
			AttributeDefinitionID: def.ID,
			Value:                 value,
		}
		if err := s.modelRepo.InsertAttribute(ctx, attr); err != nil {
			return err
		}

		return s.modelRepo.Touch(ctx, modelID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Set attribute",
		zap.Int64("model_id", modelID),
		zap.String("key", key))

	return attr, nil
}

// resolveAttributeKey finds the definition for key across the model's base
// type and assigned traits. The base type's definition wins if a trait
// declares the same key.
func (s *modelService) resolveAttributeKey(ctx context.Context, m *models.Model, key string) (*models.AttributeDefinition, error) {
	typeIDs := []int64{m.ModelTypeID}
	traits, err := s.modelRepo.GetTraitTypes(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("get trait types: %w", err)
	}
	for _, t := range traits {
		typeIDs = append(typeIDs, t.ID)
	}

	defs, err := s.typeRepo.GetAttributeDefinitionsByTypes(ctx, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("get attribute definitions: %w", err)
	}

	var fallback *models.AttributeDefinition
	for _, def := range defs {
		if def.Key != key {
			continue
		}
		if def.ModelTypeID == m.ModelTypeID {
			return def, nil
		}
		if fallback == nil {
			fallback = def
		}
	}
	if fallback != nil {
		return fallback, nil
	}

	return nil, fmt.Errorf("attribute %q on model %d: %w", key, m.ID, apperrors.ErrUnknownAttributeKey)
}

func (s *modelService) SetEmbedding(ctx context.Context, modelID int64, embedding string) error {
	e := &models.Embedding{ModelID: modelID, Embedding: embedding}
	return s.db.WithTx(ctx, func(ctx context.Context) error {
		return s.modelRepo.UpsertEmbedding(ctx, e)
	})
}
