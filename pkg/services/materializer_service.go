package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/repositories"
	"github.com/pkmgraph/pkm-engine/pkg/standardize"
)

// MaterializerService assembles the complete one-hop view of a model: its
// type composition, flattened attributes, and relationship neighborhood.
// Materialization runs in a read-only transaction so the result is a single
// consistent snapshot, never assembled across concurrent commits.
type MaterializerService interface {
	// Materialize walks the graph in-process and returns the typed one-hop
	// view. Returns ErrNotFound for an unknown model.
	Materialize(ctx context.Context, modelID int64) (*models.MaterializedModel, error)

	// MaterializeDocument returns the standardized canonical document for the
	// model, the form handed to external consumers.
	MaterializeDocument(ctx context.Context, modelID int64) (map[string]any, error)

	// MaterializeViaFunction produces the same canonical document through the
	// server-side get_model_full function, then standardizes it. The two paths
	// must agree; the function path trades round trips for one database call.
	MaterializeViaFunction(ctx context.Context, modelID int64) (map[string]any, error)
}

type materializerService struct {
	db           TxScope
	typeRepo     repositories.ModelTypeRepository
	modelRepo    repositories.ModelRepository
	relationRepo repositories.RelationRepository
	standardizer *standardize.Standardizer
	logger       *zap.Logger
}

// NewMaterializerService creates a new MaterializerService.
func NewMaterializerService(
	db TxScope,
	typeRepo repositories.ModelTypeRepository,
	modelRepo repositories.ModelRepository,
	relationRepo repositories.RelationRepository,
	standardizer *standardize.Standardizer,
	logger *zap.Logger,
) MaterializerService {
	return &materializerService{
		db:           db,
		typeRepo:     typeRepo,
		modelRepo:    modelRepo,
		relationRepo: relationRepo,
		standardizer: standardizer,
		logger:       logger.Named("materializer-service"),
	}
}

var _ MaterializerService = (*materializerService)(nil)

func (s *materializerService) Materialize(ctx context.Context, modelID int64) (*models.MaterializedModel, error) {
	var result *models.MaterializedModel

	err := s.db.WithReadTx(ctx, func(ctx context.Context) error {
		m, err := s.modelRepo.GetByID(ctx, modelID)
		if err != nil {
			return fmt.Errorf("get model: %w", err)
		}
		if m == nil {
			return fmt.Errorf("model %d: %w", modelID, apperrors.ErrNotFound)
		}

		view, err := s.buildModelView(ctx, m)
		if err != nil {
			return err
		}

		attributes, err := s.flattenModelAttributes(ctx, modelID)
		if err != nil {
			return err
		}

		relations, err := s.buildRelations(ctx, modelID)
		if err != nil {
			return err
		}

		result = &models.MaterializedModel{
			Model:      *view,
			Attributes: attributes,
			Relations:  relations,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *materializerService) MaterializeDocument(ctx context.Context, modelID int64) (map[string]any, error) {
	materialized, err := s.Materialize(ctx, modelID)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so both materialization paths feed the
	// standardizer the same representation.
	raw, err := json.Marshal(materialized)
	if err != nil {
		return nil, fmt.Errorf("encode materialized model: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode materialized model: %w", err)
	}

	return s.standardizer.Standardize(standardize.ShapeModelFull, doc), nil
}

func (s *materializerService) MaterializeViaFunction(ctx context.Context, modelID int64) (map[string]any, error) {
	raw, err := s.relationRepo.GetModelFull(s.db.Scope(ctx), modelID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("model %d: %w", modelID, apperrors.ErrNotFound)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("get_model_full returned malformed JSON, standardizing empty document",
			zap.Int64("model_id", modelID),
			zap.Error(err))
		doc = nil
	}

	return s.standardizer.Standardize(standardize.ShapeModelFull, doc), nil
}

// buildModelView assembles a model's core fields plus its type composition.
func (s *materializerService) buildModelView(ctx context.Context, m *models.Model) (*models.ModelView, error) {
	base, err := s.typeRepo.GetTypeByID(ctx, m.ModelTypeID)
	if err != nil {
		return nil, fmt.Errorf("get base type: %w", err)
	}
	if base == nil {
		return nil, fmt.Errorf("model type %d: %w", m.ModelTypeID, apperrors.ErrUnknownType)
	}

	traits, err := s.modelRepo.GetTraitTypes(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("get trait types: %w", err)
	}

	composition := models.TypeComposition{
		BaseModel: typeRef(base),
		Traits:    make([]models.TypeRef, 0, len(traits)),
	}
	for _, t := range traits {
		composition.Traits = append(composition.Traits, typeRef(t))
	}

	return &models.ModelView{
		ID:        m.ID,
		Title:     m.Title,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		ModelType: composition,
	}, nil
}

// flattenModelAttributes collapses the model's attribute values into a
// key/value mapping. Values arrive in insertion order, so for a key holding
// several values the most recently inserted one wins.
func (s *materializerService) flattenModelAttributes(ctx context.Context, modelID int64) (map[string]any, error) {
	values, err := s.modelRepo.GetAttributeValues(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("get attribute values: %w", err)
	}
	return flattenKeyedValues(values), nil
}

// buildRelations expands the one-hop neighborhood. A self-loop yields two
// entries, one per direction, matching the server-side function.
func (s *materializerService) buildRelations(ctx context.Context, modelID int64) ([]models.RelationView, error) {
	relations, err := s.relationRepo.ListByModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}

	relationshipTypes := map[int64]*models.RelationshipType{}
	views := make([]models.RelationView, 0, len(relations))

	for _, rel := range relations {
		rt, ok := relationshipTypes[rel.RelationshipTypeID]
		if !ok {
			rt, err = s.typeRepo.GetRelationshipTypeByID(ctx, rel.RelationshipTypeID)
			if err != nil {
				return nil, fmt.Errorf("get relationship type: %w", err)
			}
			if rt == nil {
				return nil, fmt.Errorf("relationship type %d: %w", rel.RelationshipTypeID, apperrors.ErrNotFound)
			}
			relationshipTypes[rel.RelationshipTypeID] = rt
		}

		attrValues, err := s.relationRepo.GetAttributeValues(ctx, rel.ID)
		if err != nil {
			return nil, fmt.Errorf("get relation attribute values: %w", err)
		}
		attributes := flattenKeyedValues(attrValues)

		if rel.FromID == modelID {
			view, err := s.buildRelationView(ctx, rel, rt, models.DirectionOutgoing, rel.ToID, attributes)
			if err != nil {
				return nil, err
			}
			views = append(views, *view)
		}
		if rel.ToID == modelID {
			view, err := s.buildRelationView(ctx, rel, rt, models.DirectionIncoming, rel.FromID, attributes)
			if err != nil {
				return nil, err
			}
			views = append(views, *view)
		}
	}

	return views, nil
}

func (s *materializerService) buildRelationView(
	ctx context.Context,
	rel *models.Relation,
	rt *models.RelationshipType,
	direction string,
	otherModelID int64,
	attributes map[string]any,
) (*models.RelationView, error) {
	other, err := s.modelRepo.GetByID(ctx, otherModelID)
	if err != nil {
		return nil, fmt.Errorf("get related model: %w", err)
	}
	if other == nil {
		return nil, fmt.Errorf("related model %d: %w", otherModelID, apperrors.ErrNotFound)
	}

	otherView, err := s.buildModelView(ctx, other)
	if err != nil {
		return nil, err
	}

	return &models.RelationView{
		RelationID:         rel.ID,
		RelationName:       rt.RelationName,
		Direction:          direction,
		OtherModel:         *otherView,
		RelationAttributes: attributes,
	}, nil
}

func typeRef(t *models.ModelType) models.TypeRef {
	return models.TypeRef{ID: t.ID, Name: t.Name, Description: t.Description}
}

func flattenKeyedValues(values []repositories.KeyedValue) map[string]any {
	flattened := make(map[string]any, len(values))
	for _, kv := range values {
		flattened[kv.Key] = kv.Value.Scalar()
	}
	return flattened
}
