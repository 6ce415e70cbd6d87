//go:build integration

package repositories_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/repositories"
	"github.com/pkmgraph/pkm-engine/pkg/testhelpers"
)

func TestGraphSchemaScenario(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := testDB.DB.Scope(context.Background())

	typeRepo := repositories.NewModelTypeRepository()
	modelRepo := repositories.NewModelRepository()
	relationRepo := repositories.NewRelationRepository()

	// Registry: Person base, Employee trait, Company base, works_at relation.
	person := &models.ModelType{Name: "ScenarioPerson", TypeKind: models.TypeKindBase}
	require.NoError(t, typeRepo.CreateType(ctx, person))
	employee := &models.ModelType{Name: "ScenarioEmployee", TypeKind: models.TypeKindTrait}
	require.NoError(t, typeRepo.CreateType(ctx, employee))
	company := &models.ModelType{Name: "ScenarioCompany", TypeKind: models.TypeKindBase}
	require.NoError(t, typeRepo.CreateType(ctx, company))

	// Duplicate type name is rejected across kinds.
	dup := &models.ModelType{Name: "ScenarioPerson", TypeKind: models.TypeKindTrait}
	assert.ErrorIs(t, typeRepo.CreateType(ctx, dup), apperrors.ErrDuplicateName)

	ageDef := &models.AttributeDefinition{
		ModelTypeID: person.ID,
		Key:         "age",
		ValueType:   models.ValueTypeNumber,
	}
	require.NoError(t, typeRepo.CreateAttributeDefinition(ctx, ageDef))
	assert.ErrorIs(t, typeRepo.CreateAttributeDefinition(ctx, &models.AttributeDefinition{
		ModelTypeID: person.ID,
		Key:         "age",
		ValueType:   models.ValueTypeNumber,
	}), apperrors.ErrDuplicateKey)

	salaryDef := &models.AttributeDefinition{
		ModelTypeID: employee.ID,
		Key:         "salary",
		ValueType:   models.ValueTypeNumber,
	}
	require.NoError(t, typeRepo.CreateAttributeDefinition(ctx, salaryDef))

	worksAt := &models.RelationshipType{
		FromModelTypeID: person.ID,
		ToModelTypeID:   company.ID,
		RelationName:    "works_at",
	}
	require.NoError(t, typeRepo.CreateRelationshipType(ctx, worksAt))
	assert.Equal(t, models.MultiplicityMany, worksAt.Multiplicity)

	sinceDef := &models.RelationAttributeDefinition{
		RelationshipTypeID: worksAt.ID,
		Key:                "since",
		ValueType:          models.ValueTypeDatetime,
	}
	require.NoError(t, typeRepo.CreateRelationAttributeDefinition(ctx, sinceDef))

	// Models and traits.
	alice := &models.Model{ModelTypeID: person.ID, Title: "Alice Chen"}
	require.NoError(t, modelRepo.Create(ctx, alice))
	require.False(t, alice.CreatedAt.IsZero())

	initech := &models.Model{ModelTypeID: company.ID, Title: "Initech"}
	require.NoError(t, modelRepo.Create(ctx, initech))

	ta := &models.TraitAssignment{ModelID: alice.ID, TraitTypeID: employee.ID}
	require.NoError(t, modelRepo.AssignTrait(ctx, ta))
	assert.ErrorIs(t, modelRepo.AssignTrait(ctx, &models.TraitAssignment{
		ModelID:     alice.ID,
		TraitTypeID: employee.ID,
	}), apperrors.ErrDuplicateTraitAssignment)

	traits, err := modelRepo.GetTraitTypes(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, traits, 1)
	assert.Equal(t, employee.ID, traits[0].ID)

	// EAV attributes: duplicate value rejected, distinct value stored.
	attr := &models.Attribute{
		ModelID:               alice.ID,
		AttributeDefinitionID: ageDef.ID,
		Value:                 models.NumberValue(28),
	}
	require.NoError(t, modelRepo.InsertAttribute(ctx, attr))
	assert.ErrorIs(t, modelRepo.InsertAttribute(ctx, &models.Attribute{
		ModelID:               alice.ID,
		AttributeDefinitionID: ageDef.ID,
		Value:                 models.NumberValue(28),
	}), apperrors.ErrDuplicateValue)
	require.NoError(t, modelRepo.InsertAttribute(ctx, &models.Attribute{
		ModelID:               alice.ID,
		AttributeDefinitionID: ageDef.ID,
		Value:                 models.NumberValue(29),
	}))

	values, err := modelRepo.GetAttributeValues(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "age", values[0].Key)
	assert.Equal(t, int64(28), values[0].Value.Scalar())
	assert.Equal(t, int64(29), values[1].Value.Scalar())

	// Relations and relation attributes.
	rel := &models.Relation{
		FromID:             alice.ID,
		ToID:               initech.ID,
		RelationshipTypeID: worksAt.ID,
	}
	require.NoError(t, relationRepo.Create(ctx, rel))

	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, relationRepo.InsertAttribute(ctx, &models.RelationAttribute{
		RelationID:                    rel.ID,
		RelationAttributeDefinitionID: sinceDef.ID,
		Value:                         models.DatetimeValue(since),
	}))

	relValues, err := relationRepo.GetAttributeValues(ctx, rel.ID)
	require.NoError(t, err)
	require.Len(t, relValues, 1)
	assert.Equal(t, "since", relValues[0].Key)

	relations, err := relationRepo.ListByModel(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, rel.ID, relations[0].ID)

	// Embedding upsert replaces.
	require.NoError(t, modelRepo.UpsertEmbedding(ctx, &models.Embedding{ModelID: alice.ID, Embedding: "[0.1]"}))
	require.NoError(t, modelRepo.UpsertEmbedding(ctx, &models.Embedding{ModelID: alice.ID, Embedding: "[0.2]"}))
	e, err := modelRepo.GetEmbedding(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "[0.2]", e.Embedding)

	// Deleting the model cascades traits, attributes, embedding, relations.
	deleted, err := modelRepo.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	gone, err := modelRepo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	relations, err = relationRepo.ListByModel(ctx, initech.ID)
	require.NoError(t, err)
	assert.Empty(t, relations)

	e, err = modelRepo.GetEmbedding(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestGetModelFullFunction(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := testDB.DB.Scope(context.Background())

	typeRepo := repositories.NewModelTypeRepository()
	modelRepo := repositories.NewModelRepository()
	relationRepo := repositories.NewRelationRepository()

	person := &models.ModelType{Name: "FnPerson", TypeKind: models.TypeKindBase}
	require.NoError(t, typeRepo.CreateType(ctx, person))

	alice := &models.Model{ModelTypeID: person.ID, Title: "Fn Alice"}
	require.NoError(t, modelRepo.Create(ctx, alice))

	raw, err := relationRepo.GetModelFull(ctx, alice.ID)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	model := doc["model"].(map[string]any)
	assert.Equal(t, "Fn Alice", model["title"])
	assert.Equal(t, "FnPerson", model["model_type"].(map[string]any)["base_model"].(map[string]any)["name"])
	assert.Equal(t, map[string]any{}, doc["attributes"])
	assert.Equal(t, []any{}, doc["relations"])

	// Unknown id yields a SQL NULL.
	raw, err = relationRepo.GetModelFull(ctx, 999999999)
	require.NoError(t, err)
	assert.True(t, len(raw) == 0 || string(raw) == "null")
}
