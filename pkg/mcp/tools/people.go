package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/services"
)

// personTypeName is the base type backing the person convenience tools.
const personTypeName = "Person"

// PersonToolDeps contains dependencies for the person convenience tools.
type PersonToolDeps struct {
	Registry     services.RegistryService
	Models       services.ModelService
	Materializer services.MaterializerService
	Logger       *zap.Logger
}

// RegisterPersonTools registers the person convenience tools: a curated
// surface over the generic model tools for the most common entity type.
func RegisterPersonTools(s *server.MCPServer, deps *PersonToolDeps) {
	registerListPeopleTool(s, deps)
	registerAddPersonTool(s, deps)
	registerGetPersonDetailsTool(s, deps)
}

func registerListPeopleTool(s *server.MCPServer, deps *PersonToolDeps) {
	tool := mcp.NewTool(
		"list_people",
		mcp.WithDescription(
			"List all people in the knowledge store with their id, name, and description. "+
				"Use get_person_details with an id from this list to see a person's full profile.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	// The collection key pluralizes the type name, so Person lists as "people".
	collectionKey := inflection.Plural(strings.ToLower(personTypeName))

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		personType, err := deps.Registry.GetTypeByName(ctx, personTypeName)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnknownType) {
				return jsonResult(map[string]any{collectionKey: []any{}, "count": 0})
			}
			return nil, err
		}

		people, err := deps.Models.ListModelsByType(ctx, personType.ID)
		if err != nil {
			return nil, err
		}

		entries := make([]map[string]any, 0, len(people))
		for _, p := range people {
			entries = append(entries, map[string]any{
				"id":          p.ID,
				"name":        p.Title,
				"description": p.Body,
			})
		}

		return jsonResult(map[string]any{collectionKey: entries, "count": len(entries)})
	})
}

func registerAddPersonTool(s *server.MCPServer, deps *PersonToolDeps) {
	tool := mcp.NewTool(
		"add_person",
		mcp.WithDescription(
			"Add a person to the knowledge store. Creates the Person base type on first use. "+
				"Names must be unique; adding an existing name returns a duplicate_name error.",
		),
		mcp.WithString(
			"name",
			mcp.Required(),
			mcp.Description("The person's name, e.g. 'Alice Chen'"),
		),
		mcp.WithString(
			"description",
			mcp.Description("Optional free-text description of the person"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return NewErrorResult("invalid_argument", "name must not be empty"), nil
		}

		personType, err := deps.Registry.GetTypeByName(ctx, personTypeName)
		if err != nil {
			if !errors.Is(err, apperrors.ErrUnknownType) {
				return nil, err
			}
			personType, err = deps.Registry.DefineType(ctx, personTypeName, models.TypeKindBase, nil, nil)
			if err != nil {
				return resultForError(err)
			}
			deps.Logger.Info("Created Person base type", zap.Int64("type_id", personType.ID))
		}

		// Best-effort duplicate guard. models.title carries no unique
		// constraint and this check runs outside the insert's transaction,
		// so two concurrent adds of the same name can both land.
		existing, err := deps.Models.ListModelsByType(ctx, personType.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range existing {
			if p.Title == name {
				return NewErrorResult("duplicate_name", "a person named "+name+" already exists"), nil
			}
		}

		person, err := deps.Models.CreateModel(ctx, personType.ID, name, optionalString(req, "description"))
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(map[string]any{
			"id":          person.ID,
			"name":        person.Title,
			"description": person.Body,
			"created_at":  person.CreatedAt,
		})
	})
}

func registerGetPersonDetailsTool(s *server.MCPServer, deps *PersonToolDeps) {
	tool := mcp.NewTool(
		"get_person_details",
		mcp.WithDescription(
			"Retrieve a person's full profile: traits, attributes, and relationships "+
				"to other entities. Use list_people to discover ids.",
		),
		mcp.WithNumber(
			"person_id",
			mcp.Required(),
			mcp.Description("The person's id from list_people"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		personID, err := req.RequireInt("person_id")
		if err != nil {
			return nil, err
		}

		doc, err := deps.Materializer.MaterializeDocument(ctx, int64(personID))
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(doc)
	})
}
