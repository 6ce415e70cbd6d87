package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/services"
)

// ModelToolDeps contains dependencies for the generic model tools.
type ModelToolDeps struct {
	Registry     services.RegistryService
	Models       services.ModelService
	Relations    services.RelationService
	Materializer services.MaterializerService
	Logger       *zap.Logger
}

// RegisterModelTools registers the generic read/write surface over the store.
func RegisterModelTools(s *server.MCPServer, deps *ModelToolDeps) {
	registerGetModelTool(s, deps)
	registerCreateModelTool(s, deps)
	registerAssignTraitTool(s, deps)
	registerSetAttributeTool(s, deps)
	registerLinkModelsTool(s, deps)
}

func registerGetModelTool(s *server.MCPServer, deps *ModelToolDeps) {
	tool := mcp.NewTool(
		"get_model",
		mcp.WithDescription(
			"Retrieve the full view of any entity by id: base type, traits, "+
				"attributes, and one-hop relationships with their attributes.",
		),
		mcp.WithNumber(
			"model_id",
			mcp.Required(),
			mcp.Description("The entity's id"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		modelID, err := req.RequireInt("model_id")
		if err != nil {
			return nil, err
		}

		doc, err := deps.Materializer.MaterializeDocument(ctx, int64(modelID))
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(doc)
	})
}

func registerCreateModelTool(s *server.MCPServer, deps *ModelToolDeps) {
	tool := mcp.NewTool(
		"create_model",
		mcp.WithDescription(
			"Create an entity under a registered base type. "+
				"Example: create_model(type_name='Person', title='Alice Chen').",
		),
		mcp.WithString(
			"type_name",
			mcp.Required(),
			mcp.Description("Name of a registered base type, e.g. 'Person'"),
		),
		mcp.WithString(
			"title",
			mcp.Required(),
			mcp.Description("The entity's display title"),
		),
		mcp.WithString(
			"body",
			mcp.Description("Optional free-text body"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typeName, err := req.RequireString("type_name")
		if err != nil {
			return nil, err
		}
		title, err := req.RequireString("title")
		if err != nil {
			return nil, err
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return NewErrorResult("invalid_argument", "title must not be empty"), nil
		}

		modelType, err := deps.Registry.GetTypeByName(ctx, typeName)
		if err != nil {
			return resultForError(err)
		}

		m, err := deps.Models.CreateModel(ctx, modelType.ID, title, optionalString(req, "body"))
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(m)
	})
}

func registerAssignTraitTool(s *server.MCPServer, deps *ModelToolDeps) {
	tool := mcp.NewTool(
		"assign_trait",
		mcp.WithDescription(
			"Attach a trait type to an entity, extending its attribute schema "+
				"with the trait's declared keys. Assigning the same trait twice "+
				"returns a duplicate_trait_assignment error.",
		),
		mcp.WithNumber(
			"model_id",
			mcp.Required(),
			mcp.Description("The entity's id"),
		),
		mcp.WithString(
			"trait_name",
			mcp.Required(),
			mcp.Description("Name of a registered trait type, e.g. 'Employee'"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		modelID, err := req.RequireInt("model_id")
		if err != nil {
			return nil, err
		}
		traitName, err := req.RequireString("trait_name")
		if err != nil {
			return nil, err
		}

		traitType, err := deps.Registry.GetTypeByName(ctx, traitName)
		if err != nil {
			return resultForError(err)
		}

		ta, err := deps.Models.AssignTrait(ctx, int64(modelID), traitType.ID)
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(ta)
	})
}

func registerSetAttributeTool(s *server.MCPServer, deps *ModelToolDeps) {
	tool := mcp.NewTool(
		"set_attribute",
		mcp.WithDescription(
			"Record a typed attribute value on an entity. The key must be declared "+
				"on the entity's base type or one of its traits, and the value must "+
				"match the declared type. A different value for the same key is stored "+
				"alongside the existing ones; the identical value is rejected. "+
				"Pass value as a string, number, boolean, or RFC 3339 datetime string.",
		),
		mcp.WithNumber(
			"model_id",
			mcp.Required(),
			mcp.Description("The entity's id"),
		),
		mcp.WithString(
			"key",
			mcp.Required(),
			mcp.Description("Declared attribute key, e.g. 'age'"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		modelID, err := req.RequireInt("model_id")
		if err != nil {
			return nil, err
		}
		key, err := req.RequireString("key")
		if err != nil {
			return nil, err
		}

		raw, ok := req.GetArguments()["value"]
		if !ok {
			return NewErrorResult("invalid_argument", "value is required"), nil
		}

		attr, err := deps.Models.SetAttribute(ctx, int64(modelID), key, raw)
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(map[string]any{
			"model_id": attr.ModelID,
			"key":      key,
			"value":    attr.Value.Scalar(),
		})
	})
}

func registerLinkModelsTool(s *server.MCPServer, deps *ModelToolDeps) {
	tool := mcp.NewTool(
		"link_models",
		mcp.WithDescription(
			"Link two entities under a declared relationship type, resolved by "+
				"relation name against the endpoints' base types. "+
				"Example: link_models(from_id=1, to_id=2, relation_name='works_at').",
		),
		mcp.WithNumber(
			"from_id",
			mcp.Required(),
			mcp.Description("Source entity id"),
		),
		mcp.WithNumber(
			"to_id",
			mcp.Required(),
			mcp.Description("Target entity id"),
		),
		mcp.WithString(
			"relation_name",
			mcp.Required(),
			mcp.Description("Declared relation name, e.g. 'works_at'"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fromID, err := req.RequireInt("from_id")
		if err != nil {
			return nil, err
		}
		toID, err := req.RequireInt("to_id")
		if err != nil {
			return nil, err
		}
		relationName, err := req.RequireString("relation_name")
		if err != nil {
			return nil, err
		}

		rel, err := deps.Relations.LinkModels(ctx, int64(fromID), int64(toID), relationName)
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(rel)
	})
}
