package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/models"
	"github.com/pkmgraph/pkm-engine/pkg/services"
)

// RegistryToolDeps contains dependencies for the type registry tools.
type RegistryToolDeps struct {
	Registry services.RegistryService
	Logger   *zap.Logger
}

// RegisterRegistryTools registers the schema-defining tools. The registry is
// append-mostly: these tools create definitions but never change or remove
// them.
func RegisterRegistryTools(s *server.MCPServer, deps *RegistryToolDeps) {
	registerDefineTypeTool(s, deps)
	registerDefineAttributeTool(s, deps)
	registerDefineRelationshipTypeTool(s, deps)
	registerDefineRelationAttributeTool(s, deps)
}

func registerDefineTypeTool(s *server.MCPServer, deps *RegistryToolDeps) {
	tool := mcp.NewTool(
		"define_type",
		mcp.WithDescription(
			"Register a new entity type. kind='base' types classify entities; "+
				"kind='trait' types are additively assignable capabilities. "+
				"Names are unique across both kinds.",
		),
		mcp.WithString(
			"name",
			mcp.Required(),
			mcp.Description("Unique type name, e.g. 'Person' or 'Employee'"),
		),
		mcp.WithString(
			"kind",
			mcp.Required(),
			mcp.Enum(models.TypeKindBase, models.TypeKindTrait),
			mcp.Description("'base' or 'trait'"),
		),
		mcp.WithString(
			"description",
			mcp.Description("Optional description of the type"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return nil, err
		}
		kind, err := req.RequireString("kind")
		if err != nil {
			return nil, err
		}

		t, err := deps.Registry.DefineType(ctx, name, kind, nil, optionalString(req, "description"))
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(t)
	})
}

func registerDefineAttributeTool(s *server.MCPServer, deps *RegistryToolDeps) {
	tool := mcp.NewTool(
		"define_attribute",
		mcp.WithDescription(
			"Declare an attribute key on a type. Entities of that base type, or "+
				"carrying that trait, can then store values for the key. "+
				"Keys are unique within their type.",
		),
		mcp.WithString(
			"type_name",
			mcp.Required(),
			mcp.Description("Name of the base or trait type the key belongs to"),
		),
		mcp.WithString(
			"key",
			mcp.Required(),
			mcp.Description("Attribute key, e.g. 'age'"),
		),
		mcp.WithString(
			"value_type",
			mcp.Required(),
			mcp.Enum(
				string(models.ValueTypeString),
				string(models.ValueTypeNumber),
				string(models.ValueTypeDatetime),
				string(models.ValueTypeBoolean),
				string(models.ValueTypeVector),
			),
			mcp.Description("Declared value type for the key"),
		),
		mcp.WithBoolean(
			"required",
			mcp.Description("Whether the key is flagged required (advisory, not enforced on write)"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typeName, err := req.RequireString("type_name")
		if err != nil {
			return nil, err
		}
		key, err := req.RequireString("key")
		if err != nil {
			return nil, err
		}
		valueType, err := req.RequireString("value_type")
		if err != nil {
			return nil, err
		}

		t, err := deps.Registry.GetTypeByName(ctx, typeName)
		if err != nil {
			return resultForError(err)
		}

		def, err := deps.Registry.DefineAttribute(ctx, t.ID, key, models.ValueType(valueType), req.GetBool("required", false), nil)
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(def)
	})
}

func registerDefineRelationshipTypeTool(s *server.MCPServer, deps *RegistryToolDeps) {
	tool := mcp.NewTool(
		"define_relationship_type",
		mcp.WithDescription(
			"Declare a directed relation template between two base types. "+
				"Example: define_relationship_type(from_type='Person', to_type='Company', "+
				"relation_name='works_at').",
		),
		mcp.WithString(
			"from_type",
			mcp.Required(),
			mcp.Description("Base type name of the source endpoint"),
		),
		mcp.WithString(
			"to_type",
			mcp.Required(),
			mcp.Description("Base type name of the target endpoint"),
		),
		mcp.WithString(
			"relation_name",
			mcp.Required(),
			mcp.Description("Relation name, unique per (from, to, name) triple"),
		),
		mcp.WithString(
			"description",
			mcp.Description("Optional description of the relation"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fromTypeName, err := req.RequireString("from_type")
		if err != nil {
			return nil, err
		}
		toTypeName, err := req.RequireString("to_type")
		if err != nil {
			return nil, err
		}
		relationName, err := req.RequireString("relation_name")
		if err != nil {
			return nil, err
		}

		fromType, err := deps.Registry.GetTypeByName(ctx, fromTypeName)
		if err != nil {
			return resultForError(err)
		}
		toType, err := deps.Registry.GetTypeByName(ctx, toTypeName)
		if err != nil {
			return resultForError(err)
		}

		rt, err := deps.Registry.DefineRelationshipType(ctx, fromType.ID, toType.ID, relationName, optionalString(req, "description"))
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(rt)
	})
}

func registerDefineRelationAttributeTool(s *server.MCPServer, deps *RegistryToolDeps) {
	tool := mcp.NewTool(
		"define_relation_attribute",
		mcp.WithDescription(
			"Declare an attribute key on a relationship type, so relations of "+
				"that type can carry typed values (e.g. a 'since' date on 'works_at').",
		),
		mcp.WithNumber(
			"relationship_type_id",
			mcp.Required(),
			mcp.Description("Id of the relationship type, from define_relationship_type"),
		),
		mcp.WithString(
			"key",
			mcp.Required(),
			mcp.Description("Attribute key, e.g. 'since'"),
		),
		mcp.WithString(
			"value_type",
			mcp.Required(),
			mcp.Enum(
				string(models.ValueTypeString),
				string(models.ValueTypeNumber),
				string(models.ValueTypeDatetime),
				string(models.ValueTypeBoolean),
				string(models.ValueTypeVector),
			),
			mcp.Description("Declared value type for the key"),
		),
		mcp.WithBoolean(
			"required",
			mcp.Description("Whether the key is flagged required (advisory, not enforced on write)"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		relationshipTypeID, err := req.RequireInt("relationship_type_id")
		if err != nil {
			return nil, err
		}
		key, err := req.RequireString("key")
		if err != nil {
			return nil, err
		}
		valueType, err := req.RequireString("value_type")
		if err != nil {
			return nil, err
		}

		def, err := deps.Registry.DefineRelationAttribute(ctx, int64(relationshipTypeID), key, models.ValueType(valueType), req.GetBool("required", false))
		if err != nil {
			return resultForError(err)
		}

		return jsonResult(def)
	})
}
