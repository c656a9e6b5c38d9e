package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"mcptoolbox/internal/model"
)

type tableArgs struct {
	TableName string `json:"table_name"`
}

type createTableArgs struct {
	TableName string         `json:"table_name"`
	Columns   []model.Column `json:"columns"`
}

type rowDataArgs struct {
	TableName string         `json:"table_name"`
	RowID     string         `json:"row_id"`
	Data      map[string]any `json:"data"`
}

type queryRowsArgs struct {
	TableName string         `json:"table_name"`
	Filters   map[string]any `json:"filters"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

type addColumnArgs struct {
	TableName  string `json:"table_name"`
	ColumnName string `json:"column_name"`
	ColumnType string `json:"column_type"`
}

func (s *Server) registerTableTools() {
	tables := s.deps.Tables
	types := enumNames(model.ColumnTypes)
	tableNameProp := stringProp("Table name: letters, digits and underscores, not starting with a digit.")
	dataProp := map[string]any{
		"type":        "object",
		"description": "Column values keyed by column name.",
	}
	rowIDProp := stringProp("Row id as returned by insert_row.")

	s.addTool(&mcp.Tool{
		Name:        "create_virtual_table",
		Description: "Create a virtual table owned by the caller. The id column is implicit.",
		InputSchema: objectSchema(map[string]any{
			"table_name": tableNameProp,
			"columns": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": objectSchema(map[string]any{
					"name": stringProp("Column name."),
					"type": enumProp("Column type.", types),
				}, "name", "type"),
			},
		}, "table_name", "columns"),
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args createTableArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return tables.CreateTable(ctx, call.namespace(), args.TableName, args.Columns)
	})

	s.addTool(&mcp.Tool{
		Name:        "list_virtual_tables",
		Description: "List the caller's virtual tables, sorted by name.",
		InputSchema: objectSchema(map[string]any{}),
		Annotations: readOnly,
	}, func(ctx context.Context, call *toolCall) (any, error) {
		return tables.ListTables(ctx, call.namespace())
	})

	s.addTool(&mcp.Tool{
		Name:        "get_table_schema",
		Description: "Show the columns and row count of a virtual table.",
		InputSchema: objectSchema(map[string]any{"table_name": tableNameProp}, "table_name"),
		Annotations: readOnly,
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args tableArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return tables.GetSchema(ctx, call.namespace(), args.TableName)
	})

	s.addTool(&mcp.Tool{
		Name:        "insert_row",
		Description: "Insert a row. Values must match the column types; null is allowed.",
		InputSchema: objectSchema(map[string]any{
			"table_name": tableNameProp,
			"data":       dataProp,
		}, "table_name", "data"),
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args rowDataArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return tables.InsertRow(ctx, call.namespace(), args.TableName, args.Data)
	})

	s.addTool(&mcp.Tool{
		Name:        "query_rows",
		Description: "Query rows with optional equality filters, oldest first.",
		InputSchema: objectSchema(map[string]any{
			"table_name": tableNameProp,
			"filters": map[string]any{
				"type":        "object",
				"description": "Column values rows must equal.",
			},
			"limit":  integerProp("Maximum rows to return. Defaults to 50, at most 1000."),
			"offset": integerProp("Rows to skip. Defaults to 0."),
		}, "table_name"),
		Annotations: readOnly,
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args queryRowsArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return tables.QueryRows(ctx, call.namespace(), args.TableName, args.Filters, args.Limit, args.Offset)
	})

	s.addTool(&mcp.Tool{
		Name:        "update_row",
		Description: "Update some columns of a row. Columns not in data keep their values.",
		InputSchema: objectSchema(map[string]any{
			"table_name": tableNameProp,
			"row_id":     rowIDProp,
			"data":       dataProp,
		}, "table_name", "row_id", "data"),
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true, DestructiveHint: boolPtr(true), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args rowDataArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return tables.UpdateRow(ctx, call.namespace(), args.TableName, args.RowID, args.Data)
	})

	s.addTool(&mcp.Tool{
		Name:        "delete_row",
		Description: "Delete a row.",
		InputSchema: objectSchema(map[string]any{
			"table_name": tableNameProp,
			"row_id":     rowIDProp,
		}, "table_name", "row_id"),
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args rowDataArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return tables.DeleteRow(ctx, call.namespace(), args.TableName, args.RowID)
	})

	s.addTool(&mcp.Tool{
		Name:        "add_column",
		Description: "Add a column to a virtual table. Existing rows read it as null.",
		InputSchema: objectSchema(map[string]any{
			"table_name":  tableNameProp,
			"column_name": stringProp("New column name."),
			"column_type": enumProp("Column type.", types),
		}, "table_name", "column_name", "column_type"),
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args addColumnArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return tables.AddColumn(ctx, call.namespace(), args.TableName, args.ColumnName, args.ColumnType)
	})
}
