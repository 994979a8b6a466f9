package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/presslocal/wpmcp/internal/db"
	"github.com/presslocal/wpmcp/internal/wpcli"
)

// Tool registrations

func (s *Server) registerQueryTool() error {
	tool := mcp.NewTool("mysql_query",
		mcp.WithDescription("Execute a read-only SQL query (SELECT, SHOW, DESCRIBE, EXPLAIN) against the WordPress database."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("Single read-only SQL statement"),
		),
		mcp.WithArray("params",
			mcp.Description("Positional parameters bound to ? placeholders"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleQuery)
	return nil
}

func (s *Server) registerSchemaTool() error {
	tool := mcp.NewTool("mysql_schema",
		mcp.WithDescription("Inspect the database schema. Without a table, lists all tables; with a table, returns its columns and indexes."),
		mcp.WithString("table",
			mcp.Description("Table name to inspect"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleSchema)
	return nil
}

func (s *Server) registerCLITool() error {
	tool := mcp.NewTool("wp_cli",
		mcp.WithDescription("Run an arbitrary WP-CLI command against the detected site. The command is whitespace-split into subcommand and arguments."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("WP-CLI command line, e.g. 'plugin list'"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleCLI)
	return nil
}

func (s *Server) registerPostCreateTool() error {
	tool := mcp.NewTool("wp_post_create",
		mcp.WithDescription("Create a WordPress post. Content is applied in a separate update invocation."),
		mcp.WithString("post_title",
			mcp.Required(),
			mcp.Description("Post title"),
		),
		mcp.WithString("post_type",
			mcp.Description("Post type (default: post)"),
		),
		mcp.WithString("post_content",
			mcp.Description("Post body content"),
		),
		mcp.WithString("post_status",
			mcp.Description("Post status (draft, publish, ...)"),
		),
		mcp.WithString("post_name",
			mcp.Description("Post slug"),
		),
		mcp.WithNumber("post_parent",
			mcp.Description("Parent post ID"),
		),
	)

	s.mcpServer.AddTool(tool, s.handlePostCreate)
	return nil
}

func (s *Server) registerPostUpdateTool() error {
	tool := mcp.NewTool("wp_post_update",
		mcp.WithDescription("Update fields of an existing WordPress post. Only supplied fields are sent."),
		mcp.WithNumber("post_id",
			mcp.Required(),
			mcp.Description("Post ID to update"),
		),
		mcp.WithString("post_title",
			mcp.Description("New title"),
		),
		mcp.WithString("post_content",
			mcp.Description("New body content"),
		),
		mcp.WithString("post_status",
			mcp.Description("New status"),
		),
		mcp.WithString("post_name",
			mcp.Description("New slug"),
		),
	)

	s.mcpServer.AddTool(tool, s.handlePostUpdate)
	return nil
}

func (s *Server) registerPostDeleteTool() error {
	tool := mcp.NewTool("wp_post_delete",
		mcp.WithDescription("Delete a WordPress post. With force, bypasses the trash."),
		mcp.WithNumber("post_id",
			mcp.Required(),
			mcp.Description("Post ID to delete"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Skip trash and delete permanently"),
		),
	)

	s.mcpServer.AddTool(tool, s.handlePostDelete)
	return nil
}

func (s *Server) registerMenuItemAddTool() error {
	tool := mcp.NewTool("wp_menu_item_add",
		mcp.WithDescription("Add a post to a navigation menu."),
		mcp.WithString("menu",
			mcp.Required(),
			mcp.Description("Menu name, slug, or term ID"),
		),
		mcp.WithNumber("post_id",
			mcp.Required(),
			mcp.Description("Post ID to link"),
		),
		mcp.WithString("title",
			mcp.Description("Menu item title override"),
		),
		mcp.WithNumber("parent_id",
			mcp.Description("Parent menu item ID"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleMenuItemAdd)
	return nil
}

// Tool handlers. Every failure becomes an error-flagged tool result, never
// a transport fault.

func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	sqlText, ok := stringArg(args, "sql")
	if !ok || sqlText == "" {
		return mcp.NewToolResultError("sql parameter is required"), nil
	}

	result, err := s.executeQuery(ctx, sqlText, sliceArg(args, "params"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	table, _ := stringArg(args, "table")

	result, err := s.executeSchema(ctx, table)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleCLI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	command, ok := stringArg(args, "command")
	if !ok || command == "" {
		return mcp.NewToolResultError("command parameter is required"), nil
	}

	result, err := s.executeCLI(ctx, command)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handlePostCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	fields, err := postFieldsArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if fields.Title == "" {
		return mcp.NewToolResultError("post_title parameter is required"), nil
	}

	result, err := s.executePostCreate(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handlePostUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	id, ok, err := intArg(args, "post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("post_id parameter is required"), nil
	}
	fields, err := postFieldsArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.executePostUpdate(ctx, id, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handlePostDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	id, ok, err := intArg(args, "post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("post_id parameter is required"), nil
	}
	force, _ := args["force"].(bool)

	result, err := s.executePostDelete(ctx, id, force)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleMenuItemAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	menu, ok := stringArg(args, "menu")
	if !ok || menu == "" {
		return mcp.NewToolResultError("menu parameter is required"), nil
	}
	id, ok, err := intArg(args, "post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("post_id parameter is required"), nil
	}
	title, _ := stringArg(args, "title")
	parentID, _, err := intArg(args, "parent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.executeMenuItemAdd(ctx, menu, id, title, parentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

// Tool implementations

func (s *Server) executeQuery(ctx context.Context, sqlText string, params []any) (string, error) {
	rows, err := s.db.Query(ctx, sqlText, params...)
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return string(out), nil
}

// tableSchema is the JSON shape of a single-table schema result.
type tableSchema struct {
	Table   string      `json:"table"`
	Columns []db.Column `json:"columns"`
	Indexes []db.Index  `json:"indexes"`
}

func (s *Server) executeSchema(ctx context.Context, table string) (string, error) {
	if table == "" {
		tables, err := s.db.ListTables(ctx)
		if err != nil {
			return "", err
		}
		out, err := json.MarshalIndent(tables, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode tables: %w", err)
		}
		return string(out), nil
	}

	columns, err := s.db.TableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	indexes, err := s.db.TableIndexes(ctx, table)
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(tableSchema{
		Table:   table,
		Columns: columns,
		Indexes: indexes,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	return string(out), nil
}

func (s *Server) executeCLI(ctx context.Context, command string) (string, error) {
	return s.wp.RunCommand(ctx, command)
}

func (s *Server) executePostCreate(ctx context.Context, fields wpcli.PostFields) (string, error) {
	id, err := s.wp.CreatePost(ctx, fields)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Success: Created post %s", id), nil
}

func (s *Server) executePostUpdate(ctx context.Context, id int, fields wpcli.PostFields) (string, error) {
	if err := s.wp.UpdatePost(ctx, strconv.Itoa(id), fields); err != nil {
		return "", err
	}
	return fmt.Sprintf("Success: Updated post %d", id), nil
}

func (s *Server) executePostDelete(ctx context.Context, id int, force bool) (string, error) {
	return s.wp.DeletePost(ctx, strconv.Itoa(id), force)
}

func (s *Server) executeMenuItemAdd(ctx context.Context, menu string, postID int, title string, parentID int) (string, error) {
	return s.wp.AddMenuItem(ctx, menu, strconv.Itoa(postID), wpcli.MenuItemFields{
		Title:    title,
		ParentID: parentID,
	})
}
