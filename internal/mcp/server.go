// Package mcp provides the MCP (Model Context Protocol) server for wpmcp.
// It declares the fixed tool set and routes each call to the MySQL client
// or the WP-CLI invoker, normalizing results and errors into tool results.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/presslocal/wpmcp/internal/config"
	"github.com/presslocal/wpmcp/internal/db"
	"github.com/presslocal/wpmcp/internal/wpcli"
)

const (
	serverName    = "wpmcp"
	serverVersion = "1.0.0"
)

// Server wraps the MCP server with the database client and WP-CLI invoker.
type Server struct {
	mcpServer    *server.MCPServer
	db           *db.Client
	wp           *wpcli.Client
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
	log          zerolog.Logger
}

// Config holds server configuration.
type Config struct {
	Database  string        // Target database name for site detection (empty = sole site)
	Tools     []string      // Which tools to expose (empty = all)
	Timeout   time.Duration // Inactivity timeout (0 = no timeout)
	WPTimeout time.Duration // Per-invocation WP-CLI timeout (0 = package default, <0 = none)
	Logger    zerolog.Logger
}

// AllTools lists all available tools.
var AllTools = []string{
	"mysql_query", "mysql_schema", "wp_cli",
	"wp_post_create", "wp_post_update", "wp_post_delete", "wp_menu_item_add",
}

// New creates a new MCP server, resolving connection parameters via site
// detection with environment fallback.
func New(cfg Config) (*Server, error) {
	params, err := config.Load(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("resolve site configuration: %w", err)
	}

	dbClient := db.New(params, cfg.Logger)
	wpClient := wpcli.New(params, wpcli.DefaultRunner(), cfg.Logger)
	if cfg.WPTimeout > 0 {
		wpClient.Timeout = cfg.WPTimeout
	} else if cfg.WPTimeout < 0 {
		wpClient.Timeout = 0
	}

	return newWithClients(cfg, dbClient, wpClient)
}

// newWithClients wires a server around pre-built clients. Split out so
// tests can inject a mock WP-CLI runner and an unreachable database.
func newWithClients(cfg Config, dbClient *db.Client, wpClient *wpcli.Client) (*Server, error) {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcpServer:    mcpServer,
		db:           dbClient,
		wp:           wpClient,
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
		log:          cfg.Logger,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = AllTools
	}

	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			dbClient.Close()
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server.
func (s *Server) registerTool(name string) error {
	switch name {
	case "mysql_query":
		return s.registerQueryTool()
	case "mysql_schema":
		return s.registerSchemaTool()
	case "wp_cli":
		return s.registerCLITool()
	case "wp_post_create":
		return s.registerPostCreateTool()
	case "wp_post_update":
		return s.registerPostUpdateTool()
	case "wp_post_delete":
		return s.registerPostDeleteTool()
	case "wp_menu_item_add":
		return s.registerMenuItemAddTool()
	default:
		return fmt.Errorf("unknown tool: %s", name)
	}
}

// ServeStdio starts the server using stdio transport.
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}
	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded.
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			fmt.Fprintf(os.Stderr, "wpmcp serve: timeout after %v of inactivity\n", s.timeout)
			s.Close()
			os.Exit(0)
		}
	}
}

// updateActivity updates the last activity timestamp.
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Close releases the database connection. Idempotent.
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ListTools returns the list of registered tools.
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	return tools
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// toolSchemaRegistry holds the schema definitions for all tools. These
// mirror the mcp.NewTool() definitions in the register*Tool() functions.
var toolSchemaRegistry = map[string]ToolSchema{
	"mysql_query": {
		Name:        "mysql_query",
		Description: "Execute a read-only SQL query (SELECT, SHOW, DESCRIBE, EXPLAIN) against the WordPress database.",
		Parameters: []ParameterSchema{
			{Name: "sql", Type: "string", Description: "Single read-only SQL statement", Required: true},
			{Name: "params", Type: "array", Description: "Positional parameters bound to ? placeholders"},
		},
	},
	"mysql_schema": {
		Name:        "mysql_schema",
		Description: "Inspect the database schema. Without a table, lists all tables; with a table, returns its columns and indexes.",
		Parameters: []ParameterSchema{
			{Name: "table", Type: "string", Description: "Table name to inspect"},
		},
	},
	"wp_cli": {
		Name:        "wp_cli",
		Description: "Run an arbitrary WP-CLI command against the detected site. The command is whitespace-split into subcommand and arguments.",
		Parameters: []ParameterSchema{
			{Name: "command", Type: "string", Description: "WP-CLI command line, e.g. 'plugin list'", Required: true},
		},
	},
	"wp_post_create": {
		Name:        "wp_post_create",
		Description: "Create a WordPress post. Content is applied in a separate update invocation.",
		Parameters: []ParameterSchema{
			{Name: "post_title", Type: "string", Description: "Post title", Required: true},
			{Name: "post_type", Type: "string", Description: "Post type (default: post)"},
			{Name: "post_content", Type: "string", Description: "Post body content"},
			{Name: "post_status", Type: "string", Description: "Post status (draft, publish, ...)"},
			{Name: "post_name", Type: "string", Description: "Post slug"},
			{Name: "post_parent", Type: "number", Description: "Parent post ID"},
		},
	},
	"wp_post_update": {
		Name:        "wp_post_update",
		Description: "Update fields of an existing WordPress post. Only supplied fields are sent.",
		Parameters: []ParameterSchema{
			{Name: "post_id", Type: "number", Description: "Post ID to update", Required: true},
			{Name: "post_title", Type: "string", Description: "New title"},
			{Name: "post_content", Type: "string", Description: "New body content"},
			{Name: "post_status", Type: "string", Description: "New status"},
			{Name: "post_name", Type: "string", Description: "New slug"},
		},
	},
	"wp_post_delete": {
		Name:        "wp_post_delete",
		Description: "Delete a WordPress post. With force, bypasses the trash.",
		Parameters: []ParameterSchema{
			{Name: "post_id", Type: "number", Description: "Post ID to delete", Required: true},
			{Name: "force", Type: "boolean", Description: "Skip trash and delete permanently"},
		},
	},
	"wp_menu_item_add": {
		Name:        "wp_menu_item_add",
		Description: "Add a post to a navigation menu.",
		Parameters: []ParameterSchema{
			{Name: "menu", Type: "string", Description: "Menu name, slug, or term ID", Required: true},
			{Name: "post_id", Type: "number", Description: "Post ID to link", Required: true},
			{Name: "title", Type: "string", Description: "Menu item title override"},
			{Name: "parent_id", Type: "number", Description: "Parent menu item ID"},
		},
	},
}

// GetToolSchemas returns schemas for all registered tools.
func (s *Server) GetToolSchemas() []ToolSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schemas := make([]ToolSchema, 0, len(s.tools))
	for name := range s.tools {
		if schema, ok := toolSchemaRegistry[name]; ok {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

// CallTool dispatches a tool call by name with the given arguments.
// Returns the textual result or an error. This is the direct path used by
// the `wpmcp call` command; the MCP handlers share the execute* functions.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.RLock()
	registered := s.tools[name]
	s.mu.RUnlock()

	if !registered {
		return "", fmt.Errorf("unknown tool: %s (run 'wpmcp call --list' to see available tools)", name)
	}

	s.updateActivity()

	switch name {
	case "mysql_query":
		sqlText, ok := stringArg(args, "sql")
		if !ok || sqlText == "" {
			return "", fmt.Errorf("sql parameter is required")
		}
		return s.executeQuery(ctx, sqlText, sliceArg(args, "params"))

	case "mysql_schema":
		table, _ := stringArg(args, "table")
		return s.executeSchema(ctx, table)

	case "wp_cli":
		command, ok := stringArg(args, "command")
		if !ok || command == "" {
			return "", fmt.Errorf("command parameter is required")
		}
		return s.executeCLI(ctx, command)

	case "wp_post_create":
		fields, err := postFieldsArg(args)
		if err != nil {
			return "", err
		}
		if fields.Title == "" {
			return "", fmt.Errorf("post_title parameter is required")
		}
		return s.executePostCreate(ctx, fields)

	case "wp_post_update":
		id, ok, err := intArg(args, "post_id")
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("post_id parameter is required")
		}
		fields, err := postFieldsArg(args)
		if err != nil {
			return "", err
		}
		return s.executePostUpdate(ctx, id, fields)

	case "wp_post_delete":
		id, ok, err := intArg(args, "post_id")
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("post_id parameter is required")
		}
		force, _ := args["force"].(bool)
		return s.executePostDelete(ctx, id, force)

	case "wp_menu_item_add":
		menu, ok := stringArg(args, "menu")
		if !ok || menu == "" {
			return "", fmt.Errorf("menu parameter is required")
		}
		id, ok, err := intArg(args, "post_id")
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("post_id parameter is required")
		}
		title, _ := stringArg(args, "title")
		parentID, _, err := intArg(args, "parent_id")
		if err != nil {
			return "", err
		}
		return s.executeMenuItemAdd(ctx, menu, id, title, parentID)

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// Argument coercion helpers. MCP clients send numbers as float64; some
// send numeric fields as strings.

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

func intArg(args map[string]any, key string) (int, bool, error) {
	v, present := args[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false, fmt.Errorf("%s must be a number", key)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number", key)
		}
		return int(i), true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number", key)
		}
		return i, true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number", key)
	}
}

func sliceArg(args map[string]any, key string) []any {
	v, ok := args[key].([]any)
	if !ok {
		return nil
	}
	return v
}

func postFieldsArg(args map[string]any) (wpcli.PostFields, error) {
	fields := wpcli.PostFields{}
	fields.Type, _ = stringArg(args, "post_type")
	fields.Title, _ = stringArg(args, "post_title")
	fields.Content, _ = stringArg(args, "post_content")
	fields.Status, _ = stringArg(args, "post_status")
	fields.Name, _ = stringArg(args, "post_name")

	parent, _, err := intArg(args, "post_parent")
	if err != nil {
		return fields, err
	}
	fields.Parent = parent
	return fields, nil
}
