package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/presslocal/wpmcp/internal/mcp"
)

var (
	callList     bool
	callPipe     bool
	callDatabase string
)

var callCmd = &cobra.Command{
	Use:   "call [tool] [json-args]",
	Short: "Call a tool directly without an MCP client",
	Long: `Call any wpmcp tool with structured JSON input/output.

Useful for scripting and for verifying site detection before wiring an
MCP client.

Modes:
  wpmcp call --list                        List all tools and parameters
  wpmcp call <tool> '{"key":"value"}'      Call a tool with JSON args
  wpmcp call --pipe                        Read JSON lines from stdin

Examples:
  wpmcp call --list
  wpmcp call mysql_schema '{}'
  wpmcp call mysql_query '{"sql":"SELECT ID, post_title FROM wp_posts LIMIT 5"}'
  wpmcp call wp_cli '{"command":"plugin list"}'
  wpmcp call wp_post_create '{"post_title":"Hello","post_status":"draft"}'
  echo '{"tool":"mysql_schema","args":{}}' | wpmcp call --pipe`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().BoolVar(&callList, "list", false, "List all available tools and their parameters")
	callCmd.Flags().BoolVar(&callPipe, "pipe", false, "Read JSON lines from stdin (pipe mode)")
	callCmd.Flags().StringVar(&callDatabase, "database", "", "Database name used to select the Local site")
}

func runCall(cmd *cobra.Command, args []string) error {
	if callList {
		return runCallList()
	}
	if callPipe {
		return runCallPipe(cmd)
	}
	if len(args) == 0 {
		return fmt.Errorf("tool name required (run 'wpmcp call --list' to see available tools)")
	}
	return runCallSingle(cmd, args)
}

func newCallServer() (*mcp.Server, error) {
	srv, err := mcp.New(mcp.Config{
		Database: callDatabase,
		Logger:   newLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}
	return srv, nil
}

func runCallList() error {
	srv, err := newCallServer()
	if err != nil {
		return err
	}
	defer srv.Close()

	schemas := srv.GetToolSchemas()

	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(schemas)
	default: // yaml
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(schemas)
	}
}

func runCallSingle(cmd *cobra.Command, args []string) error {
	toolName := args[0]

	var toolArgs map[string]any
	if len(args) >= 2 {
		if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
			return fmt.Errorf("invalid JSON args: %w", err)
		}
	} else {
		toolArgs = make(map[string]any)
	}

	srv, err := newCallServer()
	if err != nil {
		return err
	}
	defer srv.Close()

	result, err := srv.CallTool(cmd.Context(), toolName, toolArgs)
	if err != nil {
		return err
	}

	fmt.Println(result)
	return nil
}

// pipeRequest is the JSON format for pipe mode input.
type pipeRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// pipeResponse is the JSON format for pipe mode output.
type pipeResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func runCallPipe(cmd *cobra.Command) error {
	srv, err := newCallServer()
	if err != nil {
		return err
	}
	defer srv.Close()

	enc := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	// Allow larger lines (1MB) for post content payloads.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req pipeRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			enc.Encode(pipeResponse{Error: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}

		if req.Args == nil {
			req.Args = make(map[string]any)
		}

		result, err := srv.CallTool(cmd.Context(), req.Tool, req.Args)
		if err != nil {
			enc.Encode(pipeResponse{Error: err.Error()})
			continue
		}

		// Pass JSON results through raw; wrap plain text as a string.
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(result), &raw); err != nil {
			b, _ := json.Marshal(result)
			raw = b
		}
		enc.Encode(pipeResponse{Result: raw})
	}

	return scanner.Err()
}
