package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/presslocal/wpmcp/internal/config"
	"github.com/presslocal/wpmcp/internal/mcp"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdio for AI agent integration.

The server detects the target Local site on startup, connects to its
MySQL instance lazily on first query, and keeps that single connection
for its lifetime. SIGINT/SIGTERM disconnect gracefully before exit.

Examples:
  wpmcp serve                              # Sole local site, all tools
  wpmcp serve --database shopdb            # Pick site by database name
  wpmcp serve --tools mysql_query,wp_cli   # Expose specific tools only
  wpmcp serve --timeout 30m                # Auto-stop when idle
  wpmcp serve --wp-timeout 5m              # Allow long WP-CLI commands
  wpmcp serve --status                     # Check if a server is running
  wpmcp serve --stop                       # Stop a running server`,
	RunE: runServe,
}

var (
	serveDatabase  string
	serveTools     string
	serveTimeout   string
	serveWPTimeout time.Duration
	serveStatus    bool
	serveStop      bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveDatabase, "database", "", "Database name used to select the Local site")
	serveCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	serveCmd.Flags().StringVar(&serveTimeout, "timeout", "0", "Inactivity timeout (0 for no timeout)")
	serveCmd.Flags().DurationVar(&serveWPTimeout, "wp-timeout", 0, "Per-invocation WP-CLI timeout (0 for the 60s default)")
	serveCmd.Flags().BoolVar(&serveStatus, "status", false, "Check if a server is running")
	serveCmd.Flags().BoolVar(&serveStop, "stop", false, "Stop a running server")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveStatus {
		return checkServerStatus()
	}
	if serveStop {
		return stopServer()
	}

	timeout, err := parseTimeout(serveTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	var tools []string
	if serveTools != "" {
		for _, t := range strings.Split(serveTools, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
	}

	server, err := mcp.New(mcp.Config{
		Database:  serveDatabase,
		Tools:     tools,
		Timeout:   timeout,
		WPTimeout: serveWPTimeout,
		Logger:    newLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if err := writePIDFile(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write PID file: %v\n", err)
	}
	defer removePIDFile()

	// Graceful shutdown: the database disconnect must complete before
	// the process exits.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintf(os.Stderr, "\nwpmcp serve: shutting down\n")
		server.Close()
		removePIDFile()
		os.Exit(0)
	}()

	// Startup info goes to stderr (stdout is for the MCP protocol).
	fmt.Fprintf(os.Stderr, "wpmcp serve: starting MCP server\n")
	fmt.Fprintf(os.Stderr, "wpmcp serve: tools: %v\n", server.ListTools())
	if timeout > 0 {
		fmt.Fprintf(os.Stderr, "wpmcp serve: timeout: %v\n", timeout)
	}

	return server.ServeStdio()
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "0" || s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func getPIDFilePath() (string, error) {
	dir, err := config.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "serve.pid"), nil
}

func writePIDFile() error {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePIDFile() {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return
	}
	os.Remove(pidPath)
}

func checkServerStatus() error {
	pidPath, err := getPIDFilePath()
	if err != nil {
		fmt.Println("Status: not running")
		return nil
	}

	data, err := os.ReadFile(pidPath)
	if err != nil {
		fmt.Println("Status: not running")
		return nil
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Println("Status: not running (invalid PID file)")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Println("Status: not running")
		removePIDFile()
		return nil
	}

	// On Unix, FindProcess always succeeds; signal 0 checks liveness.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		fmt.Println("Status: not running (stale PID file)")
		removePIDFile()
		return nil
	}

	fmt.Printf("Status: running (PID %d)\n", pid)
	return nil
}

func stopServer() error {
	pidPath, err := getPIDFilePath()
	if err != nil {
		fmt.Println("No server running")
		return nil
	}

	data, err := os.ReadFile(pidPath)
	if err != nil {
		fmt.Println("No server running")
		return nil
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		removePIDFile()
		return fmt.Errorf("invalid PID file")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		removePIDFile()
		fmt.Println("No server running")
		return nil
	}

	// SIGTERM so the server disconnects from MySQL before exiting.
	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile()
		fmt.Println("Server already stopped")
		return nil
	}

	fmt.Printf("Stopped server (PID %d)\n", pid)
	return nil
}
