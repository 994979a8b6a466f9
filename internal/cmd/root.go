// Package cmd contains all CLI commands for wpmcp.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version is the current version of wpmcp.
	Version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wpmcp",
	Short: "MCP server for local WordPress development sites",
	Long: `wpmcp exposes a local WordPress site to AI agents over the Model
Context Protocol: read-only MySQL queries, schema introspection, and
WP-CLI invocations (raw commands plus post and menu operations).

It auto-detects a Local (localwp.com) site's MySQL socket and site root.
When no site can be detected, connection parameters fall back to the
WPMCP_DB_* environment variables or ~/.wpmcp/config.yaml.

Tools:
  mysql_query       Read-only SQL (SELECT, SHOW, DESCRIBE, EXPLAIN)
  mysql_schema      Table list, or columns and indexes of one table
  wp_cli            Arbitrary WP-CLI command
  wp_post_create    Create a post (content applied separately)
  wp_post_update    Update post fields
  wp_post_delete    Delete a post, optionally bypassing trash
  wp_menu_item_add  Attach a post to a navigation menu

Examples:
  wpmcp serve                          # Start the stdio MCP server
  wpmcp serve --database shopdb        # Pick the site by database name
  wpmcp call mysql_schema '{}'         # One-off tool call
  wpmcp call --list                    # Show tool schemas

See 'wpmcp <command> --help' for command-specific options.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "yaml", "Output format for call --list (yaml|json)")
}

// newLogger builds the process logger. stdout belongs to the MCP protocol,
// so everything goes to stderr; debug output is off unless requested.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose || os.Getenv("WPMCP_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
