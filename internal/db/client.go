// Package db provides read-only MySQL access for wpmcp. The client owns a
// single lazily-created connection that is reused for the life of the
// process and closed exactly once on shutdown.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/presslocal/wpmcp/internal/config"
)

// readOnlyKeywords are the only leading keywords the guard accepts.
var readOnlyKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
}

// Client executes read-only queries against one MySQL database.
type Client struct {
	params *config.Params
	log    zerolog.Logger

	mu sync.Mutex
	db *sql.DB
}

// Column describes one column of a table.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Key      string `json:"key,omitempty"`
	Default  any    `json:"default,omitempty"`
	Extra    string `json:"extra,omitempty"`
}

// Index describes one index of a table.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// New creates a client for the given connection parameters. No connection
// is made until the first query.
func New(params *config.Params, log zerolog.Logger) *Client {
	return &Client{params: params, log: log}
}

// Connect establishes the connection handle if absent. Idempotent.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.db != nil {
		return nil
	}

	dsn, err := c.dsn()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	// One handle per process: never pool, never multiplex.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	c.log.Debug().Str("database", c.params.Database).Msg("connected to mysql")
	c.db = db
	return nil
}

// dsn builds the driver DSN from the resolved parameters. A socket path
// takes precedence over host/port.
func (c *Client) dsn() (string, error) {
	loc, err := time.LoadLocation(c.params.Timezone)
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %v", c.params.Timezone, err)
	}

	cfg := mysql.NewConfig()
	cfg.User = c.params.User
	cfg.Passwd = c.params.Password
	cfg.DBName = c.params.Database
	cfg.Loc = loc
	cfg.ParseTime = true
	cfg.MultiStatements = c.params.MultiStatements

	if c.params.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = c.params.Socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", c.params.Host, c.params.Port)
	}

	return cfg.FormatDSN(), nil
}

// Query runs a single read-only statement with optional positional
// parameters and returns the rows as column-name keyed maps. The guard
// runs before the connection is touched: mutating statements can never
// reach the database.
func (c *Client) Query(ctx context.Context, query string, params ...any) ([]map[string]any, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	c.log.Debug().Str("query", query).Int("params", len(params)).Msg("executing query")

	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// ValidateReadOnly rejects any statement that is not a single
// SELECT/SHOW/DESCRIBE/EXPLAIN. This is the security boundary for the
// mysql_query tool, not a convenience check.
func ValidateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", ErrValidation)
	}

	if strings.ContainsRune(trimmed, ';') {
		return fmt.Errorf("%w: multiple statements are not allowed", ErrValidation)
	}

	keyword := strings.ToUpper(strings.Fields(trimmed)[0])
	if !readOnlyKeywords[keyword] {
		return fmt.Errorf("%w: only SELECT, SHOW, DESCRIBE and EXPLAIN statements are allowed", ErrValidation)
	}

	return nil
}

// ListTables returns the table names of the connected database, ordered by
// name.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = DATABASE() ORDER BY table_name`)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["table_name"].(string); ok {
			tables = append(tables, name)
		} else if name, ok := row["TABLE_NAME"].(string); ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// TableColumns returns column metadata for the named table. Fails with
// ErrNotFound when the table does not exist. The table name is bound as a
// parameter, never interpolated.
func (c *Client) TableColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := c.Query(ctx,
		`SELECT column_name, column_type, is_nullable, column_key, column_default, extra
		 FROM information_schema.columns
		 WHERE table_schema = DATABASE() AND table_name = ?
		 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, table)
	}

	columns := make([]Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, Column{
			Name:     stringField(row, "column_name", "COLUMN_NAME"),
			Type:     stringField(row, "column_type", "COLUMN_TYPE"),
			Nullable: stringField(row, "is_nullable", "IS_NULLABLE") == "YES",
			Key:      stringField(row, "column_key", "COLUMN_KEY"),
			Default:  anyField(row, "column_default", "COLUMN_DEFAULT"),
			Extra:    stringField(row, "extra", "EXTRA"),
		})
	}
	return columns, nil
}

// TableIndexes returns index metadata for the named table. Fails with
// ErrNotFound when the table does not exist; a table without indexes
// returns an empty list.
func (c *Client) TableIndexes(ctx context.Context, table string) ([]Index, error) {
	// Existence check first: a table can legitimately have zero indexes.
	if _, err := c.TableColumns(ctx, table); err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx,
		`SELECT index_name, column_name, non_unique
		 FROM information_schema.statistics
		 WHERE table_schema = DATABASE() AND table_name = ?
		 ORDER BY index_name, seq_in_index`, table)
	if err != nil {
		return nil, err
	}

	var indexes []Index
	byName := make(map[string]int)
	for _, row := range rows {
		name := stringField(row, "index_name", "INDEX_NAME")
		if i, ok := byName[name]; ok {
			indexes[i].Columns = append(indexes[i].Columns, stringField(row, "column_name", "COLUMN_NAME"))
			continue
		}
		byName[name] = len(indexes)
		indexes = append(indexes, Index{
			Name:    name,
			Columns: []string{stringField(row, "column_name", "COLUMN_NAME")},
			Unique:  !truthy(anyField(row, "non_unique", "NON_UNIQUE")),
		})
	}
	if indexes == nil {
		indexes = []Index{}
	}
	return indexes, nil
}

// Close releases the connection handle. Idempotent and safe to call when
// never connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	c.log.Debug().Msg("disconnected from mysql")
	return nil
}

// scanRows converts a result set into column-name keyed maps, decoding
// []byte values to strings for readability.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	result := make([]map[string]any, 0)
	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func stringField(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key].(string); ok {
			return v
		}
	}
	return ""
}

func anyField(row map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := row[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch n := v.(type) {
	case int64:
		return n != 0
	case string:
		return n != "0" && n != ""
	case bool:
		return n
	default:
		return false
	}
}
