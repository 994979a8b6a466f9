package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/presslocal/wpmcp/internal/config"
)

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"select", "SELECT * FROM wp_posts", false},
		{"select lowercase", "select id from wp_users", false},
		{"select leading whitespace", "   \n\tSELECT 1", false},
		{"show", "SHOW TABLES", false},
		{"describe", "DESCRIBE wp_posts", false},
		{"desc", "desc wp_posts", false},
		{"explain", "EXPLAIN SELECT * FROM wp_posts", false},
		{"mixed case", "SeLeCt 1", false},
		{"insert", "INSERT INTO wp_posts (post_title) VALUES ('x')", true},
		{"update", "UPDATE wp_posts SET post_status = 'draft'", true},
		{"delete", "DELETE FROM wp_posts", true},
		{"drop", "DROP TABLE wp_posts", true},
		{"truncate", "TRUNCATE wp_posts", true},
		{"create", "CREATE TABLE t (id INT)", true},
		{"alter", "ALTER TABLE wp_posts ADD COLUMN x INT", true},
		{"grant", "GRANT ALL ON *.* TO 'x'", true},
		{"multiple statements", "SELECT 1; DROP TABLE wp_posts", true},
		{"trailing separator", "SELECT 1;", true},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"piggybacked keyword", "SELECTX 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadOnly(tt.query)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ValidateReadOnly(%q) = %v, want ErrValidation", tt.query, err)
				}
			} else if err != nil {
				t.Errorf("ValidateReadOnly(%q) = %v, want nil", tt.query, err)
			}
		})
	}
}

// TestQueryRejectsBeforeConnecting proves the guard fires before any
// connection attempt: the parameters point at nothing reachable, so a
// guard failure must surface as ErrValidation, never ErrConnection.
func TestQueryRejectsBeforeConnecting(t *testing.T) {
	client := New(&config.Params{
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		User:     "root",
		Database: "none",
		Timezone: "UTC",
	}, zerolog.Nop())
	defer client.Close()

	_, err := client.Query(context.Background(), "DELETE FROM wp_posts")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Query = %v, want ErrValidation", err)
	}
	if errors.Is(err, ErrConnection) {
		t.Fatal("mutating statement reached the connection layer")
	}
}

func TestDSNUnixSocket(t *testing.T) {
	client := New(&config.Params{
		Socket:   "/tmp/mysqld.sock",
		User:     "root",
		Password: "root",
		Database: "local",
		Timezone: "UTC",
	}, zerolog.Nop())

	dsn, err := client.dsn()
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	if !strings.Contains(dsn, "unix(/tmp/mysqld.sock)") {
		t.Errorf("dsn = %q, want unix socket address", dsn)
	}
	if !strings.Contains(dsn, "/local") {
		t.Errorf("dsn = %q, want database name", dsn)
	}
	if strings.Contains(dsn, "multiStatements=true") {
		t.Errorf("dsn = %q, multiStatements must stay off", dsn)
	}
}

func TestDSNTCP(t *testing.T) {
	client := New(&config.Params{
		Host:     "db.internal",
		Port:     3307,
		User:     "wp",
		Database: "wordpress",
		Timezone: "UTC",
	}, zerolog.Nop())

	dsn, err := client.dsn()
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	if !strings.Contains(dsn, "tcp(db.internal:3307)") {
		t.Errorf("dsn = %q, want tcp address", dsn)
	}
}

func TestDSNInvalidTimezone(t *testing.T) {
	client := New(&config.Params{
		Host:     "127.0.0.1",
		Port:     3306,
		Database: "x",
		Timezone: "Not/AZone",
	}, zerolog.Nop())

	if _, err := client.dsn(); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestCloseNeverConnected(t *testing.T) {
	client := New(&config.Params{Host: "127.0.0.1", Port: 3306, Timezone: "UTC"}, zerolog.Nop())
	if err := client.Close(); err != nil {
		t.Errorf("Close on unconnected client: %v", err)
	}
	// Second close is also a no-op.
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
