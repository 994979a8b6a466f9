package cmd

import (
	"testing"
	"time"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"0", 0, false},
		{"", 0, false},
		{"30m", 30 * time.Minute, false},
		{"90s", 90 * time.Second, false},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTimeout(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTimeout(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTimeout(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseTimeout(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
