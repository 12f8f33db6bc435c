package id_test

import (
	"encoding/json"
	"testing"

	"github.com/xraph/syncq/id"
)

func TestNew_HasPrefix(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() id.ID
		prefix id.Prefix
	}{
		{"job", id.NewJobID, id.PrefixJob},
		{"error", id.NewErrorID, id.PrefixError},
		{"dlq", id.NewDLQID, id.PrefixDLQ},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.gen()
			if got.IsNil() {
				t.Fatal("New returned nil ID")
			}
			if got.Prefix() != tt.prefix {
				t.Errorf("Prefix() = %q, want %q", got.Prefix(), tt.prefix)
			}
		})
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		s := id.NewJobID().String()
		if seen[s] {
			t.Fatalf("duplicate ID generated: %s", s)
		}
		seen[s] = true
	}
}

func TestParse_RoundTrip(t *testing.T) {
	orig := id.NewJobID()

	parsed, err := id.Parse(orig.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", orig.String(), err)
	}
	if parsed != orig {
		t.Errorf("Parse round-trip = %v, want %v", parsed, orig)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("Parse(\"\") succeeded, want error")
	}
}

func TestParseWithPrefix_Mismatch(t *testing.T) {
	jobID := id.NewJobID()

	if _, err := id.ParseDLQID(jobID.String()); err == nil {
		t.Errorf("ParseDLQID(%q) succeeded, want prefix mismatch error", jobID.String())
	}
}

func TestNil_StringAndPrefix(t *testing.T) {
	if got := id.Nil.String(); got != "" {
		t.Errorf("Nil.String() = %q, want empty", got)
	}
	if got := id.Nil.Prefix(); got != "" {
		t.Errorf("Nil.Prefix() = %q, want empty", got)
	}
	if !id.Nil.IsNil() {
		t.Error("Nil.IsNil() = false, want true")
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	orig := id.NewErrorID()

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var parsed id.ID
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if parsed != orig {
		t.Errorf("JSON round-trip = %v, want %v", parsed, orig)
	}
}

func TestID_JSONEmpty(t *testing.T) {
	var parsed id.ID
	if err := json.Unmarshal([]byte(`""`), &parsed); err != nil {
		t.Fatalf("Unmarshal empty: %v", err)
	}
	if !parsed.IsNil() {
		t.Error("unmarshal of empty string should produce Nil ID")
	}
}
