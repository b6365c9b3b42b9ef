package rand

import (
	"strings"
	"testing"
)

func TestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := ID()
		if len(id) != IDLength {
			t.Fatalf("expected length %d, got %d (%q)", IDLength, len(id), id)
		}
		if strings.Trim(id, hexLetters) != "" {
			t.Fatalf("id %q contains non-hex characters", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestStringWithHexZeroLength(t *testing.T) {
	if s := StringWithHex(0); s != "" {
		t.Errorf("expected empty string, got %q", s)
	}
}
