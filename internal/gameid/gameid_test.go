package gameid

import (
	"strings"
	"testing"

	"github.com/lox/liarsdice/internal/randutil"
)

func TestGenerateIsValid(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := Generate()
		if err := Validate(id); err != nil {
			t.Fatalf("generated id %q failed validation: %v", id, err)
		}
	}
}

func TestGenerateLengthAndAlphabet(t *testing.T) {
	id := Generate()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d (%q)", len(id), id)
	}
	for i := 0; i < len(id); i++ {
		if !strings.ContainsRune(alphabet, rune(id[i])) {
			t.Errorf("character %c at %d not in alphabet", id[i], i)
		}
	}
	if id[0] > '7' {
		t.Errorf("first character must be 0-7, got %c", id[0])
	}
}

func TestGenerateIsTimeOrdered(t *testing.T) {
	// The leading characters encode a millisecond timestamp, so ids
	// generated in sequence sort lexically in generation order or tie.
	prev := Generate()
	for i := 0; i < 50; i++ {
		id := Generate()
		if id[:9] < prev[:9] {
			t.Fatalf("timestamp prefix went backwards: %q then %q", prev, id)
		}
		prev = id
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestGeneratorWithInjectedSource(t *testing.T) {
	a := NewGenerator(randutil.New(7)).Generate()
	b := NewGenerator(randutil.New(7)).Generate()

	if err := Validate(a); err != nil {
		t.Fatalf("seeded id %q failed validation: %v", a, err)
	}
	// The timestamp prefix differs between calls but the random tail is
	// reproducible from the seed.
	if a[len(a)-10:] != b[len(b)-10:] {
		t.Errorf("same seed should give the same tail: %q vs %q", a, b)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"valid", Generate(), true},
		{"too short", "0123456789", false},
		{"too long", strings.Repeat("0", 27), false},
		{"empty", "", false},
		{"uppercase rejected", strings.ToUpper(Generate()), false},
		{"excluded letter l", "0" + strings.Repeat("l", 25), false},
		{"excluded letter o", "0" + strings.Repeat("o", 25), false},
		{"first char out of range", "z" + strings.Repeat("0", 25), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if tt.ok && err != nil {
				t.Errorf("expected %q valid, got %v", tt.id, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected %q invalid", tt.id)
			}
		})
	}
}
