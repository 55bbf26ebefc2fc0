package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestString_Constraints(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		want        string
		wantErr     error
	}{
		{
			name:        "valid string",
			input:       "Goblin Camp",
			constraints: StringConstraints{MinLength: 1, MaxLength: 100},
			want:        "Goblin Camp",
		},
		{
			name:        "trims whitespace",
			input:       "  Aria  ",
			constraints: StringConstraints{MinLength: 1, MaxLength: 100, TrimSpace: true},
			want:        "Aria",
		},
		{
			name:        "empty rejected",
			input:       "",
			constraints: StringConstraints{MinLength: 1},
			wantErr:     ErrEmpty,
		},
		{
			name:        "empty allowed",
			input:       "",
			constraints: StringConstraints{AllowEmpty: true},
			want:        "",
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", 101),
			constraints: StringConstraints{MaxLength: 100},
			wantErr:     ErrStringTooLong,
		},
		{
			name:        "multibyte counted as runes",
			input:       strings.Repeat("ã", 100),
			constraints: StringConstraints{MaxLength: 100},
			want:        strings.Repeat("ã", 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSceneName_EscapesHTML(t *testing.T) {
	got, err := SceneName("<script>Docks</script>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "<") {
		t.Errorf("HTML not escaped: %q", got)
	}
}

func TestCombatantName_AcceptsAccents(t *testing.T) {
	got, err := CombatantName("Capitão Barbossa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Capitão Barbossa" {
		t.Errorf("got %q", got)
	}
}

func TestItemName_Empty(t *testing.T) {
	if _, err := ItemName("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}
