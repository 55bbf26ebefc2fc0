package color

import (
	"errors"
	"testing"
)

func TestIsValidHexColor(t *testing.T) {
	tests := []struct {
		color string
		want  bool
	}{
		{"#FF0000", true},
		{"#00ff00", true},
		{"#AbCdEf", true},
		{"FF0000", false},
		{"#FFF", false},
		{"#GG0000", false},
		{"#FF00001", false},
		{"", false},
		{"red", false},
	}

	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			if got := IsValidHexColor(tt.color); got != tt.want {
				t.Errorf("IsValidHexColor(%q) = %v, want %v", tt.color, got, tt.want)
			}
		})
	}
}

func TestSanitizeColor(t *testing.T) {
	if got := SanitizeColor("  #ff8800  "); got != "#ff8800" {
		t.Errorf("got %q, want trimmed valid color", got)
	}
	if got := SanitizeColor("<script>#ff8800"); got != "" {
		t.Errorf("invalid color should sanitize to empty, got %q", got)
	}
}

func TestValidateHexColor(t *testing.T) {
	if err := ValidateHexColor("#336699"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateHexColor("blue"); !errors.Is(err, ErrInvalidHexFormat) {
		t.Errorf("expected ErrInvalidHexFormat, got %v", err)
	}
}
