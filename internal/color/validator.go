// Package color provides hex color validation for combatant and ship colors.
package color

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// hexColorPattern matches valid hex color codes in format #RRGGBB (case insensitive).
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrInvalidHexFormat indicates a color outside the #RRGGBB format.
var ErrInvalidHexFormat = errors.New("invalid hex color format, expected #RRGGBB")

// IsValidHexColor validates that a color string is in valid #RRGGBB format.
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// SanitizeColor sanitizes a color string to prevent script injection.
// Returns the original color if valid, or empty string if invalid.
func SanitizeColor(color string) string {
	sanitized := html.EscapeString(strings.TrimSpace(color))

	if !IsValidHexColor(sanitized) {
		return ""
	}

	return sanitized
}

// ValidateHexColor validates a hex color and returns an error if invalid.
func ValidateHexColor(color string) error {
	if !IsValidHexColor(color) {
		return fmt.Errorf("%w: got %q", ErrInvalidHexFormat, color)
	}
	return nil
}
