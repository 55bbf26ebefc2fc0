// Package validate provides centralized input validation and sanitization
// utilities for the session API: names, hex colors, track URLs and upload
// MIME types.
package validate

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort = errors.New("string is too short")
	ErrStringTooLong  = errors.New("string is too long")
	ErrEmpty          = errors.New("string is empty")
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength  int  // Minimum length (0 = no minimum)
	MaxLength  int  // Maximum length (0 = no maximum)
	AllowEmpty bool // Whether empty strings are allowed
	TrimSpace  bool // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if
// validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}

	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	return s, nil
}

// SanitizeHTML escapes HTML special characters to prevent XSS attacks.
// Names entered by the GM end up rendered in both clients.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeString performs both validation and HTML sanitization.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := String(s, constraints)
	if err != nil {
		return "", err
	}
	return SanitizeHTML(validated), nil
}

// SceneName validates a scene name: required, max 100 characters.
func SceneName(name string) (string, error) {
	return SanitizeString(name, StringConstraints{
		MinLength:  1,
		MaxLength:  100,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}

// CombatantName validates a mob, player, ship or character name: required,
// max 100 characters. Accents and non-Latin scripts are fine.
func CombatantName(name string) (string, error) {
	return SanitizeString(name, StringConstraints{
		MinLength:  1,
		MaxLength:  100,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}

// TrackName validates a playlist entry name: required, max 200 characters.
func TrackName(name string) (string, error) {
	return SanitizeString(name, StringConstraints{
		MinLength:  1,
		MaxLength:  200,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}

// ItemName validates a custom item name: required, max 100 characters.
func ItemName(name string) (string, error) {
	return SanitizeString(name, StringConstraints{
		MinLength:  1,
		MaxLength:  100,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}
