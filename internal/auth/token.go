// Package auth mints and validates player access tokens. A token embeds the
// character name and backs both the accessUrl printed on a player's card and
// the legacy by-token lookup fallback. Tokens are name-scoped, not
// scene-scoped, so a character's link keeps working when scenes are
// duplicated.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrEmptyCharacterName is returned when minting with an empty name.
var ErrEmptyCharacterName = errors.New("character name cannot be empty")

// Claims are the custom JWT claims for player tokens.
type Claims struct {
	jwt.RegisteredClaims
	CharacterName string `json:"chr"`
}

// PlayerTokens signs and validates player access tokens with an HMAC secret.
// Tokens carry no expiry: a session link handed to a player stays valid for
// the life of the campaign. Supports dual-key rotation: new tokens are signed
// with the current secret, but links minted under the previous secret keep
// validating until the rotation window closes.
type PlayerTokens struct {
	secret         []byte
	previousSecret []byte
}

// NewPlayerTokens creates a token service with the given signing secret.
func NewPlayerTokens(secret string) *PlayerTokens {
	return &PlayerTokens{secret: []byte(secret)}
}

// NewPlayerTokensWithRotation creates a token service that also accepts
// tokens signed with the previous secret.
func NewPlayerTokensWithRotation(currentSecret, previousSecret string) *PlayerTokens {
	t := NewPlayerTokens(currentSecret)
	if previousSecret != "" {
		t.previousSecret = []byte(previousSecret)
	}
	return t
}

// Mint creates a signed token for the given character name.
func (t *PlayerTokens) Mint(characterName string) (string, error) {
	if characterName == "" {
		return "", ErrEmptyCharacterName
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  characterName,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		CharacterName: characterName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// CharacterName validates a token and returns the embedded character name.
// The current secret is tried first, then the previous one when rotation is
// configured.
func (t *PlayerTokens) CharacterName(tokenString string) (string, error) {
	name, err := t.parseWith(tokenString, t.secret)
	if err != nil && t.previousSecret != nil {
		name, err = t.parseWith(tokenString, t.previousSecret)
	}
	return name, err
}

func (t *PlayerTokens) parseWith(tokenString string, secret []byte) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.CharacterName == "" {
		return "", ErrInvalidToken
	}
	return claims.CharacterName, nil
}
