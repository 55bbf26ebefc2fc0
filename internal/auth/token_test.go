package auth

import (
	"errors"
	"testing"
)

func TestPlayerTokens_MintAndValidate(t *testing.T) {
	svc := NewPlayerTokens("test-secret")

	token, err := svc.Mint("Aria")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	name, err := svc.CharacterName(token)
	if err != nil {
		t.Fatalf("CharacterName failed: %v", err)
	}
	if name != "Aria" {
		t.Errorf("expected character name Aria, got %q", name)
	}
}

func TestPlayerTokens_EmptyNameRejected(t *testing.T) {
	svc := NewPlayerTokens("test-secret")

	if _, err := svc.Mint(""); !errors.Is(err, ErrEmptyCharacterName) {
		t.Errorf("expected ErrEmptyCharacterName, got %v", err)
	}
}

func TestPlayerTokens_WrongSecretFails(t *testing.T) {
	token, err := NewPlayerTokens("secret-a").Mint("Aria")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := NewPlayerTokens("secret-b").CharacterName(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestPlayerTokens_GarbageFails(t *testing.T) {
	svc := NewPlayerTokens("test-secret")

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.CharacterName(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}

func TestPlayerTokens_RotationAcceptsPreviousSecret(t *testing.T) {
	old := NewPlayerTokens("old-secret")
	token, err := old.Mint("Aria")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	rotated := NewPlayerTokensWithRotation("new-secret", "old-secret")
	name, err := rotated.CharacterName(token)
	if err != nil {
		t.Fatalf("token signed with previous secret should validate: %v", err)
	}
	if name != "Aria" {
		t.Errorf("characterName = %q", name)
	}

	// Without the previous secret configured, the old token is rejected.
	fresh := NewPlayerTokens("new-secret")
	if _, err := fresh.CharacterName(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
