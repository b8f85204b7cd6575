package auth

import (
	"testing"
	"time"
)

func TestResetTokenRoundTrip(t *testing.T) {
	signer, err := NewResetTokenSigner("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := signer.Sign("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	userID, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestResetTokenRejectsWrongSecret(t *testing.T) {
	signer, err := NewResetTokenSigner("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	other, err := NewResetTokenSigner("another-secret", time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := other.Sign("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.Verify(token); err == nil {
		t.Fatal("token signed with a different secret should be rejected")
	}
}

func TestResetTokenRejectsGarbage(t *testing.T) {
	signer, err := NewResetTokenSigner("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	for _, tok := range []string{"", "not.a.jwt", "a.b"} {
		if _, err := signer.Verify(tok); err == nil {
			t.Fatalf("expected error for %q", tok)
		}
	}
}
