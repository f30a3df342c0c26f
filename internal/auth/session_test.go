package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestSessionRoundTrip(t *testing.T) {
	token, err := MintSession("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("MintSession() error = %v", err)
	}

	claims, err := ParseClaims(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if claims.Subject != operatorSubject {
		t.Errorf("subject = %q", claims.Subject)
	}
}

func TestParseClaimsWrongSecret(t *testing.T) {
	token, err := MintSession("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("MintSession() error = %v", err)
	}
	if _, err := ParseClaims(token, "other-secret"); err == nil {
		t.Error("ParseClaims() accepted a token signed with a different secret")
	}
}

func TestParseClaimsExpired(t *testing.T) {
	token, err := MintSession("test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("MintSession() error = %v", err)
	}
	if _, err := ParseClaims(token, "test-secret"); err == nil {
		t.Error("ParseClaims() accepted an expired token")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	if err := VerifyPassword("hunter2", string(hash)); err != nil {
		t.Errorf("VerifyPassword() error = %v", err)
	}
	if err := VerifyPassword("wrong", string(hash)); err == nil {
		t.Error("VerifyPassword() accepted a wrong password")
	}
}
