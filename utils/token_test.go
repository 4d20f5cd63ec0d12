package utils

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	j := NewJWTToken("test-signing-key")

	token, err := j.CreateToken(TokenObject{UserID: 42, Role: "vendor"}, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	user, err := j.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}
	if user.UserID != 42 || user.Role != "vendor" {
		t.Fatalf("unexpected token object: %+v", user)
	}

	exp, err := TokenExpiry(token)
	if err != nil {
		t.Fatalf("TokenExpiry returned error: %v", err)
	}
	if exp.Before(time.Now().Add(50*time.Minute)) || exp.After(time.Now().Add(61*time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
}

func TestVerifyToken_RejectsExpiredAndForeignTokens(t *testing.T) {
	j := NewJWTToken("test-signing-key")

	expired, err := j.CreateToken(TokenObject{UserID: 1}, -time.Minute)
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}
	if _, err := j.VerifyToken(expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	foreign, err := NewJWTToken("another-key").CreateToken(TokenObject{UserID: 1}, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}
	if _, err := j.VerifyToken(foreign); err == nil {
		t.Fatal("expected token signed with another key to be rejected")
	}
}

func TestTokenExpiry_RejectsGarbage(t *testing.T) {
	if _, err := TokenExpiry("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
