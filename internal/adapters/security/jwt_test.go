package security

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/ports"
)

func TestJWTSignParseRoundTrip(t *testing.T) {
	signer, err := NewEphemeralJWTSigner("kid-1")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	in := ports.AuthClaims{
		UserID:    uuid.New(),
		Email:     "jwt@example.com",
		Role:      "parent",
		SessionID: uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	raw, err := signer.Sign(in)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	out, err := signer.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.UserID != in.UserID || out.SessionID != in.SessionID {
		t.Fatalf("identity mismatch: %+v", out)
	}
	if out.Email != in.Email || out.Role != in.Role {
		t.Fatalf("claims mismatch: %+v", out)
	}
	if out.KeyID != "kid-1" {
		t.Fatalf("kid not carried: %q", out.KeyID)
	}
	if !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("expiry drift: %v vs %v", out.ExpiresAt, in.ExpiresAt)
	}
}

func TestJWTRejectsForeignSignature(t *testing.T) {
	a, err := NewEphemeralJWTSigner("kid-a")
	if err != nil {
		t.Fatalf("signer a: %v", err)
	}
	b, err := NewEphemeralJWTSigner("kid-b")
	if err != nil {
		t.Fatalf("signer b: %v", err)
	}

	now := time.Now().UTC()
	raw, err := a.Sign(ports.AuthClaims{
		UserID:    uuid.New(),
		SessionID: uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := b.ParseAndValidate(raw); err == nil {
		t.Fatalf("token signed by another key must not validate")
	}
}

func TestJWTRejectsExpired(t *testing.T) {
	signer, err := NewEphemeralJWTSigner("kid-exp")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	past := time.Now().UTC().Add(-2 * time.Hour)
	raw, err := signer.Sign(ports.AuthClaims{
		UserID:    uuid.New(),
		SessionID: uuid.New(),
		IssuedAt:  past,
		ExpiresAt: past.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(raw); err == nil {
		t.Fatalf("expired token must not validate")
	}
}

func TestPublicJWKsShape(t *testing.T) {
	signer, err := NewEphemeralJWTSigner("kid-jwks")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	keys, err := signer.PublicJWKs()
	if err != nil {
		t.Fatalf("jwks: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected one key, got %d", len(keys))
	}
	k := keys[0]
	if k["kid"] != "kid-jwks" || k["kty"] != "RSA" || k["alg"] != "RS256" {
		t.Fatalf("unexpected jwk: %v", k)
	}
	if n, _ := k["n"].(string); n == "" {
		t.Fatalf("modulus missing")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)
	hash, err := h.Hash("CorrectHorse1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.Compare(hash, "CorrectHorse1"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := h.Compare(hash, "WrongPass99"); err == nil {
		t.Fatalf("wrong password must not compare")
	}
}
