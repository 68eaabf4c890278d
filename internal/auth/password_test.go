package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashVerify(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plain password")
	}
	if !VerifyPassword("s3cret-pass", hash) {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}
	if VerifyPassword("s3cret-pass", "") {
		t.Fatal("expected empty hash to fail")
	}
}

func TestPasswordHashIsSalted(t *testing.T) {
	a, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("expected different hashes for the same input")
	}
	if !VerifyPassword("same-input", a) || !VerifyPassword("same-input", b) {
		t.Fatal("expected both hashes to verify")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestHashPasswordLengthLimit(t *testing.T) {
	atLimit := strings.Repeat("p", MaxPasswordBytes)
	hash, err := HashPassword(atLimit)
	if err != nil {
		t.Fatalf("hash at limit: %v", err)
	}
	if !VerifyPassword(atLimit, hash) {
		t.Fatal("expected password at the limit to verify")
	}

	// 37 two-byte runes: under the limit in characters, over it in bytes.
	for _, plain := range []string{strings.Repeat("p", MaxPasswordBytes+8), strings.Repeat("é", 37)} {
		if _, err := HashPassword(plain); !errors.Is(err, ErrPasswordTooLong) {
			t.Fatalf("expected ErrPasswordTooLong for %d bytes, got %v", len(plain), err)
		}
	}
}
