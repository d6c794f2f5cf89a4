package application

import (
	"errors"
	"strings"
	"testing"
)

var testArgon2idParams = Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

func TestHashTokenRoundTrip(t *testing.T) {
	t.Parallel()

	encoded, err := HashToken("s3cret-token", testArgon2idParams)
	if err != nil {
		t.Fatalf("expected hash, got %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	if err := VerifyToken(encoded, "s3cret-token"); err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}
	if err := VerifyToken(encoded, "other"); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}
}

func TestHashTokenUsesRandomSalt(t *testing.T) {
	t.Parallel()

	a, err := HashToken("token", testArgon2idParams)
	if err != nil {
		t.Fatalf("expected hash, got %v", err)
	}
	b, err := HashToken("token", testArgon2idParams)
	if err != nil {
		t.Fatalf("expected hash, got %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct hashes for the same token")
	}
}

func TestHashTokenRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	if _, err := HashToken("", testArgon2idParams); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestVerifyTokenRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"plain":                             ErrInvalidTokenHash,
		"$bcrypt$v=19$m=1,t=1,p=1$aa$bb":    ErrInvalidTokenHash,
		"$argon2id$v=18$m=1,t=1,p=1$aa$bb":  ErrIncompatibleTokenVersion,
		"$argon2id$v=19$bogus$aa$bb":        ErrInvalidTokenHash,
		"$argon2id$v=19$m=1,t=1,p=1$!!$bb":  ErrInvalidTokenHash,
		"$argon2id$v=19$m=1,t=1,p=1$YWE$!!": ErrInvalidTokenHash,
	}
	for encoded, want := range cases {
		if err := VerifyToken(encoded, "token"); !errors.Is(err, want) {
			t.Fatalf("expected %v for %q, got %v", want, encoded, err)
		}
	}
}
