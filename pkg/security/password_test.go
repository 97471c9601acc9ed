package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/security"
)

func testHasher(t *testing.T) *security.Hasher {
	t.Helper()
	h, err := security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("NewHasher returned error: %v", err)
	}
	return h
}

func TestHashAndVerifyPassword(t *testing.T) {
	h := testHasher(t)

	hash, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}
	if strings.Contains(hash, "Passw0rd") {
		t.Fatal("hash must not contain the plaintext")
	}

	ok, err := h.Verify("Passw0rd", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("Verify failed for the correct password")
	}

	ok, err = h.Verify("passw0rd", hash)
	if err != nil {
		t.Fatalf("Verify returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher(t)

	first, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to yield distinct hashes")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	h := testHasher(t)
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
	} {
		if _, err := h.Verify("irrelevant", encoded); err == nil {
			t.Fatalf("expected error for malformed hash %q", encoded)
		}
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := testHasher(t).Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestPasswordStrong(t *testing.T) {
	cases := map[string]bool{
		"Secret1":   true,
		"secret1":   false,
		"SECRET1":   false,
		"Secretive": false,
		"Ünïcode9a": true,
		"":          false,
	}
	for pw, want := range cases {
		if got := security.PasswordStrong(pw); got != want {
			t.Errorf("PasswordStrong(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestNeedsRehashTracksCostSettings(t *testing.T) {
	h := testHasher(t)
	current, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if h.NeedsRehash(current) {
		t.Fatal("hash produced with current settings should not need a rehash")
	}

	stronger, err := security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    16 * 1024,
		ArgonTime:        2,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("NewHasher returned error: %v", err)
	}
	if !stronger.NeedsRehash(current) {
		t.Fatal("weaker hash should need a rehash under stronger settings")
	}
	if ok, err := stronger.Verify("Passw0rd", current); err != nil || !ok {
		t.Fatalf("old hashes must still verify, ok=%v err=%v", ok, err)
	}
	if !h.NeedsRehash("garbage") {
		t.Fatal("unparseable hash should need a rehash")
	}
}
