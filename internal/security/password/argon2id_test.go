package password

import (
	"strings"
	"testing"
)

// parámetros livianos para no pagar 64 MiB por hash en tests
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerifyRoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "s3cret-pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC format: %q", phc)
	}
	if !Verify("s3cret-pass", phc) {
		t.Fatal("correct password did not verify")
	}
	if Verify("wrong-pass", phc) {
		t.Fatal("wrong password verified")
	}
}

func TestHashSaltsAreUnique(t *testing.T) {
	a, err := Hash(testParams, "s3cret-pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash(testParams, "s3cret-pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
	if !Verify("s3cret-pass", a) || !Verify("s3cret-pass", b) {
		t.Fatal("both hashes should verify")
	}
}

func TestVerifyMalformedIsFalse(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",   // variante incorrecta
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs", // versión incorrecta
		"$argon2id$v=19$m=8192,t=1$c2FsdA$ZGs",     // params incompletos
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$ZGs",    // salt no-base64
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$!!!", // dk no-base64
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",     // faltan campos
	}
	for _, phc := range cases {
		if Verify("whatever", phc) {
			t.Errorf("Verify(%q) = true, want false", phc)
		}
	}
}

func TestCheckPolicy(t *testing.T) {
	if err := CheckPolicy("1234567"); err == nil {
		t.Error("7 chars should fail policy")
	}
	if err := CheckPolicy("12345678"); err != nil {
		t.Errorf("8 chars should pass policy: %v", err)
	}
}
