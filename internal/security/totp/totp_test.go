package totp

import (
	"strings"
	"testing"
	"time"
)

func TestVerify_AcceptsCurrentStep(t *testing.T) {
	raw, b32, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 20 || len(b32) == 0 {
		t.Fatalf("unexpected secret: %d bytes, %q", len(raw), b32)
	}
	now := time.Unix(1700000000, 0)
	code := hotp(raw, now.Unix()/period)
	ok, counter := Verify(raw, code, now, DefaultWindow, nil)
	if !ok {
		t.Fatal("current-step code rejected")
	}
	if counter != now.Unix()/period {
		t.Fatalf("counter = %d, want %d", counter, now.Unix()/period)
	}
}

func TestVerify_WindowTolerance(t *testing.T) {
	raw, _, _ := GenerateSecret()
	now := time.Unix(1700000000, 0)

	// Código de 2 steps atrás debe validar con ventana ±2.
	old := hotp(raw, now.Unix()/period-2)
	if ok, _ := Verify(raw, old, now, 2, nil); !ok {
		t.Fatal("code 2 steps behind rejected with window 2")
	}
	// 3 steps atrás queda fuera.
	older := hotp(raw, now.Unix()/period-3)
	if ok, _ := Verify(raw, older, now, 2, nil); ok {
		t.Fatal("code 3 steps behind accepted with window 2")
	}
}

func TestVerify_AntiReplay(t *testing.T) {
	raw, _, _ := GenerateSecret()
	now := time.Unix(1700000000, 0)
	code := hotp(raw, now.Unix()/period)

	ok, counter := Verify(raw, code, now, DefaultWindow, nil)
	if !ok {
		t.Fatal("first use rejected")
	}
	// Mismo código con el counter ya consumido: rechazado.
	if ok, _ := Verify(raw, code, now, DefaultWindow, &counter); ok {
		t.Fatal("replayed code accepted")
	}
}

func TestVerify_RejectsMalformed(t *testing.T) {
	raw, _, _ := GenerateSecret()
	now := time.Now()
	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		if ok, _ := Verify(raw, code, now, DefaultWindow, nil); ok {
			t.Fatalf("malformed code %q accepted", code)
		}
	}
}

func TestOTPAuthURL(t *testing.T) {
	u := OTPAuthURL("Unified Inbox", "ana@acme.com", "JBSWY3DPEHPK3PXP")
	if !strings.HasPrefix(u, "otpauth://totp/") {
		t.Fatalf("bad scheme: %q", u)
	}
	for _, want := range []string{"secret=JBSWY3DPEHPK3PXP", "digits=6", "period=30", "algorithm=SHA1"} {
		if !strings.Contains(u, want) {
			t.Errorf("url missing %q: %s", want, u)
		}
	}
}

func TestDecodeSecret_RoundTrip(t *testing.T) {
	raw, b32, _ := GenerateSecret()
	got, err := DecodeSecret(b32)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(raw) {
		t.Fatal("decode mismatch")
	}
	// Tolerar padding y minúsculas.
	if _, err := DecodeSecret(strings.ToLower(b32) + "======"); err != nil {
		t.Fatalf("padded/lowercase secret rejected: %v", err)
	}
}

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 10 {
		t.Fatalf("got %d codes", len(codes))
	}
	seen := map[string]bool{}
	for _, c := range codes {
		if len(c) != 10 {
			t.Fatalf("code %q length %d", c, len(c))
		}
		if seen[c] {
			t.Fatal("duplicate backup code")
		}
		seen[c] = true
	}
}
