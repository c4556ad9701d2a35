package tokens

import (
	"strings"
	"testing"
)

func TestNewOpaque_UniqueAndURLSafe(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := NewOpaque(DefaultBytes)
		if err != nil {
			t.Fatalf("NewOpaque err: %v", err)
		}
		if len(tok) < 40 {
			t.Fatalf("token too short: %d", len(tok))
		}
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("token not urlsafe: %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated")
		}
		seen[tok] = true
	}
}

func TestNewOpaque_DefaultSize(t *testing.T) {
	tok, err := NewOpaque(0)
	if err != nil {
		t.Fatal(err)
	}
	// 32 bytes -> 43 chars base64url sin padding
	if len(tok) != 43 {
		t.Fatalf("got len %d, want 43", len(tok))
	}
}

func TestHashOf_StableAndDistinct(t *testing.T) {
	a := HashOf("abc")
	if a != HashOf("abc") {
		t.Fatal("hash not deterministic")
	}
	if a == HashOf("abd") {
		t.Fatal("distinct inputs collided")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("hash not urlsafe: %q", a)
	}
}
