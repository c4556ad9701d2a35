package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// DefaultBytes: 32 bytes aleatorios (256 bits), colisión despreciable.
// Nunca usar valores secuenciales ni math/rand para estos tokens.
const DefaultBytes = 32

// NewOpaque genera un token opaco aleatorio (base64url sin padding).
// El valor en claro se manda por email; en DB solo se guarda HashOf(token).
func NewOpaque(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = DefaultBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashOf devuelve sha256(token) en base64url sin padding, el formato
// persistido. El lookup por hash evita que un dump de DB exponga tokens vivos.
func HashOf(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
