package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

const (
	digits = 6
	period = 30 // segundos por step (RFC 6238)

	// DefaultWindow: tolerancia de ±2 steps para compensar clock drift.
	DefaultWindow = 2
)

// GenerateSecret retorna 20 bytes aleatorios y su base32 sin padding (RFC 3548).
func GenerateSecret() (raw []byte, b32 string, err error) {
	raw = make([]byte, 20)
	if _, err = rand.Read(raw); err != nil {
		return nil, "", err
	}
	b32 = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	return raw, b32, nil
}

// DecodeSecret decodifica un secreto base32 (con o sin padding).
func DecodeSecret(b32 string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimSpace(b32))
	s = strings.TrimRight(s, "=")
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
}

// OTPAuthURL construye la URL otpauth:// para el QR de enrolamiento.
func OTPAuthURL(issuer, accountName, secretB32 string) string {
	label := url.PathEscape(fmt.Sprintf("%s:%s", issuer, accountName))
	q := url.Values{}
	q.Set("secret", secretB32)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprintf("%d", digits))
	q.Set("period", fmt.Sprintf("%d", period))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}

// Verify valida un código TOTP en ventana ±windowSteps.
// lastCounterUsed (si no es nil) evita replay: un counter ya aceptado
// no vuelve a validar. Retorna el counter ganador para persistirlo.
func Verify(secretRaw []byte, code string, t time.Time, windowSteps int, lastCounterUsed *int64) (ok bool, counter int64) {
	code = strings.TrimSpace(code)
	if len(code) != digits {
		return false, 0
	}
	if windowSteps < 0 {
		windowSteps = DefaultWindow
	}
	counter = t.Unix() / period
	for c := counter - int64(windowSteps); c <= counter+int64(windowSteps); c++ {
		if lastCounterUsed != nil && c <= *lastCounterUsed {
			continue // anti-replay
		}
		if hotp(secretRaw, c) == code {
			return true, c
		}
	}
	return false, 0
}

// GenerateBackupCodes produce n códigos de respaldo aleatorios (10 chars
// base32, mayúsculas). Se muestran una sola vez al enrolar.
func GenerateBackupCodes(n int) ([]string, error) {
	if n <= 0 {
		n = 10
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		b := make([]byte, 7)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		out = append(out, enc.EncodeToString(b)[:10])
	}
	return out, nil
}

// hotp: HOTP(K, C) con HMAC-SHA1 y truncado dinámico (RFC 4226).
func hotp(secretRaw []byte, counter int64) string {
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}
	m := hmac.New(sha1.New, secretRaw)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	return fmt.Sprintf("%0*d", digits, bin%int(math.Pow10(digits)))
}
