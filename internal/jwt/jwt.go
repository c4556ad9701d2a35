// Package jwt emite y valida los tokens de sesión del panel. Una sola clave
// ed25519 activa, derivada de una seed de configuración; sin rotación ni
// JWKS: el único consumidor de estos tokens es este mismo servicio.
package jwt

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken cubre firma inválida, token vencido y claims malformados.
var ErrInvalidToken = errors.New("invalid session token")

// Claims son los claims de sesión que viajan en el token.
type Claims struct {
	IdentityID string // sub
	TenantID   string
	MemberID   string
	Role       string
}

// Issuer firma tokens de sesión con EdDSA.
type Issuer struct {
	iss  string
	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	ttl  time.Duration
	now  func() time.Time
}

// NewIssuer deriva el par de claves de una seed (mínimo 32 bytes de entropía,
// base64 o raw). La misma seed produce la misma clave: los tokens sobreviven
// un restart.
func NewIssuer(iss, seed string, ttl time.Duration) (*Issuer, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("jwt: seed too short (need >= 32 bytes)")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	sum := sha256.Sum256([]byte(seed))
	priv := ed25519.NewKeyFromSeed(sum[:])
	kidSum := sha256.Sum256(priv.Public().(ed25519.PublicKey))
	return &Issuer{
		iss:  iss,
		kid:  base64.RawURLEncoding.EncodeToString(kidSum[:8]),
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

// WithClock reemplaza la fuente de tiempo. Solo para tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue firma un token de sesión. Retorna el JWT y su expiración.
func (i *Issuer) Issue(c Claims) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := jwtv5.MapClaims{
		"iss":    i.iss,
		"sub":    c.IdentityID,
		"iat":    now.Unix(),
		"nbf":    now.Unix(),
		"exp":    exp.Unix(),
		"tenant": c.TenantID,
		"member": c.MemberID,
		"role":   c.Role,
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(i.priv)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, exp, nil
}

// Parse valida firma, issuer y ventana temporal, y devuelve los claims.
// Cualquier causa de invalidez colapsa en ErrInvalidToken.
func (i *Issuer) Parse(token string) (*Claims, error) {
	tok, err := jwtv5.Parse(token,
		func(t *jwtv5.Token) (any, error) { return i.pub, nil },
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(i.iss),
		jwtv5.WithTimeFunc(func() time.Time { return i.now() }),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	tenant, _ := mc["tenant"].(string)
	member, _ := mc["member"].(string)
	role, _ := mc["role"].(string)
	return &Claims{IdentityID: sub, TenantID: tenant, MemberID: member, Role: role}, nil
}
