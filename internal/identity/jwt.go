package identity

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

const bearerPrefix = "bearer "

// JWTVerifier validates bearer access tokens signed with RS256 or ES256
// against a public key, issuer, and audience.
type JWTVerifier struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// Claims holds the JWT claims the verifier reads from access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// NewJWTVerifier returns a JWTVerifier for the given PEM public key
// (inline or a file path), issuer, and audience.
func NewJWTVerifier(publicKeyPEM, issuer, audience string) (*JWTVerifier, error) {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &JWTVerifier{publicKey: pub, issuer: issuer, audience: audience}, nil
}

// Verify parses the Authorization header and validates the bearer token.
// Missing, malformed, expired, or otherwise unverifiable tokens yield a nil
// Identity with no error; callers treat that as anonymous.
func (v *JWTVerifier) Verify(_ context.Context, rawAuthHeader string) (*Identity, error) {
	token := extractBearer(rawAuthHeader)
	if token == "" {
		return nil, nil
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return v.publicKey, nil
		default:
			return nil, errors.New("unexpected signing method")
		}
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, nil
	}

	return &Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// extractBearer returns the token from an "Authorization: Bearer x" value,
// or "" if missing or malformed.
func extractBearer(header string) string {
	h := strings.TrimSpace(header)
	if len(h) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}

// ParsePublicKey parses a PEM-encoded public key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	pemBytes, err := loadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		switch key.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey:
			return key, nil
		}
		return nil, ErrInvalidKey
	default:
		return nil, ErrInvalidKey
	}
}

// loadPEM reads content from path if s does not look like inline PEM; otherwise returns s as bytes.
func loadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(s), nil
	}
	return os.ReadFile(s)
}
