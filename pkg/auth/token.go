package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/pkg/config"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// Tokens signs and verifies HS256 access tokens for one issuer. Production
// tokens come from the identity provider; Mint serves tooling and tests.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

func (t *Tokens) usable() error {
	if len(t.secret) == 0 {
		return errors.New("jwt secret is required")
	}
	if t.issuer == "" {
		return errors.New("jwt issuer is required")
	}
	return nil
}

// Mint signs claims issued at now. The registered claims are filled in from
// the configuration; an empty ID gets a random one.
func (t *Tokens) Mint(now time.Time, claims Claims) (string, error) {
	if err := t.usable(); err != nil {
		return "", err
	}
	if t.ttl <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	claims.Issuer = t.issuer
	claims.Subject = claims.UserID.String()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	if err := t.usable(); err != nil {
		return nil, err
	}
	claims := &Claims{}
	if _, err := t.parser.ParseWithClaims(raw, claims, t.key); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) key(*jwt.Token) (any, error) { return t.secret, nil }
