package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maplewind/maplewind-api/pkg/utilities"
)

const (
	// RegisterTokenTTL bounds how long a Kakao profile may wait for the user to
	// finish registration.
	RegisterTokenTTL = 5 * time.Minute

	refreshTokenBytes = 32
)

// IssuerConfig configures token signing.
type IssuerConfig struct {
	SecretKey []byte
	Algorithm string // HS256, HS384 or HS512
	AccessTTL time.Duration
}

// TokenIssuer signs access and register tokens and mints opaque refresh tokens.
type TokenIssuer struct {
	method    jwt.SigningMethod
	secret    []byte
	accessTTL time.Duration
	ids       *utilities.IDGenerator
	now       func() time.Time
}

type accessClaims struct {
	jwt.RegisteredClaims
}

// RegisterClaims carries a Kakao profile that has not been turned into an
// account yet. Empty strings mean the provider did not share the field.
type RegisterClaims struct {
	KakaoID     int64  `json:"kakao_id"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Birthdate   string `json:"birthdate,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Name        string `json:"name"`
	IsRegister  bool   `json:"is_register"`
	jwt.RegisteredClaims
}

// NewTokenIssuer validates cfg. ids may be nil, in which case token ids fall
// back to KSUIDs.
func NewTokenIssuer(cfg IssuerConfig, ids *utilities.IDGenerator) (*TokenIssuer, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, fmt.Errorf("%w: empty signing secret", ErrMisconfigured)
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("%w: access token ttl must be positive", ErrMisconfigured)
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(strings.TrimSpace(cfg.Algorithm)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", ErrMisconfigured, cfg.Algorithm)
	}
	return &TokenIssuer{
		method:    method,
		secret:    cfg.SecretKey,
		accessTTL: cfg.AccessTTL,
		ids:       ids,
		now:       time.Now,
	}, nil
}

// IssueAccessToken signs {sub, exp, iat, jti} for username.
func (t *TokenIssuer) IssueAccessToken(username string) (string, error) {
	now := t.now().UTC()
	claims := accessClaims{jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        t.ids.Next(),
	}}
	return jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
}

// IssueRegisterToken signs c with the fixed register TTL and the is_register marker.
func (t *TokenIssuer) IssueRegisterToken(c RegisterClaims) (string, error) {
	now := t.now().UTC()
	c.IsRegister = true
	c.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(RegisterTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        t.ids.Next(),
	}
	return jwt.NewWithClaims(t.method, c).SignedString(t.secret)
}

// IssueRefreshToken returns 256 random bits, base64url encoded without padding.
func (t *TokenIssuer) IssueRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest is the storage form of a refresh token: hex SHA-256, unsalted so the
// stored value can be found by equality.
func Digest(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// ParseAccessToken verifies an access token and returns its subject.
func (t *TokenIssuer) ParseAccessToken(token string) (string, error) {
	var c accessClaims
	if err := t.parse(token, &c); err != nil {
		return "", err
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return c.Subject, nil
}

// ParseRegisterToken verifies a register token. Tokens without the
// is_register marker are rejected, so access tokens cannot be redeemed here.
func (t *TokenIssuer) ParseRegisterToken(token string) (*RegisterClaims, error) {
	var c RegisterClaims
	if err := t.parse(token, &c); err != nil {
		return nil, err
	}
	if !c.IsRegister || c.KakaoID == 0 {
		return nil, fmt.Errorf("%w: not a register token", ErrInvalidToken)
	}
	return &c, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
