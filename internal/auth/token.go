package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	ErrSecretRequired = errors.New("JWT_SECRET must be set unless LOG_DEV=1 or JWT_ALLOW_DEV_SECRET=true")
)

const devSecret = "krishi-connect-dev-secret"

// Config holds token signing settings.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
	// AllowDevSecret permits signing with the built-in development secret.
	AllowDevSecret bool
}

// ConfigFromEnv reads JWT_SECRET, JWT_TTL and JWT_ISSUER. The development
// secret is allowed only with LOG_DEV=1 or JWT_ALLOW_DEV_SECRET=true.
func ConfigFromEnv() Config {
	ttl := 7 * 24 * time.Hour
	if v := os.Getenv("JWT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "krishi-connect"
	}
	allowDev := os.Getenv("LOG_DEV") == "1"
	if v, err := strconv.ParseBool(os.Getenv("JWT_ALLOW_DEV_SECRET")); err == nil {
		allowDev = v
	}
	return Config{Secret: os.Getenv("JWT_SECRET"), TTL: ttl, Issuer: issuer, AllowDevSecret: allowDev}
}

// UsesDevSecret reports whether no secret was configured.
func (c Config) UsesDevSecret() bool { return c.Secret == "" }

// Validate refuses a missing secret outside development.
func (c Config) Validate() error {
	if c.UsesDevSecret() && !c.AllowDevSecret {
		return ErrSecretRequired
	}
	return nil
}

// Claims is the signed token payload.
type Claims struct {
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. It is stateless and
// never consults the credential store: a token stays valid until it expires.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenService(cfg Config) *TokenService {
	secret := cfg.Secret
	if secret == "" {
		secret = devSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: cfg.Issuer, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for p valid for the configured TTL.
func (s *TokenService) Issue(p Principal) (string, time.Time, error) {
	if p.ID == "" || !p.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("issue token: incomplete principal")
	}
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role:  p.Role,
		Name:  p.Name,
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature and expiry and returns the embedded principal.
func (s *TokenService) Verify(raw string) (Principal, error) {
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: missing subject or role", ErrTokenInvalid)
	}
	return Principal{ID: claims.Subject, Role: claims.Role, Name: claims.Name, Email: claims.Email}, nil
}
