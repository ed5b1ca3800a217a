package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(now *time.Time) *TokenService {
	s := NewTokenService(Config{Secret: "test-secret", TTL: time.Hour, Issuer: "krishi-connect"})
	s.now = func() time.Time { return *now }
	return s
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestTokens(&now)

	principals := []Principal{
		{ID: "101", Role: RoleFarmer, Name: "Asha Patil", Email: "asha@example.com"},
		{ID: "202", Role: RoleGovernment, Name: "District Officer"},
	}
	for _, p := range principals {
		tok, exp, err := s.Issue(p)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), exp)

		got, err := s.Verify(tok)
		require.NoError(t, err)
		if diff := cmp.Diff(p, got); diff != "" {
			t.Fatalf("principal mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestVerifyExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestTokens(&now)
	tok, _, err := s.Issue(Principal{ID: "1", Role: RoleFarmer, Name: "A"})
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = s.Verify(tok)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsTampering(t *testing.T) {
	now := time.Now()
	s := newTestTokens(&now)
	tok, _, err := s.Issue(Principal{ID: "1", Role: RoleFarmer, Name: "A"})
	require.NoError(t, err)

	other := NewTokenService(Config{Secret: "other-secret", TTL: time.Hour, Issuer: "krishi-connect"})
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	_, err = s.Verify(parts[0] + "." + parts[1] + ".AAAA")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsUnsignedAndUnknownRole(t *testing.T) {
	now := time.Now()
	s := newTestTokens(&now)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: RoleGovernment,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "krishi-connect",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	bad := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: Role("admin"),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "krishi-connect",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	raw, err = bad.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueRequiresCompletePrincipal(t *testing.T) {
	now := time.Now()
	s := newTestTokens(&now)
	_, _, err := s.Issue(Principal{Role: RoleFarmer})
	assert.Error(t, err)
	_, _, err = s.Issue(Principal{ID: "1", Role: Role("admin")})
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("JWT_ISSUER", "")
	cfg := ConfigFromEnv()
	assert.True(t, cfg.UsesDevSecret())
	assert.Equal(t, 30*time.Minute, cfg.TTL)
	assert.Equal(t, "krishi-connect", cfg.Issuer)
}

func TestConfigValidateSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		logDev   string
		allowDev string
		wantErr  bool
	}{
		{"configured secret", "s3cret", "", "", false},
		{"missing secret in production", "", "", "", true},
		{"missing secret in dev mode", "", "1", "", false},
		{"explicitly allowed", "", "", "true", false},
		{"explicit deny beats dev mode", "", "1", "false", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("LOG_DEV", tt.logDev)
			t.Setenv("JWT_ALLOW_DEV_SECRET", tt.allowDev)
			err := ConfigFromEnv().Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSecretRequired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Farmer ")
	assert.True(t, ok)
	assert.Equal(t, RoleFarmer, r)
	_, ok = ParseRole("admin")
	assert.False(t, ok)
}
