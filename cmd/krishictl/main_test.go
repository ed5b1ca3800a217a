package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger = zap.NewNop().Sugar()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "ctl-test")

	out, err := execute(t, "token", "--user-id", "42", "--role", "Government", "--name", "Asha", "--email", "asha@example.com")
	require.NoError(t, err)

	p, err := auth.NewTokenService(auth.ConfigFromEnv()).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, auth.Principal{ID: "42", Role: auth.RoleGovernment, Name: "Asha", Email: "asha@example.com"}, p)
}

func TestTokenCommandRejectsBadInput(t *testing.T) {
	_, err := execute(t, "token", "--user-id", "", "--role", "farmer")
	assert.ErrorContains(t, err, "--user-id is required")

	_, err = execute(t, "token", "--user-id", "7", "--role", "admin")
	assert.ErrorContains(t, err, `unknown role "admin"`)
}

func TestTokenCommandRefusesDevSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LOG_DEV", "")
	t.Setenv("JWT_ALLOW_DEV_SECRET", "")

	out, err := execute(t, "token", "--user-id", "9", "--role", "government", "--name", "x")
	assert.ErrorIs(t, err, auth.ErrSecretRequired)
	assert.Empty(t, out)
}

func TestDeactivateRequiresUserID(t *testing.T) {
	_, err := execute(t, "deactivate-user", "--user-id", "")
	assert.ErrorContains(t, err, "--user-id is required")
}
