package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmdListsSubcommands(t *testing.T) {
	out, err := runCmd(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "run-once", "migrate", "token"} {
		assert.Contains(t, out, name)
	}
}

func TestTokenCmd(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	t.Setenv("SECRET_KEY", secret)

	out, err := runCmd(t, "token", "user-42", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := utils.ValidateToken(secret, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
}

func TestTokenCmdRequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	_, err := runCmd(t, "token", "user-42")
	assert.Error(t, err)

	_, err = runCmd(t, "token")
	assert.Error(t, err)
}

func TestCommandsRejectInvalidConfig(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	for _, name := range []string{"migrate", "run-once", "serve"} {
		_, err := runCmd(t, name)
		assert.Error(t, err, name)
	}
}
