package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOutcome(t *testing.T) {
	for _, s := range []string{"yes", "Y", " true ", "1"} {
		v, err := parseOutcome(s)
		require.NoError(t, err, s)
		require.True(t, v, s)
	}
	for _, s := range []string{"no", "N", "false", "0"} {
		v, err := parseOutcome(s)
		require.NoError(t, err, s)
		require.False(t, v, s)
	}
	_, err := parseOutcome("maybe")
	require.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, validatePassword([]byte("s3cret-pass!")))
	require.Error(t, validatePassword([]byte("short")))
	require.Error(t, validatePassword([]byte("has a space")))
	require.Error(t, validatePassword([]byte("tab\tinside!")))
}

func TestKeystorePasswordFromEnv(t *testing.T) {
	t.Setenv(passwordEnvVar, "correct-horse")
	pw, err := keystorePassword(true)
	require.NoError(t, err)
	require.Equal(t, "correct-horse", string(pw))

	t.Setenv(passwordEnvVar, "short")
	_, err = keystorePassword(false)
	require.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"connect"},
		{"switch-chain"},
		{"bet"},
		{"wallet", "init"},
		{"wallet", "serve"},
		{"oracle", "run"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}
}
