package securefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	for env, sub := range map[string]string{"": "", "production": "", "local": "local", "DEV": "develop"} {
		t.Setenv("PM_ENV", env)
		p, err := ConfigPath("chains.json")
		require.NoError(t, err, env)
		require.Equal(t, filepath.Join(home, ".config", "prediction-market", sub, "chains.json"), p, env)
	}

	t.Setenv("PM_ENV", "staging")
	_, err := ConfigPath("chains.json")
	require.ErrorContains(t, err, "invalid PM_ENV")

	t.Setenv("PM_ENV", "")
	_, err = ConfigPath(" ")
	require.Error(t, err)
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.False(t, Exists(path))

	require.NoError(t, AtomicWriteFile(path, []byte("one"), 0o600))
	require.NoError(t, AtomicWriteFile(path, []byte("two"), 0o600))
	require.True(t, Exists(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	err = AtomicWriteFile(filepath.Join(dir, "missing", "x.json"), []byte("x"), 0o600)
	require.Error(t, err)
}
