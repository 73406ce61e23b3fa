package securefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

var fastKDF = Argon2Params{Time: 1, MemKiB: 8 * 1024, Threads: 1, KeyLen: 32}

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	s := Sealer{KDF: fastKDF, AAD: []byte("doc-v1")}

	require.NoError(t, WriteJSON(path, doc{Name: "alice", Count: 3}, []byte("password1"), s))

	got, err := ReadJSON[doc](path, []byte("password1"), s)
	require.NoError(t, err)
	require.Equal(t, doc{Name: "alice", Count: 3}, got)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "alice")
}

func TestReadJSONWrongPasswordOrAAD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	s := Sealer{KDF: fastKDF, AAD: []byte("doc-v1")}
	require.NoError(t, WriteJSON(path, doc{Name: "bob"}, []byte("password1"), s))

	_, err := ReadJSON[doc](path, []byte("password2"), s)
	require.True(t, errors.Is(err, ErrInvalidPasswordOrCorrupt))

	_, err = ReadJSON[doc](path, []byte("password1"), Sealer{KDF: fastKDF, AAD: []byte("doc-v2")})
	require.True(t, errors.Is(err, ErrInvalidPasswordOrCorrupt))
}

func TestOpenRejectsTamperedEnvelope(t *testing.T) {
	s := Sealer{KDF: fastKDF}
	env, err := s.Seal([]byte(`{"name":"carol"}`), []byte("password1"))
	require.NoError(t, err)
	require.Equal(t, envelopeFormat, env.Format)
	require.Equal(t, fastKDF, env.KDF)

	b, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded Envelope
	require.NoError(t, json.Unmarshal(b, &decoded))
	plain, err := s.Open(decoded, []byte("password1"))
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"carol"}`, string(plain))

	decoded.Ciphertext[0] ^= 0xff
	_, err = s.Open(decoded, []byte("password1"))
	require.True(t, errors.Is(err, ErrInvalidPasswordOrCorrupt))

	decoded.Format = 9
	_, err = s.Open(decoded, []byte("password1"))
	require.ErrorContains(t, err, "unsupported envelope format")
}

func TestSealerDefaultsKDF(t *testing.T) {
	require.Equal(t, DefaultArgon2, Sealer{}.kdf())
	require.Equal(t, fastKDF, Sealer{KDF: fastKDF}.kdf())
}

func TestReadJSONMissingFile(t *testing.T) {
	_, err := ReadJSON[doc](filepath.Join(t.TempDir(), "none.json"), []byte("password1"), Sealer{})
	require.True(t, errors.Is(err, os.ErrNotExist))
}
