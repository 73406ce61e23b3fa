// Package securefile stores password-protected JSON documents (Argon2id key derivation,
// XChaCha20-Poly1305 sealing) and resolves the app's config paths.
package securefile

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const envelopeFormat = 1

// ErrInvalidPasswordOrCorrupt hides whether the password or the file was wrong.
var ErrInvalidPasswordOrCorrupt = errors.New("invalid password or corrupted file")

type Argon2Params struct {
	Time    uint32 `json:"time"`
	MemKiB  uint32 `json:"memory_kib"`
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
}

var DefaultArgon2 = Argon2Params{Time: 2, MemKiB: 64 * 1024, Threads: 1, KeyLen: 32}

// Envelope is the on-disk form. Byte fields are base64 in JSON.
type Envelope struct {
	Format     int          `json:"format"`
	KDF        Argon2Params `json:"kdf"`
	Salt       []byte       `json:"salt"`
	Nonce      []byte       `json:"nonce"`
	Ciphertext []byte       `json:"ciphertext"`
}

// Sealer encrypts documents. AAD is bound to the ciphertext and must match on open.
type Sealer struct {
	KDF Argon2Params
	AAD []byte
}

func (s Sealer) kdf() Argon2Params {
	if s.KDF.KeyLen == 0 {
		return DefaultArgon2
	}
	return s.KDF
}

func deriveKey(password, salt []byte, p Argon2Params) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemKiB, p.Threads, p.KeyLen)
}

func (s Sealer) Seal(plain, password []byte) (Envelope, error) {
	env := Envelope{
		Format: envelopeFormat,
		KDF:    s.kdf(),
		Salt:   make([]byte, 16),
		Nonce:  make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err := rand.Read(env.Salt); err != nil {
		return Envelope{}, errors.Wrap(err, "salt")
	}
	if _, err := rand.Read(env.Nonce); err != nil {
		return Envelope{}, errors.Wrap(err, "nonce")
	}

	aead, err := chacha20poly1305.NewX(deriveKey(password, env.Salt, env.KDF))
	if err != nil {
		return Envelope{}, errors.Wrap(err, "cipher")
	}
	env.Ciphertext = aead.Seal(nil, env.Nonce, plain, s.AAD)
	return env, nil
}

func (s Sealer) Open(env Envelope, password []byte) ([]byte, error) {
	if env.Format != envelopeFormat {
		return nil, errors.Newf("unsupported envelope format %d", env.Format)
	}
	if len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrInvalidPasswordOrCorrupt
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, env.Salt, env.KDF))
	if err != nil {
		return nil, ErrInvalidPasswordOrCorrupt
	}
	plain, err := aead.Open(nil, env.Nonce, env.Ciphertext, s.AAD)
	if err != nil {
		return nil, ErrInvalidPasswordOrCorrupt
	}
	return plain, nil
}

// WriteJSON seals v and writes it to path, creating parent directories.
func WriteJSON[T any](path string, v T, password []byte, s Sealer) error {
	plain, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal document")
	}
	env, err := s.Seal(plain, password)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirectoryPerm); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	return AtomicWriteFile(path, b, constants.FilePerm)
}

// ReadJSON opens the document at path. A missing file matches os.ErrNotExist.
func ReadJSON[T any](path string, password []byte, s Sealer) (T, error) {
	var out T
	b, err := os.ReadFile(path)
	if err != nil {
		return out, errors.Wrap(err, "read sealed file")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return out, errors.Wrap(err, "decode envelope")
	}
	plain, err := s.Open(env, password)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(plain, &out); err != nil {
		return out, errors.Wrap(err, "decode document")
	}
	return out, nil
}
