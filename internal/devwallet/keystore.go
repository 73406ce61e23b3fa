package devwallet

import (
	"crypto/ecdsa"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/prediction-market-client/internal/securefile"
)

var ErrKeystoreExists = errors.New("keystore already exists")

// Key is the on-disk (encrypted) account.
type Key struct {
	Version    int    `json:"version"`
	AddressHex string `json:"address"`
	PrivKeyHex string `json:"priv_key_hex"`

	CreatedAt string `json:"created_at,omitempty"` // RFC3339
}

func (k *Key) Address() common.Address {
	return common.HexToAddress(k.AddressHex)
}

func (k *Key) PrivateKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(k.PrivKeyHex), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "decode private key")
	}
	if crypto.PubkeyToAddress(key.PublicKey) != k.Address() {
		return nil, errors.New("keystore address does not match private key")
	}
	return key, nil
}

type Keystore struct {
	Path   string
	Sealer securefile.Sealer
}

// NewKeystore opens the keystore at path, or at the canonical config path when path is empty.
func NewKeystore(path string) (*Keystore, error) {
	if strings.TrimSpace(path) == "" {
		p, err := securefile.ConfigPath(constants.KeystoreFile)
		if err != nil {
			return nil, err
		}
		path = p
	}

	return &Keystore{
		Path:   path,
		Sealer: securefile.Sealer{KDF: securefile.DefaultArgon2, AAD: []byte(constants.KeystoreAAD)},
	}, nil
}

func (s *Keystore) Exists() bool {
	return securefile.Exists(s.Path)
}

func (s *Keystore) Load(password []byte) (*Key, error) {
	k, err := securefile.ReadJSON[Key](s.Path, password, s.Sealer)
	if err != nil {
		return nil, errors.Wrapf(err, "load keystore %s", s.Path)
	}
	return &k, nil
}

// Ensure loads the key or creates and persists a new random one when the file is missing.
func (s *Keystore) Ensure(password []byte) (*Key, error) {
	k, err := securefile.ReadJSON[Key](s.Path, password, s.Sealer)
	if err == nil {
		return &k, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "load keystore %s", s.Path)
	}

	nk, err := NewRandomKey()
	if err != nil {
		return nil, err
	}
	if err := s.Save(nk, password); err != nil {
		return nil, err
	}
	return nk, nil
}

// Import stores an existing hex private key. Refuses to overwrite unless force is set.
func (s *Keystore) Import(privHex string, password []byte, force bool) (*Key, error) {
	if s.Exists() && !force {
		return nil, errors.Wrapf(ErrKeystoreExists, "%s", s.Path)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privHex), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "decode private key")
	}

	k := keyFromECDSA(key)
	if err := s.Save(k, password); err != nil {
		return nil, err
	}
	return k, nil
}

func (s *Keystore) Save(k *Key, password []byte) error {
	return securefile.WriteJSON(s.Path, *k, password, s.Sealer)
}

func NewRandomKey() (*Key, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	return keyFromECDSA(key), nil
}

func keyFromECDSA(key *ecdsa.PrivateKey) *Key {
	return &Key{
		Version:    1,
		AddressHex: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivKeyHex: hexutil.Encode(crypto.FromECDSA(key)),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
