package oracle

import (
	"math/big"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings configures the resolver. Values come from the environment, optionally seeded from .env files.
type Settings struct {
	PrivateKey   string `envconfig:"ORACLE_PRIVATE_KEY" required:"true"`
	RPCURL       string `envconfig:"ORACLE_RPC_URL" default:"https://testnet.sapphire.oasis.io"`
	Contract     string `envconfig:"ORACLE_CONTRACT" default:"0xAe599d6C9C53599E70342E7293b1ce8359Eb8a68"`
	ChainID      uint64 `envconfig:"ORACLE_CHAIN_ID" default:"23295"`
	GasLimit     uint64 `envconfig:"ORACLE_GAS_LIMIT" default:"200000"`
	GasPriceGwei uint64 `envconfig:"ORACLE_GAS_PRICE_GWEI" default:"100"`
}

// LoadSettings reads .env files (missing ones are ignored) and then the process environment.
// Variables already set in the environment win over .env values.
func LoadSettings(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Settings{}, errors.Wrapf(err, "load %s", f)
		}
	}

	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, errors.Wrap(err, "failed to process oracle settings")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.RPCURL) == "" {
		return errors.New("ORACLE_RPC_URL is empty")
	}
	if !common.IsHexAddress(s.Contract) {
		return errors.Newf("ORACLE_CONTRACT %q is not an address", s.Contract)
	}
	if s.ChainID == 0 {
		return errors.New("ORACLE_CHAIN_ID must be set")
	}
	if s.GasLimit == 0 {
		return errors.New("ORACLE_GAS_LIMIT must be positive")
	}
	return nil
}

func (s Settings) ContractAddress() common.Address {
	return common.HexToAddress(s.Contract)
}

func (s Settings) GasPriceWei() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(s.GasPriceGwei), big.NewInt(1_000_000_000))
}
