package chains

import (
	"math/big"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// maxCurrencyDecimals mirrors the wallet_addEthereumChain limit.
const maxCurrencyDecimals = 36

var ErrInvalidDescriptor = errors.New("invalid chain descriptor")

type NativeCurrency struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Symbol   string `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals" mapstructure:"decimals"`
}

// Descriptor is the wallet_addEthereumChain parameter object for a network.
// It is passed by value; use Clone before handing the slices to code that may mutate them.
type Descriptor struct {
	ChainID           string         `json:"chainId" yaml:"chainId" mapstructure:"chainId"`
	ChainName         string         `json:"chainName" yaml:"chainName" mapstructure:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency" mapstructure:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls" yaml:"rpcUrls" mapstructure:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty" yaml:"blockExplorerUrls" mapstructure:"blockExplorerUrls"`
}

var sapphireTestnet = Descriptor{
	ChainID:   "0x5aff", // 23295
	ChainName: "Oasis Sapphire Testnet",
	NativeCurrency: NativeCurrency{
		Name:     "Test ROSE",
		Symbol:   "tROSE",
		Decimals: 18,
	},
	RPCURLs:           []string{"https://testnet.sapphire.oasis.io"},
	BlockExplorerURLs: []string{"https://sapphire-explorer.oasis.io/testnet"},
}

// SapphireTestnet returns the default target network.
func SapphireTestnet() Descriptor {
	return sapphireTestnet.Clone()
}

func (d Descriptor) Clone() Descriptor {
	out := d
	out.RPCURLs = append([]string(nil), d.RPCURLs...)
	out.BlockExplorerURLs = append([]string(nil), d.BlockExplorerURLs...)
	return out
}

// ChainIDBig decodes the chain id quantity.
func (d Descriptor) ChainIDBig() (*big.Int, error) {
	id, err := hexutil.DecodeBig(d.ChainID)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "chainId %q: %v", d.ChainID, err)
	}
	return id, nil
}

// Key is the normalized chain id used for lookups.
func (d Descriptor) Key() string {
	return NormalizeChainID(d.ChainID)
}

// PrimaryRPC returns the first RPC endpoint.
func (d Descriptor) PrimaryRPC() string {
	if len(d.RPCURLs) == 0 {
		return ""
	}
	return d.RPCURLs[0]
}

// Validate applies the wallet_addEthereumChain parameter rules.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ChainID) == "" {
		return errors.Wrap(ErrInvalidDescriptor, "chainId is required")
	}
	id, err := hexutil.DecodeBig(d.ChainID)
	if err != nil {
		return errors.Wrapf(ErrInvalidDescriptor, "chainId %q must be a 0x-prefixed hex quantity without leading zeros", d.ChainID)
	}
	if id.Sign() <= 0 {
		return errors.Wrapf(ErrInvalidDescriptor, "chainId %q must be positive", d.ChainID)
	}
	if strings.TrimSpace(d.ChainName) == "" {
		return errors.Wrap(ErrInvalidDescriptor, "chainName is required")
	}
	if strings.TrimSpace(d.NativeCurrency.Symbol) == "" {
		return errors.Wrap(ErrInvalidDescriptor, "nativeCurrency.symbol is required")
	}
	if d.NativeCurrency.Decimals > maxCurrencyDecimals {
		return errors.Wrapf(ErrInvalidDescriptor, "nativeCurrency.decimals %d exceeds %d", d.NativeCurrency.Decimals, maxCurrencyDecimals)
	}
	if len(d.RPCURLs) == 0 {
		return errors.Wrap(ErrInvalidDescriptor, "rpcUrls must not be empty")
	}
	for _, raw := range d.RPCURLs {
		if !isURL(raw) {
			return errors.Wrapf(ErrInvalidDescriptor, "invalid rpc url %q", raw)
		}
	}
	for _, raw := range d.BlockExplorerURLs {
		if !isURL(raw) {
			return errors.Wrapf(ErrInvalidDescriptor, "invalid explorer url %q", raw)
		}
	}
	return nil
}

// FromChainID formats a numeric chain id as a hex quantity ("0x5aff").
func FromChainID(id uint64) string {
	return hexutil.EncodeUint64(id)
}

// NormalizeChainID lowercases and re-encodes a chain id so "0x05AFF" and "0x5aff" compare equal.
// Values that do not parse as hex are returned trimmed and lowercased.
func NormalizeChainID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	v, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return s
	}
	return hexutil.EncodeBig(v)
}

func isURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && u.Scheme != "" && u.Host != ""
}
