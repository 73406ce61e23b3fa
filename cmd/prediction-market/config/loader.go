package config

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/spf13/viper"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

const envPrefix = "PM"

type WalletSettings struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	TargetChain    string        `mapstructure:"targetChain"`
}

type DevWalletSettings struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	KeystorePath   string   `mapstructure:"keystorePath"`
	ChainsPath     string   `mapstructure:"chainsPath"`
	Approver       string   `mapstructure:"approver"`
	ActiveChain    string   `mapstructure:"activeChain"`
}

type MarketSettings struct {
	Contract     string        `mapstructure:"contract"`
	WaitTimeout  time.Duration `mapstructure:"waitTimeout"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

type Config struct {
	Wallet    WalletSettings      `mapstructure:"wallet"`
	DevWallet DevWalletSettings   `mapstructure:"devwallet"`
	Market    MarketSettings      `mapstructure:"market"`
	Chains    []chains.Descriptor `mapstructure:"chains"`
}

// Approver modes
const (
	ApproverTerminal    = "terminal"
	ApproverAutoApprove = "auto-approve"
	ApproverAutoReject  = "auto-reject"
)

// SearchPaths are the directories checked for config.yaml, in increasing priority.
func SearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".config", constants.AppName),
		filepath.Join(home, "config"),
		".",
	}
}

// Load merges the embedded defaults, config.yaml files from SearchPaths (or explicitFile when set)
// and PM_* environment variables (PM_WALLET_URL, PM_DEVWALLET_PORT, ...).
func Load(explicitFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, errors.Wrap(err, "read embedded config")
	}

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", explicitFile)
		}
	} else {
		for _, dir := range SearchPaths() {
			path := filepath.Join(dir, constants.ConfigFile)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates chain entries and fills empty values with defaults.
func (c *Config) Normalize() error {
	seen := map[string]struct{}{}
	out := make([]chains.Descriptor, 0, len(c.Chains))
	for i, d := range c.Chains {
		d.ChainID = chains.NormalizeChainID(d.ChainID)
		if err := d.Validate(); err != nil {
			return errors.Wrapf(err, "chains[%d]", i)
		}
		if _, ok := seen[d.Key()]; ok {
			continue
		}
		seen[d.Key()] = struct{}{}
		out = append(out, d)
	}
	c.Chains = out

	if c.Wallet.TargetChain == "" {
		c.Wallet.TargetChain = chains.SapphireTestnet().ChainID
	}
	c.Wallet.TargetChain = chains.NormalizeChainID(c.Wallet.TargetChain)

	switch strings.ToLower(strings.TrimSpace(c.DevWallet.Approver)) {
	case "", ApproverTerminal:
		c.DevWallet.Approver = ApproverTerminal
	case ApproverAutoApprove, ApproverAutoReject:
		c.DevWallet.Approver = strings.ToLower(strings.TrimSpace(c.DevWallet.Approver))
	default:
		return errors.Newf("invalid devwallet.approver %q (allowed: %s, %s, %s)",
			c.DevWallet.Approver, ApproverTerminal, ApproverAutoApprove, ApproverAutoReject)
	}

	switch {
	case c.Market.PollInterval <= 0:
		c.Market.PollInterval = constants.ReceiptPollInterval
	case c.Market.PollInterval < constants.MinReceiptPollInterval:
		return errors.Newf("market.pollInterval %s is below the %s minimum",
			c.Market.PollInterval, constants.MinReceiptPollInterval)
	}
	if c.Market.WaitTimeout <= 0 {
		c.Market.WaitTimeout = constants.ReceiptWaitTimeout
	}
	return nil
}

// Chain looks up a configured chain. The Sapphire testnet descriptor is always available.
func (c *Config) Chain(chainID string) (chains.Descriptor, bool) {
	key := chains.NormalizeChainID(chainID)
	for _, d := range c.Chains {
		if d.Key() == key {
			return d.Clone(), true
		}
	}
	if def := chains.SapphireTestnet(); def.Key() == key {
		return def, true
	}
	return chains.Descriptor{}, false
}

// TargetChain is the descriptor the wallet session keeps the wallet on.
func (c *Config) TargetChain() (chains.Descriptor, error) {
	d, ok := c.Chain(c.Wallet.TargetChain)
	if !ok {
		return chains.Descriptor{}, errors.Newf("wallet.targetChain %s is not in chains", c.Wallet.TargetChain)
	}
	return d, nil
}
