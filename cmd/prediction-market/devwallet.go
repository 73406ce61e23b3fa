package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	clientconfig "github.com/quantumauth-io/prediction-market-client/cmd/prediction-market/config"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/prediction-market-client/internal/devwallet"
	"github.com/quantumauth-io/prediction-market-client/internal/securefile"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"
)

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Local development wallet",
	}
	cmd.AddCommand(walletInitCmd(), walletServeCmd())
	return cmd
}

func walletInitCmd() *cobra.Command {
	var (
		importKey string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create (or import) the dev wallet key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ks, err := devwallet.NewKeystore(cfg.DevWallet.KeystorePath)
			if err != nil {
				return err
			}
			if ks.Exists() && !force {
				return errors.Wrapf(devwallet.ErrKeystoreExists, "%s (use --force to replace)", ks.Path)
			}

			pw, err := keystorePassword(true)
			if err != nil {
				return err
			}
			defer zeroBytes(pw)

			var key *devwallet.Key
			if strings.TrimSpace(importKey) != "" {
				key, err = ks.Import(importKey, pw, force)
			} else {
				key, err = devwallet.NewRandomKey()
				if err == nil {
					err = ks.Save(key, pw)
				}
			}
			if err != nil {
				return err
			}

			log.Info("dev wallet key stored", "path", ks.Path, "address", key.AddressHex)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key.AddressHex)
			return nil
		},
	}
	cmd.Flags().StringVar(&importKey, "import-key", "", "hex private key to import instead of generating one")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keystore")
	return cmd
}

func walletServeCmd() *cobra.Command {
	var (
		host string
		port string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dev wallet JSON-RPC endpoint on loopback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.DevWallet.Host = host
			}
			if port != "" {
				cfg.DevWallet.Port = port
			}
			return serveDevWallet(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides devwallet.host)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides devwallet.port)")
	return cmd
}

func serveDevWallet(ctx context.Context, cfg *clientconfig.Config) error {
	ks, err := devwallet.NewKeystore(cfg.DevWallet.KeystorePath)
	if err != nil {
		return err
	}
	if !ks.Exists() {
		return errors.Newf("no dev wallet key at %s; run `%s wallet init` first", ks.Path, constants.AppName)
	}

	pw, err := keystorePassword(false)
	if err != nil {
		return err
	}
	key, err := ks.Load(pw)
	zeroBytes(pw)
	if err != nil {
		return err
	}
	priv, err := key.PrivateKey()
	if err != nil {
		return err
	}

	registry, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	approver, err := newApprover(cfg.DevWallet.Approver)
	if err != nil {
		return err
	}

	w, err := devwallet.New(devwallet.Config{
		Key:         priv,
		Registry:    registry,
		Approver:    approver,
		ActiveChain: cfg.DevWallet.ActiveChain,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	srv, err := devwallet.NewServer(w, devwallet.ServerConfig{
		Host:           cfg.DevWallet.Host,
		Port:           cfg.DevWallet.Port,
		AllowedOrigins: cfg.DevWallet.AllowedOrigins,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func openRegistry(ctx context.Context, cfg *clientconfig.Config) (*chains.Registry, error) {
	path := strings.TrimSpace(cfg.DevWallet.ChainsPath)
	if path == "" {
		p, err := securefile.ConfigPath(constants.ChainsFile)
		if err != nil {
			return nil, err
		}
		path = p
	}

	registry := chains.NewRegistry(path)
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	if err := registry.EnsureDefaults(ctx, cfg.Chains); err != nil {
		return nil, err
	}
	log.Info("chain registry ready", "path", path, "chains", len(registry.List()))
	return registry, nil
}

func newApprover(mode string) (devwallet.Approver, error) {
	switch mode {
	case clientconfig.ApproverAutoApprove:
		log.Warn("dev wallet approves every request without asking")
		return devwallet.AutoApprove, nil
	case clientconfig.ApproverAutoReject:
		return devwallet.AutoReject, nil
	default:
		return devwallet.NewTerminalApprover()
	}
}
