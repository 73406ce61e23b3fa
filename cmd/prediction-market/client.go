package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	clientconfig "github.com/quantumauth-io/prediction-market-client/cmd/prediction-market/config"
	"github.com/quantumauth-io/prediction-market-client/internal/market"
	"github.com/quantumauth-io/prediction-market-client/internal/provider/rpcprovider"
	"github.com/quantumauth-io/prediction-market-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"
)

func newSession(cfg *clientconfig.Config) (*wallet.Session, error) {
	target, err := cfg.TargetChain()
	if err != nil {
		return nil, err
	}
	return wallet.NewSession(rpcprovider.Locator(cfg.Wallet.URL), wallet.WithTargetChain(target)), nil
}

func withRequestTimeout(ctx context.Context, cfg *clientconfig.Config) (context.Context, context.CancelFunc) {
	if cfg.Wallet.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Wallet.RequestTimeout)
}

// reportWalletError prints the user-facing message for session failures.
func reportWalletError(cmd *cobra.Command, err error) error {
	var perr *wallet.ProviderError
	if errors.As(err, &perr) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), perr.Message)
		log.Error("wallet request failed", "kind", perr.Kind.String(), "code", perr.ErrorCode(), "error", fmt.Sprintf("%+v", perr))
	}
	return err
}

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect the wallet and make sure it is on the target chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			session, err := newSession(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := withRequestTimeout(cmd.Context(), cfg)
			defer cancel()

			res, err := session.Connect(ctx)
			if err != nil {
				return reportWalletError(cmd, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Address)
			return nil
		},
	}
}

func switchChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch-chain [chainId]",
		Short: "Switch the wallet to a configured chain, adding it first when the wallet does not know it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			session, err := newSession(cfg)
			if err != nil {
				return err
			}

			target := session.Target()
			if len(args) == 1 {
				d, ok := cfg.Chain(args[0])
				if !ok {
					return errors.Newf("chain %s is not configured", args[0])
				}
				target = d
			}

			ctx, cancel := withRequestTimeout(cmd.Context(), cfg)
			defer cancel()

			if err := session.SwitchOrAddChain(ctx, &target); err != nil {
				return reportWalletError(cmd, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wallet on %s (%s)\n", target.ChainName, target.ChainID)
			return nil
		},
	}
}

func parseOutcome(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0":
		return false, nil
	default:
		return false, errors.Newf("invalid outcome %q (use yes or no)", s)
	}
}

func betCmd() *cobra.Command {
	var (
		outcome string
		amount  string
		wait    bool
	)
	cmd := &cobra.Command{
		Use:   "bet",
		Short: "Place a bet on the market contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, err := parseOutcome(outcome)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			session, err := newSession(cfg)
			if err != nil {
				return err
			}
			client, err := market.NewClient(session, cfg.Market.Contract,
				market.WithPollInterval(cfg.Market.PollInterval),
				market.WithWaitTimeout(cfg.Market.WaitTimeout),
			)
			if err != nil {
				return err
			}

			ctx, cancel := withRequestTimeout(cmd.Context(), cfg)
			bet, err := client.PlaceBet(ctx, yes, amount)
			cancel()
			if err != nil {
				return reportWalletError(cmd, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), bet.TxHash.Hex())

			if !wait {
				return nil
			}
			r, err := client.WaitMined(cmd.Context(), bet.TxHash)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mined in block %s\n", r.BlockNumber.ToInt())
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "predicted outcome: yes or no")
	cmd.Flags().StringVar(&amount, "amount", "", "stake in the native currency, e.g. 0.1")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the transaction to be mined")
	_ = cmd.MarkFlagRequired("outcome")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
