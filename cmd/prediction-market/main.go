package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clientconfig "github.com/quantumauth-io/prediction-market-client/cmd/prediction-market/config"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           constants.AppName,
	Short:         "Prediction market client",
	Long:          "Connects a wallet, keeps it on the market chain and places bets. Also ships a local dev wallet and the bet resolver.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: search ~/.config/prediction-market, ~/config and .)")
	rootCmd.Version = Version

	rootCmd.AddCommand(connectCmd(), switchChainCmd(), betCmd(), walletCmd(), oracleCmd())
}

func loadConfig() (*clientconfig.Config, error) {
	return clientconfig.Load(configFile)
}

func main() {
	log.Info(constants.AppName,
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
