package main

import (
	"fmt"

	"github.com/quantumauth-io/prediction-market-client/internal/oracle"
	"github.com/spf13/cobra"
)

func oracleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Bet resolution service",
	}
	cmd.AddCommand(oracleRunCmd())
	return cmd
}

func oracleRunCmd() *cobra.Command {
	var (
		envFiles []string
		outcome  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve the next unresolved bet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, err := parseOutcome(outcome)
			if err != nil {
				return err
			}
			s, err := oracle.LoadSettings(envFiles...)
			if err != nil {
				return err
			}

			r, closeFn, err := oracle.Dial(cmd.Context(), s, oracle.WithOutcomeSource(oracle.StaticOutcome(yes)))
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			if !res.Resolved {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no pending bets")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "bet %s resolved: %s\n", res.BetID, res.TxHash.Hex())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	cmd.Flags().StringVar(&outcome, "outcome", "yes", "outcome to resolve with: yes or no")
	return cmd
}
