package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func PayoutsCmd() *cobra.Command {
	payouts := &cobra.Command{
		Use:   "payouts",
		Short: "Creator payout operations",
	}

	var timeout time.Duration
	run := &cobra.Command{
		Use:   "run",
		Short: "Transfer pending creator earnings now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeApp(a)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := a.PayoutService.Run(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	run.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "abort the run after this long")

	payouts.AddCommand(run)
	return payouts
}
