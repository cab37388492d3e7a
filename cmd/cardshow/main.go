package main

import (
	"os"

	"github.com/cardshow/cardshow/cmd/cardshow/cmd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cardshow",
		Short:         "Cardshow trading card backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cmd.ServeCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.PayoutsCmd())
	rootCmd.AddCommand(cmd.PSDCmd())
	rootCmd.AddCommand(cmd.ImportCardsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
