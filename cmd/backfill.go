package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Geocode staff home bases that have no coordinates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "geocode")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.BackfillStaff(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "visited %d staff, located %d, not found %d\n",
			res.Visited, res.Located, res.NotFound)
		return err
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
