package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Geocode and assign patients missing coordinates or staff",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "geocode")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Service.ProcessUnassigned(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "processed %d patients\n", n)
		return err
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
