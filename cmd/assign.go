package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Print the proposed cluster-to-staff assignments as JSON",
	Long:  "Computes each cluster's centroid and its nearest staff member. Nothing is written; commit reviewed assignments through the save-assignments endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		proposal, err := env.Service.ProposeAssignments(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(proposal), "encode proposal")
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
}
