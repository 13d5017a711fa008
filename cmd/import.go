package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/caseload-router/internal/importer"
	"github.com/sells-group/caseload-router/internal/store"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load patients, staff or cluster labels from CSV/XLSX",
}

// importRunner reads rows from --file and writes them with load.
func importRunner(kind string, load func(ctx context.Context, st store.Store, rows [][]string) (int64, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rows, err := importer.ReadRows(importFile)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := load(ctx, env.Store, rows)
		if err != nil {
			return eris.Wrapf(err, "import %s", kind)
		}

		zap.L().Info("import complete",
			zap.String("kind", kind),
			zap.Int64("rows", n),
			zap.String("file", importFile),
		)
		return nil
	}
}

var importPatientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "Insert patients (name, address, ... columns)",
	RunE: importRunner("patients", func(ctx context.Context, st store.Store, rows [][]string) (int64, error) {
		ps, err := importer.Patients(rows)
		if err != nil {
			return 0, err
		}
		return st.InsertPatients(ctx, ps)
	}),
}

var importStaffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Insert staff (name, home_base_address, ... columns)",
	RunE: importRunner("staff", func(ctx context.Context, st store.Store, rows [][]string) (int64, error) {
		staff, err := importer.Staff(rows)
		if err != nil {
			return 0, err
		}
		var n int64
		for _, s := range staff {
			if _, err := st.InsertStaff(ctx, s); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}),
}

var importClustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Apply externally computed cluster labels (id, cluster_id columns)",
	RunE: importRunner("clusters", func(ctx context.Context, st store.Store, rows [][]string) (int64, error) {
		labels, err := importer.ClusterLabels(rows)
		if err != nil {
			return 0, err
		}
		return st.SetClusterLabels(ctx, labels)
	}),
}

func init() {
	importCmd.PersistentFlags().StringVar(&importFile, "file", "", "path to a .csv or .xlsx file (required)")
	_ = importCmd.MarkPersistentFlagRequired("file")
	importCmd.AddCommand(importPatientsCmd, importStaffCmd, importClustersCmd)
	rootCmd.AddCommand(importCmd)
}
