package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/internal/report"
	"github.com/backupqa/qa-agent/internal/store"
)

func newReportCmd(o *options) *cobra.Command {
	var (
		output    string
		testcases []string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the run and wait history to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.cfg.Agent.DataFolder == "" {
				return fmt.Errorf("report needs --data-folder: the in-memory history is empty")
			}
			ctx := cmd.Context()

			db, err := store.NewDB(o.cfg.Agent.DBPath())
			if err != nil {
				return err
			}
			st := store.NewStore(db)
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			runs, err := st.Runs().List(ctx, store.ByTestcase(testcases...))
			if err != nil {
				return err
			}
			runIDs := make(map[string]bool, len(runs))
			for _, r := range runs {
				runIDs[r.ID] = true
			}

			waits, err := st.Waits().List(ctx)
			if err != nil {
				return err
			}
			if len(testcases) > 0 {
				kept := waits[:0]
				for _, w := range waits {
					if runIDs[w.RunID] {
						kept = append(kept, w)
					}
				}
				waits = kept
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := report.Write(f, runs, waits); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			zap.S().Named("cli").Infow("report written", "file", output, "runs", len(runs), "waits", len(waits))
			fmt.Fprintf(o.stdout, "wrote %d runs and %d waits to %s\n", len(runs), len(waits), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "qa-report.xlsx", "workbook to write")
	cmd.Flags().StringSliceVar(&testcases, "testcase", nil, "only export runs of these testcases")
	return cmd
}
