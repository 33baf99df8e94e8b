package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/pkg/testcase"
)

func newRunCmd(o *options) *cobra.Command {
	var inputsFile string

	cmd := &cobra.Command{
		Use:   "run <testcase>",
		Short: "Run a testcase and print its result",
		Long:  "Run a testcase and print its result. Without --inputs the inputs stored through the API are used.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			var inputs map[string]any
			if inputsFile != "" {
				f, err := os.Open(inputsFile)
				if err != nil {
					return fmt.Errorf("failed to open inputs: %w", err)
				}
				in, err := testcase.LoadInputs(f, id)
				f.Close()
				if err != nil {
					return err
				}
				inputs = in
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := NewAgent(ctx, o.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.Runs.Start(ctx, id, inputs)
			if err != nil {
				return err
			}

			final, err := a.Runs.Await(ctx, run.ID)
			if err != nil {
				// interrupted: cancel so tear down runs before exiting
				final, err = a.Runs.Cancel(context.Background(), run.ID)
				if err != nil {
					return err
				}
			}

			printRun(o, final)
			if final.Status != models.RunStatusPassed {
				return fmt.Errorf("testcase %s %s", final.TestcaseID, final.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputsFile, "inputs", "i", "", "JSON file with the testcase inputs")
	return cmd
}

func printRun(o *options, run *models.Run) {
	status := color.New(color.FgRed, color.Bold).Sprint("FAILED")
	switch run.Status {
	case models.RunStatusPassed:
		status = color.New(color.FgGreen, color.Bold).Sprint("PASSED")
	case models.RunStatusCanceled:
		status = color.New(color.FgYellow, color.Bold).Sprint("CANCELED")
	}

	fmt.Fprintf(o.stdout, "%s %s (%s) in %s\n", status, run.TestcaseID, run.Name, run.Duration().Round(time.Millisecond))
	if run.Result != "" {
		fmt.Fprintf(o.stdout, "  %s\n", run.Result)
	}
}
