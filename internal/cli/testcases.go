package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/backupqa/qa-agent/internal/testcases"
	"github.com/backupqa/qa-agent/pkg/testcase"
)

func newTestcasesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "testcases",
		Short: "List the built-in testcases and their required inputs",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(o.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tREQUIRED INPUTS")
			for _, info := range testcases.Register(testcase.NewRegistry()).List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.ID, info.Name, strings.Join(info.RequiredInputs, ", "))
			}
			return tw.Flush()
		},
	}
}
