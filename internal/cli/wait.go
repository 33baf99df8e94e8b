package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/vmware"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

type waitFlags struct {
	timeout       time.Duration
	interval      time.Duration
	soft          bool
	killOnTimeout bool
}

func (f *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "wait timeout, the configured default when zero")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "poll interval, the configured default when zero")
	cmd.Flags().BoolVar(&f.soft, "soft", false, "print the last status of a wait that did not reach its state instead of only the error")
	cmd.Flags().BoolVar(&f.killOnTimeout, "kill-on-timeout", false, "kill the job when the wait times out")
}

func (f *waitFlags) waiter(o *options) *waiter.JobWaiter {
	opts := []waiter.Option{}
	if f.timeout > 0 {
		opts = append(opts, waiter.WithTimeout(f.timeout))
	}
	if f.interval > 0 {
		opts = append(opts, waiter.WithInterval(f.interval))
	}
	if f.soft {
		opts = append(opts, waiter.WithSoftCheck())
	}
	if f.killOnTimeout {
		opts = append(opts, waiter.WithKillOnTimeout())
	}
	return newWaiter(o.cfg).With(opts...)
}

func newWaitCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait for a product job, a laptop RunStatus or a vSphere task",
	}
	cmd.AddCommand(newWaitJobCmd(o), newWaitRunStatusCmd(o), newWaitTaskCmd(o))
	return cmd
}

func newWaitJobCmd(o *options) *cobra.Command {
	var (
		wf     waitFlags
		states []string
		action string
	)

	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Wait for a product job to reach a state, optionally after suspending, resuming or killing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := newProductClient(o.cfg)
			if err != nil {
				return err
			}
			h, err := client.Job(ctx, args[0])
			if err != nil {
				return err
			}
			w := wf.waiter(o)

			if action != "" {
				a, err := waiter.ParseAction(action)
				if err != nil {
					return err
				}
				res, err := w.ModifyJob(ctx, h, a)
				return printWait(o, h, res, err)
			}

			expected := make([]waiter.JobState, 0, len(states))
			for _, s := range states {
				expected = append(expected, waiter.ParseJobState(s))
			}
			res, err := w.WaitForState(ctx, h, expected...)
			return printWait(o, h, res, err)
		},
	}

	wf.register(cmd)
	cmd.Flags().StringSliceVar(&states, "state", []string{string(waiter.StateCompleted)}, "states that end the wait")
	cmd.Flags().StringVar(&action, "action", "", "suspend, resume or kill the job first")
	return cmd
}

func newWaitRunStatusCmd(o *options) *cobra.Command {
	var wf waitFlags

	cmd := &cobra.Command{
		Use:   "runstatus <client> <subclient>",
		Short: "Wait for the RunStatus registry value of a laptop client to become idle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := newProductClient(o.cfg)
			if err != nil {
				return err
			}
			h := productapi.NewRunStatusHandle(client, args[0], args[1])
			res, err := wf.waiter(o).WaitForCompletion(ctx, h)
			return printWait(o, h, res, err)
		},
	}

	wf.register(cmd)
	return cmd
}

func newWaitTaskCmd(o *options) *cobra.Command {
	var wf waitFlags

	cmd := &cobra.Command{
		Use:   "task <moid>",
		Short: "Wait for a vSphere task to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !o.cfg.VSphere.Enabled() {
				return fmt.Errorf("vSphere url is not configured")
			}
			c, err := newVSphereClient(ctx, o.cfg)
			if err != nil {
				return err
			}
			defer c.Logout(context.Background())

			h := vmware.NewVMManager(c.Client, o.cfg.VSphere.Username).Task(args[0])
			res, err := wf.waiter(o).WaitForCompletion(ctx, h)
			return printWait(o, h, res, err)
		},
	}

	wf.register(cmd)
	return cmd
}

func printWait(o *options, h waiter.JobHandle, res waiter.Result, err error) error {
	mark := color.New(color.FgGreen, color.Bold).Sprint("REACHED")
	if err != nil || !res.Reached {
		mark = color.New(color.FgRed, color.Bold).Sprint("NOT REACHED")
	}

	fmt.Fprintf(o.stdout, "%s job %s state=%s phase=%q progress=%d%% polls=%d elapsed=%s\n",
		mark, h.ID(), res.Status.State, res.Status.Phase, res.Status.PercentComplete, res.Polls, res.Elapsed.Round(time.Millisecond))
	if res.Status.DelayReason != "" {
		fmt.Fprintf(o.stdout, "  delay reason: %s\n", res.Status.DelayReason)
	}
	if err == nil && !res.Reached {
		return fmt.Errorf("job %s did not reach the expected state", h.ID())
	}
	return err
}
