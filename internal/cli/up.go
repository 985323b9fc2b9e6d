package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/topoctl/topoctl/pkg/engine"
	"github.com/topoctl/topoctl/pkg/engine/executor"
)

func newUpCmd() *cobra.Command {
	var (
		dryRun        bool
		forceUpdate   bool
		parallelism   int
		maxAttempts   int
		retryDelay    time.Duration
		backendType   string
		backendConfig []string
		provName      string
		provConfig    []string
	)

	cmd := &cobra.Command{
		Use:   "up <file>",
		Short: "Apply a topology file",
		Long: `Apply a topology file: plan against recorded state, provision the
declared resources in dependency order, and destroy resources that are
no longer declared.

Independent resources are provisioned in parallel. A failed resource
skips everything that depends on it; the rest of the graph still runs.

Examples:
  topoctl up staging.topo.hcl
  topoctl up staging.topo.hcl --dry-run
  topoctl up staging.topo.hcl --parallelism 4 --max-attempts 3`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr, err := createStateManagerWithConfig(backendType, backendConfig)
			if err != nil {
				return fmt.Errorf("failed to create state manager: %w", err)
			}

			p, err := createProvisioner(provName, provConfig)
			if err != nil {
				return err
			}

			eng := createEngine(mgr, p)

			result, err := eng.Up(ctx, engine.UpOptions{
				File:        args[0],
				Output:      cmd.OutOrStdout(),
				DryRun:      dryRun,
				ForceUpdate: forceUpdate,
				Executor: executor.Options{
					Parallelism: parallelism,
					MaxAttempts: maxAttempts,
					RetryDelay:  retryDelay,
				},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Report != nil {
				printRunReport(out, result.Report)
			}

			if !result.Success {
				return fmt.Errorf("up failed for topology %q", result.Topology)
			}

			if !dryRun && result.Report != nil {
				fmt.Fprintf(out, "\nTopology %q is ready (%s, run %s)\n",
					result.Topology, result.Duration.Round(time.Millisecond), result.RunID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without executing")
	cmd.Flags().BoolVar(&forceUpdate, "force", false, "Re-provision resources even if unchanged")
	cmd.Flags().IntVar(&parallelism, "parallelism", defaultParallelism, "Max concurrent provisioning calls")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 1, "Provision attempts per resource (transient errors only)")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", time.Second, "Pause between retry attempts")
	cmd.Flags().StringVar(&backendType, "backend", "", "State backend type")
	cmd.Flags().StringArrayVar(&backendConfig, "backend-config", nil, "Backend configuration (key=value)")
	cmd.Flags().StringVar(&provName, "provisioner", "", "Provisioner name (default simulator)")
	cmd.Flags().StringArrayVar(&provConfig, "provisioner-config", nil, "Provisioner configuration (key=value)")

	return cmd
}

// printRunReport prints per-node outcomes in topological order.
func printRunReport(w io.Writer, report *executor.RunReport) {
	fmt.Fprintf(w, "\n")
	for _, res := range report.Results {
		switch res.Status {
		case executor.StatusSuccess:
			fmt.Fprintf(w, "  ✓ %s (%s", res.Node, res.Duration.Round(time.Millisecond))
			if res.Attempts > 1 {
				fmt.Fprintf(w, ", %d attempts", res.Attempts)
			}
			fmt.Fprintf(w, ")\n")
		case executor.StatusFailure:
			fmt.Fprintf(w, "  ✗ %s: %v\n", res.Node, res.Error)
		case executor.StatusSkipped:
			fmt.Fprintf(w, "  - %s skipped\n", res.Node)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d provisioned, %d failed, %d skipped in %s\n",
		report.Provisioned, report.Failed, report.Skipped, report.Duration.Round(time.Millisecond))
}
