package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/topoctl/topoctl/pkg/engine"
)

func newDestroyCmd() *cobra.Command {
	var (
		dryRun        bool
		autoApprove   bool
		backendType   string
		backendConfig []string
		provName      string
		provConfig    []string
	)

	cmd := &cobra.Command{
		Use:     "destroy <topology>",
		Aliases: []string{"down"},
		Short:   "Destroy a provisioned topology",
		Long: `Destroy every resource recorded for a topology, dependents first,
then remove the topology from state.

Examples:
  topoctl destroy staging
  topoctl destroy staging --auto-approve`,
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
			out := cmd.OutOrStdout()

			// Show what would be destroyed before asking
			preview, err := eng.Destroy(ctx, engine.DestroyOptions{
				Topology: args[0],
				Output:   out,
				DryRun:   true,
			})
			if err != nil {
				return err
			}
			if preview.Plan.IsEmpty() {
				return nil
			}

			if dryRun {
				return nil
			}

			// Confirm unless --auto-approve is provided
			if !autoApprove {
				fmt.Fprintf(out, "\nAre you sure you want to destroy topology %q? [y/N]: ", args[0])
				var response string
				_, _ = fmt.Scanln(&response)
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(out, "Destroy cancelled.")
					return nil
				}
			}

			result, err := eng.Destroy(ctx, engine.DestroyOptions{
				Topology: args[0],
				Output:   out,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nDestroyed %d resources in %s\n",
				result.Destroyed, result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be destroyed without executing")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip confirmation prompt")
	cmd.Flags().StringVar(&backendType, "backend", "", "State backend type")
	cmd.Flags().StringArrayVar(&backendConfig, "backend-config", nil, "Backend configuration (key=value)")
	cmd.Flags().StringVar(&provName, "provisioner", "", "Provisioner name (default simulator)")
	cmd.Flags().StringArrayVar(&provConfig, "provisioner-config", nil, "Provisioner configuration (key=value)")

	return cmd
}
