package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/topoctl/topoctl/pkg/graph"
	"github.com/topoctl/topoctl/pkg/graph/visual"
	"github.com/topoctl/topoctl/pkg/state/types"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect recorded topology state",
		Long:  `Commands for listing and inspecting topologies and their run history.`,
	}

	cmd.AddCommand(newStateListCmd())
	cmd.AddCommand(newStateShowCmd())
	cmd.AddCommand(newStateRunsCmd())

	return cmd
}

func newStateListCmd() *cobra.Command {
	var (
		outputFormat  string
		backendType   string
		backendConfig []string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded topologies",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			mgr, err := createStateManagerWithConfig(backendType, backendConfig)
			if err != nil {
				return fmt.Errorf("failed to create state manager: %w", err)
			}

			refs, err := mgr.ListTopologies(ctx)
			if err != nil {
				return fmt.Errorf("failed to list topologies: %w", err)
			}

			out := cmd.OutOrStdout()
			switch outputFormat {
			case "json":
				return printJSON(out, refs)
			case "yaml":
				return printYAML(out, refs)
			default:
				if len(refs) == 0 {
					fmt.Fprintln(out, "No topologies recorded.")
					return nil
				}
				fmt.Fprintf(out, "%-20s %-14s %-10s %s\n", "NAME", "STATUS", "RESOURCES", "UPDATED")
				for _, ref := range refs {
					fmt.Fprintf(out, "%-20s %-14s %-10d %s\n",
						ref.Name, ref.Status, ref.Resources,
						ref.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().StringVar(&backendType, "backend", "", "State backend type")
	cmd.Flags().StringArrayVar(&backendConfig, "backend-config", nil, "Backend configuration (key=value)")

	return cmd
}

func newStateShowCmd() *cobra.Command {
	var (
		outputFormat  string
		backendType   string
		backendConfig []string
	)

	cmd := &cobra.Command{
		Use:   "show <topology>",
		Short: "Show a topology's recorded state",
		Long: `Show the recorded state of a topology.

The mermaid format renders a status diagram with every resource colored
by its recorded outcome.

Examples:
  topoctl state show staging
  topoctl state show staging -o json
  topoctl state show staging -o mermaid`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			mgr, err := createStateManagerWithConfig(backendType, backendConfig)
			if err != nil {
				return fmt.Errorf("failed to create state manager: %w", err)
			}

			topoState, err := mgr.GetTopology(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get topology %q: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			switch outputFormat {
			case "json":
				return printJSON(out, topoState)
			case "mermaid":
				return printStatusDiagram(out, topoState)
			default:
				return printYAML(out, topoState)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format: yaml, json, mermaid")
	cmd.Flags().StringVar(&backendType, "backend", "", "State backend type")
	cmd.Flags().StringArrayVar(&backendConfig, "backend-config", nil, "Backend configuration (key=value)")

	return cmd
}

func newStateRunsCmd() *cobra.Command {
	var (
		outputFormat  string
		backendType   string
		backendConfig []string
	)

	cmd := &cobra.Command{
		Use:   "runs <topology> [run-id]",
		Short: "List runs for a topology, or show a single run",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			mgr, err := createStateManagerWithConfig(backendType, backendConfig)
			if err != nil {
				return fmt.Errorf("failed to create state manager: %w", err)
			}

			out := cmd.OutOrStdout()

			if len(args) == 2 {
				run, err := mgr.GetRun(ctx, args[0], args[1])
				if err != nil {
					return fmt.Errorf("failed to get run %q: %w", args[1], err)
				}
				if outputFormat == "json" {
					return printJSON(out, run)
				}
				return printYAML(out, run)
			}

			ids, err := mgr.ListRuns(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if len(ids) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format for a single run: yaml, json")
	cmd.Flags().StringVar(&backendType, "backend", "", "State backend type")
	cmd.Flags().StringArrayVar(&backendConfig, "backend-config", nil, "Backend configuration (key=value)")

	return cmd
}

// printStatusDiagram renders recorded state as a colored Mermaid flowchart.
func printStatusDiagram(w io.Writer, topoState *types.TopologyState) error {
	g := graph.NewGraph(topoState.Name)
	for _, res := range topoState.Resources {
		_ = g.AddNode(graph.NewNode(graph.Kind(res.Kind), res.Name))
	}
	for _, res := range topoState.Resources {
		for _, dep := range res.DependsOn {
			if topoState.Resources[dep] != nil {
				_ = g.AddEdge(res.ID, dep)
			}
		}
	}

	statuses := make(map[string]visual.NodeStatus, len(topoState.Resources))
	for id, res := range topoState.Resources {
		switch res.Status {
		case types.ResourceStatusReady:
			statuses[id] = visual.NodeStatusReady
		case types.ResourceStatusFailed:
			statuses[id] = visual.NodeStatusFailed
		case types.ResourceStatusSkipped:
			statuses[id] = visual.NodeStatusSkipped
		default:
			statuses[id] = visual.NodeStatusPending
		}
	}

	text, err := visual.RenderStatusMermaid(g, statuses, visual.StatusOptions{Title: topoState.Name})
	if err != nil {
		return err
	}
	fmt.Fprint(w, text)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printYAML(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Fprint(w, string(data))
	return nil
}
