package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/topoctl/topoctl/pkg/engine/planner"
)

func newPlanCmd() *cobra.Command {
	var (
		forceUpdate   bool
		outputFormat  string
		backendType   string
		backendConfig []string
		provName      string
		provConfig    []string
	)

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Show what an up operation would change",
		Long: `Compare a topology file against recorded state and show the resources
that would be created, updated, or destroyed. Nothing is provisioned and
no state is written.

Examples:
  topoctl plan staging.topo.hcl
  topoctl plan staging.topo.hcl -o json`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			mgr, err := createStateManagerWithConfig(backendType, backendConfig)
			if err != nil {
				return fmt.Errorf("failed to create state manager: %w", err)
			}

			p, err := createProvisioner(provName, provConfig)
			if err != nil {
				return err
			}

			plan, err := createEngine(mgr, p).Plan(ctx, args[0], forceUpdate)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch outputFormat {
			case "json":
				data, err := json.MarshalIndent(planSummary(plan), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
			case "yaml":
				data, err := yaml.Marshal(planSummary(plan))
				if err != nil {
					return fmt.Errorf("failed to marshal YAML: %w", err)
				}
				fmt.Fprintln(out, string(data))
			default:
				printPlan(out, plan)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&forceUpdate, "force", false, "Plan updates for unchanged resources")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().StringVar(&backendType, "backend", "", "State backend type")
	cmd.Flags().StringArrayVar(&backendConfig, "backend-config", nil, "Backend configuration (key=value)")
	cmd.Flags().StringVar(&provName, "provisioner", "", "Provisioner name (default simulator)")
	cmd.Flags().StringArrayVar(&provConfig, "provisioner-config", nil, "Provisioner configuration (key=value)")

	return cmd
}

// planChange is the serializable form of a planned change.
type planChange struct {
	Node   string `json:"node" yaml:"node"`
	Action string `json:"action" yaml:"action"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// planDocument is the serializable form of a plan.
type planDocument struct {
	Topology string       `json:"topology" yaml:"topology"`
	Changes  []planChange `json:"changes" yaml:"changes"`
	ToCreate int          `json:"to_create" yaml:"to_create"`
	ToUpdate int          `json:"to_update" yaml:"to_update"`
	ToDelete int          `json:"to_delete" yaml:"to_delete"`
	NoChange int          `json:"no_change" yaml:"no_change"`
}

func planSummary(plan *planner.Plan) planDocument {
	doc := planDocument{
		Topology: plan.Topology,
		Changes:  []planChange{},
		ToCreate: plan.ToCreate,
		ToUpdate: plan.ToUpdate,
		ToDelete: plan.ToDelete,
		NoChange: plan.NoChange,
	}
	for _, change := range plan.Changes {
		doc.Changes = append(doc.Changes, planChange{
			Node:   change.Node.ID,
			Action: string(change.Action),
			Reason: change.Reason,
		})
	}
	return doc
}

func printPlan(w io.Writer, plan *planner.Plan) {
	fmt.Fprintf(w, "Plan for topology %q:\n\n", plan.Topology)

	if plan.IsEmpty() {
		fmt.Fprintln(w, "No changes required.")
		return
	}

	for _, change := range plan.Changes {
		if change.Action == planner.ActionNoop {
			continue
		}

		symbol := "?"
		switch change.Action {
		case planner.ActionCreate:
			symbol = "+"
		case planner.ActionUpdate:
			symbol = "~"
		case planner.ActionDelete:
			symbol = "-"
		}

		fmt.Fprintf(w, "  %s %s", symbol, change.Node.ID)
		if len(change.PropertyChanges) > 0 {
			fmt.Fprintf(w, " (%s)", planner.FormatChanges(change.PropertyChanges))
		} else if change.Reason != "" && change.Action != planner.ActionCreate {
			fmt.Fprintf(w, " (%s)", change.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nSummary: %d to create, %d to update, %d to delete, %d unchanged\n",
		plan.ToCreate, plan.ToUpdate, plan.ToDelete, plan.NoChange)
}
