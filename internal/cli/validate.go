package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/topoctl/topoctl/pkg/graph"
	"github.com/topoctl/topoctl/pkg/schema/topology"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a topology file",
		Long: `Parse a topology file and validate it: kinds and properties are
checked against their specs, references must point at declared resources
and outputs, and the dependency graph must be acyclic.

Examples:
  topoctl validate staging.topo.hcl`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := topology.NewParser().Parse(args[0])
			if err != nil {
				return err
			}

			g, err := topology.BuildGraph(topo)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Topology %q is valid.\n\n", topo.Name)
			fmt.Fprintf(out, "Resources: %d\n", len(topo.Resources))

			counts := make(map[graph.Kind]int)
			for _, node := range g.Nodes {
				counts[node.Kind]++
			}
			kinds := make([]string, 0, len(counts))
			for kind := range counts {
				kinds = append(kinds, string(kind))
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Fprintf(out, "  %-12s %d\n", kind, counts[graph.Kind(kind)])
			}

			return nil
		},
	}

	return cmd
}
