package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/topoctl/topoctl/pkg/graph/visual"
	"github.com/topoctl/topoctl/pkg/schema/topology"
)

func newGraphCmd() *cobra.Command {
	var (
		format      string
		direction   string
		groupByKind bool
		outputFile  string
		width       int
		height      int
		theme       string
	)

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Render the dependency graph of a topology file",
		Long: `Render the dependency graph of a topology file as a Mermaid flowchart
or a PNG image (requires mermaid-cli on $PATH for images).

Examples:
  topoctl graph staging.topo.hcl
  topoctl graph staging.topo.hcl --group-by-kind --direction LR
  topoctl graph staging.topo.hcl --format image --out topology.png`,
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

			opts := visual.MermaidOptions{
				GroupByKind: groupByKind,
				Direction:   direction,
				Title:       topo.Name,
			}

			switch format {
			case "mermaid":
				text, err := visual.RenderMermaid(g, opts)
				if err != nil {
					return err
				}
				if outputFile != "" {
					return os.WriteFile(outputFile, []byte(text), 0644)
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil

			case "image":
				if outputFile == "" {
					return fmt.Errorf("--out is required with --format image")
				}
				data, err := visual.RenderImage(g, visual.ImageOptions{
					MermaidOptions: opts,
					Width:          width,
					Height:         height,
					Theme:          theme,
				})
				if err != nil {
					return err
				}
				return os.WriteFile(outputFile, data, 0644)

			default:
				return fmt.Errorf("unknown format %q (supported: mermaid, image)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "mermaid", "Output format: mermaid, image")
	cmd.Flags().StringVar(&direction, "direction", "TD", "Flowchart direction: TD, LR")
	cmd.Flags().BoolVar(&groupByKind, "group-by-kind", false, "Group nodes by resource kind")
	cmd.Flags().StringVar(&outputFile, "out", "", "Write output to a file instead of stdout")
	cmd.Flags().IntVar(&width, "width", 0, "Image width in pixels (0 = auto)")
	cmd.Flags().IntVar(&height, "height", 0, "Image height in pixels (0 = auto)")
	cmd.Flags().StringVar(&theme, "theme", "", "Mermaid theme for images (default, dark, forest, neutral)")

	return cmd
}
