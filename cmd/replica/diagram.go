package replica

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/edgeflare/replica/pkg/flow"
	"github.com/edgeflare/replica/pkg/topology"
	"github.com/spf13/cobra"
)

var (
	diagramPath   string
	diagramOut    string
	diagramGroups bool
)

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Print the topology diagram",
	Long:  `Loads the connectors once and prints the mermaid flowchart of the topology, highlighting the node addressed by --path`,
	Example: `  replica diagram
  replica diagram --path /configuration/KC_SNK/replica_snk_postgres2_sink_account
  replica diagram --groups`,
	RunE: runDiagram,
}

func init() {
	diagramCmd.Flags().StringVarP(&diagramPath, "path", "p", "", "configuration route of the selected node")
	diagramCmd.Flags().StringVarP(&diagramOut, "out", "o", "", "write the chart to this file instead of stdout")
	diagramCmd.Flags().BoolVar(&diagramGroups, "groups", false, "print the node groups as JSON instead of the chart")
}

func runDiagram(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	groups, err := newLoader(logger).Load(cmd.Context())
	if err != nil {
		return err
	}

	if diagramGroups {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	tmpl, err := template()
	if err != nil {
		return err
	}
	sel := flow.Select(flow.ParseRoute(diagramPath), groups)
	chart := flow.Render(tmpl, groups, sel, flow.Options{
		Labeler:       topology.Labeler,
		SelectedColor: cfg.Topology.SelectedColor,
	})

	if diagramOut != "" {
		return os.WriteFile(diagramOut, []byte(chart+"\n"), 0o644)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), chart)
	return err
}
