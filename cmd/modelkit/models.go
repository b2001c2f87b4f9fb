package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/modelkit/models"
)

func newModelsCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := models.NewCatalog(models.Deps{})
			presets := cat.Presets()
			switch output {
			case "table", "":
				return printPresetTable(cmd.OutOrStdout(), presets)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(presets)
			default:
				return fmt.Errorf("unknown output format %q (table or yaml)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or yaml")
	return cmd
}

func printPresetTable(w io.Writer, presets []models.Preset) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tBACKEND\tMODEL\tDESCRIPTION")
	for _, p := range presets {
		model := p.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Kind, p.Backend, model, p.Description)
	}
	return tw.Flush()
}
