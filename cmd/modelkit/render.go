package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/modelkit/prompt"
)

func newRenderCmd() *cobra.Command {
	var (
		name   string
		system string
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "render [TEXT|-]",
		Short: "Print the prompt a local model would receive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, n := range prompt.Names() {
					fmt.Fprintln(out, n)
				}
				return nil
			}
			tmpl, err := prompt.Get(name)
			if err != nil {
				return err
			}
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			rendered, err := tmpl.Render(prompt.Input{
				System:    system,
				SystemSet: cmd.Flags().Changed("system"),
				Text:      text,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, rendered)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "template", "", "template name")
	cmd.Flags().StringVarP(&system, "system", "s", "", "system prompt (default: the template's)")
	cmd.Flags().BoolVar(&list, "list", false, "list template names")
	cmd.MarkFlagsOneRequired("template", "list")
	return cmd
}
