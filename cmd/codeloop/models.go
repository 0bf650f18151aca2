package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinemde/codeloop/agentloop"
	"github.com/martinemde/codeloop/unifiedllm"
)

func modelsCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "models [provider]",
		Short: "List known models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := ""
			if len(args) == 1 {
				provider = args[0]
			}
			models := unifiedllm.ListModels(provider)
			out := cmd.OutOrStdout()

			if jsonOutput {
				data, err := json.MarshalIndent(models, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			if len(models) == 0 {
				fmt.Fprintf(out, "No models known for provider %q\n", provider)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "PROVIDER\tMODEL\tCONTEXT\tALIASES\t\n")
			for _, m := range models {
				id := m.ID
				if m.ID == agentloop.DefaultModel {
					id += " (default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", m.Provider, id, m.ContextWindow, strings.Join(m.Aliases, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
