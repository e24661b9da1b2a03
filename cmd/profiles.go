package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/pn-weights/internal/census"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the built-in census profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatProfiles(cmd.OutOrStdout(), census.Builtins())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

// formatProfiles writes a tabular representation of profiles to out.
func formatProfiles(out io.Writer, profiles []census.Profile) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVARIANT\tLABEL\tVARIABLES\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t---------\t-----------")
	for _, p := range profiles {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Name, p.Variant, p.Label, strings.Join(p.Variables, ","), p.Description)
	}
	_ = w.Flush()
}
