// Command alloop runs an offline active-learning loop on one of the
// built-in toy systems, driven by a YAML configuration file. It exists to
// exercise the library end to end; production use embeds the learner
// package with real calculators and trainers instead.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "alloop",
		Short:         "Offline active learning for delta-learned interatomic potentials",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "alloop", version)
		},
	}
}
