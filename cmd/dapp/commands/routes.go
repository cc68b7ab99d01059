package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the gated route table in match order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for i, p := range wire.Gate.Routes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i+1, p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "    *  not found")
			return nil
		},
	}
}
