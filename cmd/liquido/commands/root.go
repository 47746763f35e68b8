// Package commands holds the liquido command line.
package commands

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "liquido",
		Short:        "Net result calculator for operations",
		SilenceUsage: true,
	}
	root.AddCommand(calcCmd(), hashPasswordCmd())
	return root
}
