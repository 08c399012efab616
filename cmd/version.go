package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/quantracode/VibeCheck-sub003/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibecheck %s (%s/%s)\n", version.Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
